package auth

import (
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// Capability é um papel que libera um conjunto de operações.
type Capability string

const (
	CapOperador  Capability = "operador"
	CapQualidade Capability = "qualidade"
	CapLoja      Capability = "loja"
	CapSuperuser Capability = "superuser"
)

// Mensagens exibidas ao usuário quando o papel exigido falta.
var mensagensNegacao = map[Capability]string{
	CapOperador:  "Apenas operadores podem realizar esta ação.",
	CapQualidade: "Apenas usuários da qualidade podem realizar esta ação.",
	CapLoja:      "Acesso negado. Área restrita para usuários da loja.",
	CapSuperuser: "Apenas administradores podem realizar esta ação.",
}

// RoleSet é o conjunto de papéis resolvido para um usuário.
type RoleSet map[Capability]bool

// ResolveRoles calcula os papéis de um usuário a partir do flag de superusuário,
// do tipo do perfil e dos grupos. Qualquer sinal verdadeiro concede o papel;
// pertencer ao grupo Loja equivale a perfil do tipo loja.
func ResolveRoles(user *models.DBUser) RoleSet {
	roles := RoleSet{}
	if user == nil {
		return roles
	}
	if user.IsSuperuser {
		roles[CapSuperuser] = true
	}
	if user.Perfil != nil {
		tipo := strings.ToLower(strings.TrimSpace(user.Perfil.Tipo))
		if models.ValidTipos[tipo] {
			roles[Capability(tipo)] = true
		}
	}
	if user.InGroup(models.GrupoLoja) {
		roles[CapLoja] = true
	}
	return roles
}

// Has informa se o conjunto contém o papel. Superusuário contém todos.
func (rs RoleSet) Has(c Capability) bool {
	return rs[CapSuperuser] || rs[c]
}

// Require falha com ErrPermissionDenied se o papel não estiver presente.
func (rs RoleSet) Require(c Capability) error {
	if rs.Has(c) {
		return nil
	}
	msg, ok := mensagensNegacao[c]
	if !ok {
		msg = fmt.Sprintf("papel '%s' necessário", c)
	}
	return fmt.Errorf("%w: %s", appErrors.ErrPermissionDenied, msg)
}

// Names lista os papéis em ordem alfabética (para auditoria e sessão).
func (rs RoleSet) Names() []string {
	names := make([]string, 0, len(rs))
	for c, ok := range rs {
		if ok {
			names = append(names, string(c))
		}
	}
	sort.Strings(names)
	return names
}

// CheckRole exige que a sessão exista e tenha o papel.
func CheckRole(userSession *SessionData, required Capability) error {
	if userSession == nil {
		appLogger.Warn("Verificação de papel falhou: sessão de usuário ausente.")
		return fmt.Errorf("%w: usuário não autenticado", appErrors.ErrUnauthorized)
	}
	if err := userSession.Capabilities.Require(required); err != nil {
		appLogger.Debugf("Papel '%s' NEGADO para usuário '%s'.", required, userSession.Username)
		return err
	}
	return nil
}

// CheckOwnerOrRole libera o dono do recurso quando ele é operador, ou qualquer
// usuário com o papel privilegiado informado.
func CheckOwnerOrRole(userSession *SessionData, ownerID uint64, privileged Capability) error {
	if userSession == nil {
		return fmt.Errorf("%w: usuário não autenticado", appErrors.ErrUnauthorized)
	}
	caps := userSession.Capabilities
	if caps.Has(privileged) {
		return nil
	}
	if caps.Has(CapOperador) && userSession.UserID == ownerID {
		return nil
	}
	appLogger.Debugf("Usuário '%s' sem permissão sobre recurso do usuário %d.", userSession.Username, ownerID)
	return fmt.Errorf("%w: Você não tem permissão para editar esta ficha.", appErrors.ErrPermissionDenied)
}
