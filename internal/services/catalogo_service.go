package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

type itemCatalogoPtr[T any] interface {
	*T
	models.ItemCatalogo
}

// Importador recebe nomes já decodificados de um arquivo e cria os que faltam.
type Importador interface {
	Chave() string
	ImportarNomes(nomes []string, userSession *auth.SessionData) (criados, ignorados int, err error)
}

// CatalogoService gerencia um cadastro simples e sua lixeira.
type CatalogoService[T any] interface {
	Importador

	Listar(incluirInativos bool, userSession *auth.SessionData) ([]*T, error)
	Criar(input models.CatalogoCreate, userSession *auth.SessionData) (*T, error)
	Atualizar(id uint64, input models.CatalogoUpdate, userSession *auth.SessionData) (*T, error)
	AlternarAtivo(id uint64, userSession *auth.SessionData) (*T, error)

	MoverParaLixeira(id uint64, userSession *auth.SessionData) (*T, error)
	Restaurar(id uint64, userSession *auth.SessionData) (*T, error)
	ExcluirPermanente(id uint64, userSession *auth.SessionData) (*T, error)
	ListarLixeira(userSession *auth.SessionData) ([]*T, error)
}

type catalogoServiceImpl[T any, PT itemCatalogoPtr[T]] struct {
	chave           string
	papel           auth.Capability
	repo            repositories.CatalogoRepository[T]
	lixeira         repositories.LixeiraRepository[T]
	auditLogService AuditLogService
}

// NewCatalogoService cria o serviço de um cadastro. `chave` identifica o cadastro
// na auditoria e na importação (ex: "PARTES"); `papel` é exigido em todas as operações.
func NewCatalogoService[T any, PT itemCatalogoPtr[T]](
	chave string,
	papel auth.Capability,
	repo repositories.CatalogoRepository[T],
	lixeira repositories.LixeiraRepository[T],
	auditLog AuditLogService,
) CatalogoService[T] {
	if repo == nil || lixeira == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewCatalogoService(%s)", chave)
	}
	return &catalogoServiceImpl[T, PT]{
		chave:           strings.ToUpper(chave),
		papel:           papel,
		repo:            repo,
		lixeira:         lixeira,
		auditLogService: auditLog,
	}
}

func (s *catalogoServiceImpl[T, PT]) Chave() string { return s.chave }

func (s *catalogoServiceImpl[T, PT]) acao(sufixo string) string {
	return s.chave + "_" + sufixo
}

func metadadosItem[T any, PT itemCatalogoPtr[T]](item *T) models.JSONMetadata {
	b := PT(item).Base()
	return models.JSONMetadata{"id": b.ID, "nome": b.Nome}
}

func (s *catalogoServiceImpl[T, PT]) Listar(incluirInativos bool, userSession *auth.SessionData) ([]*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	return s.repo.Listar(incluirInativos)
}

func (s *catalogoServiceImpl[T, PT]) Criar(input models.CatalogoCreate, userSession *auth.SessionData) (*T, error) {
	// 1. Permissão
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	// 2. Validação
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	// 3. Persistência (unicidade de nome conferida no repositório)
	item, err := s.repo.Create(input.Nome, userSession.UserID)
	if err != nil {
		return nil, err
	}
	// 4. Auditoria
	registrar(s.auditLogService, userSession, s.acao("CREATE"),
		fmt.Sprintf("%s '%s' criado(a).", PT(item).Rotulo(), input.Nome), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) Atualizar(id uint64, input models.CatalogoUpdate, userSession *auth.SessionData) (*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	item, err := s.repo.Update(id, input)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, s.acao("UPDATE"),
		fmt.Sprintf("%s %d atualizado(a).", PT(item).Rotulo(), id), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) AlternarAtivo(id uint64, userSession *auth.SessionData) (*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	item, err := s.repo.AlternarAtivo(id)
	if err != nil {
		return nil, err
	}
	b := PT(item).Base()
	registrar(s.auditLogService, userSession, s.acao("TOGGLE"),
		fmt.Sprintf("%s '%s' agora está ativo=%t.", PT(item).Rotulo(), b.Nome, b.Ativo), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) MoverParaLixeira(id uint64, userSession *auth.SessionData) (*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	item, err := s.lixeira.MoveToTrash(id, userSession.UserID)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, s.acao("TRASH"),
		fmt.Sprintf("%s '%s' movido(a) para a lixeira.", PT(item).Rotulo(), PT(item).Base().Nome), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) Restaurar(id uint64, userSession *auth.SessionData) (*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	item, err := s.lixeira.Restore(id)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, s.acao("RESTORE"),
		fmt.Sprintf("%s '%s' restaurado(a).", PT(item).Rotulo(), PT(item).Base().Nome), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) ExcluirPermanente(id uint64, userSession *auth.SessionData) (*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	item, err := s.lixeira.Purge(id)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, s.acao("PURGE"),
		fmt.Sprintf("%s '%s' excluído(a) permanentemente.", PT(item).Rotulo(), PT(item).Base().Nome), metadadosItem[T, PT](item))
	return item, nil
}

func (s *catalogoServiceImpl[T, PT]) ListarLixeira(userSession *auth.SessionData) ([]*T, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return nil, err
	}
	return s.lixeira.ListTrashed()
}

// ImportarNomes cria cada nome novo; nomes vazios, repetidos no arquivo ou já
// cadastrados (inclusive na lixeira) são contados como ignorados.
func (s *catalogoServiceImpl[T, PT]) ImportarNomes(nomes []string, userSession *auth.SessionData) (int, int, error) {
	if err := auth.CheckRole(userSession, s.papel); err != nil {
		return 0, 0, err
	}
	criados, ignorados := 0, 0
	vistos := map[string]bool{}
	for _, bruto := range nomes {
		in := models.CatalogoCreate{Nome: bruto}
		if err := in.CleanAndValidate(); err != nil {
			ignorados++
			continue
		}
		chave := utils.ChaveNome(in.Nome)
		if vistos[chave] {
			ignorados++
			continue
		}
		vistos[chave] = true
		if _, err := s.repo.Create(in.Nome, userSession.UserID); err != nil {
			if errors.Is(err, appErrors.ErrConflict) {
				ignorados++
				continue
			}
			return criados, ignorados, err
		}
		criados++
	}
	registrar(s.auditLogService, userSession, s.acao("IMPORT"),
		fmt.Sprintf("Importação de %s: %d criado(s), %d ignorado(s).", strings.ToLower(s.chave), criados, ignorados),
		models.JSONMetadata{"criados": criados, "ignorados": ignorados})
	return criados, ignorados, nil
}
