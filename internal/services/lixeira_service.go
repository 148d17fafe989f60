package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

const msgLixeiraQualidade = "Apenas usuários da qualidade podem acessar a lixeira"

// LixeiraService é a lixeira única das fichas de produção e de inventário.
type LixeiraService interface {
	ListFichasExcluidas(userSession *auth.SessionData) ([]models.FichaResumo, error)
	Restaurar(tipo string, id uint64, userSession *auth.SessionData) (*models.FichaResumo, error)
	ExcluirPermanente(tipo string, id uint64, userSession *auth.SessionData) (*models.FichaResumo, error)
}

type lixeiraServiceImpl struct {
	fichas          repositories.LixeiraRepository[models.Ficha]
	inventarios     repositories.LixeiraRepository[models.FichaInventario]
	auditLogService AuditLogService
}

// NewLixeiraService cria uma nova instância de LixeiraService.
func NewLixeiraService(
	fichas repositories.LixeiraRepository[models.Ficha],
	inventarios repositories.LixeiraRepository[models.FichaInventario],
	auditLog AuditLogService,
) LixeiraService {
	if fichas == nil || inventarios == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewLixeiraService")
	}
	return &lixeiraServiceImpl{fichas: fichas, inventarios: inventarios, auditLogService: auditLog}
}

// ehInventario: qualquer tipo diferente de "Inventario" é tratado como ficha de produção.
func ehInventario(tipo string) bool {
	return strings.EqualFold(strings.TrimSpace(tipo), models.TipoInventario)
}

// naLixeira traduz as falhas de estado para a mensagem única da tela.
func naLixeira(err error) error {
	if errors.Is(err, appErrors.ErrNotFound) || errors.Is(err, appErrors.ErrNotTrashed) {
		return fmt.Errorf("%w: Ficha não encontrada na lixeira", appErrors.ErrNotFound)
	}
	return err
}

// ListFichasExcluidas junta os dois tipos, excluídas mais recentemente primeiro.
func (s *lixeiraServiceImpl) ListFichasExcluidas(userSession *auth.SessionData) ([]models.FichaResumo, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, msgLixeiraQualidade); err != nil {
		return nil, err
	}
	fichas, err := s.fichas.ListTrashed()
	if err != nil {
		return nil, err
	}
	inventarios, err := s.inventarios.ListTrashed()
	if err != nil {
		return nil, err
	}
	out := make([]models.FichaResumo, 0, len(fichas)+len(inventarios))
	for _, f := range fichas {
		out = append(out, models.ToFichaResumo(f))
	}
	for _, f := range inventarios {
		out = append(out, models.ToFichaInventarioResumo(f))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ExcluidoEm, out[j].ExcluidoEm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (s *lixeiraServiceImpl) Restaurar(tipo string, id uint64, userSession *auth.SessionData) (*models.FichaResumo, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, msgLixeiraQualidade); err != nil {
		return nil, err
	}
	var resumo models.FichaResumo
	if ehInventario(tipo) {
		f, err := s.inventarios.Restore(id)
		if err != nil {
			return nil, naLixeira(err)
		}
		resumo = models.ToFichaInventarioResumo(f)
	} else {
		f, err := s.fichas.Restore(id)
		if err != nil {
			return nil, naLixeira(err)
		}
		resumo = models.ToFichaResumo(f)
	}
	registrar(s.auditLogService, userSession, "FICHA_RESTORE",
		fmt.Sprintf("%s '%s' restaurada da lixeira.", resumo.Tipo, resumo.NomeFicha),
		models.JSONMetadata{"tipo": resumo.Tipo, "ficha_id": resumo.ID})
	return &resumo, nil
}

func (s *lixeiraServiceImpl) ExcluirPermanente(tipo string, id uint64, userSession *auth.SessionData) (*models.FichaResumo, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, msgLixeiraQualidade); err != nil {
		return nil, err
	}
	var resumo models.FichaResumo
	if ehInventario(tipo) {
		f, err := s.inventarios.Purge(id)
		if err != nil {
			return nil, naLixeira(err)
		}
		resumo = models.ToFichaInventarioResumo(f)
	} else {
		f, err := s.fichas.Purge(id)
		if err != nil {
			return nil, naLixeira(err)
		}
		resumo = models.ToFichaResumo(f)
	}
	registrar(s.auditLogService, userSession, "FICHA_PURGE",
		fmt.Sprintf("%s '%s' excluída permanentemente.", resumo.Tipo, resumo.NomeFicha),
		models.JSONMetadata{"tipo": resumo.Tipo, "ficha_id": resumo.ID})
	return &resumo, nil
}
