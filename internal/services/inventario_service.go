package services

import (
	"fmt"
	"strings"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// ListagemItens é a página de edição de uma ficha de inventário.
type ListagemItens struct {
	Ficha        *models.FichaInventario   `json:"ficha"`
	Itens        []models.ItemInventario   `json:"itens"`
	Pagina       Pagina                    `json:"pagina"`
	Estatisticas *models.EstatisticasItens `json:"estatisticas"`
	Facetas      *models.FacetasItens      `json:"facetas"`
	Filtro       models.FiltroItens        `json:"-"`
	PodeEditar   bool                      `json:"pode_editar"`

	// ModelosDisponiveis alimenta o formulário de novo item (só para quem edita).
	ModelosDisponiveis []models.OpcaoFiltro `json:"modelos_disponiveis,omitempty"`
}

// InventarioService gerencia fichas de inventário e seus contadores de pés.
type InventarioService interface {
	CriarFicha(input models.FichaCreate, userSession *auth.SessionData) (*models.FichaInventario, error)
	Obter(fichaID uint64, userSession *auth.SessionData) (*models.FichaInventario, error)
	ListarItens(fichaID uint64, filtro models.FiltroItens, pagina int, userSession *auth.SessionData) (*ListagemItens, error)

	CriarItem(fichaID uint64, input models.ItemInventarioCreate, userSession *auth.SessionData) (*models.ItemInventario, error)
	AjustarQuantidade(itemID uint64, ajuste models.AjusteQuantidade, userSession *auth.SessionData) (*models.ItemInventario, error)
	RemoverItem(itemID uint64, userSession *auth.SessionData) (*models.ItemInventario, error)

	MoverParaLixeira(fichaID uint64, userSession *auth.SessionData) (*models.FichaInventario, error)
}

type inventarioServiceImpl struct {
	cfg             *core.Config
	repo            repositories.InventarioRepository
	modeloRepo      repositories.ModeloRepository
	lixeira         repositories.LixeiraRepository[models.FichaInventario]
	auditLogService AuditLogService
}

// NewInventarioService cria uma nova instância de InventarioService.
func NewInventarioService(
	cfg *core.Config,
	repo repositories.InventarioRepository,
	modeloRepo repositories.ModeloRepository,
	lixeira repositories.LixeiraRepository[models.FichaInventario],
	auditLog AuditLogService,
) InventarioService {
	if cfg == nil || repo == nil || modeloRepo == nil || lixeira == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewInventarioService")
	}
	return &inventarioServiceImpl{cfg: cfg, repo: repo, modeloRepo: modeloRepo, lixeira: lixeira, auditLogService: auditLog}
}

// ehOperador olha o tipo do perfil, sem a promoção de superusuário.
func ehOperador(userSession *auth.SessionData) bool {
	return userSession != nil && userSession.Capabilities[auth.CapOperador]
}

// exigirDonoOperador libera o operador dono da ficha e o superusuário.
func exigirDonoOperador(userSession *auth.SessionData, donoID uint64) error {
	if err := auth.CheckRole(userSession, auth.CapOperador); err != nil {
		return err
	}
	if userSession.Has(auth.CapSuperuser) || userSession.UserID == donoID {
		return nil
	}
	return fmt.Errorf("%w: Você não tem permissão para editar esta ficha.", appErrors.ErrPermissionDenied)
}

// podeVerInventario: dono, qualidade, ou membros de Injetora/Qualidade (que não sejam operadores de outra ficha).
func podeVerInventario(userSession *auth.SessionData, ficha *models.FichaInventario) bool {
	if userSession == nil {
		return false
	}
	if userSession.UserID == ficha.OperadorID || userSession.Has(auth.CapQualidade) {
		return true
	}
	return !ehOperador(userSession) && grupoVeInventario(userSession)
}

func grupoVeInventario(userSession *auth.SessionData) bool {
	g := userSession.PrimeiroGrupo
	return strings.EqualFold(g, models.GrupoInjetora) || strings.EqualFold(g, models.GrupoQualidade)
}

func (s *inventarioServiceImpl) CriarFicha(input models.FichaCreate, userSession *auth.SessionData) (*models.FichaInventario, error) {
	// 1. Permissão
	if err := exigirPapel(userSession, auth.CapOperador, "Apenas operadores podem criar fichas"); err != nil {
		return nil, err
	}
	// 2. Validação
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	setor := userSession.PrimeiroGrupo
	if setor == "" || userSession.InGroup(models.GrupoInjetora) {
		setor = models.SetorInventarioPadrao
	}
	ficha := &models.FichaInventario{
		OperadorID: userSession.UserID,
		Data:       input.Data,
		NomeFicha:  input.NomeFicha,
		Setor:      setor,
	}
	// 3. Persistência
	if err := s.repo.Create(ficha); err != nil {
		return nil, err
	}
	// 4. Auditoria
	registrar(s.auditLogService, userSession, "FICHA_INVENTARIO_CREATE",
		fmt.Sprintf("Ficha de inventário '%s' criada (setor %s).", ficha.NomeFicha, ficha.Setor),
		models.JSONMetadata{"ficha_id": ficha.ID, "data": ficha.Data.Format("2006-01-02")})
	return ficha, nil
}

func (s *inventarioServiceImpl) Obter(fichaID uint64, userSession *auth.SessionData) (*models.FichaInventario, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	ficha, err := s.repo.GetByID(fichaID)
	if err != nil {
		return nil, err
	}
	if !podeVerInventario(userSession, ficha) {
		return nil, fmt.Errorf("%w: Você não tem permissão para ver esta ficha.", appErrors.ErrPermissionDenied)
	}
	return ficha, nil
}

func (s *inventarioServiceImpl) ListarItens(fichaID uint64, filtro models.FiltroItens, pagina int, userSession *auth.SessionData) (*ListagemItens, error) {
	ficha, err := s.Obter(fichaID, userSession)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Estatisticas(ficha.ID, filtro)
	if err != nil {
		return nil, err
	}
	facetas, err := s.repo.Facetas(ficha.ID, filtro)
	if err != nil {
		return nil, err
	}
	pag := novaPagina(pagina, s.cfg.ItensPerPage, stats.TotalItens)
	itens, err := s.repo.ListarItens(ficha.ID, filtro, pag.Tamanho, pag.Offset())
	if err != nil {
		return nil, err
	}
	out := &ListagemItens{
		Ficha:        ficha,
		Itens:        itens,
		Pagina:       pag,
		Estatisticas: stats,
		Facetas:      facetas,
		Filtro:       filtro,
		PodeEditar:   exigirDonoOperador(userSession, ficha.OperadorID) == nil,
	}
	if out.PodeEditar {
		modelos, err := s.modeloRepo.ListarModelos()
		if err != nil {
			return nil, err
		}
		for _, m := range modelos {
			if m.Ativo {
				out.ModelosDisponiveis = append(out.ModelosDisponiveis, models.OpcaoFiltro{ID: m.ID, Nome: m.Nome})
			}
		}
	}
	return out, nil
}

func (s *inventarioServiceImpl) CriarItem(fichaID uint64, input models.ItemInventarioCreate, userSession *auth.SessionData) (*models.ItemInventario, error) {
	ficha, err := s.repo.GetByID(fichaID)
	if err != nil {
		return nil, err
	}
	// 1. Permissão
	if err := exigirDonoOperador(userSession, ficha.OperadorID); err != nil {
		return nil, err
	}
	// 2. Validação: o tamanho precisa pertencer ao par (modelo, cor)
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	if _, err := s.modeloRepo.GetModelo(input.ModeloID); err != nil {
		return nil, err
	}
	tamanho, err := s.modeloRepo.GetTamanho(input.TamanhoID)
	if err != nil {
		return nil, err
	}
	if tamanho.ModeloID != input.ModeloID || tamanho.CorID != input.CorID || tamanho.Excluido || !tamanho.Ativo {
		return nil, appErrors.NewValidationError("Tamanho inválido para o modelo e a cor selecionados.",
			map[string]string{"tamanho": "não pertence ao modelo/cor"})
	}

	// 3. Persistência
	item := &models.ItemInventario{
		FichaID:              ficha.ID,
		ModeloID:             input.ModeloID,
		CorID:                input.CorID,
		TamanhoID:            input.TamanhoID,
		QuantidadePeEsquerdo: input.PeEsquerdo,
		QuantidadePeDireito:  input.PeDireito,
	}
	if err := s.repo.CriarItem(item); err != nil {
		return nil, err
	}

	// 4. Auditoria
	registrar(s.auditLogService, userSession, "ITEM_INVENTARIO_CREATE",
		fmt.Sprintf("Item adicionado à ficha '%s': %d PE e %d PD.", ficha.NomeFicha, item.QuantidadePeEsquerdo, item.QuantidadePeDireito),
		models.JSONMetadata{"ficha_id": ficha.ID, "item_id": item.ID, "tamanho_id": item.TamanhoID})
	return s.repo.GetItem(item.ID)
}

// fichaDoItem carrega o item e a ficha dona, conferindo a permissão de edição.
func (s *inventarioServiceImpl) fichaDoItem(itemID uint64, userSession *auth.SessionData) (*models.ItemInventario, *models.FichaInventario, error) {
	item, err := s.repo.GetItem(itemID)
	if err != nil {
		return nil, nil, err
	}
	ficha, err := s.repo.GetByID(item.FichaID)
	if err != nil {
		return nil, nil, err
	}
	if err := exigirDonoOperador(userSession, ficha.OperadorID); err != nil {
		return nil, nil, err
	}
	return item, ficha, nil
}

func (s *inventarioServiceImpl) AjustarQuantidade(itemID uint64, ajuste models.AjusteQuantidade, userSession *auth.SessionData) (*models.ItemInventario, error) {
	if _, _, err := s.fichaDoItem(itemID, userSession); err != nil {
		return nil, err
	}
	coluna, delta, err := ajuste.Delta()
	if err != nil {
		return nil, err
	}
	item, err := s.repo.ApplyDelta(itemID, coluna, delta)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "ITEM_INVENTARIO_ADJUST",
		fmt.Sprintf("Item %d: %s %d em %s.", itemID, ajuste.Acao, ajuste.Valor, ajuste.Lado),
		models.JSONMetadata{"item_id": itemID, "coluna": coluna, "delta": delta})
	return item, nil
}

func (s *inventarioServiceImpl) RemoverItem(itemID uint64, userSession *auth.SessionData) (*models.ItemInventario, error) {
	_, ficha, err := s.fichaDoItem(itemID, userSession)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.RemoverItem(itemID)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "ITEM_INVENTARIO_DELETE",
		fmt.Sprintf("Item %d removido da ficha '%s'.", itemID, ficha.NomeFicha),
		models.JSONMetadata{"item_id": itemID, "ficha_id": ficha.ID})
	return item, nil
}

func (s *inventarioServiceImpl) MoverParaLixeira(fichaID uint64, userSession *auth.SessionData) (*models.FichaInventario, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, "Apenas usuários da qualidade podem excluir fichas"); err != nil {
		return nil, err
	}
	ficha, err := s.lixeira.MoveToTrash(fichaID, userSession.UserID)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "FICHA_INVENTARIO_TRASH",
		fmt.Sprintf("Ficha de inventário '%s' movida para a lixeira.", ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID})
	return ficha, nil
}
