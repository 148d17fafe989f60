package services

import (
	"fmt"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// EdicaoRequisicao é a tela de edição: a requisição e as opções do formulário de item.
type EdicaoRequisicao struct {
	Requisicao *models.Requisicao `json:"requisicao"`
	Modelos    []*models.Modelo   `json:"modelos"`
	Cores      []*models.Cor      `json:"cores"`
	TotalPares int                `json:"total_pares"`
}

// RequisicaoService gerencia as requisições de compra da loja.
// Cada usuário só enxerga as próprias requisições.
type RequisicaoService interface {
	Listar(userSession *auth.SessionData) ([]*models.Requisicao, error)
	Criar(input models.RequisicaoCreate, userSession *auth.SessionData) (*models.Requisicao, error)
	Obter(id uint64, userSession *auth.SessionData) (*EdicaoRequisicao, error)
	AdicionarItem(id uint64, input models.ItemRequisicaoCreate, userSession *auth.SessionData) (*models.ItemRequisicao, error)
	RemoverItem(id, itemID uint64, userSession *auth.SessionData) error
	EditarObservacao(id uint64, input models.RequisicaoCreate, userSession *auth.SessionData) error
}

type requisicaoServiceImpl struct {
	repo            repositories.RequisicaoRepository
	modelos         repositories.CatalogoRepository[models.Modelo]
	cores           repositories.CatalogoRepository[models.Cor]
	auditLogService AuditLogService
}

// NewRequisicaoService cria uma nova instância de RequisicaoService.
func NewRequisicaoService(
	repo repositories.RequisicaoRepository,
	modelos repositories.CatalogoRepository[models.Modelo],
	cores repositories.CatalogoRepository[models.Cor],
	auditLog AuditLogService,
) RequisicaoService {
	if repo == nil || modelos == nil || cores == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewRequisicaoService")
	}
	return &requisicaoServiceImpl{repo: repo, modelos: modelos, cores: cores, auditLogService: auditLog}
}

func (s *requisicaoServiceImpl) Listar(userSession *auth.SessionData) ([]*models.Requisicao, error) {
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return nil, err
	}
	return s.repo.ListarDoUsuario(userSession.UserID)
}

func (s *requisicaoServiceImpl) Criar(input models.RequisicaoCreate, userSession *auth.SessionData) (*models.Requisicao, error) {
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return nil, err
	}
	req := &models.Requisicao{UsuarioID: userSession.UserID, Observacao: input.ObservacaoOuNil()}
	if err := s.repo.Create(req); err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "REQUISICAO_CREATE",
		fmt.Sprintf("Requisição #%d criada.", req.ID), models.JSONMetadata{"requisicao_id": req.ID})
	return req, nil
}

func (s *requisicaoServiceImpl) Obter(id uint64, userSession *auth.SessionData) (*EdicaoRequisicao, error) {
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return nil, err
	}
	req, err := s.repo.GetDoUsuario(id, userSession.UserID)
	if err != nil {
		return nil, err
	}
	modelos, err := s.modelos.Listar(false)
	if err != nil {
		return nil, err
	}
	cores, err := s.cores.Listar(false)
	if err != nil {
		return nil, err
	}
	return &EdicaoRequisicao{Requisicao: req, Modelos: modelos, Cores: cores, TotalPares: req.TotalPares()}, nil
}

// disponivel: só itens ativos e fora da lixeira podem entrar numa requisição.
func disponivel(b *models.CatalogoBase) bool {
	return b.Ativo && !b.Excluido
}

func (s *requisicaoServiceImpl) AdicionarItem(id uint64, input models.ItemRequisicaoCreate, userSession *auth.SessionData) (*models.ItemRequisicao, error) {
	// 1. Permissão
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return nil, err
	}
	req, err := s.repo.GetDoUsuario(id, userSession.UserID)
	if err != nil {
		return nil, err
	}

	// 2. Validação
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	modelo, err := s.modelos.GetByID(input.ModeloID)
	if err != nil || !disponivel(modelo.Base()) {
		return nil, appErrors.NewValidationError("Modelo inválido ou inativo.", map[string]string{"modelo": "indisponível"})
	}
	cor, err := s.cores.GetByID(input.CorID)
	if err != nil || !disponivel(cor.Base()) {
		return nil, appErrors.NewValidationError("Cor inválida ou inativa.", map[string]string{"cor": "indisponível"})
	}

	// 3. Persistência
	item := &models.ItemRequisicao{
		RequisicaoID: req.ID,
		ModeloID:     modelo.ID,
		CorID:        cor.ID,
		Tamanho:      input.Tamanho,
		Quantidade:   input.Quantidade,
		Observacao:   input.ObservacaoOuNil(),
	}
	if err := s.repo.AdicionarItem(item); err != nil {
		return nil, err
	}
	item.Modelo, item.Cor = modelo, cor

	// 4. Auditoria
	registrar(s.auditLogService, userSession, "REQUISICAO_ITEM_ADD",
		fmt.Sprintf("Item %s/%s nº %d (%d par(es)) adicionado à requisição #%d.", modelo.Nome, cor.Nome, item.Tamanho, item.Quantidade, req.ID),
		models.JSONMetadata{"requisicao_id": req.ID, "item_id": item.ID})
	return item, nil
}

func (s *requisicaoServiceImpl) RemoverItem(id, itemID uint64, userSession *auth.SessionData) error {
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return err
	}
	req, err := s.repo.GetDoUsuario(id, userSession.UserID)
	if err != nil {
		return err
	}
	if _, err := s.repo.RemoverItem(req.ID, itemID); err != nil {
		return err
	}
	registrar(s.auditLogService, userSession, "REQUISICAO_ITEM_REMOVE",
		fmt.Sprintf("Item %d removido da requisição #%d.", itemID, req.ID),
		models.JSONMetadata{"requisicao_id": req.ID, "item_id": itemID})
	return nil
}

func (s *requisicaoServiceImpl) EditarObservacao(id uint64, input models.RequisicaoCreate, userSession *auth.SessionData) error {
	if err := auth.CheckRole(userSession, auth.CapLoja); err != nil {
		return err
	}
	req, err := s.repo.GetDoUsuario(id, userSession.UserID)
	if err != nil {
		return err
	}
	if err := s.repo.AtualizarObservacao(req.ID, input.ObservacaoOuNil()); err != nil {
		return err
	}
	registrar(s.auditLogService, userSession, "REQUISICAO_OBSERVACAO",
		fmt.Sprintf("Observação da requisição #%d atualizada.", req.ID),
		models.JSONMetadata{"requisicao_id": req.ID})
	return nil
}
