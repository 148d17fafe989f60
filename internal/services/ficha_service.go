package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// FichaHome é a linha da home: resumo mais o total de peças lançadas.
type FichaHome struct {
	models.FichaResumo
	Total int `json:"total"`
}

// Home é o conteúdo da página inicial.
type Home struct {
	GrupoUsuario string      `json:"grupo_usuario,omitempty"`
	Fichas       []FichaHome `json:"fichas"`
	Pagina       Pagina      `json:"pagina"`
	// Inventarios é nil quando o grupo do usuário não vê fichas de inventário.
	Inventarios []models.FichaResumo `json:"fichas_inventario"`
	DataHoje    string               `json:"data_hoje"`
}

// CriacaoFicha diz o que foi criado: ficha de produção ou de inventário.
type CriacaoFicha struct {
	Tipo      string `json:"tipo"`
	ID        uint64 `json:"id"`
	NomeFicha string `json:"nome_ficha"`
}

// EdicaoFicha é a tela de lançamento de uma ficha de produção.
type EdicaoFicha struct {
	Ficha             *models.Ficha          `json:"ficha"`
	PartesDisponiveis []*models.ParteCalcado `json:"partes_disponiveis"`
	PartesAdicionadas []uint64               `json:"partes_adicionadas_ids"`
	PodeEditar        bool                   `json:"pode_editar"`
}

// VisualizacaoFicha é a ficha em modo leitura com o total geral.
type VisualizacaoFicha struct {
	Ficha      *models.Ficha          `json:"ficha"`
	Registros  []models.RegistroParte `json:"registros"`
	TotalGeral int                    `json:"total_geral"`
}

// Lancamentos é a resposta das operações no livro de uma parte.
type Lancamentos struct {
	Quantidades models.Quantidades `json:"quantidades"`
	Total       int                `json:"total"`
}

// FichaService gerencia as fichas de produção e seus livros de lançamento.
type FichaService interface {
	Criar(input models.FichaCreate, userSession *auth.SessionData) (*CriacaoFicha, error)
	NomesOperador(userSession *auth.SessionData) ([]*models.NomeOperador, error)
	Home(data *time.Time, pagina int, userSession *auth.SessionData) (*Home, error)
	ParaEdicao(fichaID uint64, userSession *auth.SessionData) (*EdicaoFicha, error)
	Visualizar(fichaID uint64, userSession *auth.SessionData) (*VisualizacaoFicha, error)
	MoverParaLixeira(fichaID uint64, userSession *auth.SessionData) (*models.Ficha, error)

	AdicionarParte(fichaID, parteID uint64, userSession *auth.SessionData) (*models.RegistroParte, error)
	RemoverParte(fichaID, parteID uint64, userSession *auth.SessionData) error
	AdicionarQuantidade(fichaID, parteID uint64, valor int, userSession *auth.SessionData) (*Lancamentos, error)
	RemoverUltimaQuantidade(fichaID, parteID uint64, userSession *auth.SessionData) (*Lancamentos, error)
}

type fichaServiceImpl struct {
	cfg             *core.Config
	repo            repositories.FichaRepository
	inventarioRepo  repositories.InventarioRepository
	partes          repositories.CatalogoRepository[models.ParteCalcado]
	nomesOperador   repositories.CatalogoRepository[models.NomeOperador]
	lixeira         repositories.LixeiraRepository[models.Ficha]
	inventario      InventarioService
	auditLogService AuditLogService
}

// NewFichaService cria uma nova instância de FichaService.
func NewFichaService(
	cfg *core.Config,
	repo repositories.FichaRepository,
	inventarioRepo repositories.InventarioRepository,
	partes repositories.CatalogoRepository[models.ParteCalcado],
	nomesOperador repositories.CatalogoRepository[models.NomeOperador],
	lixeira repositories.LixeiraRepository[models.Ficha],
	inventario InventarioService,
	auditLog AuditLogService,
) FichaService {
	if cfg == nil || repo == nil || inventarioRepo == nil || partes == nil || nomesOperador == nil ||
		lixeira == nil || inventario == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewFichaService")
	}
	return &fichaServiceImpl{
		cfg:             cfg,
		repo:            repo,
		inventarioRepo:  inventarioRepo,
		partes:          partes,
		nomesOperador:   nomesOperador,
		lixeira:         lixeira,
		inventario:      inventario,
		auditLogService: auditLog,
	}
}

func (s *fichaServiceImpl) Criar(input models.FichaCreate, userSession *auth.SessionData) (*CriacaoFicha, error) {
	// 1. Permissão
	if err := exigirPapel(userSession, auth.CapOperador, "Apenas operadores podem criar fichas"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.NomeFicha) == "" || input.Data.IsZero() {
		return nil, appErrors.NewValidationError("Preencha todos os campos.", nil)
	}

	// Operadores da Injetora trabalham só com fichas de inventário.
	if userSession.InGroup(models.GrupoInjetora) {
		fi, err := s.inventario.CriarFicha(input, userSession)
		if err != nil {
			return nil, err
		}
		return &CriacaoFicha{Tipo: models.TipoInventario, ID: fi.ID, NomeFicha: fi.NomeFicha}, nil
	}

	// 2. Validação
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	ficha := &models.Ficha{
		OperadorID: userSession.UserID,
		Data:       input.Data,
		NomeFicha:  input.NomeFicha,
	}
	if g := userSession.PrimeiroGrupo; g != "" {
		ficha.Setor = &g
	}

	// 3. Persistência
	if err := s.repo.Create(ficha); err != nil {
		return nil, err
	}

	// 4. Auditoria
	registrar(s.auditLogService, userSession, "FICHA_CREATE",
		fmt.Sprintf("Ficha '%s' criada.", ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID, "data": ficha.Data.Format("2006-01-02")})
	return &CriacaoFicha{Tipo: models.TipoFicha, ID: ficha.ID, NomeFicha: ficha.NomeFicha}, nil
}

func (s *fichaServiceImpl) NomesOperador(userSession *auth.SessionData) ([]*models.NomeOperador, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	return s.nomesOperador.Listar(false)
}

// Home aplica a visibilidade por perfil e grupo:
//   - operador com grupo vê as fichas do setor; sem grupo, só as próprias;
//   - o grupo Injetora não vê fichas de produção;
//   - fichas de inventário aparecem para os grupos Injetora e Qualidade
//     (o operador vê só as dele).
func (s *fichaServiceImpl) Home(data *time.Time, pagina int, userSession *auth.SessionData) (*Home, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	grupo := userSession.PrimeiroGrupo
	operador := ehOperador(userSession)
	home := &Home{GrupoUsuario: grupo, Fichas: []FichaHome{}, DataHoje: time.Now().Format("2006-01-02")}

	filtro := repositories.FiltroFichas{Data: data, Limit: s.cfg.FichasPerPage}
	if operador {
		if grupo != "" {
			filtro.Setor = &grupo
		} else {
			uid := userSession.UserID
			filtro.OperadorID = &uid
		}
	}

	if strings.EqualFold(grupo, models.GrupoInjetora) {
		home.Pagina = novaPagina(1, s.cfg.FichasPerPage, 0)
	} else {
		fichas, total, err := s.listarPagina(filtro, pagina)
		if err != nil {
			return nil, err
		}
		home.Pagina = novaPagina(pagina, s.cfg.FichasPerPage, total)
		for _, f := range fichas {
			home.Fichas = append(home.Fichas, FichaHome{FichaResumo: models.ToFichaResumo(f), Total: f.TotalGeral()})
		}
	}

	if grupoVeInventario(userSession) {
		fi := repositories.FiltroFichas{Data: data}
		if operador {
			uid := userSession.UserID
			fi.OperadorID = &uid
		}
		inventarios, _, err := s.inventarioRepo.Listar(fi)
		if err != nil {
			return nil, err
		}
		home.Inventarios = make([]models.FichaResumo, 0, len(inventarios))
		for _, f := range inventarios {
			home.Inventarios = append(home.Inventarios, models.ToFichaInventarioResumo(f))
		}
	}
	return home, nil
}

// listarPagina busca a página pedida; fora do intervalo, busca a página válida mais próxima.
func (s *fichaServiceImpl) listarPagina(filtro repositories.FiltroFichas, pagina int) ([]*models.Ficha, int64, error) {
	if pagina < 1 {
		pagina = 1
	}
	filtro.Offset = (pagina - 1) * filtro.Limit
	fichas, total, err := s.repo.Listar(filtro)
	if err != nil {
		return nil, 0, err
	}
	if pag := novaPagina(pagina, filtro.Limit, total); pag.Numero != pagina {
		filtro.Offset = pag.Offset()
		return s.repo.Listar(filtro)
	}
	return fichas, total, nil
}

func (s *fichaServiceImpl) ParaEdicao(fichaID uint64, userSession *auth.SessionData) (*EdicaoFicha, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	ficha, err := s.repo.GetByID(fichaID)
	if err != nil {
		return nil, err
	}
	if ehOperador(userSession) && ficha.OperadorID != userSession.UserID && !userSession.Has(auth.CapSuperuser) {
		return nil, fmt.Errorf("%w: Você não tem permissão para editar esta ficha", appErrors.ErrPermissionDenied)
	}
	partes, err := s.partes.Listar(false)
	if err != nil {
		return nil, err
	}
	adicionadas := make([]uint64, 0, len(ficha.Registros))
	for _, r := range ficha.Registros {
		adicionadas = append(adicionadas, r.ParteID)
	}
	return &EdicaoFicha{
		Ficha:             ficha,
		PartesDisponiveis: partes,
		PartesAdicionadas: adicionadas,
		PodeEditar:        ehOperador(userSession) && ficha.OperadorID == userSession.UserID,
	}, nil
}

func (s *fichaServiceImpl) Visualizar(fichaID uint64, userSession *auth.SessionData) (*VisualizacaoFicha, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	ficha, err := s.repo.GetByID(fichaID)
	if err != nil {
		return nil, err
	}
	return &VisualizacaoFicha{Ficha: ficha, Registros: ficha.Registros, TotalGeral: ficha.TotalGeral()}, nil
}

func (s *fichaServiceImpl) MoverParaLixeira(fichaID uint64, userSession *auth.SessionData) (*models.Ficha, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, "Apenas usuários da qualidade podem excluir fichas"); err != nil {
		return nil, err
	}
	ficha, err := s.lixeira.MoveToTrash(fichaID, userSession.UserID)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "FICHA_TRASH",
		fmt.Sprintf("Ficha '%s' movida para a lixeira.", ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID})
	return ficha, nil
}

// fichaEditavel carrega a ficha e confere dono ou qualidade.
func (s *fichaServiceImpl) fichaEditavel(fichaID uint64, userSession *auth.SessionData) (*models.Ficha, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	ficha, err := s.repo.GetByID(fichaID)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnerOrRole(userSession, ficha.OperadorID, auth.CapQualidade); err != nil {
		return nil, err
	}
	return ficha, nil
}

func (s *fichaServiceImpl) AdicionarParte(fichaID, parteID uint64, userSession *auth.SessionData) (*models.RegistroParte, error) {
	ficha, err := s.fichaEditavel(fichaID, userSession)
	if err != nil {
		return nil, err
	}
	parte, err := s.partes.GetByID(parteID)
	if err != nil {
		return nil, err
	}
	if !parte.Ativo || parte.Excluido {
		return nil, fmt.Errorf("%w: Parte indisponível.", appErrors.ErrNotFound)
	}
	registro, err := s.repo.AdicionarParte(ficha.ID, parte.ID)
	if err != nil {
		return nil, err
	}
	registro.Parte = parte
	registrar(s.auditLogService, userSession, "FICHA_PARTE_ADD",
		fmt.Sprintf("Parte '%s' adicionada à ficha '%s'.", parte.Nome, ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID, "parte_id": parte.ID})
	return registro, nil
}

func (s *fichaServiceImpl) RemoverParte(fichaID, parteID uint64, userSession *auth.SessionData) error {
	ficha, err := s.fichaEditavel(fichaID, userSession)
	if err != nil {
		return err
	}
	registro, err := s.repo.RemoverParte(ficha.ID, parteID)
	if err != nil {
		return err
	}
	registrar(s.auditLogService, userSession, "FICHA_PARTE_REMOVE",
		fmt.Sprintf("Parte %d removida da ficha '%s' (%d lançamento(s) descartado(s)).", parteID, ficha.NomeFicha, len(registro.Quantidades)),
		models.JSONMetadata{"ficha_id": ficha.ID, "parte_id": parteID, "quantidades": []int(registro.Quantidades)})
	return nil
}

func (s *fichaServiceImpl) AdicionarQuantidade(fichaID, parteID uint64, valor int, userSession *auth.SessionData) (*Lancamentos, error) {
	ficha, err := s.fichaEditavel(fichaID, userSession)
	if err != nil {
		return nil, err
	}
	if valor <= 0 {
		return nil, appErrors.NewValidationError("Quantidade deve ser maior que zero", map[string]string{"quantidade": "deve ser maior que zero"})
	}
	parte, err := s.partes.GetByID(parteID)
	if err != nil {
		return nil, err
	}
	if !parte.Ativo || parte.Excluido {
		return nil, fmt.Errorf("%w: Parte indisponível.", appErrors.ErrNotFound)
	}
	qs, err := s.repo.AppendQuantidade(ficha.ID, parte.ID, valor)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "FICHA_QUANTIDADE_ADD",
		fmt.Sprintf("Lançamento de %d na parte %d da ficha '%s'.", valor, parteID, ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID, "parte_id": parteID, "valor": valor})
	return &Lancamentos{Quantidades: qs, Total: qs.Total()}, nil
}

func (s *fichaServiceImpl) RemoverUltimaQuantidade(fichaID, parteID uint64, userSession *auth.SessionData) (*Lancamentos, error) {
	ficha, err := s.fichaEditavel(fichaID, userSession)
	if err != nil {
		return nil, err
	}
	qs, err := s.repo.PopQuantidade(ficha.ID, parteID)
	if err != nil {
		return nil, err
	}
	registrar(s.auditLogService, userSession, "FICHA_QUANTIDADE_POP",
		fmt.Sprintf("Último lançamento removido da parte %d da ficha '%s'.", parteID, ficha.NomeFicha),
		models.JSONMetadata{"ficha_id": ficha.ID, "parte_id": parteID})
	return &Lancamentos{Quantidades: qs, Total: qs.Total()}, nil
}
