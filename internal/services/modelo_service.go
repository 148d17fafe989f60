package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// ModeloGerenciado é a linha da tela de gerenciamento de modelos.
type ModeloGerenciado struct {
	Modelo              *models.ModeloCalcado `json:"modelo"`
	Numeros             []string              `json:"numeros"`
	InfantisDisponiveis []int                 `json:"infantis_disponiveis"`
	AdultosDisponiveis  []int                 `json:"adultos_disponiveis"`
}

// ResultadoCores resume a vinculação de cores a um modelo.
type ResultadoCores struct {
	Adicionadas  []string `json:"adicionadas"`
	JaVinculadas []string `json:"ja_vinculadas"`
}

// ResultadoNumeros resume a criação de numerações.
type ResultadoNumeros struct {
	Adicionados int      `json:"adicionados"`
	Existentes  []string `json:"existentes"` // "36 (Preto)"
}

// ModeloService gerencia modelos de calçado com suas cores e numerações.
type ModeloService interface {
	ListarModelos(userSession *auth.SessionData) ([]ModeloGerenciado, error)
	CriarModelo(input models.ModeloCalcadoCreate, userSession *auth.SessionData) (*models.ModeloCalcado, error)
	AdicionarCores(modeloID uint64, nomeCor string, corIDs []uint64, userSession *auth.SessionData) (*ResultadoCores, error)
	AdicionarTamanhos(modeloID uint64, tamanhos []int, userSession *auth.SessionData) (*ResultadoNumeros, error)

	// Usados pelos selects em cascata (qualquer usuário autenticado).
	CoresDoModelo(modeloID uint64, userSession *auth.SessionData) ([]models.OpcaoFiltro, error)
	TamanhosDe(modeloID, corID uint64, userSession *auth.SessionData) ([]models.TamanhoModelo, error)
}

type modeloServiceImpl struct {
	modeloRepo      repositories.ModeloRepository
	modelos         repositories.CatalogoRepository[models.ModeloCalcado]
	cores           repositories.CatalogoRepository[models.CorCalcado]
	auditLogService AuditLogService
}

// NewModeloService cria uma nova instância de ModeloService.
func NewModeloService(
	modeloRepo repositories.ModeloRepository,
	modelos repositories.CatalogoRepository[models.ModeloCalcado],
	cores repositories.CatalogoRepository[models.CorCalcado],
	auditLog AuditLogService,
) ModeloService {
	if modeloRepo == nil || modelos == nil || cores == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewModeloService")
	}
	return &modeloServiceImpl{modeloRepo: modeloRepo, modelos: modelos, cores: cores, auditLogService: auditLog}
}

// faltando devolve os números da faixa que o modelo ainda não tem.
func faltando(existentes map[string]struct{}, min, max int) []int {
	out := []int{}
	for _, n := range utils.FaixaTamanhos(min, max) {
		if _, ok := existentes[strconv.Itoa(n)]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *modeloServiceImpl) ListarModelos(userSession *auth.SessionData) ([]ModeloGerenciado, error) {
	if err := auth.CheckRole(userSession, auth.CapQualidade); err != nil {
		return nil, err
	}
	lista, err := s.modeloRepo.ListarModelos()
	if err != nil {
		return nil, err
	}
	out := make([]ModeloGerenciado, 0, len(lista))
	for _, m := range lista {
		existentes := map[string]struct{}{}
		for _, t := range m.Tamanhos {
			existentes[t.Numero] = struct{}{}
		}
		numeros := maps.Keys(existentes)
		sort.Slice(numeros, func(i, j int) bool { return models.NumeroMenor(numeros[i], numeros[j]) })
		out = append(out, ModeloGerenciado{
			Modelo:              m,
			Numeros:             numeros,
			InfantisDisponiveis: faltando(existentes, utils.TamanhoInfantilMin, utils.TamanhoInfantilMax),
			AdultosDisponiveis:  faltando(existentes, utils.TamanhoAdultoMin, utils.TamanhoAdultoMax),
		})
	}
	return out, nil
}

func numerosTexto(tamanhos []int) []string {
	out := make([]string, 0, len(tamanhos))
	for _, t := range tamanhos {
		out = append(out, strconv.Itoa(t))
	}
	return out
}

func (s *modeloServiceImpl) CriarModelo(input models.ModeloCalcadoCreate, userSession *auth.SessionData) (*models.ModeloCalcado, error) {
	// 1. Permissão
	if err := auth.CheckRole(userSession, auth.CapQualidade); err != nil {
		return nil, err
	}
	// 2. Validação
	input.Nome = utils.SanitizeInput(input.Nome)
	if input.Nome == "" || len(input.CorIDs) == 0 || len(input.Tamanhos) == 0 {
		return nil, appErrors.NewValidationError("Preencha nome, cores e tamanhos.", nil)
	}
	if err := input.CleanAndValidate(); err != nil {
		return nil, err
	}
	existente, err := s.modelos.GetByNome(input.Nome)
	if err == nil {
		if existente.Excluido {
			return nil, fmt.Errorf("%w: Já existe um modelo chamado \"%s\" na lixeira. Exclua-o permanentemente ou restaure-o.",
				appErrors.ErrConflict, existente.Nome)
		}
		return nil, fmt.Errorf("%w: O modelo \"%s\" já existe.", appErrors.ErrConflict, existente.Nome)
	} else if !errors.Is(err, appErrors.ErrNotFound) {
		return nil, err
	}
	cores, err := s.cores.ListarPorIDs(input.CorIDs)
	if err != nil {
		return nil, err
	}
	if len(cores) == 0 {
		return nil, appErrors.NewValidationError("Nenhuma cor válida selecionada.", map[string]string{"cores": "inválido"})
	}
	corIDs := make([]uint64, 0, len(cores))
	for _, c := range cores {
		corIDs = append(corIDs, c.ID)
	}
	sort.Ints(input.Tamanhos)

	// 3. Persistência
	modelo, err := s.modeloRepo.Criar(input.Nome, userSession.UserID, corIDs, numerosTexto(input.Tamanhos))
	if err != nil {
		return nil, err
	}

	// 4. Auditoria
	registrar(s.auditLogService, userSession, "MODELO_CREATE",
		fmt.Sprintf("Modelo '%s' criado com %d cor(es) e %d tamanho(s).", modelo.Nome, len(corIDs), len(input.Tamanhos)),
		models.JSONMetadata{"modelo_id": modelo.ID, "cores": corIDs, "tamanhos": input.Tamanhos})
	return modelo, nil
}

// corPorNome acha a cor fora da lixeira com o nome ou cria uma nova.
func (s *modeloServiceImpl) corPorNome(nome string, userSession *auth.SessionData) (*models.CorCalcado, error) {
	cor, err := s.cores.GetByNome(nome)
	if err == nil && !cor.Excluido {
		return cor, nil
	}
	if err != nil && !errors.Is(err, appErrors.ErrNotFound) {
		return nil, err
	}
	in := models.CatalogoCreate{Nome: nome}
	if err := in.CleanAndValidate(); err != nil {
		return nil, err
	}
	return s.cores.Create(in.Nome, userSession.UserID)
}

func (s *modeloServiceImpl) AdicionarCores(modeloID uint64, nomeCor string, corIDs []uint64, userSession *auth.SessionData) (*ResultadoCores, error) {
	if err := auth.CheckRole(userSession, auth.CapQualidade); err != nil {
		return nil, err
	}
	nomeCor = utils.SanitizeInput(nomeCor)
	if nomeCor == "" && len(corIDs) == 0 {
		return nil, appErrors.NewValidationError("Informe o nome da cor ou selecione uma cor.", nil)
	}
	modelo, err := s.modeloRepo.GetModelo(modeloID)
	if err != nil {
		return nil, err
	}

	selecionadas := []*models.CorCalcado{}
	if nomeCor != "" {
		cor, err := s.corPorNome(nomeCor, userSession)
		if err != nil {
			return nil, err
		}
		selecionadas = append(selecionadas, cor)
	}
	if len(corIDs) > 0 {
		lista, err := s.cores.ListarPorIDs(corIDs)
		if err != nil {
			return nil, err
		}
		selecionadas = append(selecionadas, lista...)
	}
	if len(selecionadas) == 0 {
		return nil, appErrors.NewValidationError("Nenhuma cor válida selecionada.", nil)
	}

	adicionadas, ja, err := s.modeloRepo.VincularCores(modelo.ID, selecionadas)
	if err != nil {
		return nil, err
	}
	res := &ResultadoCores{Adicionadas: adicionadas, JaVinculadas: ja}
	if len(adicionadas) > 0 {
		registrar(s.auditLogService, userSession, "MODELO_CORES_ADD",
			fmt.Sprintf("Cores adicionadas ao modelo '%s': %s.", modelo.Nome, strings.Join(adicionadas, ", ")),
			models.JSONMetadata{"modelo_id": modelo.ID, "cores": adicionadas})
	}
	return res, nil
}

func (s *modeloServiceImpl) AdicionarTamanhos(modeloID uint64, tamanhos []int, userSession *auth.SessionData) (*ResultadoNumeros, error) {
	if err := auth.CheckRole(userSession, auth.CapQualidade); err != nil {
		return nil, err
	}
	unicos := map[int]struct{}{}
	for _, t := range tamanhos {
		if t > 0 {
			unicos[t] = struct{}{}
		}
	}
	if len(unicos) == 0 {
		return nil, appErrors.NewValidationError("Nenhum tamanho válido enviado.", map[string]string{"tamanhos": "inválido"})
	}
	lista := maps.Keys(unicos)
	sort.Ints(lista)

	modelo, err := s.modeloRepo.GetModelo(modeloID)
	if err != nil {
		return nil, err
	}
	if len(modelo.Cores) == 0 {
		return nil, appErrors.NewValidationError("O modelo não possui cores. Adicione cores antes de adicionar tamanhos.", nil)
	}
	corIDs := make([]uint64, 0, len(modelo.Cores))
	for _, c := range modelo.Cores {
		corIDs = append(corIDs, c.ID)
	}

	res, err := s.modeloRepo.CriarTamanhos(modelo.ID, corIDs, numerosTexto(lista))
	if err != nil {
		return nil, err
	}
	out := &ResultadoNumeros{Adicionados: len(res.Criados), Existentes: []string{}}
	sort.Slice(res.Existentes, func(i, j int) bool {
		return models.NumeroMenor(res.Existentes[i].Numero, res.Existentes[j].Numero)
	})
	for _, t := range res.Existentes {
		nomeCor := fmt.Sprintf("cor %d", t.CorID)
		if t.Cor != nil {
			nomeCor = t.Cor.Nome
		}
		out.Existentes = append(out.Existentes, fmt.Sprintf("%s (%s)", t.Numero, nomeCor))
	}
	if out.Adicionados > 0 {
		registrar(s.auditLogService, userSession, "MODELO_TAMANHOS_ADD",
			fmt.Sprintf("%d numeração(ões) adicionada(s) ao modelo '%s'.", out.Adicionados, modelo.Nome),
			models.JSONMetadata{"modelo_id": modelo.ID, "tamanhos": lista})
	}
	return out, nil
}

func (s *modeloServiceImpl) CoresDoModelo(modeloID uint64, userSession *auth.SessionData) ([]models.OpcaoFiltro, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	cores, err := s.modeloRepo.CoresDoModelo(modeloID)
	if err != nil {
		return nil, err
	}
	out := make([]models.OpcaoFiltro, 0, len(cores))
	for _, c := range cores {
		out = append(out, models.OpcaoFiltro{ID: c.ID, Nome: c.Nome})
	}
	return out, nil
}

func (s *modeloServiceImpl) TamanhosDe(modeloID, corID uint64, userSession *auth.SessionData) ([]models.TamanhoModelo, error) {
	if err := exigirSessao(userSession); err != nil {
		return nil, err
	}
	return s.modeloRepo.TamanhosDe(modeloID, corID)
}
