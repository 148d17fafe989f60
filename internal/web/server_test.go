package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
)

const senhaPadrao = "senha-de-teste"

func init() {
	gin.SetMode(gin.TestMode)
}

// ambiente monta a aplicação inteira sobre um SQLite temporário, como o main.
type ambiente struct {
	db     *gorm.DB
	router http.Handler
}

func novoAmbiente(t *testing.T) *ambiente {
	t.Helper()
	cfg := &core.Config{
		AppName:       "Fabrica",
		AppVersion:    "teste",
		AppDebug:      true,
		SecretKey:     "chave-de-teste-com-mais-de-32-caracteres",
		DBEngine:      "sqlite",
		DBName:        filepath.Join(t.TempDir(), "web.db"),
		SessionName:   "fabrica_teste",
		SessionMaxAge: time.Hour,
		FichasPerPage: 10,
		ItensPerPage:  20,
	}
	db, err := data.InitializeDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.CloseDB(db) })
	require.NoError(t, data.SeedDefaults(db, senhaPadrao))

	audit := services.NewAuditLogService(repositories.NewGormAuditLogRepository(db))
	fichaRepo := repositories.NewGormFichaRepository(db)
	inventarioRepo := repositories.NewGormInventarioRepository(db)
	modeloRepo := repositories.NewGormModeloRepository(db)

	partesRepo := repositories.NewGormCatalogoRepository[models.ParteCalcado](db)
	operadoresRepo := repositories.NewGormCatalogoRepository[models.NomeOperador](db)
	coresRepo := repositories.NewGormCatalogoRepository[models.CorCalcado](db)
	modelosRepo := repositories.NewGormCatalogoRepository[models.ModeloCalcado](db)
	comprasModelosRepo := repositories.NewGormCatalogoRepository[models.Modelo](db)
	comprasCoresRepo := repositories.NewGormCatalogoRepository[models.Cor](db)

	lixFichas := repositories.NewGormLixeiraRepository[models.Ficha](db, repositories.HooksFicha())
	lixInventarios := repositories.NewGormLixeiraRepository[models.FichaInventario](db, repositories.HooksFichaInventario())

	partes := services.NewCatalogoService[models.ParteCalcado]("PARTES", auth.CapQualidade, partesRepo,
		repositories.NewGormLixeiraRepository[models.ParteCalcado](db, repositories.HooksParteCalcado()), audit)
	operadores := services.NewCatalogoService[models.NomeOperador]("OPERADORES", auth.CapQualidade, operadoresRepo,
		repositories.NewGormLixeiraRepository[models.NomeOperador](db, repositories.LixeiraHooks{}), audit)
	cores := services.NewCatalogoService[models.CorCalcado]("CORES_CALCADO", auth.CapQualidade, coresRepo,
		repositories.NewGormLixeiraRepository[models.CorCalcado](db, repositories.HooksCorCalcado()), audit)
	modelos := services.NewCatalogoService[models.ModeloCalcado]("MODELOS_CALCADO", auth.CapQualidade, modelosRepo,
		repositories.NewGormLixeiraRepository[models.ModeloCalcado](db, repositories.HooksModeloCalcado()), audit)
	comprasModelos := services.NewCatalogoService[models.Modelo]("MODELOS_COMPRAS", auth.CapLoja, comprasModelosRepo,
		repositories.NewGormLixeiraRepository[models.Modelo](db, repositories.HooksComprasProtegido("modelo_id")), audit)
	comprasCores := services.NewCatalogoService[models.Cor]("CORES_COMPRAS", auth.CapLoja, comprasCoresRepo,
		repositories.NewGormLixeiraRepository[models.Cor](db, repositories.HooksComprasProtegido("cor_id")), audit)

	inventario := services.NewInventarioService(cfg, inventarioRepo, modeloRepo, lixInventarios, audit)
	fichas := services.NewFichaService(cfg, fichaRepo, inventarioRepo, partesRepo, operadoresRepo, lixFichas, inventario, audit)

	svc := Services{
		Authenticator:     auth.NewAuthenticator(repositories.NewGormUserRepository(db), audit),
		Sessoes:           auth.NewSessionManager(cfg),
		Auditoria:         audit,
		Fichas:            fichas,
		Inventario:        inventario,
		Lixeira:           services.NewLixeiraService(lixFichas, lixInventarios, audit),
		Modelos:           services.NewModeloService(modeloRepo, modelosRepo, coresRepo, audit),
		Relatorios:        services.NewRelatorioService(fichas, inventario, fichaRepo, inventarioRepo, audit),
		Importacao:        services.NewImportService(cfg, audit, repositories.NewGormImportMetadataRepository(db), partes, operadores, comprasModelos, comprasCores),
		Partes:            partes,
		Operadores:        operadores,
		CoresInventario:   cores,
		ModelosInventario: modelos,
		Requisicoes:       services.NewRequisicaoService(repositories.NewGormRequisicaoRepository(db), comprasModelosRepo, comprasCoresRepo, audit),
		ComprasModelos:    comprasModelos,
		ComprasCores:      comprasCores,
	}
	return &ambiente{db: db, router: NewServer(cfg, svc).Router()}
}

// cliente guarda os cookies entre requisições, como um navegador.
type cliente struct {
	amb     *ambiente
	cookies map[string]*http.Cookie
}

func (a *ambiente) cliente() *cliente {
	return &cliente{amb: a, cookies: map[string]*http.Cookie{}}
}

func (c *cliente) fazer(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.amb.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *cliente) get(caminho string) *httptest.ResponseRecorder {
	return c.fazer(httptest.NewRequest(http.MethodGet, caminho, nil))
}

func (c *cliente) form(caminho string, valores url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, caminho, strings.NewReader(valores.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.fazer(req)
}

func (c *cliente) json(caminho, corpo string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, caminho, strings.NewReader(corpo))
	req.Header.Set("Content-Type", "application/json")
	return c.fazer(req)
}

func (c *cliente) entrar(t *testing.T, usuario string) {
	t.Helper()
	w := c.form("/login", url.Values{"username": {usuario}, "password": {senhaPadrao}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}

func decodificar(t *testing.T, body io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

func TestHealth(t *testing.T) {
	amb := novoAmbiente(t)
	w := amb.cliente().get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	var corpo map[string]string
	decodificar(t, w.Body, &corpo)
	assert.Equal(t, "ok", corpo["status"])
}

func TestRotasExigemLogin(t *testing.T) {
	amb := novoAmbiente(t)
	c := amb.cliente()

	w := c.get("/fichas/criar")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Ffichas%2Fcriar", w.Header().Get("Location"))

	w = c.get("/api/get_cores/1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.form("/login", url.Values{"username": {"Operador01"}, "password": {"errada"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, http.StatusFound, c.get("/").Code, "login recusado não abre sessão")
}

func TestLivroDeLancamentosPelaAPI(t *testing.T) {
	amb := novoAmbiente(t)
	var qualidade models.DBUser
	require.NoError(t, amb.db.Where("username = ?", "Qualidade01").First(&qualidade).Error)
	parte, err := repositories.NewGormCatalogoRepository[models.ParteCalcado](amb.db).Create("Cabedal", qualidade.ID)
	require.NoError(t, err)

	c := amb.cliente()
	c.entrar(t, "Operador01")

	w := c.form("/fichas/criar", url.Values{"nome_ficha": {"Turno A"}, "data": {"2024-05-02"}})
	require.Equal(t, http.StatusFound, w.Code)
	var fichaID uint64
	_, err = fmt.Sscanf(w.Header().Get("Location"), "/fichas/%d/editar", &fichaID)
	require.NoError(t, err)

	base := fmt.Sprintf("/fichas/%d", fichaID)
	w = c.json(base+"/adicionar-parte", fmt.Sprintf(`{"parte_id": "%d"}`, parte.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var lanc struct {
		Success     bool  `json:"success"`
		Quantidades []int `json:"quantidades"`
		Total       int   `json:"total"`
	}
	for _, q := range []int{5, 3} {
		w = c.json(fmt.Sprintf("%s/parte/%d/adicionar", base, parte.ID), fmt.Sprintf(`{"quantidade": %d}`, q))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	decodificar(t, w.Body, &lanc)
	assert.Equal(t, []int{5, 3}, lanc.Quantidades)
	assert.Equal(t, 8, lanc.Total)

	w = c.json(fmt.Sprintf("%s/parte/%d/remover", base, parte.ID), `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodificar(t, w.Body, &lanc)
	assert.Equal(t, []int{5}, lanc.Quantidades)
	assert.Equal(t, 5, lanc.Total)

	w = c.json(fmt.Sprintf("%s/parte/%d/adicionar", base, parte.ID), `{"quantidade": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.json(base+"/adicionar-parte", `não é json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// outro operador não mexe na ficha alheia
	outro := amb.cliente()
	outro.entrar(t, "Injetora01")
	w = outro.json(fmt.Sprintf("%s/parte/%d/adicionar", base, parte.ID), `{"quantidade": 1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLojaSemAcessoAQualidade(t *testing.T) {
	amb := novoAmbiente(t)
	c := amb.cliente()
	c.entrar(t, "Loja01")

	w := c.get("/")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/requisicoes", w.Header().Get("Location"))

	w = c.get("/relatorios")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/requisicoes", w.Header().Get("Location"))

	w = c.get("/requisicoes")
	require.Equal(t, http.StatusOK, w.Code)
	var pagina struct {
		Mensagens map[string][]string `json:"mensagens"`
	}
	decodificar(t, w.Body, &pagina)
	assert.Equal(t, []string{"Apenas usuários da qualidade podem realizar esta ação."}, pagina.Mensagens[auth.FlashError])
}

func TestStatusDoErro(t *testing.T) {
	casos := map[error]int{
		fmt.Errorf("%w: x", appErrors.ErrUnauthorized):     http.StatusUnauthorized,
		fmt.Errorf("%w: x", appErrors.ErrPermissionDenied): http.StatusForbidden,
		fmt.Errorf("%w: x", appErrors.ErrNotFound):         http.StatusNotFound,
		fmt.Errorf("%w: x", appErrors.ErrNegativeQuantity): http.StatusUnprocessableEntity,
		fmt.Errorf("%w: x", appErrors.ErrReferentialBlock): http.StatusConflict,
		fmt.Errorf("%w: x", appErrors.ErrDuplicateItem):    http.StatusConflict,
		appErrors.NewValidationError("x", nil):             http.StatusBadRequest,
		appErrors.ErrDatabase:                              http.StatusInternalServerError,
	}
	for err, status := range casos {
		assert.Equal(t, status, statusDoErro(err), err.Error())
	}
	assert.Equal(t, "Erro interno do servidor.", mensagemDoErro(appErrors.ErrDatabase))
}

func TestVoltarSoParaOProprioSite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	casos := []struct {
		referer  string
		esperado string
	}{
		{"", "/inicio"},
		{"/fichas/3", "/fichas/3"},
		{"//evil.com/x", "/inicio"},
		{`/\evil.com`, "/inicio"},
		{"http://fabrica.local/fichas?data=2024-05-02", "/fichas?data=2024-05-02"},
		{`http://fabrica.local/\evil.com`, "/inicio"},
		{"http://fabrica.local//evil.com", "/inicio"},
		{"http://fabrica.local.evil.com/fichas", "/inicio"},
		{"https://evil.com/fichas", "/inicio"},
		{"fichas", "/inicio"},
	}
	for _, caso := range casos {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "http://fabrica.local/fichas/1/partes", nil)
		if caso.referer != "" {
			c.Request.Header.Set("Referer", caso.referer)
		}
		assert.Equal(t, caso.esperado, voltar(c, "/inicio"), "referer %q", caso.referer)
	}
}
