package web

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
)

// Services reúne as dependências dos handlers.
type Services struct {
	Authenticator auth.Authenticator
	Sessoes       *auth.SessionManager
	Auditoria     services.AuditLogService

	Fichas     services.FichaService
	Inventario services.InventarioService
	Lixeira    services.LixeiraService
	Modelos    services.ModeloService
	Relatorios services.RelatorioService
	Importacao services.ImportService

	Partes            services.CatalogoService[models.ParteCalcado]
	Operadores        services.CatalogoService[models.NomeOperador]
	CoresInventario   services.CatalogoService[models.CorCalcado]
	ModelosInventario services.CatalogoService[models.ModeloCalcado]

	Requisicoes    services.RequisicaoService
	ComprasModelos services.CatalogoService[models.Modelo]
	ComprasCores   services.CatalogoService[models.Cor]
}

// Server agrupa os handlers HTTP.
type Server struct {
	cfg *core.Config
	svc Services
}

// NewServer valida as dependências e cria o servidor.
func NewServer(cfg *core.Config, svc Services) *Server {
	if cfg == nil || svc.Authenticator == nil || svc.Sessoes == nil || svc.Auditoria == nil ||
		svc.Fichas == nil || svc.Inventario == nil || svc.Lixeira == nil || svc.Modelos == nil ||
		svc.Relatorios == nil || svc.Importacao == nil || svc.Partes == nil || svc.Operadores == nil ||
		svc.CoresInventario == nil || svc.ModelosInventario == nil || svc.Requisicoes == nil ||
		svc.ComprasModelos == nil || svc.ComprasCores == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para web.NewServer")
	}
	return &Server{cfg: cfg, svc: svc}
}

// Router monta o gin.Engine com todas as rotas.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.AppDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestID(), accessLog(), recovery(), s.carregarSessao())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app": s.cfg.AppName, "version": s.cfg.AppVersion})
	})
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.GET("/logout", s.logout)

	app := r.Group("/", s.exigirLogin)
	{
		app.GET("/", s.home)

		fichas := app.Group("/fichas")
		fichas.GET("/criar", s.criarFichaPage)
		fichas.POST("/criar", s.criarFicha)
		fichas.GET("/lixeira", s.lixeiraFichas)
		fichas.POST("/lixeira", s.lixeiraFichasAcao)
		fichas.GET("/:id/editar", s.editarFicha)
		fichas.GET("/:id/visualizar", s.visualizarFicha)
		fichas.POST("/:id/excluir", s.excluirFicha)
		fichas.GET("/:id/relatorio", s.relatorioFicha)
		fichas.POST("/:id/adicionar-parte", s.adicionarParte)
		fichas.POST("/:id/remover-parte/:parte_id", s.removerParte)
		fichas.POST("/:id/parte/:parte_id/adicionar", s.adicionarQuantidade)
		fichas.POST("/:id/parte/:parte_id/remover", s.removerQuantidade)

		s.registrarCatalogo(app, "/partes", novoCadastro(s.svc.Partes), true)
		s.registrarCatalogo(app, "/operadores", novoCadastro(s.svc.Operadores), true)

		inv := app.Group("/inventario")
		inv.POST("/criar", s.criarFichaInventario)
		s.registrarCatalogo(inv, "/cores", novoCadastro(s.svc.CoresInventario), false)
		inv.GET("/lixeira", s.lixeiraModelos)
		inv.POST("/lixeira", s.lixeiraModelosAcao)
		inv.GET("/:id/editar", s.editarInventario)
		inv.POST("/:id/editar", s.adicionarItemInventario)
		inv.GET("/:id/visualizar", s.visualizarInventario)
		inv.POST("/:id/excluir", s.excluirInventario)
		inv.GET("/:id/relatorio", s.relatorioInventario)
		inv.POST("/item/:id/remover", s.removerItemInventario)
		inv.POST("/item/:id/atualizar", s.atualizarItemInventario)

		app.GET("/modelos", s.modelos)
		app.POST("/modelos", s.modelosAcao)

		app.GET("/relatorios", s.relatorios)
		app.GET("/relatorios/gerar", s.relatorioPeriodo)
		app.GET("/auditoria", s.auditoria)
		app.GET("/importacoes", s.importacoes)

		req := app.Group("/requisicoes")
		req.GET("", s.requisicoes)
		req.POST("/nova", s.novaRequisicao)
		req.GET("/:id/editar", s.editarRequisicao)
		req.POST("/:id/editar", s.editarRequisicaoAcao)
		req.GET("/cadastros", s.cadastrosCompras)
		req.POST("/cadastros/:tipo/novo", s.novoCadastroCompras)
		req.POST("/cadastros/:tipo/:id/editar", s.editarCadastroCompras)
		req.GET("/cadastros/lixeira", s.lixeiraCompras)
		req.POST("/cadastros/lixeira", s.lixeiraComprasAcao)
		req.POST("/cadastros/:tipo/importar", s.importarCadastroCompras)
	}

	api := r.Group("/api", cors.New(s.corsConfig()), s.exigirLoginAPI)
	{
		api.GET("/get_cores/:id", s.apiCores)
		api.GET("/get_tamanhos/:id", s.apiTamanhos)
	}
	return r
}

// corsConfig libera as origens configuradas para as APIs de dropdown.
func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	cfg.AllowCredentials = true
	if len(s.cfg.CORSOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	} else {
		cfg.AllowOrigins = s.cfg.CORSOrigins
	}
	return cfg
}
