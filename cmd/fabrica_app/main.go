package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/web"
)

func main() {
	// --- 1. Carregar Configurações ---
	cfg, err := core.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Erro CRÍTICO ao carregar configuração: %v", err)
	}

	// --- 2. Configurar Logger ---
	if err := appLogger.SetupLogger(cfg); err != nil {
		log.Fatalf("Erro CRÍTICO ao configurar logger: %v", err)
	}
	appLogger.Info("=====================================================")
	appLogger.Infof("Iniciando %s v%s...", cfg.AppName, cfg.AppVersion)
	appLogger.Debugf("Modo Debug: %t", cfg.AppDebug)
	appLogger.Info("=====================================================")

	// --- 3. Inicializar Banco de Dados ---
	db, err := data.InitializeDB(cfg)
	if err != nil {
		appLogger.Fatalf("Erro CRÍTICO ao inicializar banco de dados: %v", err)
	}
	defer func() {
		if err := data.CloseDB(db); err != nil {
			appLogger.Errorf("Erro ao fechar conexão com banco de dados: %v", err)
		} else {
			appLogger.Info("Conexão com banco de dados fechada.")
		}
	}()
	appLogger.Info("Banco de dados inicializado com sucesso.")

	if cfg.SeedEnabled {
		if err := data.SeedDefaults(db, cfg.SeedPassword); err != nil {
			appLogger.Fatalf("Erro CRÍTICO ao semear grupos e usuários padrão: %v", err)
		}
	}

	// --- 4. Repositórios ---
	userRepo := repositories.NewGormUserRepository(db)
	auditLogRepo := repositories.NewGormAuditLogRepository(db)
	importMetadataRepo := repositories.NewGormImportMetadataRepository(db)
	fichaRepo := repositories.NewGormFichaRepository(db)
	inventarioRepo := repositories.NewGormInventarioRepository(db)
	modeloRepo := repositories.NewGormModeloRepository(db)
	requisicaoRepo := repositories.NewGormRequisicaoRepository(db)

	partesRepo := repositories.NewGormCatalogoRepository[models.ParteCalcado](db)
	operadoresRepo := repositories.NewGormCatalogoRepository[models.NomeOperador](db)
	coresCalcadoRepo := repositories.NewGormCatalogoRepository[models.CorCalcado](db)
	modelosCalcadoRepo := repositories.NewGormCatalogoRepository[models.ModeloCalcado](db)
	modelosComprasRepo := repositories.NewGormCatalogoRepository[models.Modelo](db)
	coresComprasRepo := repositories.NewGormCatalogoRepository[models.Cor](db)

	lixeiraFichas := repositories.NewGormLixeiraRepository[models.Ficha](db, repositories.HooksFicha())
	lixeiraInventarios := repositories.NewGormLixeiraRepository[models.FichaInventario](db, repositories.HooksFichaInventario())
	lixeiraPartes := repositories.NewGormLixeiraRepository[models.ParteCalcado](db, repositories.HooksParteCalcado())
	lixeiraOperadores := repositories.NewGormLixeiraRepository[models.NomeOperador](db, repositories.LixeiraHooks{})
	lixeiraCoresCalcado := repositories.NewGormLixeiraRepository[models.CorCalcado](db, repositories.HooksCorCalcado())
	lixeiraModelosCalcado := repositories.NewGormLixeiraRepository[models.ModeloCalcado](db, repositories.HooksModeloCalcado())
	lixeiraModelosCompras := repositories.NewGormLixeiraRepository[models.Modelo](db, repositories.HooksComprasProtegido("modelo_id"))
	lixeiraCoresCompras := repositories.NewGormLixeiraRepository[models.Cor](db, repositories.HooksComprasProtegido("cor_id"))

	// --- 5. Serviços ---
	auditLogService := services.NewAuditLogService(auditLogRepo)
	authenticator := auth.NewAuthenticator(userRepo, auditLogService)
	sessionManager := auth.NewSessionManager(cfg)

	partes := services.NewCatalogoService[models.ParteCalcado]("PARTES", auth.CapQualidade, partesRepo, lixeiraPartes, auditLogService)
	operadores := services.NewCatalogoService[models.NomeOperador]("OPERADORES", auth.CapQualidade, operadoresRepo, lixeiraOperadores, auditLogService)
	coresCalcado := services.NewCatalogoService[models.CorCalcado]("CORES_CALCADO", auth.CapQualidade, coresCalcadoRepo, lixeiraCoresCalcado, auditLogService)
	modelosCalcado := services.NewCatalogoService[models.ModeloCalcado]("MODELOS_CALCADO", auth.CapQualidade, modelosCalcadoRepo, lixeiraModelosCalcado, auditLogService)
	modelosCompras := services.NewCatalogoService[models.Modelo]("MODELOS_COMPRAS", auth.CapLoja, modelosComprasRepo, lixeiraModelosCompras, auditLogService)
	coresCompras := services.NewCatalogoService[models.Cor]("CORES_COMPRAS", auth.CapLoja, coresComprasRepo, lixeiraCoresCompras, auditLogService)

	inventarioService := services.NewInventarioService(cfg, inventarioRepo, modeloRepo, lixeiraInventarios, auditLogService)
	fichaService := services.NewFichaService(cfg, fichaRepo, inventarioRepo, partesRepo, operadoresRepo, lixeiraFichas, inventarioService, auditLogService)

	svc := web.Services{
		Authenticator:     authenticator,
		Sessoes:           sessionManager,
		Auditoria:         auditLogService,
		Fichas:            fichaService,
		Inventario:        inventarioService,
		Lixeira:           services.NewLixeiraService(lixeiraFichas, lixeiraInventarios, auditLogService),
		Modelos:           services.NewModeloService(modeloRepo, modelosCalcadoRepo, coresCalcadoRepo, auditLogService),
		Relatorios:        services.NewRelatorioService(fichaService, inventarioService, fichaRepo, inventarioRepo, auditLogService),
		Importacao:        services.NewImportService(cfg, auditLogService, importMetadataRepo, partes, operadores, modelosCompras, coresCompras),
		Partes:            partes,
		Operadores:        operadores,
		CoresInventario:   coresCalcado,
		ModelosInventario: modelosCalcado,
		Requisicoes:       services.NewRequisicaoService(requisicaoRepo, modelosComprasRepo, coresComprasRepo, auditLogService),
		ComprasModelos:    modelosCompras,
		ComprasCores:      coresCompras,
	}
	appLogger.Info("Todos os serviços foram inicializados.")

	// --- 6. Servidor HTTP ---
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      web.NewServer(cfg, svc).Router(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Infof("Servidor HTTP escutando em %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Encerrando servidor HTTP...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Errorf("Servidor encerrado com erro: %v", err)
		return
	}
	appLogger.Info("Aplicação encerrada normalmente.")
}
