package data

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger" // Logger do GORM

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

var dbInstance *gorm.DB // Instância global do GORM DB

// allModels lista, em ordem de dependência, todas as tabelas migradas.
func allModels() []interface{} {
	return []interface{}{
		&models.DBGroup{},
		&models.DBUser{},
		&models.PerfilUsuario{},
		&models.AuditLogEntry{},
		&models.DBImportMetadata{},
		// qualidade
		&models.ParteCalcado{},
		&models.NomeOperador{},
		&models.CorCalcado{},
		&models.ModeloCalcado{},
		&models.TamanhoModelo{},
		&models.Ficha{},
		&models.RegistroParte{},
		&models.FichaInventario{},
		&models.ItemInventario{},
		// compras
		&models.Modelo{},
		&models.Cor{},
		&models.Requisicao{},
		&models.ItemRequisicao{},
	}
}

// InitializeDB configura e estabelece a conexão com o banco de dados
// e executa migrações automáticas.
func InitializeDB(cfg *core.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var err error

	appLogger.Infof("Inicializando conexão com banco de dados: %s", cfg.DBEngine)

	gormLogLevel := gormlogger.Silent
	if cfg.AppDebug {
		gormLogLevel = gormlogger.Info // Loga todas as queries SQL em modo debug
	}
	newGormLogger := gormlogger.New(
		appLogger.WithFields(logrus.Fields{"component": "gorm"}),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger: newGormLogger,
		// Converte violações de chave única/estrangeira nos erros do gorm (ErrDuplicatedKey, ErrForeignKeyViolated).
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch cfg.DBEngine {
	case "postgresql", "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
		appLogger.Infof("Conectando ao PostgreSQL: host=%s dbname=%s user=%s port=%d", cfg.DBHost, cfg.DBName, cfg.DBUser, cfg.DBPort)
	case "sqlite":
		// _txlock=immediate faz cada transação reservar a escrita no BEGIN; junto com
		// o busy_timeout, escritores concorrentes esperam em vez de falhar com SQLITE_BUSY.
		dialector = sqlite.Open(cfg.DBName + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate")
		appLogger.Infof("Usando banco de dados SQLite: %s", cfg.DBName)
	default:
		return nil, fmt.Errorf("motor de banco de dados não suportado: %s", cfg.DBEngine)
	}

	dbInstance, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		appLogger.Errorf("Falha ao conectar ao banco de dados %s: %v", cfg.DBEngine, err)
		return nil, fmt.Errorf("falha ao abrir conexão com %s: %w", cfg.DBEngine, err)
	}

	sqlDB, err := dbInstance.DB()
	if err != nil {
		appLogger.Errorf("Falha ao obter instância *sql.DB do GORM: %v", err)
		return nil, fmt.Errorf("falha ao configurar pool de conexões: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	appLogger.Info("Conexão com banco de dados estabelecida.")

	if err := CreateDatabaseTables(dbInstance); err != nil {
		return nil, err
	}
	return dbInstance, nil
}

// GetDB retorna a instância global do GORM DB.
func GetDB() *gorm.DB {
	if dbInstance == nil {
		appLogger.Fatalf("FATAL: Instância do banco de dados não inicializada. Chame InitializeDB primeiro.")
	}
	return dbInstance
}

// CloseDB fecha a conexão com o banco de dados.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		appLogger.Warn("Tentativa de fechar conexão DB nula.")
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Errorf("Erro ao obter *sql.DB para fechar: %v", err)
		return err
	}
	appLogger.Info("Fechando conexão com o banco de dados...")
	return sqlDB.Close()
}

// CreateDatabaseTables executa o AutoMigrate de todas as tabelas.
func CreateDatabaseTables(db *gorm.DB) error {
	if db == nil {
		return errors.New("instância de banco de dados é nil, não é possível criar tabelas")
	}
	appLogger.Info("Executando migrações automáticas do GORM...")
	if err := db.AutoMigrate(allModels()...); err != nil {
		appLogger.Errorf("Falha durante AutoMigrate: %v", err)
		return fmt.Errorf("falha na migração do esquema do banco de dados: %w", err)
	}
	appLogger.Info("Migrações automáticas do GORM concluídas.")
	return nil
}

type DBSessionFunc func(tx *gorm.DB) error

// WithTransaction executa uma função dentro de uma transação GORM.
// Faz commit se a função não retornar erro, rollback caso contrário.
func WithTransaction(db *gorm.DB, fn DBSessionFunc) error {
	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return fmt.Errorf("erro ao executar função (%v) E erro no rollback (%w)", err, rbErr)
		}
		return err
	}

	if res := tx.Commit(); res.Error != nil {
		return fmt.Errorf("falha ao commitar transação: %w", res.Error)
	}
	return nil
}
