package core

import (
	"errors"
	"fmt"
	"log" // Usado para logs iniciais antes que o logger da aplicação esteja configurado
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSecretKey = "default_secret_key_please_change_this_in_production_12345"

// Config struct para armazenar todas as configurações da aplicação
type Config struct {
	AppName    string
	AppVersion string
	AppDebug   bool
	SecretKey  string

	// Database
	DBEngine   string
	DBName     string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Logging
	LogDir         string
	LogLevel       string
	LogMaxBytes    int
	LogBackupCount int
	LogToConsole   bool

	// HTTP & Sessão
	HTTPAddr          string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	ShutdownTimeout   time.Duration
	SessionName       string
	SessionMaxAge     time.Duration
	SessionCookieSafe bool
	CORSOrigins       []string

	// Paginação
	FichasPerPage int
	ItensPerPage  int

	// Dados iniciais (grupos e usuários padrão)
	SeedEnabled  bool
	SeedPassword string
}

// LoadConfig carrega as configurações do arquivo .env especificado ou encontrado na árvore de diretórios.
func LoadConfig(envPath string) (*Config, error) {
	foundEnvPath, err := findEnvFile(envPath)
	if err != nil {
		log.Printf("Aviso: Arquivo .env em '%s' não encontrado: %v. Usando variáveis de ambiente existentes ou defaults.", envPath, err)
	} else {
		log.Printf("Carregando configurações de: %s", foundEnvPath)
		if err := godotenv.Load(foundEnvPath); err != nil {
			log.Printf("Aviso: Erro ao carregar arquivo .env de '%s': %v.", foundEnvPath, err)
		}
	}

	cfg := loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.LogDir, true); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de log essencial '%s': %w", cfg.LogDir, err)
	}
	if cfg.DBEngine == "sqlite" {
		sqliteDir := filepath.Dir(cfg.DBName)
		if sqliteDir != "." && sqliteDir != string(filepath.Separator) {
			if err := ensureDir(sqliteDir, true); err != nil {
				return nil, fmt.Errorf("falha ao criar diretório para banco de dados SQLite '%s': %w", sqliteDir, err)
			}
		}
	}

	log.Println("Configurações carregadas e validadas.")
	return cfg, nil
}

func loadFromEnv() *Config {
	cfg := &Config{}

	cfg.AppName = getEnv("APP_NAME", "Fábrica de Calçados")
	cfg.AppVersion = getEnv("APP_VERSION", "1.0.0-go")
	cfg.AppDebug = getEnvAsBool("APP_DEBUG", false)
	cfg.SecretKey = getEnv("SECRET_KEY", defaultSecretKey)

	cfg.DBEngine = strings.ToLower(getEnv("APP_DB_ENGINE", "sqlite"))
	cfg.DBName = getEnv("APP_DB_NAME", "fabrica_calcados.db")
	cfg.DBHost = getEnv("APP_DB_HOST", "localhost")
	cfg.DBPort = getEnvAsInt("APP_DB_PORT", 5432)
	cfg.DBUser = getEnv("APP_DB_USER", "user")
	cfg.DBPassword = getEnv("APP_DB_PASSWORD", "password")
	cfg.DBSSLMode = getEnv("APP_DB_SSLMODE", "disable")

	cfg.LogDir = getEnv("APP_LOG_DIR", "./app_logs")
	cfg.LogLevel = strings.ToUpper(getEnv("APP_LOG_LEVEL", "INFO"))
	cfg.LogMaxBytes = getEnvAsInt("APP_LOG_MAX_BYTES", 5*1024*1024) // 5MB
	cfg.LogBackupCount = getEnvAsInt("APP_LOG_BACKUP_COUNT", 7)
	cfg.LogToConsole = getEnvAsBool("APP_LOG_TO_CONSOLE", true)

	cfg.HTTPAddr = getEnv("APP_HTTP_ADDR", ":8000")
	cfg.HTTPReadTimeout = getEnvAsDuration("APP_HTTP_READ_TIMEOUT", 15)
	cfg.HTTPWriteTimeout = getEnvAsDuration("APP_HTTP_WRITE_TIMEOUT", 30)
	cfg.ShutdownTimeout = getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 10)
	cfg.SessionName = getEnv("APP_SESSION_NAME", "fabrica_sessao")
	cfg.SessionMaxAge = getEnvAsDuration("APP_SESSION_MAX_AGE", 8*3600) // um turno
	cfg.SessionCookieSafe = getEnvAsBool("APP_SESSION_COOKIE_SECURE", false)
	for _, o := range strings.Split(getEnv("APP_CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	cfg.FichasPerPage = getEnvAsInt("APP_FICHAS_PER_PAGE", 12)
	cfg.ItensPerPage = getEnvAsInt("APP_ITENS_PER_PAGE", 15)

	cfg.SeedEnabled = getEnvAsBool("APP_SEED_ENABLED", true)
	cfg.SeedPassword = getEnv("APP_SEED_PASSWORD", "lynd1234")

	return cfg
}

func (c *Config) validate() error {
	if !c.AppDebug && c.SecretKey == defaultSecretKey {
		return errors.New("FATAL: SECRET_KEY não pode ser o valor padrão em ambiente de não depuração (AppDebug=false)")
	}
	if len(c.SecretKey) < 32 && !c.AppDebug {
		log.Printf("AVISO: SECRET_KEY tem menos de 32 caracteres (%d). Recomenda-se uma chave mais longa para produção.", len(c.SecretKey))
	}
	switch c.DBEngine {
	case "sqlite", "postgresql", "postgres":
	default:
		return fmt.Errorf("APP_DB_ENGINE inválido: '%s' (use sqlite ou postgresql)", c.DBEngine)
	}
	if c.FichasPerPage <= 0 || c.ItensPerPage <= 0 {
		return errors.New("tamanhos de página devem ser positivos")
	}
	return nil
}

// findEnvFile tenta localizar o arquivo .env.
// Primeiro no path fornecido, depois subindo na árvore de diretórios a partir do CWD.
func findEnvFile(envPath string) (string, error) {
	if _, err := os.Stat(envPath); err == nil {
		absPath, _ := filepath.Abs(envPath)
		return absPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("não foi possível obter o diretório de trabalho atual: %w", err)
	}

	for i := 0; i < 5; i++ {
		tryPath := filepath.Join(cwd, ".env")
		if _, err := os.Stat(tryPath); err == nil {
			return tryPath, nil
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return "", fmt.Errorf("arquivo .env não encontrado no caminho '%s' ou nos diretórios pais", envPath)
}

// ensureDir garante que um diretório exista, criando-o se necessário.
// Se 'critical' for true, retorna erro em caso de falha. Caso contrário, apenas loga um aviso.
func ensureDir(dirPath string, critical bool) error {
	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		err = os.MkdirAll(absPath, os.ModePerm)
	}
	if err != nil {
		msg := fmt.Sprintf("Não foi possível criar o diretório '%s': %v", dirPath, err)
		if critical {
			log.Println("ERRO CRÍTICO:", msg)
			return errors.New(msg)
		}
		log.Println("AVISO:", msg)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration lê a variável em segundos.
func getEnvAsDuration(key string, fallbackSeconds int) time.Duration {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return time.Duration(value) * time.Second
	}
	return time.Duration(fallbackSeconds) * time.Second
}
