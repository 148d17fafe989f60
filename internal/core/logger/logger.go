package logger // Nome do pacote 'logger' para evitar conflito com var 'log'

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log *logrus.Logger // Logger global da aplicação
)

// SetupLogger inicializa o logger global da aplicação.
// Deve ser chamado uma vez no início.
func SetupLogger(cfg *core.Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		fmt.Fprintf(os.Stderr, "Nível de log inválido '%s', usando INFO: %v\n", cfg.LogLevel, err)
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601 com milissegundos
	})

	logFilePath := filepath.Join(cfg.LogDir, strings.ToLower(strings.ReplaceAll(cfg.AppName, " ", "_"))+".log")

	logDirAbs, _ := filepath.Abs(cfg.LogDir)
	if err := os.MkdirAll(logDirAbs, os.ModePerm); err != nil {
		fmt.Fprintf(os.Stderr, "Falha ao criar diretório de log '%s': %v. Logs de arquivo podem não funcionar.\n", logDirAbs, err)
	}

	maxSizeMB := cfg.LogMaxBytes / (1024 * 1024)
	if maxSizeMB < 1 {
		maxSizeMB = 1
	}
	fileLogger := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    maxSizeMB,
		MaxBackups: cfg.LogBackupCount,
		MaxAge:     28, // dias
		Compress:   true,
	}

	writers := []io.Writer{fileLogger}
	if cfg.LogToConsole {
		writers = append(writers, os.Stderr)
	}
	l.SetOutput(io.MultiWriter(writers...))

	log = l
	log.Infof("Logger configurado. Nível: %s. Arquivo: %s", level.String(), logFilePath)
	return nil
}

// Logger devolve o *logrus.Logger global (para pontes como a do GORM e o log de acesso HTTP).
// Antes de SetupLogger devolve um logger que descarta tudo.
func Logger() *logrus.Logger {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		return discard
	}
	return log
}

func Debug(args ...interface{})                 { Logger().Debug(args...) }
func Debugf(format string, args ...interface{}) { Logger().Debugf(format, args...) }
func Info(args ...interface{})                  { Logger().Info(args...) }
func Infof(format string, args ...interface{})  { Logger().Infof(format, args...) }
func Warn(args ...interface{})                  { Logger().Warn(args...) }
func Warnf(format string, args ...interface{})  { Logger().Warnf(format, args...) }
func Error(args ...interface{})                 { Logger().Error(args...) }
func Errorf(format string, args ...interface{}) { Logger().Errorf(format, args...) }

func Fatal(args ...interface{}) {
	if log == nil {
		fmt.Fprintln(os.Stderr, append([]interface{}{"Logger não inicializado:"}, args...)...)
		os.Exit(1)
	}
	log.Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	if log == nil {
		fmt.Fprintf(os.Stderr, "Logger não inicializado: "+format+"\n", args...)
		os.Exit(1)
	}
	log.Fatalf(format, args...)
}

// WithFields para log estruturado com contexto.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger().WithFields(fields)
}
