package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Erros sentinela pré-definidos para tipos comuns de falha na aplicação.
// Estes podem ser verificados usando errors.Is(err, ErrNotFound).
var (
	// --- Erros Gerais ---
	ErrInternal      = errors.New("erro interno da aplicação")
	ErrConfiguration = errors.New("erro de configuração da aplicação")

	// --- Erros de Autenticação e Sessão ---
	ErrUnauthorized       = errors.New("não autenticado")
	ErrInvalidCredentials = errors.New("credenciais inválidas (usuário ou senha)")
	ErrInvalidSession     = errors.New("sessão inválida ou não encontrada")

	// --- Erros de Autorização ---
	ErrPermissionDenied = errors.New("permissão negada")

	// --- Erros de Banco de Dados / Repositório ---
	ErrDatabase = errors.New("erro na operação com o banco de dados")
	ErrNotFound = errors.New("registro não encontrado")
	ErrConflict = errors.New("conflito de dados")

	// --- Erros de Validação e Entrada ---
	ErrValidation   = errors.New("erro de validação nos dados fornecidos")
	ErrInvalidInput = errors.New("entrada de dados inválida ou mal formatada")

	// --- Lixeira, fichas e inventário ---
	ErrDuplicateItem    = errors.New("item duplicado")
	ErrAlreadyTrashed   = errors.New("registro já está na lixeira")
	ErrNotTrashed       = errors.New("registro não está na lixeira")
	ErrReferentialBlock = errors.New("registro em uso por outros dados")
	ErrNegativeQuantity = errors.New("quantidade não pode ficar negativa")

	// --- Relatórios e importação ---
	ErrExport     = errors.New("falha ao exportar dados")
	ErrDataImport = errors.New("falha ao importar dados")
)

// ValidationError é um tipo de erro que contém detalhes sobre os campos que falharam na validação.
type ValidationError struct {
	// Message é uma mensagem geral sobre a falha de validação.
	Message string
	// Fields mapeia nomes de campos para suas respectivas mensagens de erro.
	Fields map[string]string
	// Underlying é o erro original que pode ter causado a falha de validação (opcional).
	Underlying error
}

// NewValidationError cria uma nova instância de ValidationError.
func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{
		Message: message,
		Fields:  fields,
	}
}

// Error implementa a interface error.
func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Message != "" {
		sb.WriteString(ve.Message)
	} else {
		sb.WriteString("Erro de validação")
	}

	if len(ve.Fields) > 0 {
		keys := make([]string, 0, len(ve.Fields))
		for field := range ve.Fields {
			keys = append(keys, field)
		}
		sort.Strings(keys)
		fieldErrors := make([]string, 0, len(keys))
		for _, field := range keys {
			fieldErrors = append(fieldErrors, fmt.Sprintf("%s: %s", field, ve.Fields[field]))
		}
		sb.WriteString(" (Detalhes: ")
		sb.WriteString(strings.Join(fieldErrors, ", "))
		sb.WriteString(")")
	}
	if ve.Underlying != nil {
		sb.WriteString(fmt.Sprintf(" | Erro original: %v", ve.Underlying))
	}
	return sb.String()
}

// Unwrap retorna o erro encapsulado.
func (ve *ValidationError) Unwrap() error {
	return ve.Underlying
}

// Is faz `errors.Is(err, ErrValidation)` funcionar para qualquer *ValidationError.
func (ve *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DatabaseErrorDetail carrega mais informações sobre um erro de banco de dados.
type DatabaseErrorDetail struct {
	// Operation descreve a operação que estava sendo realizada (ex: "criando ficha").
	Operation string
	Err       error
}

// NewDatabaseErrorDetail cria um novo DatabaseErrorDetail.
func NewDatabaseErrorDetail(operation string, originalErr error) *DatabaseErrorDetail {
	if originalErr == nil {
		originalErr = ErrDatabase
	}
	return &DatabaseErrorDetail{Operation: operation, Err: originalErr}
}

func (de *DatabaseErrorDetail) Error() string {
	return fmt.Sprintf("erro de banco de dados durante %s: %v", de.Operation, de.Err)
}

func (de *DatabaseErrorDetail) Unwrap() error {
	return de.Err
}

// Is: um DatabaseErrorDetail é sempre um ErrDatabase.
func (de *DatabaseErrorDetail) Is(target error) bool {
	if target == ErrDatabase {
		return true
	}
	return errors.Is(de.Err, target)
}

// WrapErrorf cria um novo erro que envolve um erro existente com uma mensagem formatada,
// preservando o erro original para verificação com `errors.Is` e `errors.As`.
func WrapErrorf(originalErr error, format string, args ...interface{}) error {
	if originalErr == nil {
		return fmt.Errorf(format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), originalErr)
}

// UserMessage devolve a parte do erro destinada ao usuário. Para erros no
// formato `fmt.Errorf("%w: msg", sentinela)` retorna apenas `msg`.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Message != "" {
			return ve.Message
		}
	}
	msg := err.Error()
	for _, sentinel := range []error{
		ErrPermissionDenied, ErrNotFound, ErrConflict, ErrDuplicateItem,
		ErrAlreadyTrashed, ErrNotTrashed, ErrReferentialBlock, ErrNegativeQuantity,
		ErrUnauthorized, ErrInvalidCredentials, ErrValidation, ErrInvalidInput,
	} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
