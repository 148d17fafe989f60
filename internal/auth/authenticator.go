package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// AuditLogger é o subconjunto do serviço de auditoria usado na autenticação.
// Declarado aqui para que auth não dependa do pacote de serviços.
type AuditLogger interface {
	LogAction(entry models.AuditLogEntry, userSession *SessionData) error
}

// AuthResult encapsula o resultado de uma tentativa de login.
type AuthResult struct {
	Success bool
	Message string
	User    *models.DBUser
}

// Authenticator valida credenciais e reconstrói o ator de cada requisição.
type Authenticator interface {
	AuthenticateUser(username, password, ipAddress, userAgent string) (*AuthResult, error)
	LoadSession(userID uint64, sessionID, ipAddress, userAgent string) (*SessionData, error)
}

type authenticatorImpl struct {
	userRepo        repositories.UserRepository
	auditLogService AuditLogger
}

// NewAuthenticator cria uma nova instância do Authenticator.
func NewAuthenticator(userRepo repositories.UserRepository, auditLogService AuditLogger) Authenticator {
	if userRepo == nil || auditLogService == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewAuthenticator")
	}
	return &authenticatorImpl{userRepo: userRepo, auditLogService: auditLogService}
}

// HashPassword gera um hash bcrypt de uma senha.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("senha não pode estar vazia")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		appLogger.Errorf("Erro ao gerar hash da senha: %v", err)
		return "", fmt.Errorf("%w: falha ao processar senha", appErrors.ErrInternal)
	}
	return string(hashedBytes), nil
}

// VerifyPassword compara uma senha em texto plano com um hash bcrypt.
func VerifyPassword(plainPassword, hashedPassword string) bool {
	if plainPassword == "" || hashedPassword == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		appLogger.Warnf("Erro inesperado em VerifyPassword: %v", err)
	}
	return err == nil
}

func (a *authenticatorImpl) logFalha(action, description, username, ip string, userID *uint64) {
	entry := models.AuditLogEntry{
		Action:      action,
		Description: description,
		Severity:    "WARNING",
		Username:    username,
		UserID:      userID,
		IPAddress:   &ip,
	}
	if err := a.auditLogService.LogAction(entry, nil); err != nil {
		appLogger.Warnf("Falha ao registrar auditoria de login: %v", err)
	}
}

// AuthenticateUser verifica usuário e senha. Credenciais erradas não são erro:
// voltam como AuthResult.Success=false com mensagem genérica.
func (a *authenticatorImpl) AuthenticateUser(username, password, ipAddress, userAgent string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	logCtx := appLogger.WithFields(logrus.Fields{
		"username":  username,
		"ipAddress": ipAddress,
	})

	if username == "" || password == "" {
		return &AuthResult{Success: false, Message: "Usuário e senha são obrigatórios."}, nil
	}

	// 1. Buscar usuário
	user, err := a.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			logCtx.Warn("Tentativa de login para usuário inexistente.")
			a.logFalha("LOGIN_FAILED_USER_NOT_FOUND",
				fmt.Sprintf("Tentativa de login para usuário inexistente: %s", username), "system", ipAddress, nil)
			return &AuthResult{Success: false, Message: "Usuário ou senha inválidos."}, nil
		}
		logCtx.Errorf("Erro ao buscar usuário: %v", err)
		return nil, fmt.Errorf("%w: falha ao verificar usuário", appErrors.ErrDatabase)
	}

	// 2. Conta ativa
	if !user.Active {
		logCtx.Warn("Tentativa de login em conta inativa.")
		a.logFalha("LOGIN_FAILED_INACTIVE",
			fmt.Sprintf("Tentativa de login para conta inativa: %s", user.Username), user.Username, ipAddress, &user.ID)
		return &AuthResult{Success: false, Message: "Usuário ou senha inválidos."}, nil
	}

	// 3. Senha
	if !VerifyPassword(password, user.PasswordHash) {
		logCtx.Warn("Senha inválida.")
		a.logFalha("LOGIN_FAILED_PASSWORD",
			fmt.Sprintf("Senha inválida para %s.", user.Username), user.Username, ipAddress, &user.ID)
		return &AuthResult{Success: false, Message: "Usuário ou senha inválidos."}, nil
	}

	// 4. Sucesso
	if err := a.userRepo.UpdateLastLogin(user.ID); err != nil {
		logCtx.Errorf("Erro (não fatal) ao atualizar último login: %v", err)
	}
	session := NewSessionData(user, "", ipAddress, userAgent)
	if err := a.auditLogService.LogAction(models.AuditLogEntry{
		Action:      "LOGIN_SUCCESS",
		Description: fmt.Sprintf("Usuário %s logado com sucesso.", user.Username),
		Severity:    "INFO",
		Metadata:    map[string]interface{}{"roles": session.Roles, "grupos": session.Groups},
	}, session); err != nil {
		logCtx.Warnf("Falha ao registrar auditoria de login: %v", err)
	}
	logCtx.Info("Login bem-sucedido.")
	return &AuthResult{Success: true, Message: "Autenticação bem-sucedida.", User: user}, nil
}

// LoadSession relê o usuário do cookie. Usuário apagado ou inativo invalida a sessão.
func (a *authenticatorImpl) LoadSession(userID uint64, sessionID, ipAddress, userAgent string) (*SessionData, error) {
	user, err := a.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: usuário da sessão não existe mais", appErrors.ErrInvalidSession)
		}
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: usuário desativado", appErrors.ErrInvalidSession)
	}
	return NewSessionData(user, sessionID, ipAddress, userAgent), nil
}
