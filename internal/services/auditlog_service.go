package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

// AuditLogService define a interface para o serviço de log de auditoria.
// Satisfaz auth.AuditLogger.
type AuditLogService interface {
	// LogAction registra uma ação de auditoria.
	// `userSession` pode ser nil para ações do sistema ou de usuário anônimo (ex: login falho).
	LogAction(entry models.AuditLogEntry, userSession *auth.SessionData) error

	// GetAuditLogs busca logs de auditoria com os filtros informados. Exige papel qualidade.
	GetAuditLogs(filter models.AuditLogFilter, userSession *auth.SessionData) (logs []models.AuditLogEntry, totalCount int64, err error)
}

// auditLogServiceImpl é a implementação de AuditLogService.
type auditLogServiceImpl struct {
	repo repositories.AuditLogRepository
}

var _ auth.AuditLogger = (AuditLogService)(nil)

// NewAuditLogService cria uma nova instância de AuditLogService.
func NewAuditLogService(repo repositories.AuditLogRepository) AuditLogService {
	if repo == nil {
		appLogger.Fatalf("AuditLogRepository não pode ser nil para NewAuditLogService")
	}
	return &auditLogServiceImpl{repo: repo}
}

const maxDescricaoAuditoria = 4000

// LogAction registra uma ação de auditoria no banco de dados.
func (s *auditLogServiceImpl) LogAction(entry models.AuditLogEntry, userSession *auth.SessionData) error {
	// 1. Validar e normalizar entrada básica
	if strings.TrimSpace(entry.Action) == "" {
		return appErrors.WrapErrorf(appErrors.ErrInvalidInput, "ação do log de auditoria não pode ser vazia")
	}
	if strings.TrimSpace(entry.Description) == "" {
		return appErrors.WrapErrorf(appErrors.ErrInvalidInput, "descrição do log de auditoria não pode ser vazia")
	}

	normalizedSeverity := strings.ToUpper(strings.TrimSpace(entry.Severity))
	if _, ok := models.ValidSeverities[normalizedSeverity]; !ok {
		if entry.Severity != "" {
			appLogger.Warnf("Nível de severidade inválido '%s' fornecido para log. Usando 'INFO'. Ação: %s", entry.Severity, entry.Action)
		}
		entry.Severity = "INFO"
	} else {
		entry.Severity = normalizedSeverity
	}

	// 2. Preencher detalhes do ator
	if userSession != nil {
		if entry.Username == "" {
			entry.Username = userSession.Username
		}
		if entry.UserID == nil {
			uid := userSession.UserID
			entry.UserID = &uid
		}
		if entry.Roles == nil && len(userSession.Roles) > 0 {
			rolesStr := strings.Join(userSession.Roles, ", ")
			entry.Roles = &rolesStr
		}
		if (entry.IPAddress == nil || *entry.IPAddress == "") && userSession.IPAddress != "" {
			ip := userSession.IPAddress
			entry.IPAddress = &ip
		}
		if entry.RequestID == nil && userSession.RequestID != uuid.Nil {
			rid := userSession.RequestID
			entry.RequestID = &rid
		}
	} else {
		if entry.Username == "" {
			entry.Username = "system"
		}
		if entry.IPAddress == nil || *entry.IPAddress == "" {
			val := "N/A"
			entry.IPAddress = &val
		}
	}

	// 3. Limites de tamanho
	if len(entry.Description) > maxDescricaoAuditoria {
		entry.Description = entry.Description[:maxDescricaoAuditoria-3] + "..."
		appLogger.Warnf("Descrição do log de auditoria truncada para %d caracteres. Ação: %s", maxDescricaoAuditoria, entry.Action)
	}

	// 4. Timestamp
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	// 5. Persistir
	if _, err := s.repo.Create(entry); err != nil {
		return appErrors.WrapErrorf(err, "falha ao persistir log de auditoria (Ação: %s)", entry.Action)
	}
	return nil
}

// GetAuditLogs busca logs de auditoria com base nos filtros fornecidos.
func (s *auditLogServiceImpl) GetAuditLogs(filter models.AuditLogFilter, userSession *auth.SessionData) ([]models.AuditLogEntry, int64, error) {
	if err := auth.CheckRole(userSession, auth.CapQualidade); err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
		appLogger.Warnf("Solicitação de GetAuditLogs com limite > 1000. Reduzido para 1000.")
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.StartDate != nil {
		v := filter.StartDate.In(time.UTC)
		filter.StartDate = &v
	}
	if filter.EndDate != nil {
		v := filter.EndDate.In(time.UTC)
		filter.EndDate = &v
	}

	logs, total, err := s.repo.GetFiltered(filter)
	if err != nil {
		return nil, 0, appErrors.WrapErrorf(err, "falha ao buscar logs de auditoria do repositório")
	}
	return logs, total, nil
}

// registrar grava a auditoria de uma operação bem-sucedida; falha só gera aviso.
func registrar(audit AuditLogService, userSession *auth.SessionData, action, description string, metadata models.JSONMetadata) {
	entry := models.AuditLogEntry{
		Action:      action,
		Description: description,
		Severity:    "INFO",
		Metadata:    metadata,
	}
	if err := audit.LogAction(entry, userSession); err != nil {
		appLogger.Warnf("Falha ao registrar log de auditoria para %s: %v", action, err)
	}
}
