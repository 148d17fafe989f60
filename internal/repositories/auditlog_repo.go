package repositories

import (
	"strings"
	"time"

	"gorm.io/gorm"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// AuditLogRepository define a interface para operações no repositório de logs de auditoria.
type AuditLogRepository interface {
	// Create insere uma nova entrada de log de auditoria.
	Create(entry models.AuditLogEntry) (*models.AuditLogEntry, error)

	// GetFiltered busca logs com os filtros informados, paginados.
	// Retorna as entradas e a contagem total antes da paginação.
	GetFiltered(filter models.AuditLogFilter) (logs []models.AuditLogEntry, totalCount int64, err error)
}

// gormAuditLogRepository é a implementação GORM de AuditLogRepository.
type gormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository cria uma nova instância de gormAuditLogRepository.
func NewGormAuditLogRepository(db *gorm.DB) AuditLogRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormAuditLogRepository")
	}
	return &gormAuditLogRepository{db: db}
}

// Create insere uma nova entrada de log de auditoria no banco de dados.
func (r *gormAuditLogRepository) Create(entry models.AuditLogEntry) (*models.AuditLogEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Severity = strings.ToUpper(entry.Severity)

	result := r.db.Create(&entry)
	if result.Error != nil {
		// Metadata pode ter dados sensíveis; não entra na mensagem.
		appLogger.Errorf("Erro ao criar entrada de log de auditoria (Ação: %s, Usuário: %s, Severidade: %s): %v",
			entry.Action, entry.Username, entry.Severity, result.Error)
		return nil, appErrors.WrapErrorf(result.Error, "falha ao criar entrada de log no banco (GORM)")
	}
	return &entry, nil
}

// GetFiltered busca logs de auditoria com base nos filtros fornecidos, com paginação.
func (r *gormAuditLogRepository) GetFiltered(filter models.AuditLogFilter) ([]models.AuditLogEntry, int64, error) {
	var entries []models.AuditLogEntry
	var totalCount int64

	query := r.db.Model(&models.AuditLogEntry{})

	if filter.StartDate != nil {
		s := filter.StartDate
		startOfDay := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
		query = query.Where("timestamp >= ?", startOfDay)
	}
	if filter.EndDate != nil {
		e := filter.EndDate
		endOfDay := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 999999999, e.Location())
		query = query.Where("timestamp <= ?", endOfDay)
	}
	if filter.Severity != nil && *filter.Severity != "" {
		query = query.Where("UPPER(severity) = UPPER(?)", *filter.Severity)
	}
	if filter.User != nil && *filter.User != "" {
		query = query.Where("LOWER(username) = LOWER(?)", *filter.User)
	}
	if filter.Action != nil && *filter.Action != "" {
		query = query.Where("LOWER(action) = LOWER(?)", *filter.Action)
	}

	// Contagem antes de limit/offset.
	if err := query.Count(&totalCount).Error; err != nil {
		appLogger.Errorf("Erro ao contar logs de auditoria filtrados: %v", err)
		return nil, 0, appErrors.WrapErrorf(err, "falha ao contar logs de auditoria (GORM)")
	}
	if totalCount == 0 {
		return []models.AuditLogEntry{}, 0, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	} else if limit > 1000 {
		limit = 1000
	}
	offset := max(filter.Offset, 0)

	if err := query.Order("timestamp DESC, id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		appLogger.Errorf("Erro ao buscar logs de auditoria filtrados: %v", err)
		return nil, 0, appErrors.WrapErrorf(err, "falha ao buscar logs de auditoria (GORM)")
	}
	return entries, totalCount, nil
}
