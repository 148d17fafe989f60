package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONMetadata é um tipo customizado para lidar com o campo metadata que é um JSON no banco.
// Ele implementa as interfaces sql.Scanner e driver.Valuer.
type JSONMetadata map[string]interface{}

// Value implementa a interface driver.Valuer.
func (jm JSONMetadata) Value() (driver.Value, error) {
	if jm == nil {
		return nil, nil
	}
	b, err := json.Marshal(jm)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implementa a interface sql.Scanner.
func (jm *JSONMetadata) Scan(value interface{}) error {
	if value == nil {
		*jm = nil
		return nil
	}
	b, ok := value.([]byte) // O driver geralmente retorna []byte para TEXT/JSONB
	if !ok {
		s, okStr := value.(string)
		if !okStr {
			return errors.New("tipo de valor inválido para JSONMetadata scan, esperado []byte ou string")
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*jm = make(JSONMetadata)
		return nil
	}
	return json.Unmarshal(b, jm)
}

// AuditLogEntry representa uma entrada de log de auditoria no banco de dados.
type AuditLogEntry struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	Action      string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Severity    string    `gorm:"type:varchar(10);not null;index" json:"severity"` // DEBUG, INFO, WARNING, ERROR, CRITICAL
	Username    string    `gorm:"type:varchar(50);not null;index" json:"username"`
	UserID      *uint64   `gorm:"index" json:"user_id,omitempty"`
	Roles       *string   `gorm:"type:varchar(255)" json:"roles,omitempty"` // Papéis no momento da ação (CSV)
	IPAddress   *string   `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	// RequestID liga a entrada ao log de acesso HTTP da mesma requisição.
	RequestID *uuid.UUID `gorm:"type:varchar(36);index" json:"request_id,omitempty"`

	Metadata JSONMetadata `gorm:"type:text" json:"metadata,omitempty"`
}

// TableName especifica o nome da tabela para GORM.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}

// ValidSeverities define os níveis de severidade válidos.
var ValidSeverities = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// AuditLogFilter reúne os filtros da consulta de auditoria.
type AuditLogFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Severity  *string
	User      *string
	Action    *string
	Limit     int
	Offset    int
}
