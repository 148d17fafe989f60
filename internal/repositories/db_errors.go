package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isForeignKeyViolation reconhece a violação de chave estrangeira traduzida
// pelo gorm ou, sem tradução, pela mensagem do driver.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key")
}

// isDuplicateKey reconhece violação de índice único.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
