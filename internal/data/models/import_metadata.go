package models

import (
	"strings"
	"time"
)

// DBImportMetadata guarda o resultado da última importação de cada cadastro.
type DBImportMetadata struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	// Catalogo identifica o cadastro importado (ex: "PARTES", "OPERADORES").
	// Há apenas uma linha por cadastro; é armazenado em maiúsculas.
	Catalogo string `gorm:"type:varchar(50);uniqueIndex;not null"`

	LastUpdatedAt    time.Time `gorm:"not null"`
	OriginalFilename *string   `gorm:"type:varchar(255)"`
	Encoding         *string   `gorm:"type:varchar(40)"`
	Criados          int       `gorm:"not null;default:0"`
	Ignorados        int       `gorm:"not null;default:0"`
	ImportedBy       *string   `gorm:"type:varchar(50)"`
}

// TableName especifica o nome da tabela para GORM.
func (DBImportMetadata) TableName() string {
	return "import_metadata"
}

// ImportMetadataPublic representa os metadados de importação para a API.
type ImportMetadataPublic struct {
	Catalogo         string    `json:"catalogo"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	OriginalFilename *string   `json:"original_filename,omitempty"`
	Encoding         *string   `json:"encoding,omitempty"`
	Criados          int       `json:"criados"`
	Ignorados        int       `json:"ignorados"`
	ImportedBy       *string   `json:"imported_by,omitempty"`
}

// ToImportMetadataPublic converte um DBImportMetadata para ImportMetadataPublic.
func ToImportMetadataPublic(dbMeta *DBImportMetadata) *ImportMetadataPublic {
	if dbMeta == nil {
		return nil
	}
	return &ImportMetadataPublic{
		Catalogo:         dbMeta.Catalogo,
		LastUpdatedAt:    dbMeta.LastUpdatedAt,
		OriginalFilename: dbMeta.OriginalFilename,
		Encoding:         dbMeta.Encoding,
		Criados:          dbMeta.Criados,
		Ignorados:        dbMeta.Ignorados,
		ImportedBy:       dbMeta.ImportedBy,
	}
}

// ImportMetadataUpsert define os campos gravados ao final de uma importação.
// LastUpdatedAt é sempre o instante da operação.
type ImportMetadataUpsert struct {
	Catalogo         string
	OriginalFilename *string
	Encoding         *string
	Criados          int
	Ignorados        int
	ImportedBy       *string
}

// Normalize garante que o Catalogo esteja em maiúsculas.
func (imu *ImportMetadataUpsert) Normalize() {
	if imu != nil {
		imu.Catalogo = strings.ToUpper(strings.TrimSpace(imu.Catalogo))
	}
}
