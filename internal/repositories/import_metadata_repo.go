package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// ImportMetadataRepository guarda o resultado da última importação de cada cadastro.
type ImportMetadataRepository interface {
	// GetByCatalogo busca os metadados de um cadastro (case-insensitive).
	GetByCatalogo(catalogo string) (*models.DBImportMetadata, error)

	// GetAll busca todos os metadados, ordenados por cadastro.
	GetAll() ([]models.DBImportMetadata, error)

	// Upsert atualiza a linha do cadastro ou cria uma nova.
	// LastUpdatedAt é sempre o instante atual (UTC).
	Upsert(upsertData models.ImportMetadataUpsert) (*models.DBImportMetadata, error)
}

type gormImportMetadataRepository struct {
	db *gorm.DB
}

// NewGormImportMetadataRepository cria uma nova instância de gormImportMetadataRepository.
func NewGormImportMetadataRepository(db *gorm.DB) ImportMetadataRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormImportMetadataRepository")
	}
	return &gormImportMetadataRepository{db: db}
}

func (r *gormImportMetadataRepository) GetByCatalogo(catalogo string) (*models.DBImportMetadata, error) {
	catalogo = strings.TrimSpace(catalogo)
	if catalogo == "" {
		return nil, fmt.Errorf("%w: cadastro não pode ser vazio", appErrors.ErrInvalidInput)
	}

	var metadata models.DBImportMetadata
	result := r.db.Where("UPPER(catalogo) = UPPER(?)", catalogo).First(&metadata)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: nenhuma importação registrada para '%s'", appErrors.ErrNotFound, catalogo)
		}
		appLogger.Errorf("Erro ao buscar metadados de importação para '%s': %v", catalogo, result.Error)
		return nil, appErrors.WrapErrorf(result.Error, "falha ao buscar metadados de importação (GORM)")
	}
	return &metadata, nil
}

func (r *gormImportMetadataRepository) GetAll() ([]models.DBImportMetadata, error) {
	var metadatas []models.DBImportMetadata
	if err := r.db.Order("catalogo ASC").Find(&metadatas).Error; err != nil {
		appLogger.Errorf("Erro ao buscar todos os metadados de importação: %v", err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar lista de metadados de importação (GORM)")
	}
	return metadatas, nil
}

func (r *gormImportMetadataRepository) Upsert(upsertData models.ImportMetadataUpsert) (*models.DBImportMetadata, error) {
	upsertData.Normalize()
	if upsertData.Catalogo == "" {
		return nil, fmt.Errorf("%w: cadastro não pode ser vazio para upsert de metadados", appErrors.ErrInvalidInput)
	}

	metadataToPersist := models.DBImportMetadata{
		Catalogo:         upsertData.Catalogo,
		LastUpdatedAt:    time.Now().UTC(),
		OriginalFilename: upsertData.OriginalFilename,
		Encoding:         upsertData.Encoding,
		Criados:          upsertData.Criados,
		Ignorados:        upsertData.Ignorados,
		ImportedBy:       upsertData.ImportedBy,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "catalogo"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_updated_at", "original_filename", "encoding", "criados", "ignorados", "imported_by",
		}),
	}).Create(&metadataToPersist)
	if result.Error != nil {
		appLogger.Errorf("Erro durante upsert de metadados para '%s': %v", upsertData.Catalogo, result.Error)
		return nil, appErrors.WrapErrorf(result.Error, "falha ao atualizar/criar metadados de importação (GORM)")
	}

	// No caminho de update o id devolvido pelo driver não é confiável; relê a linha.
	saved, err := r.GetByCatalogo(upsertData.Catalogo)
	if err != nil {
		return nil, err
	}
	appLogger.Infof("Metadados de importação de '%s' gravados (ID: %d).", saved.Catalogo, saved.ID)
	return saved, nil
}
