package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// UserRepository define a interface para operações no repositório de usuários.
type UserRepository interface {
	GetByID(userID uint64) (*models.DBUser, error)
	GetByUsername(username string) (*models.DBUser, error)
	UpdateLastLogin(userID uint64) error
	GetAllUsers(includeInactive bool) ([]*models.DBUser, error)
}

// gormUserRepository é a implementação GORM de UserRepository.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository cria uma nova instância de gormUserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormUserRepository")
	}
	return &gormUserRepository{db: db}
}

// withActor carrega grupos em ordem de id (o primeiro é o setor) e o perfil.
func withActor(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Groups", func(tx *gorm.DB) *gorm.DB { return tx.Order("grupos.id ASC") }).
		Preload("Perfil")
}

// Helper para buscar usuário com grupos e perfil pré-carregados
func (r *gormUserRepository) getUserByCondition(condition string, value interface{}) (*models.DBUser, error) {
	var dbUser models.DBUser
	if err := withActor(r.db).Where(condition, value).First(&dbUser).Error; err != nil {
		field := strings.Split(condition, " ")[0]
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: usuário com %s = '%v' não encontrado", appErrors.ErrNotFound, field, value)
		}
		appLogger.Errorf("Erro ao buscar usuário por '%s = %v': %v", condition, value, err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar usuário por %s (GORM)", field)
	}
	return &dbUser, nil
}

// GetByID busca um usuário pelo ID, incluindo grupos e perfil.
func (r *gormUserRepository) GetByID(userID uint64) (*models.DBUser, error) {
	return r.getUserByCondition("id = ?", userID)
}

// GetByUsername busca um usuário pelo username (case-insensitive).
func (r *gormUserRepository) GetByUsername(username string) (*models.DBUser, error) {
	return r.getUserByCondition("LOWER(username) = LOWER(?)", username)
}

// UpdateLastLogin registra o instante do último login bem-sucedido.
func (r *gormUserRepository) UpdateLastLogin(userID uint64) error {
	now := time.Now().UTC()
	result := r.db.Model(&models.DBUser{}).Where("id = ?", userID).Update("last_login", now)
	if result.Error != nil {
		appLogger.Errorf("Erro ao atualizar último login do usuário %d: %v", userID, result.Error)
		return appErrors.WrapErrorf(result.Error, "falha ao atualizar último login (GORM)")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: usuário %d não encontrado", appErrors.ErrNotFound, userID)
	}
	return nil
}

// GetAllUsers lista usuários por nome. Usado no filtro do relatório de período e da auditoria.
func (r *gormUserRepository) GetAllUsers(includeInactive bool) ([]*models.DBUser, error) {
	var users []*models.DBUser
	query := withActor(r.db).Order("username ASC")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&users).Error; err != nil {
		appLogger.Errorf("Erro ao listar usuários: %v", err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar usuários (GORM)")
	}
	return users, nil
}
