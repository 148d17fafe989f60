package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// RequisicaoRepository persiste as requisições de compra da loja.
// Toda leitura é restrita ao dono: requisição de outro usuário é "não encontrada".
type RequisicaoRepository interface {
	ListarDoUsuario(usuarioID uint64) ([]*models.Requisicao, error)
	Create(req *models.Requisicao) error
	GetDoUsuario(id, usuarioID uint64) (*models.Requisicao, error)
	AdicionarItem(item *models.ItemRequisicao) error
	RemoverItem(requisicaoID, itemID uint64) (*models.ItemRequisicao, error)
	AtualizarObservacao(requisicaoID uint64, observacao *string) error
}

type gormRequisicaoRepository struct {
	db *gorm.DB
}

// NewGormRequisicaoRepository cria uma nova instância de gormRequisicaoRepository.
func NewGormRequisicaoRepository(db *gorm.DB) RequisicaoRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormRequisicaoRepository")
	}
	return &gormRequisicaoRepository{db: db}
}

func preloadItens(db *gorm.DB) *gorm.DB {
	return db.Preload("Itens", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("itens_requisicao.id ASC")
	}).Preload("Itens.Modelo").Preload("Itens.Cor")
}

func (r *gormRequisicaoRepository) ListarDoUsuario(usuarioID uint64) ([]*models.Requisicao, error) {
	reqs := []*models.Requisicao{}
	err := preloadItens(r.db).Where("usuario_id = ?", usuarioID).
		Order("data_criacao DESC, id DESC").Find(&reqs).Error
	if err != nil {
		appLogger.Errorf("Erro ao listar requisições do usuário %d: %v", usuarioID, err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar requisições (GORM)")
	}
	return reqs, nil
}

func (r *gormRequisicaoRepository) Create(req *models.Requisicao) error {
	if err := r.db.Omit(clause.Associations).Create(req).Error; err != nil {
		appLogger.Errorf("Erro ao criar requisição do usuário %d: %v", req.UsuarioID, err)
		return appErrors.WrapErrorf(err, "falha ao criar requisição (GORM)")
	}
	return nil
}

func (r *gormRequisicaoRepository) GetDoUsuario(id, usuarioID uint64) (*models.Requisicao, error) {
	var req models.Requisicao
	err := preloadItens(r.db).Where("id = ? AND usuario_id = ?", id, usuarioID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: Requisição não encontrada.", appErrors.ErrNotFound)
		}
		return nil, appErrors.WrapErrorf(err, "falha ao buscar requisição (GORM)")
	}
	return &req, nil
}

func (r *gormRequisicaoRepository) AdicionarItem(item *models.ItemRequisicao) error {
	if err := r.db.Omit(clause.Associations).Create(item).Error; err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: modelo ou cor inexistente", appErrors.ErrValidation)
		}
		appLogger.Errorf("Erro ao adicionar item à requisição %d: %v", item.RequisicaoID, err)
		return appErrors.WrapErrorf(err, "falha ao adicionar item à requisição (GORM)")
	}
	return nil
}

func (r *gormRequisicaoRepository) RemoverItem(requisicaoID, itemID uint64) (*models.ItemRequisicao, error) {
	var item models.ItemRequisicao
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND requisicao_id = ?", itemID, requisicaoID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: Item não encontrado nesta requisição.", appErrors.ErrNotFound)
			}
			return appErrors.WrapErrorf(err, "falha ao buscar item da requisição (GORM)")
		}
		if err := tx.Delete(&models.ItemRequisicao{}, item.ID).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao remover item da requisição (GORM)")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormRequisicaoRepository) AtualizarObservacao(requisicaoID uint64, observacao *string) error {
	result := r.db.Model(&models.Requisicao{}).Where("id = ?", requisicaoID).Update("observacao", observacao)
	if result.Error != nil {
		return appErrors.WrapErrorf(result.Error, "falha ao atualizar observação (GORM)")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: Requisição não encontrada.", appErrors.ErrNotFound)
	}
	return nil
}
