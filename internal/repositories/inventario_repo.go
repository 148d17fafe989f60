package repositories

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// InventarioRepository persiste as fichas de inventário e seus itens.
type InventarioRepository interface {
	Create(ficha *models.FichaInventario) error
	GetByID(id uint64) (*models.FichaInventario, error)
	Listar(filtro FiltroFichas) ([]*models.FichaInventario, int64, error)

	CriarItem(item *models.ItemInventario) error
	GetItem(id uint64) (*models.ItemInventario, error)
	// ApplyDelta soma delta à coluna num único UPDATE condicional.
	// Se o resultado ficaria negativo nada muda e volta ErrNegativeQuantity.
	ApplyDelta(itemID uint64, coluna string, delta int) (*models.ItemInventario, error)
	RemoverItem(id uint64) (*models.ItemInventario, error)

	ListarItens(fichaID uint64, filtro models.FiltroItens, limit, offset int) ([]models.ItemInventario, error)
	Estatisticas(fichaID uint64, filtro models.FiltroItens) (*models.EstatisticasItens, error)
	Facetas(fichaID uint64, filtro models.FiltroItens) (*models.FacetasItens, error)
}

type gormInventarioRepository struct {
	db *gorm.DB
}

// NewGormInventarioRepository cria uma nova instância de gormInventarioRepository.
func NewGormInventarioRepository(db *gorm.DB) InventarioRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormInventarioRepository")
	}
	return &gormInventarioRepository{db: db}
}

// colunasContador são as únicas colunas aceitas por ApplyDelta.
var colunasContador = map[string]bool{
	"quantidade_pe_esquerdo": true,
	"quantidade_pe_direito":  true,
}

func (r *gormInventarioRepository) Create(ficha *models.FichaInventario) error {
	if err := r.db.Omit(clause.Associations).Create(ficha).Error; err != nil {
		appLogger.Errorf("Erro ao criar ficha de inventário '%s': %v", ficha.NomeFicha, err)
		return appErrors.WrapErrorf(err, "falha ao criar ficha de inventário (GORM)")
	}
	appLogger.Infof("Ficha de inventário criada: '%s' (ID: %d, setor: %s)", ficha.NomeFicha, ficha.ID, ficha.Setor)
	return nil
}

func (r *gormInventarioRepository) GetByID(id uint64) (*models.FichaInventario, error) {
	var ficha models.FichaInventario
	if err := r.db.Preload("Operador").Where("excluido = ?", false).First(&ficha, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: Ficha de inventário não encontrada.", appErrors.ErrNotFound)
		}
		appLogger.Errorf("Erro ao buscar ficha de inventário %d: %v", id, err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar ficha de inventário (GORM)")
	}
	return &ficha, nil
}

func (r *gormInventarioRepository) Listar(filtro FiltroFichas) ([]*models.FichaInventario, int64, error) {
	var total int64
	if err := filtro.aplicar(r.db.Model(&models.FichaInventario{})).Count(&total).Error; err != nil {
		return nil, 0, appErrors.WrapErrorf(err, "falha ao contar fichas de inventário (GORM)")
	}
	fichas := []*models.FichaInventario{}
	if total == 0 {
		return fichas, 0, nil
	}
	q := filtro.aplicar(r.db.Preload("Operador")).Order("data DESC, id DESC")
	if err := filtro.paginar(q).Find(&fichas).Error; err != nil {
		appLogger.Errorf("Erro ao listar fichas de inventário: %v", err)
		return nil, 0, appErrors.WrapErrorf(err, "falha ao listar fichas de inventário (GORM)")
	}
	return fichas, total, nil
}

const msgItemDuplicado = "Este item já existe na ficha! Escolha outro modelo/cor/tamanho."

func (r *gormInventarioRepository) CriarItem(item *models.ItemInventario) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existe int64
		err := tx.Model(&models.ItemInventario{}).
			Where("ficha_id = ? AND modelo_id = ? AND cor_id = ? AND tamanho_id = ?",
				item.FichaID, item.ModeloID, item.CorID, item.TamanhoID).
			Count(&existe).Error
		if err != nil {
			return appErrors.WrapErrorf(err, "falha ao verificar item duplicado (GORM)")
		}
		if existe > 0 {
			return fmt.Errorf("%w: %s", appErrors.ErrDuplicateItem, msgItemDuplicado)
		}
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: %s", appErrors.ErrDuplicateItem, msgItemDuplicado)
			}
			appLogger.Errorf("Erro ao criar item na ficha de inventário %d: %v", item.FichaID, err)
			return appErrors.WrapErrorf(err, "falha ao criar item de inventário (GORM)")
		}
		return nil
	})
}

func (r *gormInventarioRepository) GetItem(id uint64) (*models.ItemInventario, error) {
	var item models.ItemInventario
	if err := r.db.Preload("Modelo").Preload("Cor").Preload("Tamanho").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: Item não encontrado.", appErrors.ErrNotFound)
		}
		return nil, appErrors.WrapErrorf(err, "falha ao buscar item de inventário (GORM)")
	}
	return &item, nil
}

func (r *gormInventarioRepository) ApplyDelta(itemID uint64, coluna string, delta int) (*models.ItemInventario, error) {
	if !colunasContador[coluna] {
		return nil, fmt.Errorf("%w: coluna de contador inválida '%s'", appErrors.ErrInvalidInput, coluna)
	}

	result := r.db.Model(&models.ItemInventario{}).
		Where("id = ? AND "+coluna+" + ? >= 0", itemID, delta).
		Updates(map[string]interface{}{
			coluna:          gorm.Expr(coluna+" + ?", delta),
			"atualizado_em": time.Now().UTC(),
		})
	if result.Error != nil {
		appLogger.Errorf("Erro ao ajustar %s do item %d em %d: %v", coluna, itemID, delta, result.Error)
		return nil, appErrors.WrapErrorf(result.Error, "falha ao ajustar quantidade (GORM)")
	}
	if result.RowsAffected == 0 {
		// Nenhuma linha: o item não existe ou o saldo ficaria negativo.
		if _, err := r.GetItem(itemID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: A quantidade não pode ficar negativa.", appErrors.ErrNegativeQuantity)
	}
	return r.GetItem(itemID)
}

func (r *gormInventarioRepository) RemoverItem(id uint64) (*models.ItemInventario, error) {
	item, err := r.GetItem(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Delete(&models.ItemInventario{}, id).Error; err != nil {
		appLogger.Errorf("Erro ao remover item de inventário %d: %v", id, err)
		return nil, appErrors.WrapErrorf(err, "falha ao remover item de inventário (GORM)")
	}
	return item, nil
}

// filtrarItens aplica os filtros de item; numero é resolvido pela tabela de tamanhos.
func filtrarItens(q *gorm.DB, fichaID uint64, f models.FiltroItens) *gorm.DB {
	q = q.Where("itens_inventario.ficha_id = ?", fichaID)
	if f.ModeloID != nil {
		q = q.Where("itens_inventario.modelo_id = ?", *f.ModeloID)
	}
	if f.CorID != nil {
		q = q.Where("itens_inventario.cor_id = ?", *f.CorID)
	}
	if f.Numero != nil {
		q = q.Where("itens_inventario.tamanho_id IN (?)",
			q.Session(&gorm.Session{NewDB: true}).Model(&models.TamanhoModelo{}).Select("id").Where("numero = ?", *f.Numero))
	}
	return q
}

func (r *gormInventarioRepository) ListarItens(fichaID uint64, filtro models.FiltroItens, limit, offset int) ([]models.ItemInventario, error) {
	itens := []models.ItemInventario{}
	q := filtrarItens(r.db.Preload("Modelo").Preload("Cor").Preload("Tamanho"), fichaID, filtro).
		Order("itens_inventario.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&itens).Error; err != nil {
		appLogger.Errorf("Erro ao listar itens da ficha %d: %v", fichaID, err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar itens de inventário (GORM)")
	}
	return itens, nil
}

func (r *gormInventarioRepository) Estatisticas(fichaID uint64, filtro models.FiltroItens) (*models.EstatisticasItens, error) {
	var stats models.EstatisticasItens
	err := filtrarItens(r.db.Model(&models.ItemInventario{}), fichaID, filtro).
		Select(`COUNT(*) AS total_itens,
			COALESCE(SUM(CASE WHEN quantidade_pe_esquerdo < quantidade_pe_direito
				THEN quantidade_pe_esquerdo ELSE quantidade_pe_direito END), 0) AS total_pares,
			COUNT(DISTINCT modelo_id) AS modelos_diferentes`).
		Scan(&stats).Error
	if err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao calcular estatísticas dos itens (GORM)")
	}
	return &stats, nil
}

// Facetas: modelos vêm de todos os itens da ficha; cores respeitam só o filtro de
// modelo; numeros respeitam modelo e cor.
func (r *gormInventarioRepository) Facetas(fichaID uint64, filtro models.FiltroItens) (*models.FacetasItens, error) {
	facetas := &models.FacetasItens{Modelos: []models.OpcaoFiltro{}, Cores: []models.OpcaoFiltro{}, Numeros: []string{}}

	err := filtrarItens(r.db.Model(&models.ItemInventario{}), fichaID, models.FiltroItens{}).
		Joins("JOIN modelos_calcado ON modelos_calcado.id = itens_inventario.modelo_id").
		Distinct("modelos_calcado.id AS id", "modelos_calcado.nome AS nome").
		Order("modelos_calcado.nome ASC").
		Scan(&facetas.Modelos).Error
	if err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao listar modelos da ficha (GORM)")
	}

	err = filtrarItens(r.db.Model(&models.ItemInventario{}), fichaID, models.FiltroItens{ModeloID: filtro.ModeloID}).
		Joins("JOIN cores_calcado ON cores_calcado.id = itens_inventario.cor_id").
		Distinct("cores_calcado.id AS id", "cores_calcado.nome AS nome").
		Order("cores_calcado.nome ASC").
		Scan(&facetas.Cores).Error
	if err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao listar cores da ficha (GORM)")
	}

	err = filtrarItens(r.db.Model(&models.ItemInventario{}), fichaID,
		models.FiltroItens{ModeloID: filtro.ModeloID, CorID: filtro.CorID}).
		Joins("JOIN tamanhos_modelo ON tamanhos_modelo.id = itens_inventario.tamanho_id").
		Distinct().
		Pluck("tamanhos_modelo.numero", &facetas.Numeros).Error
	if err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao listar numerações da ficha (GORM)")
	}
	sort.Slice(facetas.Numeros, func(i, j int) bool { return models.NumeroMenor(facetas.Numeros[i], facetas.Numeros[j]) })
	return facetas, nil
}
