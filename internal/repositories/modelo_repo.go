package repositories

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// modeloCor é a linha da tabela de junção modelo_cores.
type modeloCor struct {
	ModeloID uint64 `gorm:"primaryKey"`
	CorID    uint64 `gorm:"primaryKey"`
}

func (modeloCor) TableName() string { return tabelaModeloCores }

// ResultadoTamanhos separa as combinações criadas das que já existiam.
type ResultadoTamanhos struct {
	Criados    []models.TamanhoModelo
	Existentes []models.TamanhoModelo
}

// ModeloRepository cuida dos vínculos de um modelo de calçado com cores e numerações.
// Nome, ordem e lixeira do modelo ficam no CatalogoRepository e no LixeiraRepository.
type ModeloRepository interface {
	// Criar grava o modelo, vincula as cores e cria o produto cores × numeros numa transação.
	Criar(nome string, criadoPorID uint64, corIDs []uint64, numeros []string) (*models.ModeloCalcado, error)
	GetModelo(id uint64) (*models.ModeloCalcado, error)
	ListarModelos() ([]*models.ModeloCalcado, error)
	// VincularCores liga as cores ao modelo e cria para cada cor nova as numerações já usadas.
	VincularCores(modeloID uint64, cores []*models.CorCalcado) (adicionadas, jaVinculadas []string, err error)
	CriarTamanhos(modeloID uint64, corIDs []uint64, numeros []string) (*ResultadoTamanhos, error)
	CoresDoModelo(modeloID uint64) ([]*models.CorCalcado, error)
	TamanhosDe(modeloID, corID uint64) ([]models.TamanhoModelo, error)
	GetTamanho(id uint64) (*models.TamanhoModelo, error)
}

type gormModeloRepository struct {
	db *gorm.DB
}

// NewGormModeloRepository cria uma nova instância de gormModeloRepository.
func NewGormModeloRepository(db *gorm.DB) ModeloRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormModeloRepository")
	}
	return &gormModeloRepository{db: db}
}

func preloadVinculos(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Cores", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("cores_calcado.excluido = ?", false).Order("cores_calcado.nome ASC")
		}).
		Preload("Tamanhos", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("tamanhos_modelo.excluido = ?", false)
		})
}

func (r *gormModeloRepository) Criar(nome string, criadoPorID uint64, corIDs []uint64, numeros []string) (*models.ModeloCalcado, error) {
	var criado *models.ModeloCalcado
	err := r.db.Transaction(func(tx *gorm.DB) error {
		m, err := NewGormCatalogoRepository[models.ModeloCalcado](tx).Create(nome, criadoPorID)
		if err != nil {
			return err
		}
		if err := vincular(tx, m.ID, corIDs); err != nil {
			return err
		}
		if _, err := criarTamanhos(tx, m.ID, corIDs, numeros); err != nil {
			return err
		}
		criado = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetModelo(criado.ID)
}

func (r *gormModeloRepository) GetModelo(id uint64) (*models.ModeloCalcado, error) {
	var m models.ModeloCalcado
	err := preloadVinculos(r.db).Where("excluido = ?", false).First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: Modelo não encontrado.", appErrors.ErrNotFound)
		}
		appLogger.Errorf("Erro ao buscar modelo %d: %v", id, err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar modelo (GORM)")
	}
	return &m, nil
}

func (r *gormModeloRepository) ListarModelos() ([]*models.ModeloCalcado, error) {
	var modelos []*models.ModeloCalcado
	if err := preloadVinculos(r.db).Where("excluido = ?", false).Order("nome ASC").Find(&modelos).Error; err != nil {
		appLogger.Errorf("Erro ao listar modelos: %v", err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar modelos (GORM)")
	}
	return modelos, nil
}

func vincular(tx *gorm.DB, modeloID uint64, corIDs []uint64) error {
	if len(corIDs) == 0 {
		return nil
	}
	linhas := make([]modeloCor, 0, len(corIDs))
	for _, id := range corIDs {
		linhas = append(linhas, modeloCor{ModeloID: modeloID, CorID: id})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&linhas).Error; err != nil {
		return appErrors.WrapErrorf(err, "falha ao vincular cores ao modelo (GORM)")
	}
	return nil
}

func (r *gormModeloRepository) VincularCores(modeloID uint64, cores []*models.CorCalcado) ([]string, []string, error) {
	var adicionadas, jaVinculadas []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var vinculadas []uint64
		if err := tx.Model(&modeloCor{}).Where("modelo_id = ?", modeloID).Pluck("cor_id", &vinculadas).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao ler cores do modelo (GORM)")
		}
		ja := make(map[uint64]bool, len(vinculadas))
		for _, id := range vinculadas {
			ja[id] = true
		}

		var numeros []string
		if err := tx.Model(&models.TamanhoModelo{}).
			Where("modelo_id = ? AND excluido = ?", modeloID, false).
			Distinct().Pluck("numero", &numeros).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao ler numerações do modelo (GORM)")
		}

		novas := []uint64{}
		for _, c := range cores {
			if ja[c.ID] {
				jaVinculadas = append(jaVinculadas, c.Nome)
				continue
			}
			ja[c.ID] = true
			novas = append(novas, c.ID)
			adicionadas = append(adicionadas, c.Nome)
		}
		if err := vincular(tx, modeloID, novas); err != nil {
			return err
		}
		_, err := criarTamanhos(tx, modeloID, novas, numeros)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return adicionadas, jaVinculadas, nil
}

func (r *gormModeloRepository) CriarTamanhos(modeloID uint64, corIDs []uint64, numeros []string) (*ResultadoTamanhos, error) {
	var res *ResultadoTamanhos
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = criarTamanhos(tx, modeloID, corIDs, numeros)
		return err
	})
	return res, err
}

// criarTamanhos insere as combinações que faltam (idempotente pelo índice único)
// e reativa as que estavam na lixeira junto com o modelo.
func criarTamanhos(tx *gorm.DB, modeloID uint64, corIDs []uint64, numeros []string) (*ResultadoTamanhos, error) {
	res := &ResultadoTamanhos{}
	if len(corIDs) == 0 || len(numeros) == 0 {
		return res, nil
	}

	var existentes []models.TamanhoModelo
	if err := tx.Preload("Cor").
		Where("modelo_id = ? AND cor_id IN ? AND numero IN ?", modeloID, corIDs, numeros).
		Find(&existentes).Error; err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao ler numerações existentes (GORM)")
	}
	type chave struct {
		cor    uint64
		numero string
	}
	ja := make(map[chave]bool, len(existentes))
	for _, t := range existentes {
		ja[chave{t.CorID, t.Numero}] = true
	}

	novos := []models.TamanhoModelo{}
	for _, numero := range numeros {
		for _, corID := range corIDs {
			if ja[chave{corID, numero}] {
				continue
			}
			ja[chave{corID, numero}] = true
			novos = append(novos, models.TamanhoModelo{ModeloID: modeloID, CorID: corID, Numero: numero, Ativo: true})
		}
	}
	if len(novos) > 0 {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&novos).Error; err != nil {
			return nil, appErrors.WrapErrorf(err, "falha ao criar numerações (GORM)")
		}
	}
	if err := tx.Model(&models.TamanhoModelo{}).
		Where("modelo_id = ? AND cor_id IN ? AND numero IN ? AND excluido = ?", modeloID, corIDs, numeros, true).
		Updates(map[string]interface{}{"excluido": false, "ativo": true}).Error; err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao reativar numerações (GORM)")
	}

	res.Criados = novos
	res.Existentes = existentes
	return res, nil
}

func (r *gormModeloRepository) CoresDoModelo(modeloID uint64) ([]*models.CorCalcado, error) {
	m, err := r.GetModelo(modeloID)
	if err != nil {
		return nil, err
	}
	if m.Cores == nil {
		return []*models.CorCalcado{}, nil
	}
	return m.Cores, nil
}

// TamanhosDe lista as numerações ativas do par (modelo, cor), em ordem numérica.
func (r *gormModeloRepository) TamanhosDe(modeloID, corID uint64) ([]models.TamanhoModelo, error) {
	tamanhos := []models.TamanhoModelo{}
	err := r.db.Where("modelo_id = ? AND cor_id = ? AND ativo = ? AND excluido = ?", modeloID, corID, true, false).
		Find(&tamanhos).Error
	if err != nil {
		appLogger.Errorf("Erro ao listar tamanhos do modelo %d cor %d: %v", modeloID, corID, err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar tamanhos (GORM)")
	}
	sort.Slice(tamanhos, func(i, j int) bool { return models.NumeroMenor(tamanhos[i].Numero, tamanhos[j].Numero) })
	return tamanhos, nil
}

func (r *gormModeloRepository) GetTamanho(id uint64) (*models.TamanhoModelo, error) {
	var t models.TamanhoModelo
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tamanho %d não encontrado", appErrors.ErrNotFound, id)
		}
		return nil, appErrors.WrapErrorf(err, "falha ao buscar tamanho (GORM)")
	}
	return &t, nil
}
