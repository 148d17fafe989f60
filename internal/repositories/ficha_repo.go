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

// FiltroFichas restringe as listagens de fichas (home e relatórios).
// Campos nulos não filtram.
type FiltroFichas struct {
	Setor      *string
	OperadorID *uint64
	Data       *time.Time // dia exato
	Inicio     *time.Time // intervalo [Inicio, Fim], por dia
	Fim        *time.Time
	Limit      int
	Offset     int
}

// aplicar monta o WHERE comum a fichas de produção e de inventário.
func (f FiltroFichas) aplicar(q *gorm.DB) *gorm.DB {
	q = q.Where("excluido = ?", false)
	if f.Setor != nil {
		q = q.Where("setor = ?", *f.Setor)
	}
	if f.OperadorID != nil {
		q = q.Where("operador_id = ?", *f.OperadorID)
	}
	if f.Data != nil {
		dia := time.Date(f.Data.Year(), f.Data.Month(), f.Data.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("data >= ? AND data < ?", dia, dia.AddDate(0, 0, 1))
	}
	if f.Inicio != nil {
		q = q.Where("data >= ?", time.Date(f.Inicio.Year(), f.Inicio.Month(), f.Inicio.Day(), 0, 0, 0, 0, time.UTC))
	}
	if f.Fim != nil {
		fim := time.Date(f.Fim.Year(), f.Fim.Month(), f.Fim.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("data < ?", fim.AddDate(0, 0, 1))
	}
	return q
}

func (f FiltroFichas) paginar(q *gorm.DB) *gorm.DB {
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q
}

// FichaRepository persiste as fichas de produção e seus livros de lançamento.
type FichaRepository interface {
	Create(ficha *models.Ficha) error
	// GetByID devolve a ficha fora da lixeira com operador e registros (partes em ordem).
	GetByID(id uint64) (*models.Ficha, error)
	Listar(filtro FiltroFichas) ([]*models.Ficha, int64, error)

	AdicionarParte(fichaID, parteID uint64) (*models.RegistroParte, error)
	RemoverParte(fichaID, parteID uint64) (*models.RegistroParte, error)
	// AppendQuantidade cria o livro se preciso e acrescenta o valor no fim.
	AppendQuantidade(fichaID, parteID uint64, valor int) (models.Quantidades, error)
	// PopQuantidade remove o último valor; livro vazio fica como está.
	PopQuantidade(fichaID, parteID uint64) (models.Quantidades, error)
}

type gormFichaRepository struct {
	db *gorm.DB
}

// NewGormFichaRepository cria uma nova instância de gormFichaRepository.
func NewGormFichaRepository(db *gorm.DB) FichaRepository {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormFichaRepository")
	}
	return &gormFichaRepository{db: db}
}

func (r *gormFichaRepository) Create(ficha *models.Ficha) error {
	if err := r.db.Omit(clause.Associations).Create(ficha).Error; err != nil {
		appLogger.Errorf("Erro ao criar ficha '%s': %v", ficha.NomeFicha, err)
		return appErrors.WrapErrorf(err, "falha ao criar ficha (GORM)")
	}
	appLogger.Infof("Ficha criada: '%s' (ID: %d, setor: %v)", ficha.NomeFicha, ficha.ID, ficha.Setor)
	return nil
}

func (r *gormFichaRepository) GetByID(id uint64) (*models.Ficha, error) {
	var ficha models.Ficha
	err := r.db.
		Preload("Operador").
		Preload("Registros.Parte").
		Where("excluido = ?", false).
		First(&ficha, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: Ficha não encontrada.", appErrors.ErrNotFound)
		}
		appLogger.Errorf("Erro ao buscar ficha %d: %v", id, err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar ficha (GORM)")
	}
	ordenarRegistros(ficha.Registros)
	return &ficha, nil
}

// ordenarRegistros segue a ordem do cadastro de partes.
func ordenarRegistros(regs []models.RegistroParte) {
	sort.SliceStable(regs, func(i, j int) bool {
		a, b := regs[i].Parte, regs[j].Parte
		if a == nil || b == nil {
			return regs[i].ID < regs[j].ID
		}
		if a.Ordem != b.Ordem {
			return a.Ordem < b.Ordem
		}
		return a.Nome < b.Nome
	})
}

func (r *gormFichaRepository) Listar(filtro FiltroFichas) ([]*models.Ficha, int64, error) {
	var total int64
	if err := filtro.aplicar(r.db.Model(&models.Ficha{})).Count(&total).Error; err != nil {
		return nil, 0, appErrors.WrapErrorf(err, "falha ao contar fichas (GORM)")
	}
	fichas := []*models.Ficha{}
	if total == 0 {
		return fichas, 0, nil
	}
	q := filtro.aplicar(r.db.Preload("Operador").Preload("Registros.Parte")).Order("data DESC, id DESC")
	if err := filtro.paginar(q).Find(&fichas).Error; err != nil {
		appLogger.Errorf("Erro ao listar fichas: %v", err)
		return nil, 0, appErrors.WrapErrorf(err, "falha ao listar fichas (GORM)")
	}
	for _, f := range fichas {
		ordenarRegistros(f.Registros)
	}
	return fichas, total, nil
}

func (r *gormFichaRepository) AdicionarParte(fichaID, parteID uint64) (*models.RegistroParte, error) {
	registro := &models.RegistroParte{FichaID: fichaID, ParteID: parteID, Quantidades: models.Quantidades{}}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existe int64
		if err := tx.Model(&models.RegistroParte{}).
			Where("ficha_id = ? AND parte_id = ?", fichaID, parteID).Count(&existe).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao verificar parte da ficha (GORM)")
		}
		if existe > 0 {
			return fmt.Errorf("%w: Esta parte já foi adicionada", appErrors.ErrDuplicateItem)
		}
		if err := tx.Omit(clause.Associations).Create(registro).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: Esta parte já foi adicionada", appErrors.ErrDuplicateItem)
			}
			return appErrors.WrapErrorf(err, "falha ao adicionar parte à ficha (GORM)")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registro, nil
}

func (r *gormFichaRepository) RemoverParte(fichaID, parteID uint64) (*models.RegistroParte, error) {
	var registro models.RegistroParte
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Parte").Where("ficha_id = ? AND parte_id = ?", fichaID, parteID).First(&registro).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: Parte não encontrada nesta ficha", appErrors.ErrNotFound)
			}
			return appErrors.WrapErrorf(err, "falha ao buscar parte da ficha (GORM)")
		}
		if err := tx.Delete(&models.RegistroParte{}, registro.ID).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao remover parte da ficha (GORM)")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &registro, nil
}

// travarRegistro lê o livro com lock de escrita (FOR UPDATE no PostgreSQL;
// no SQLite a transação imediata já serializa os escritores).
func travarRegistro(tx *gorm.DB, fichaID, parteID uint64) (*models.RegistroParte, error) {
	var registro models.RegistroParte
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ficha_id = ? AND parte_id = ?", fichaID, parteID).
		First(&registro).Error
	if err != nil {
		return nil, err
	}
	return &registro, nil
}

func (r *gormFichaRepository) AppendQuantidade(fichaID, parteID uint64, valor int) (models.Quantidades, error) {
	var resultado models.Quantidades
	err := r.db.Transaction(func(tx *gorm.DB) error {
		registro, err := travarRegistro(tx, fichaID, parteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Outro lançamento pode criar o livro entre a leitura e o insert:
			// o insert ignora o conflito e a releitura trava a linha vencedora.
			novo := &models.RegistroParte{FichaID: fichaID, ParteID: parteID, Quantidades: models.Quantidades{}}
			err = tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "ficha_id"}, {Name: "parte_id"}}, DoNothing: true}).
				Create(novo).Error
			if err != nil {
				return appErrors.WrapErrorf(err, "falha ao criar registro da parte (GORM)")
			}
			registro, err = travarRegistro(tx, fichaID, parteID)
		}
		if err != nil {
			return appErrors.WrapErrorf(err, "falha ao buscar registro da parte (GORM)")
		}

		registro.Quantidades = append(registro.Quantidades, valor)
		if err := tx.Model(&models.RegistroParte{}).Where("id = ?", registro.ID).
			Update("quantidades", registro.Quantidades).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao gravar quantidades (GORM)")
		}
		resultado = registro.Quantidades
		return nil
	})
	if err != nil {
		appLogger.Errorf("Erro ao acrescentar quantidade na ficha %d parte %d: %v", fichaID, parteID, err)
		return nil, err
	}
	return resultado, nil
}

func (r *gormFichaRepository) PopQuantidade(fichaID, parteID uint64) (models.Quantidades, error) {
	var resultado models.Quantidades
	err := r.db.Transaction(func(tx *gorm.DB) error {
		registro, err := travarRegistro(tx, fichaID, parteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: Registro não encontrado", appErrors.ErrNotFound)
			}
			return appErrors.WrapErrorf(err, "falha ao buscar registro da parte (GORM)")
		}
		if n := len(registro.Quantidades); n > 0 {
			registro.Quantidades = registro.Quantidades[:n-1]
			if err := tx.Model(&models.RegistroParte{}).Where("id = ?", registro.ID).
				Update("quantidades", registro.Quantidades).Error; err != nil {
				return appErrors.WrapErrorf(err, "falha ao gravar quantidades (GORM)")
			}
		}
		resultado = registro.Quantidades
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resultado, nil
}
