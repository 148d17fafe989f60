package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// catalogoPtr prende T ao seu ponteiro, que é quem implementa ItemCatalogo.
type catalogoPtr[T any] interface {
	*T
	models.ItemCatalogo
}

// CatalogoRepository é o repositório dos cadastros simples (partes, operadores,
// cores e modelos). Itens na lixeira nunca aparecem nas listagens.
type CatalogoRepository[T any] interface {
	GetByID(id uint64) (*T, error)
	// GetByNome compara pelo nome normalizado e considera também a lixeira.
	GetByNome(nome string) (*T, error)
	Listar(incluirInativos bool) ([]*T, error)
	ListarPorIDs(ids []uint64) ([]*T, error)
	Create(nome string, criadoPorID uint64) (*T, error)
	Update(id uint64, update models.CatalogoUpdate) (*T, error)
	AlternarAtivo(id uint64) (*T, error)
}

type gormCatalogoRepository[T any, PT catalogoPtr[T]] struct {
	db *gorm.DB
}

// NewGormCatalogoRepository cria o repositório de um tipo de cadastro.
func NewGormCatalogoRepository[T any, PT catalogoPtr[T]](db *gorm.DB) CatalogoRepository[T] {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormCatalogoRepository")
	}
	return &gormCatalogoRepository[T, PT]{db: db}
}

func (r *gormCatalogoRepository[T, PT]) rotulo() string {
	return PT(new(T)).Rotulo()
}

func (r *gormCatalogoRepository[T, PT]) tabela() string {
	return PT(new(T)).TableName()
}

func (r *gormCatalogoRepository[T, PT]) GetByID(id uint64) (*T, error) {
	item := new(T)
	if err := r.db.First(item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d não encontrado(a)", appErrors.ErrNotFound, r.rotulo(), id)
		}
		appLogger.Errorf("Erro ao buscar %s %d: %v", r.rotulo(), id, err)
		return nil, appErrors.WrapErrorf(err, "falha ao buscar %s (GORM)", r.rotulo())
	}
	return item, nil
}

func (r *gormCatalogoRepository[T, PT]) GetByNome(nome string) (*T, error) {
	return r.getByChave(r.db, utils.ChaveNome(nome))
}

func (r *gormCatalogoRepository[T, PT]) getByChave(db *gorm.DB, chave string) (*T, error) {
	item := new(T)
	if err := db.Where("nome_chave = ?", chave).First(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s não encontrado(a)", appErrors.ErrNotFound, r.rotulo())
		}
		return nil, appErrors.WrapErrorf(err, "falha ao buscar %s por nome (GORM)", r.rotulo())
	}
	return item, nil
}

func (r *gormCatalogoRepository[T, PT]) Listar(incluirInativos bool) ([]*T, error) {
	var itens []*T
	query := r.db.Where("excluido = ?", false)
	if !incluirInativos {
		query = query.Where("ativo = ?", true)
	}
	if err := query.Order("ordem ASC, nome ASC").Find(&itens).Error; err != nil {
		appLogger.Errorf("Erro ao listar %s: %v", r.tabela(), err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar %s (GORM)", r.tabela())
	}
	return itens, nil
}

// ListarPorIDs devolve apenas os itens ativos e fora da lixeira; ids desconhecidos são ignorados.
func (r *gormCatalogoRepository[T, PT]) ListarPorIDs(ids []uint64) ([]*T, error) {
	var itens []*T
	if len(ids) == 0 {
		return itens, nil
	}
	err := r.db.Where("id IN ? AND excluido = ? AND ativo = ?", ids, false, true).
		Order("ordem ASC, nome ASC").Find(&itens).Error
	if err != nil {
		return nil, appErrors.WrapErrorf(err, "falha ao buscar %s por ids (GORM)", r.tabela())
	}
	return itens, nil
}

// verificarNomeLivre falha com ErrConflict se outro item (ativo ou na lixeira) já usa o nome.
func (r *gormCatalogoRepository[T, PT]) verificarNomeLivre(tx *gorm.DB, nome string, ignorarID uint64) error {
	existente, err := r.getByChave(tx, utils.ChaveNome(nome))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil
		}
		return err
	}
	base := PT(existente).Base()
	if base.ID == ignorarID {
		return nil
	}
	if base.Excluido {
		return fmt.Errorf("%w: Existe um(a) %s com o nome \"%s\" na lixeira. Restaure ou escolha outro nome.",
			appErrors.ErrConflict, r.rotulo(), base.Nome)
	}
	return fmt.Errorf("%w: O(A) %s \"%s\" já existe.", appErrors.ErrConflict, r.rotulo(), base.Nome)
}

// Create grava o item no fim da ordem atual (max(ordem)+1).
func (r *gormCatalogoRepository[T, PT]) Create(nome string, criadoPorID uint64) (*T, error) {
	item := new(T)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.verificarNomeLivre(tx, nome, 0); err != nil {
			return err
		}
		var maxOrdem int
		if err := tx.Model(new(T)).Select("COALESCE(MAX(ordem), 0)").Scan(&maxOrdem).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao calcular ordem de %s (GORM)", r.rotulo())
		}
		base := PT(item).Base()
		base.Nome = nome
		base.NomeChave = utils.ChaveNome(nome)
		base.Ativo = true
		base.Ordem = maxOrdem + 1
		if a, ok := any(item).(models.Autoria); ok && criadoPorID != 0 {
			a.DefinirCriadoPor(criadoPorID)
		}
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao criar %s (GORM)", r.rotulo())
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, appErrors.ErrConflict) {
			appLogger.Errorf("Erro ao criar %s '%s': %v", r.rotulo(), nome, err)
		}
		return nil, err
	}
	appLogger.Infof("%s criado(a): '%s' (ID: %d)", r.rotulo(), nome, PT(item).Base().ID)
	return item, nil
}

// Update altera nome e/ou ativo. Itens na lixeira não podem ser editados.
func (r *gormCatalogoRepository[T, PT]) Update(id uint64, update models.CatalogoUpdate) (*T, error) {
	var item *T
	err := r.db.Transaction(func(tx *gorm.DB) error {
		atual := new(T)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(atual, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %d não encontrado(a)", appErrors.ErrNotFound, r.rotulo(), id)
			}
			return appErrors.WrapErrorf(err, "falha ao buscar %s para edição (GORM)", r.rotulo())
		}
		if PT(atual).Base().Excluido {
			return fmt.Errorf("%w: %s %d está na lixeira", appErrors.ErrNotFound, r.rotulo(), id)
		}

		campos := map[string]interface{}{}
		if update.Nome != nil {
			if err := r.verificarNomeLivre(tx, *update.Nome, id); err != nil {
				return err
			}
			campos["nome"] = *update.Nome
			campos["nome_chave"] = utils.ChaveNome(*update.Nome)
		}
		if update.Ativo != nil {
			campos["ativo"] = *update.Ativo
		}
		if len(campos) > 0 {
			if err := tx.Model(new(T)).Where("id = ?", id).Updates(campos).Error; err != nil {
				return appErrors.WrapErrorf(err, "falha ao atualizar %s (GORM)", r.rotulo())
			}
		}
		item = new(T)
		return tx.First(item, id).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *gormCatalogoRepository[T, PT]) AlternarAtivo(id uint64) (*T, error) {
	atual, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	ativo := !PT(atual).Base().Ativo
	return r.Update(id, models.CatalogoUpdate{Ativo: &ativo})
}
