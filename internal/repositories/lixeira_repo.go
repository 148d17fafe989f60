package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

type trashPtr[T any] interface {
	*T
	models.Trashable
}

// LixeiraHook roda dentro da transação da transição de estado.
type LixeiraHook func(tx *gorm.DB, id uint64) error

// LixeiraHooks são os efeitos de cada tipo sobre os registros dependentes.
type LixeiraHooks struct {
	AfterTrash   LixeiraHook
	AfterRestore LixeiraHook
	// BeforePurge verifica referências (ErrReferentialBlock) ou apaga os dependentes.
	BeforePurge LixeiraHook
}

// LixeiraRepository implementa a máquina de estados da lixeira:
// ativo -> lixeira -> (ativo | apagado).
type LixeiraRepository[T any] interface {
	MoveToTrash(id, actorID uint64) (*T, error)
	Restore(id uint64) (*T, error)
	// Purge devolve o registro como estava antes de ser apagado.
	Purge(id uint64) (*T, error)
	ListTrashed() ([]*T, error)
}

type gormLixeiraRepository[T any, PT trashPtr[T]] struct {
	db    *gorm.DB
	hooks LixeiraHooks
}

// NewGormLixeiraRepository cria o repositório de lixeira de um tipo.
func NewGormLixeiraRepository[T any, PT trashPtr[T]](db *gorm.DB, hooks LixeiraHooks) LixeiraRepository[T] {
	if db == nil {
		appLogger.Fatalf("gorm.DB não pode ser nil para NewGormLixeiraRepository")
	}
	return &gormLixeiraRepository[T, PT]{db: db, hooks: hooks}
}

func (r *gormLixeiraRepository[T, PT]) rotulo() string {
	return PT(new(T)).Rotulo()
}

// carregar trava a linha (no PostgreSQL) e devolve o estado atual.
func (r *gormLixeiraRepository[T, PT]) carregar(tx *gorm.DB, id uint64) (*T, error) {
	item := new(T)
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d não encontrado(a)", appErrors.ErrNotFound, r.rotulo(), id)
		}
		return nil, appErrors.WrapErrorf(err, "falha ao buscar %s (GORM)", r.rotulo())
	}
	return item, nil
}

func runHook(h LixeiraHook, tx *gorm.DB, id uint64) error {
	if h == nil {
		return nil
	}
	return h(tx, id)
}

func (r *gormLixeiraRepository[T, PT]) MoveToTrash(id, actorID uint64) (*T, error) {
	var item *T
	err := r.db.Transaction(func(tx *gorm.DB) error {
		atual, err := r.carregar(tx, id)
		if err != nil {
			return err
		}
		if PT(atual).EstadoLixeira().Excluido {
			return fmt.Errorf("%w: %s %d já está na lixeira", appErrors.ErrAlreadyTrashed, r.rotulo(), id)
		}
		campos := map[string]interface{}{
			"excluido":        true,
			"excluido_em":     time.Now().UTC(),
			"excluido_por_id": actorID,
		}
		if err := tx.Model(new(T)).Where("id = ?", id).Updates(campos).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao mover %s para a lixeira (GORM)", r.rotulo())
		}
		if err := runHook(r.hooks.AfterTrash, tx, id); err != nil {
			return err
		}
		item = new(T)
		return tx.First(item, id).Error
	})
	if err != nil {
		return nil, err
	}
	appLogger.Infof("%s %d movido(a) para a lixeira pelo usuário %d.", r.rotulo(), id, actorID)
	return item, nil
}

func (r *gormLixeiraRepository[T, PT]) Restore(id uint64) (*T, error) {
	var item *T
	err := r.db.Transaction(func(tx *gorm.DB) error {
		atual, err := r.carregar(tx, id)
		if err != nil {
			return err
		}
		if !PT(atual).EstadoLixeira().Excluido {
			return fmt.Errorf("%w: %s %d não está na lixeira", appErrors.ErrNotTrashed, r.rotulo(), id)
		}
		if n, ok := any(atual).(models.Nomeado); ok {
			var conflitos int64
			err := tx.Model(new(T)).
				Where("nome_chave = ? AND excluido = ? AND id <> ?", n.ChaveDoNome(), false, id).
				Count(&conflitos).Error
			if err != nil {
				return appErrors.WrapErrorf(err, "falha ao verificar nome de %s (GORM)", r.rotulo())
			}
			if conflitos > 0 {
				return fmt.Errorf("%w: já existe um(a) %s ativo(a) com este nome", appErrors.ErrConflict, r.rotulo())
			}
		}
		campos := map[string]interface{}{
			"excluido":        false,
			"excluido_em":     nil,
			"excluido_por_id": nil,
		}
		if err := tx.Model(new(T)).Where("id = ?", id).Updates(campos).Error; err != nil {
			return appErrors.WrapErrorf(err, "falha ao restaurar %s (GORM)", r.rotulo())
		}
		if err := runHook(r.hooks.AfterRestore, tx, id); err != nil {
			return err
		}
		item = new(T)
		return tx.First(item, id).Error
	})
	if err != nil {
		return nil, err
	}
	appLogger.Infof("%s %d restaurado(a) da lixeira.", r.rotulo(), id)
	return item, nil
}

func (r *gormLixeiraRepository[T, PT]) Purge(id uint64) (*T, error) {
	var item *T
	err := r.db.Transaction(func(tx *gorm.DB) error {
		atual, err := r.carregar(tx, id)
		if err != nil {
			return err
		}
		if !PT(atual).EstadoLixeira().Excluido {
			return fmt.Errorf("%w: %s %d não está na lixeira", appErrors.ErrNotTrashed, r.rotulo(), id)
		}
		if err := runHook(r.hooks.BeforePurge, tx, id); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Delete(new(T), id).Error; err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s %d ainda é referenciado(a) por outros registros", appErrors.ErrReferentialBlock, r.rotulo(), id)
			}
			return appErrors.WrapErrorf(err, "falha ao excluir %s permanentemente (GORM)", r.rotulo())
		}
		item = atual
		return nil
	})
	if err != nil {
		return nil, err
	}
	appLogger.Infof("%s %d excluído(a) permanentemente.", r.rotulo(), id)
	return item, nil
}

// ListTrashed ordena pelo momento da exclusão, mais recente primeiro; sem data vai para o fim.
func (r *gormLixeiraRepository[T, PT]) ListTrashed() ([]*T, error) {
	var itens []*T
	err := r.db.Where("excluido = ?", true).
		Order("CASE WHEN excluido_em IS NULL THEN 1 ELSE 0 END, excluido_em DESC, id DESC").
		Find(&itens).Error
	if err != nil {
		appLogger.Errorf("Erro ao listar lixeira de %s: %v", r.rotulo(), err)
		return nil, appErrors.WrapErrorf(err, "falha ao listar lixeira (GORM)")
	}
	return itens, nil
}

// --- Efeitos por tipo ---

// HooksModeloCalcado propaga lixeira e restauração para as numerações do modelo
// e apaga seus dependentes antes da exclusão definitiva.
func HooksModeloCalcado() LixeiraHooks {
	return LixeiraHooks{
		AfterTrash: func(tx *gorm.DB, id uint64) error {
			return tx.Model(&models.TamanhoModelo{}).Where("modelo_id = ?", id).
				Updates(map[string]interface{}{"excluido": true, "ativo": false}).Error
		},
		AfterRestore: func(tx *gorm.DB, id uint64) error {
			return tx.Model(&models.TamanhoModelo{}).Where("modelo_id = ?", id).
				Updates(map[string]interface{}{"excluido": false, "ativo": true}).Error
		},
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			return apagarDependentes(tx,
				dependente{&models.ItemInventario{}, "modelo_id = ?"},
				dependente{&models.TamanhoModelo{}, "modelo_id = ?"},
				dependente{tabelaModeloCores, "modelo_id = ?"},
			)(id)
		},
	}
}

// HooksCorCalcado apaga itens de inventário, numerações e vínculos da cor.
func HooksCorCalcado() LixeiraHooks {
	return LixeiraHooks{
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			return apagarDependentes(tx,
				dependente{&models.ItemInventario{}, "cor_id = ?"},
				dependente{&models.TamanhoModelo{}, "cor_id = ?"},
				dependente{tabelaModeloCores, "cor_id = ?"},
			)(id)
		},
	}
}

// HooksParteCalcado apaga os livros de lançamento da parte em todas as fichas.
func HooksParteCalcado() LixeiraHooks {
	return LixeiraHooks{
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			return apagarDependentes(tx, dependente{&models.RegistroParte{}, "parte_id = ?"})(id)
		},
	}
}

// HooksFicha apaga os livros de lançamento da ficha.
func HooksFicha() LixeiraHooks {
	return LixeiraHooks{
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			return apagarDependentes(tx, dependente{&models.RegistroParte{}, "ficha_id = ?"})(id)
		},
	}
}

// HooksFichaInventario apaga os itens da ficha de inventário.
func HooksFichaInventario() LixeiraHooks {
	return LixeiraHooks{
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			return apagarDependentes(tx, dependente{&models.ItemInventario{}, "ficha_id = ?"})(id)
		},
	}
}

// HooksComprasProtegido bloqueia a exclusão definitiva de modelo ou cor de
// compras enquanto houver item de requisição apontando para ele.
func HooksComprasProtegido(coluna string) LixeiraHooks {
	return LixeiraHooks{
		BeforePurge: func(tx *gorm.DB, id uint64) error {
			var refs int64
			if err := tx.Model(&models.ItemRequisicao{}).Where(coluna+" = ?", id).Count(&refs).Error; err != nil {
				return appErrors.WrapErrorf(err, "falha ao verificar referências (GORM)")
			}
			if refs > 0 {
				return fmt.Errorf("%w: Não é possível excluir permanentemente: usado em %d item(ns) de requisição.",
					appErrors.ErrReferentialBlock, refs)
			}
			return nil
		},
	}
}

const tabelaModeloCores = "modelo_cores"

// dependente é uma tabela (model ou nome) e a condição que a liga ao registro apagado.
type dependente struct {
	alvo     interface{}
	condicao string
}

func apagarDependentes(tx *gorm.DB, deps ...dependente) func(id uint64) error {
	return func(id uint64) error {
		for _, d := range deps {
			var err error
			if tabela, ok := d.alvo.(string); ok {
				// tabela de junção sem model próprio
				err = tx.Exec("DELETE FROM "+tabela+" WHERE "+d.condicao, id).Error
			} else {
				err = tx.Where(d.condicao, id).Delete(d.alvo).Error
			}
			if err != nil {
				return appErrors.WrapErrorf(err, "falha ao apagar dependentes (GORM)")
			}
		}
		return nil
	}
}
