package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// Quantidades é a sequência de lançamentos de uma parte, persistida como JSON.
type Quantidades []int

// Value implementa driver.Valuer; nil vira "[]".
func (q Quantidades) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(q))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implementa sql.Scanner.
func (q *Quantidades) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*q = Quantidades{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("tipo de valor inválido para Quantidades scan, esperado []byte ou string")
	}
	if len(b) == 0 {
		*q = Quantidades{}
		return nil
	}
	var out []int
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	if out == nil {
		out = []int{}
	}
	*q = out
	return nil
}

// Total soma os lançamentos; vazio soma zero.
func (q Quantidades) Total() int {
	total := 0
	for _, v := range q {
		total += v
	}
	return total
}

// Ficha é a ficha de produção de um operador em uma data.
type Ficha struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OperadorID   uint64    `gorm:"not null;index" json:"operador_id"`
	Data         time.Time `gorm:"not null;index" json:"data"`
	NomeFicha    string    `gorm:"type:varchar(100);not null" json:"nome_ficha"`
	Setor        *string   `gorm:"type:varchar(50)" json:"setor,omitempty"`
	CriadaEm     time.Time `gorm:"autoCreateTime" json:"criada_em"`
	AtualizadaEm time.Time `gorm:"autoUpdateTime" json:"atualizada_em"`
	Lixeira

	Operador  *DBUser         `gorm:"foreignKey:OperadorID;constraint:OnDelete:CASCADE" json:"operador,omitempty"`
	Registros []RegistroParte `gorm:"foreignKey:FichaID;constraint:OnDelete:CASCADE" json:"registros,omitempty"`
}

func (Ficha) TableName() string { return "fichas" }
func (Ficha) Rotulo() string    { return "ficha" }

// TotalGeral soma todos os lançamentos de todas as partes.
func (f *Ficha) TotalGeral() int {
	total := 0
	for _, r := range f.Registros {
		total += r.Quantidades.Total()
	}
	return total
}

// RegistroParte é o livro de lançamentos de uma parte dentro de uma ficha.
type RegistroParte struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FichaID     uint64      `gorm:"not null;uniqueIndex:idx_registro_ficha_parte" json:"ficha_id"`
	ParteID     uint64      `gorm:"not null;uniqueIndex:idx_registro_ficha_parte" json:"parte_id"`
	Quantidades Quantidades `gorm:"type:text;not null" json:"quantidades"`

	Parte *ParteCalcado `gorm:"foreignKey:ParteID;constraint:OnDelete:CASCADE" json:"parte,omitempty"`
}

func (RegistroParte) TableName() string { return "registros_parte" }

// FichaCreate é a entrada para criar uma ficha (de produção ou de inventário).
type FichaCreate struct {
	NomeFicha string    `json:"nome_ficha"`
	Data      time.Time `json:"data"`
}

func (fc *FichaCreate) CleanAndValidate() error {
	fc.NomeFicha = utils.SanitizeInput(fc.NomeFicha)
	if fc.NomeFicha == "" {
		return appErrors.NewValidationError("O nome da ficha é obrigatório.", map[string]string{"nome_ficha": "obrigatório"})
	}
	if utf8.RuneCountInString(fc.NomeFicha) > 100 {
		return appErrors.NewValidationError("O nome da ficha excede 100 caracteres.", map[string]string{"nome_ficha": "muito longo"})
	}
	if fc.Data.IsZero() {
		fc.Data = time.Now()
	}
	fc.Data = utils.InicioDoDia(fc.Data)
	return nil
}

// FichaResumo é a linha de listagem (home e lixeira) de qualquer tipo de ficha.
type FichaResumo struct {
	ID         uint64     `json:"id"`
	Tipo       string     `json:"tipo"` // "Ficha" ou "Inventario"
	NomeFicha  string     `json:"nome_ficha"`
	Data       time.Time  `json:"data"`
	Setor      string     `json:"setor,omitempty"`
	Operador   string     `json:"operador,omitempty"`
	ExcluidoEm *time.Time `json:"excluido_em,omitempty"`
}

// Tipos aceitos pela lixeira de fichas.
const (
	TipoFicha      = "Ficha"
	TipoInventario = "Inventario"
)

func ToFichaResumo(f *Ficha) FichaResumo {
	r := FichaResumo{ID: f.ID, Tipo: TipoFicha, NomeFicha: f.NomeFicha, Data: f.Data, ExcluidoEm: f.ExcluidoEm}
	if f.Setor != nil {
		r.Setor = *f.Setor
	}
	if f.Operador != nil {
		r.Operador = f.Operador.Username
	}
	return r
}
