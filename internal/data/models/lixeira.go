package models

import (
	"time"
)

// Lixeira é o trio de exclusão lógica embutido em cadastros e fichas.
// Invariante: Excluido=false implica ExcluidoEm e ExcluidoPorID nulos.
type Lixeira struct {
	Excluido      bool       `gorm:"not null;default:false;index" json:"excluido"`
	ExcluidoEm    *time.Time `json:"excluido_em,omitempty"`
	ExcluidoPorID *uint64    `gorm:"index" json:"excluido_por_id,omitempty"`
}

// EstadoLixeira é promovido para as structs que embutem Lixeira.
func (l Lixeira) EstadoLixeira() Lixeira {
	return l
}

// Trashable é a restrição dos tipos gerenciados pelo repositório genérico da lixeira.
type Trashable interface {
	TableName() string
	Rotulo() string
	EstadoLixeira() Lixeira
}

// Nomeado é implementado pelos itens de cadastro; a restauração usa para
// impedir dois itens ativos com o mesmo nome.
type Nomeado interface {
	ChaveDoNome() string
}
