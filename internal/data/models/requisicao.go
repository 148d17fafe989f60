package models

import (
	"time"
	"unicode/utf8"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// Requisicao é o cabeçalho de uma requisição de compra feita pela loja.
type Requisicao struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UsuarioID   uint64    `gorm:"not null;index" json:"usuario_id"`
	DataCriacao time.Time `gorm:"autoCreateTime;index" json:"data_criacao"`
	Observacao  *string   `gorm:"type:text" json:"observacao,omitempty"`

	Usuario *DBUser          `gorm:"foreignKey:UsuarioID;constraint:OnDelete:CASCADE" json:"-"`
	Itens   []ItemRequisicao `gorm:"foreignKey:RequisicaoID;constraint:OnDelete:CASCADE" json:"itens,omitempty"`
}

func (Requisicao) TableName() string { return "requisicoes" }

// TotalPares soma as quantidades de todos os itens.
func (r *Requisicao) TotalPares() int {
	total := 0
	for _, it := range r.Itens {
		total += it.Quantidade
	}
	return total
}

// ItemRequisicao é uma linha da requisição. Modelo e cor são protegidos:
// não podem ser apagados enquanto houver itens apontando para eles.
type ItemRequisicao struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RequisicaoID uint64  `gorm:"not null;index" json:"requisicao_id"`
	ModeloID     uint64  `gorm:"not null;index" json:"modelo_id"`
	CorID        uint64  `gorm:"not null;index" json:"cor_id"`
	Tamanho      int     `gorm:"not null" json:"tamanho"`
	Quantidade   int     `gorm:"not null;check:chk_item_requisicao_quantidade,quantidade >= 1" json:"quantidade"`
	Observacao   *string `gorm:"type:text" json:"observacao,omitempty"`

	Modelo *Modelo `gorm:"foreignKey:ModeloID;constraint:OnDelete:RESTRICT" json:"modelo,omitempty"`
	Cor    *Cor    `gorm:"foreignKey:CorID;constraint:OnDelete:RESTRICT" json:"cor,omitempty"`
}

func (ItemRequisicao) TableName() string { return "itens_requisicao" }

// RequisicaoCreate é a entrada de nova requisição e da edição da observação.
type RequisicaoCreate struct {
	Observacao string `json:"observacao"`
}

// ObservacaoOuNil devolve nil para observação em branco.
func (rc *RequisicaoCreate) ObservacaoOuNil() *string {
	return observacaoOuNil(rc.Observacao)
}

// ItemRequisicaoCreate é a entrada do formulário "adicionar_item".
type ItemRequisicaoCreate struct {
	ModeloID   uint64
	CorID      uint64
	Tamanho    int
	Quantidade int
	Observacao string
}

func (ic *ItemRequisicaoCreate) CleanAndValidate() error {
	fields := map[string]string{}
	if ic.ModeloID == 0 {
		fields["modelo"] = "obrigatório"
	}
	if ic.CorID == 0 {
		fields["cor"] = "obrigatório"
	}
	if ic.Tamanho < utils.TamanhoRequisicaoMin || ic.Tamanho > utils.TamanhoRequisicaoMax {
		fields["tamanho"] = "fora da faixa 26 a 44"
	}
	if ic.Quantidade < 1 {
		fields["quantidade"] = "deve ser no mínimo 1"
	}
	ic.Observacao = utils.SanitizeInput(ic.Observacao)
	if utf8.RuneCountInString(ic.Observacao) > 1000 {
		fields["observacao"] = "muito longa"
	}
	if len(fields) > 0 {
		return appErrors.NewValidationError("Dados do item inválidos.", fields)
	}
	return nil
}

func observacaoOuNil(s string) *string {
	s = utils.SanitizeInput(s)
	if s == "" {
		return nil
	}
	return &s
}

// ObservacaoOuNil devolve nil para observação em branco.
func (ic *ItemRequisicaoCreate) ObservacaoOuNil() *string {
	return observacaoOuNil(ic.Observacao)
}
