package models

import (
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// CatalogoBase reúne os campos comuns dos itens de cadastro.
// O nome é único (sem distinção de caixa) entre itens ativos e da lixeira;
// a regra é aplicada pelo serviço comparando NomeChave.
type CatalogoBase struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Nome      string `gorm:"type:varchar(100);not null" json:"nome"`
	NomeChave string `gorm:"type:varchar(100);not null;index" json:"-"`
	Ativo     bool   `gorm:"not null" json:"ativo"`
	Ordem     int    `gorm:"not null;default:0" json:"ordem"`
	Lixeira
}

func (c CatalogoBase) ChaveDoNome() string {
	return c.NomeChave
}

// Base dá acesso aos campos comuns a partir de qualquer item de cadastro.
func (c *CatalogoBase) Base() *CatalogoBase {
	return c
}

// ItemCatalogo é implementado pelo ponteiro de cada tipo de cadastro.
type ItemCatalogo interface {
	Trashable
	Nomeado
	Base() *CatalogoBase
}

// Autoria é implementada pelos cadastros que registram quem os criou.
type Autoria interface {
	DefinirCriadoPor(userID uint64)
}

// --- Qualidade ---

// ParteCalcado é uma parte do calçado contada nas fichas de produção.
type ParteCalcado struct {
	CatalogoBase
}

func (ParteCalcado) TableName() string { return "partes_calcado" }
func (ParteCalcado) Rotulo() string    { return "parte" }

// NomeOperador é o cadastro de nomes de operadores de máquina.
type NomeOperador struct {
	CatalogoBase
}

func (NomeOperador) TableName() string { return "nomes_operador" }
func (NomeOperador) Rotulo() string    { return "operador" }

// CorCalcado é uma cor usada nos modelos do inventário.
type CorCalcado struct {
	CatalogoBase
	CriadoEm    time.Time `gorm:"autoCreateTime" json:"criado_em"`
	CriadoPorID *uint64   `json:"criado_por_id,omitempty"`
}

func (CorCalcado) TableName() string { return "cores_calcado" }
func (CorCalcado) Rotulo() string    { return "cor" }

func (c *CorCalcado) DefinirCriadoPor(userID uint64) { c.CriadoPorID = &userID }

// ModeloCalcado é um modelo de calçado com suas cores e numerações.
type ModeloCalcado struct {
	CatalogoBase
	CriadoEm    time.Time `gorm:"autoCreateTime" json:"criado_em"`
	CriadoPorID *uint64   `json:"criado_por_id,omitempty"`

	Cores    []*CorCalcado   `gorm:"many2many:modelo_cores;joinForeignKey:ModeloID;joinReferences:CorID" json:"cores,omitempty"`
	Tamanhos []TamanhoModelo `gorm:"foreignKey:ModeloID" json:"tamanhos,omitempty"`
}

func (ModeloCalcado) TableName() string { return "modelos_calcado" }
func (ModeloCalcado) Rotulo() string    { return "modelo" }

func (m *ModeloCalcado) DefinirCriadoPor(userID uint64) { m.CriadoPorID = &userID }

// NumerosAtivos devolve as numerações distintas ainda fora da lixeira, em ordem.
// Os tamanhos devem vir carregados.
func (m *ModeloCalcado) NumerosAtivos() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range m.Tamanhos {
		if t.Excluido {
			continue
		}
		if _, ok := seen[t.Numero]; ok {
			continue
		}
		seen[t.Numero] = struct{}{}
		out = append(out, t.Numero)
	}
	sort.Slice(out, func(i, j int) bool { return NumeroMenor(out[i], out[j]) })
	return out
}

// NumeroMenor ordena numerações numericamente quando possível ("9" < "10").
func NumeroMenor(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

// TamanhoModelo é uma numeração disponível para o par (modelo, cor).
// Segue o modelo: vai para a lixeira e volta junto com ele.
type TamanhoModelo struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ModeloID uint64 `gorm:"not null;uniqueIndex:idx_tamanho_modelo_cor_numero" json:"modelo_id"`
	CorID    uint64 `gorm:"not null;uniqueIndex:idx_tamanho_modelo_cor_numero" json:"cor_id"`
	Numero   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_tamanho_modelo_cor_numero" json:"numero"`
	Ativo    bool   `gorm:"not null" json:"ativo"`
	Excluido bool   `gorm:"not null;default:false;index" json:"excluido"`

	Modelo *ModeloCalcado `gorm:"foreignKey:ModeloID;constraint:OnDelete:CASCADE" json:"-"`
	Cor    *CorCalcado    `gorm:"foreignKey:CorID;constraint:OnDelete:CASCADE" json:"cor,omitempty"`
}

func (TamanhoModelo) TableName() string { return "tamanhos_modelo" }

// --- Compras ---

// Modelo é o cadastro de modelos usado nas requisições da loja.
type Modelo struct {
	CatalogoBase
	DataCadastro time.Time `gorm:"autoCreateTime" json:"data_cadastro"`
}

func (Modelo) TableName() string { return "compras_modelos" }
func (Modelo) Rotulo() string    { return "modelo" }

// Cor é o cadastro de cores usado nas requisições da loja.
type Cor struct {
	CatalogoBase
	DataCadastro time.Time `gorm:"autoCreateTime" json:"data_cadastro"`
}

func (Cor) TableName() string { return "compras_cores" }
func (Cor) Rotulo() string    { return "cor" }

// --- DTOs ---

// CatalogoCreate é a entrada para criar um item de cadastro.
type CatalogoCreate struct {
	Nome string `json:"nome"`
}

// CleanAndValidate normaliza o nome e valida o tamanho.
func (cc *CatalogoCreate) CleanAndValidate() error {
	cc.Nome = utils.SanitizeInput(cc.Nome)
	return validarNome(cc.Nome)
}

// CatalogoUpdate é a entrada para editar um item de cadastro (compras).
type CatalogoUpdate struct {
	Nome  *string `json:"nome,omitempty"`
	Ativo *bool   `json:"ativo,omitempty"`
}

func (cu *CatalogoUpdate) CleanAndValidate() error {
	if cu.Nome != nil {
		*cu.Nome = utils.SanitizeInput(*cu.Nome)
		if err := validarNome(*cu.Nome); err != nil {
			return err
		}
	}
	return nil
}

func validarNome(nome string) error {
	if nome == "" {
		return appErrors.NewValidationError("O nome é obrigatório.", map[string]string{"nome": "obrigatório"})
	}
	if utf8.RuneCountInString(nome) > 100 {
		return appErrors.NewValidationError("O nome excede 100 caracteres.", map[string]string{"nome": "muito longo"})
	}
	return nil
}

// ModeloCalcadoCreate é a entrada de gerenciar modelos: nome mais o produto cartesiano cores × tamanhos.
type ModeloCalcadoCreate struct {
	Nome     string
	CorIDs   []uint64
	Tamanhos []int
}

func (mc *ModeloCalcadoCreate) CleanAndValidate() error {
	mc.Nome = utils.SanitizeInput(mc.Nome)
	if err := validarNome(mc.Nome); err != nil {
		return err
	}
	for _, t := range mc.Tamanhos {
		if t <= 0 {
			return appErrors.NewValidationError("Tamanhos devem ser números positivos.", map[string]string{"tamanhos": "inválido"})
		}
	}
	return nil
}
