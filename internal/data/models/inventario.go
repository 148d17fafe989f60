package models

import (
	"time"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
)

// Lados do par usados no ajuste de quantidades.
const (
	LadoEsquerdo = "PE"
	LadoDireito  = "PD"

	AcaoAdicionar = "adicionar"
	AcaoSubtrair  = "subtrair"
)

// ColunaDoLado mapeia PE/PD para a coluna do contador.
func ColunaDoLado(lado string) (string, error) {
	switch lado {
	case LadoEsquerdo:
		return "quantidade_pe_esquerdo", nil
	case LadoDireito:
		return "quantidade_pe_direito", nil
	}
	return "", appErrors.NewValidationError("Lado inválido (use PE ou PD).", map[string]string{"lado": "inválido"})
}

// FichaInventario é a ficha de contagem de pés por modelo, cor e numeração.
type FichaInventario struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OperadorID   uint64    `gorm:"not null;index" json:"operador_id"`
	Data         time.Time `gorm:"not null;index" json:"data"`
	NomeFicha    string    `gorm:"type:varchar(100);not null" json:"nome_ficha"`
	Setor        string    `gorm:"type:varchar(50);not null" json:"setor"`
	CriadaEm     time.Time `gorm:"autoCreateTime" json:"criada_em"`
	AtualizadaEm time.Time `gorm:"autoUpdateTime" json:"atualizada_em"`
	Lixeira

	Operador *DBUser          `gorm:"foreignKey:OperadorID;constraint:OnDelete:CASCADE" json:"operador,omitempty"`
	Itens    []ItemInventario `gorm:"foreignKey:FichaID;constraint:OnDelete:CASCADE" json:"itens,omitempty"`
}

func (FichaInventario) TableName() string { return "fichas_inventario" }
func (FichaInventario) Rotulo() string    { return "ficha de inventário" }

// SetorInventarioPadrao é usado quando o dono da ficha não tem grupo.
const SetorInventarioPadrao = GrupoInjetora

func ToFichaInventarioResumo(f *FichaInventario) FichaResumo {
	r := FichaResumo{ID: f.ID, Tipo: TipoInventario, NomeFicha: f.NomeFicha, Data: f.Data, Setor: f.Setor, ExcluidoEm: f.ExcluidoEm}
	if f.Operador != nil {
		r.Operador = f.Operador.Username
	}
	return r
}

// ItemInventario guarda os contadores de pé esquerdo e direito de uma combinação.
// Os contadores nunca ficam negativos.
type ItemInventario struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FichaID              uint64    `gorm:"not null;uniqueIndex:idx_item_inventario_combinacao" json:"ficha_id"`
	ModeloID             uint64    `gorm:"not null;uniqueIndex:idx_item_inventario_combinacao" json:"modelo_id"`
	CorID                uint64    `gorm:"not null;uniqueIndex:idx_item_inventario_combinacao" json:"cor_id"`
	TamanhoID            uint64    `gorm:"not null;uniqueIndex:idx_item_inventario_combinacao" json:"tamanho_id"`
	QuantidadePeEsquerdo int       `gorm:"not null;default:0;check:chk_item_pe_esquerdo,quantidade_pe_esquerdo >= 0" json:"quantidade_pe_esquerdo"`
	QuantidadePeDireito  int       `gorm:"not null;default:0;check:chk_item_pe_direito,quantidade_pe_direito >= 0" json:"quantidade_pe_direito"`
	CriadoEm             time.Time `gorm:"autoCreateTime" json:"criado_em"`
	AtualizadoEm         time.Time `gorm:"autoUpdateTime" json:"atualizado_em"`

	Modelo  *ModeloCalcado `gorm:"foreignKey:ModeloID;constraint:OnDelete:CASCADE" json:"modelo,omitempty"`
	Cor     *CorCalcado    `gorm:"foreignKey:CorID;constraint:OnDelete:CASCADE" json:"cor,omitempty"`
	Tamanho *TamanhoModelo `gorm:"foreignKey:TamanhoID;constraint:OnDelete:CASCADE" json:"tamanho,omitempty"`
}

func (ItemInventario) TableName() string { return "itens_inventario" }

// Pares é o número de pares completos: min(esquerdo, direito).
func (i ItemInventario) Pares() int {
	return min(i.QuantidadePeEsquerdo, i.QuantidadePeDireito)
}

// ItemInventarioCreate é a entrada para adicionar um item à ficha de inventário.
type ItemInventarioCreate struct {
	ModeloID   uint64
	CorID      uint64
	TamanhoID  uint64
	PeEsquerdo int
	PeDireito  int
}

func (ic *ItemInventarioCreate) CleanAndValidate() error {
	fields := map[string]string{}
	if ic.ModeloID == 0 {
		fields["modelo"] = "obrigatório"
	}
	if ic.CorID == 0 {
		fields["cor"] = "obrigatório"
	}
	if ic.TamanhoID == 0 {
		fields["tamanho"] = "obrigatório"
	}
	if ic.PeEsquerdo < 0 {
		fields["quantidade_pe_esquerdo"] = "não pode ser negativo"
	}
	if ic.PeDireito < 0 {
		fields["quantidade_pe_direito"] = "não pode ser negativo"
	}
	if len(fields) > 0 {
		return appErrors.NewValidationError("Dados do item inválidos.", fields)
	}
	return nil
}

// AjusteQuantidade é a entrada do ajuste atômico de um contador.
type AjusteQuantidade struct {
	Acao  string
	Lado  string
	Valor int
}

// Delta valida o ajuste e devolve o valor com sinal e a coluna alvo.
func (a AjusteQuantidade) Delta() (string, int, error) {
	coluna, err := ColunaDoLado(a.Lado)
	if err != nil {
		return "", 0, err
	}
	if a.Valor <= 0 {
		return "", 0, appErrors.NewValidationError("O valor deve ser maior que zero.", map[string]string{"valor": "deve ser maior que zero"})
	}
	switch a.Acao {
	case AcaoAdicionar:
		return coluna, a.Valor, nil
	case AcaoSubtrair:
		return coluna, -a.Valor, nil
	}
	return "", 0, appErrors.NewValidationError("Ação inválida (use adicionar ou subtrair).", map[string]string{"acao": "inválida"})
}

// FiltroItens são os filtros da listagem de itens (?modelo=&cor=&numero=).
type FiltroItens struct {
	ModeloID *uint64
	CorID    *uint64
	Numero   *string
}

// OpcaoFiltro é uma opção de select nos filtros e nas APIs de dropdown.
type OpcaoFiltro struct {
	ID   uint64 `json:"id"`
	Nome string `json:"nome"`
}

// FacetasItens são as opções de filtro, cada uma restrita pelos filtros anteriores.
type FacetasItens struct {
	Modelos []OpcaoFiltro `json:"modelos"`
	Cores   []OpcaoFiltro `json:"cores"`
	Numeros []string      `json:"numeros"`
}

// EstatisticasItens resume o conjunto filtrado.
type EstatisticasItens struct {
	TotalItens        int64 `json:"total_itens"`
	TotalPares        int64 `json:"total_pares"`
	ModelosDiferentes int64 `json:"modelos_diferentes"`
}
