package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// estoque monta uma ficha de inventário da Injetora01 com dois modelos pretos.
type estoque struct {
	ficha     *models.FichaInventario
	bota      *models.ModeloCalcado
	tamanco   *models.ModeloCalcado
	preto     *models.CorCalcado
	bota38    models.TamanhoModelo
	tamanco38 models.TamanhoModelo
}

func (c *cenario) novoEstoque(t *testing.T) estoque {
	t.Helper()
	qualidade := c.sessao(t, "Qualidade01")
	preto := c.novaCor(t, "Preto")
	bota, err := c.modelos.CriarModelo(models.ModeloCalcadoCreate{Nome: "Bota", CorIDs: []uint64{preto.ID}, Tamanhos: []int{38, 39}}, qualidade)
	require.NoError(t, err)
	tamanco, err := c.modelos.CriarModelo(models.ModeloCalcadoCreate{Nome: "Tamanco", CorIDs: []uint64{preto.ID}, Tamanhos: []int{38}}, qualidade)
	require.NoError(t, err)

	ficha, err := c.inventario.CriarFicha(models.FichaCreate{NomeFicha: "Estoque maio", Data: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)}, c.sessao(t, "Injetora01"))
	require.NoError(t, err)

	doBota, err := c.modelos.TamanhosDe(bota.ID, preto.ID, qualidade)
	require.NoError(t, err)
	doTamanco, err := c.modelos.TamanhosDe(tamanco.ID, preto.ID, qualidade)
	require.NoError(t, err)
	return estoque{ficha: ficha, bota: bota, tamanco: tamanco, preto: preto, bota38: doBota[0], tamanco38: doTamanco[0]}
}

func TestCriarItemDeInventario(t *testing.T) {
	c := novoCenario(t)
	e := c.novoEstoque(t)
	dono := c.sessao(t, "Injetora01")
	assert.Equal(t, models.SetorInventarioPadrao, e.ficha.Setor)

	_, err := c.inventario.CriarItem(e.ficha.ID, models.ItemInventarioCreate{
		ModeloID: e.bota.ID, CorID: e.preto.ID, TamanhoID: e.tamanco38.ID, PeEsquerdo: 1, PeDireito: 1,
	}, dono)
	assert.ErrorIs(t, err, appErrors.ErrValidation, "numeração de outro modelo")

	outraCor := c.novaCor(t, "Branco")
	_, err = c.inventario.CriarItem(e.ficha.ID, models.ItemInventarioCreate{
		ModeloID: e.bota.ID, CorID: outraCor.ID, TamanhoID: e.bota38.ID, PeEsquerdo: 1, PeDireito: 1,
	}, dono)
	assert.ErrorIs(t, err, appErrors.ErrValidation, "numeração de outra cor")

	valido := models.ItemInventarioCreate{ModeloID: e.bota.ID, CorID: e.preto.ID, TamanhoID: e.bota38.ID, PeEsquerdo: 5, PeDireito: 3}
	for _, usuario := range []string{"Operador01", "Loja01"} {
		_, err = c.inventario.CriarItem(e.ficha.ID, valido, c.sessao(t, usuario))
		assert.ErrorIs(t, err, appErrors.ErrPermissionDenied, usuario)
	}

	item, err := c.inventario.CriarItem(e.ficha.ID, valido, dono)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Pares())
	_, err = c.inventario.CriarItem(e.ficha.ID, valido, dono)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateItem)

	listagem, err := c.inventario.ListarItens(e.ficha.ID, models.FiltroItens{}, 1, c.sessao(t, "Qualidade01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), listagem.Estatisticas.TotalItens)
	assert.Equal(t, int64(3), listagem.Estatisticas.TotalPares)
}

func TestAjustarQuantidadeDoItem(t *testing.T) {
	c := novoCenario(t)
	e := c.novoEstoque(t)
	dono := c.sessao(t, "Injetora01")

	item, err := c.inventario.CriarItem(e.ficha.ID, models.ItemInventarioCreate{
		ModeloID: e.bota.ID, CorID: e.preto.ID, TamanhoID: e.bota38.ID, PeEsquerdo: 5, PeDireito: 3,
	}, dono)
	require.NoError(t, err)

	atual, err := c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: models.AcaoAdicionar, Lado: models.LadoEsquerdo, Valor: 2}, dono)
	require.NoError(t, err)
	assert.Equal(t, 7, atual.QuantidadePeEsquerdo)
	assert.Equal(t, 3, atual.QuantidadePeDireito)

	_, err = c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: models.AcaoSubtrair, Lado: models.LadoDireito, Valor: 4}, dono)
	assert.ErrorIs(t, err, appErrors.ErrNegativeQuantity)
	atual, err = c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: models.AcaoSubtrair, Lado: models.LadoDireito, Valor: 3}, dono)
	require.NoError(t, err)
	assert.Equal(t, 0, atual.QuantidadePeDireito)
	assert.Equal(t, 0, atual.Pares())

	_, err = c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: models.AcaoAdicionar, Lado: models.LadoEsquerdo, Valor: 0}, dono)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: "dobrar", Lado: models.LadoEsquerdo, Valor: 1}, dono)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = c.inventario.AjustarQuantidade(item.ID, models.AjusteQuantidade{Acao: models.AcaoAdicionar, Lado: models.LadoEsquerdo, Valor: 1}, c.sessao(t, "Operador01"))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	// o relatório reflete os saldos ajustados
	var buf bytes.Buffer
	nome, err := c.relatorios.RelatorioInventario(e.ficha.ID, models.FiltroItens{}, &buf, c.sessao(t, "Qualidade01"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(nome, "inventario_"), nome)
	planilha, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer planilha.Close()
	linha, err := planilha.GetRows("Itens")
	require.NoError(t, err)
	require.Len(t, linha, 2)
	assert.Equal(t, []string{"Bota", "Preto", "38", "7", "0", "0"}, linha[1])
}
