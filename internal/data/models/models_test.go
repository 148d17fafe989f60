package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
)

func TestQuantidadesPersistencia(t *testing.T) {
	v, err := Quantidades(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var q Quantidades
	require.NoError(t, q.Scan([]byte("[4,6]")))
	assert.Equal(t, Quantidades{4, 6}, q)
	assert.Equal(t, 10, q.Total())

	require.NoError(t, q.Scan(nil))
	assert.Empty(t, q)
	assert.Equal(t, 0, q.Total())

	require.NoError(t, q.Scan("null"))
	assert.NotNil(t, q)

	assert.Error(t, q.Scan(42))
}

func TestAjusteQuantidadeDelta(t *testing.T) {
	coluna, delta, err := AjusteQuantidade{Acao: AcaoAdicionar, Lado: LadoEsquerdo, Valor: 3}.Delta()
	require.NoError(t, err)
	assert.Equal(t, "quantidade_pe_esquerdo", coluna)
	assert.Equal(t, 3, delta)

	coluna, delta, err = AjusteQuantidade{Acao: AcaoSubtrair, Lado: LadoDireito, Valor: 2}.Delta()
	require.NoError(t, err)
	assert.Equal(t, "quantidade_pe_direito", coluna)
	assert.Equal(t, -2, delta)

	invalidos := []AjusteQuantidade{
		{Acao: AcaoAdicionar, Lado: "XX", Valor: 1},
		{Acao: AcaoAdicionar, Lado: LadoEsquerdo, Valor: 0},
		{Acao: AcaoSubtrair, Lado: LadoDireito, Valor: -4},
		{Acao: "zerar", Lado: LadoEsquerdo, Valor: 1},
	}
	for _, a := range invalidos {
		_, _, err := a.Delta()
		assert.ErrorIs(t, err, appErrors.ErrValidation, "%+v", a)
	}
}

func TestParesDoItem(t *testing.T) {
	assert.Equal(t, 3, ItemInventario{QuantidadePeEsquerdo: 5, QuantidadePeDireito: 3}.Pares())
	assert.Equal(t, 0, ItemInventario{QuantidadePeEsquerdo: 0, QuantidadePeDireito: 9}.Pares())
}

func TestNumeroMenor(t *testing.T) {
	assert.True(t, NumeroMenor("9", "10"))
	assert.False(t, NumeroMenor("38", "37"))
	assert.True(t, NumeroMenor("38A", "39A"), "não numéricos comparam como texto")
}

func TestNumerosAtivosIgnoraLixeira(t *testing.T) {
	m := &ModeloCalcado{Tamanhos: []TamanhoModelo{
		{Numero: "40"}, {Numero: "9"}, {Numero: "40"}, {Numero: "37", Excluido: true},
	}}
	assert.Equal(t, []string{"9", "40"}, m.NumerosAtivos())
}

func TestUsuarioGrupos(t *testing.T) {
	u := &DBUser{Groups: []*DBGroup{{ID: 7, Name: GrupoLoja}, {ID: 2, Name: GrupoInjetora}, nil}}
	assert.Equal(t, GrupoInjetora, u.PrimeiroGrupo())
	assert.True(t, u.InGroup("loja"))
	assert.False(t, u.InGroup(GrupoQualidade))
	assert.ElementsMatch(t, []string{GrupoLoja, GrupoInjetora}, u.GroupNames())
	assert.Equal(t, "", (&DBUser{}).PrimeiroGrupo())
}
