package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

func TestRequisicaoSoDoDono(t *testing.T) {
	c := novoCenario(t)
	loja := c.sessao(t, "Loja01")
	outraLoja := c.novoUsuario(t, "Loja02", models.GrupoLoja, models.TipoLoja)

	modelo, err := c.modelosCompras.Criar(models.CatalogoCreate{Nome: "Tênis Runner"}, loja)
	require.NoError(t, err)
	cor, err := c.coresCompras.Criar(models.CatalogoCreate{Nome: "Azul"}, loja)
	require.NoError(t, err)

	req, err := c.requisicoes.Criar(models.RequisicaoCreate{Observacao: "Reposição"}, loja)
	require.NoError(t, err)
	_, err = c.requisicoes.AdicionarItem(req.ID, models.ItemRequisicaoCreate{ModeloID: modelo.ID, CorID: cor.ID, Tamanho: 38, Quantidade: 4}, loja)
	require.NoError(t, err)

	_, err = c.requisicoes.Obter(req.ID, outraLoja)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = c.requisicoes.AdicionarItem(req.ID, models.ItemRequisicaoCreate{ModeloID: modelo.ID, CorID: cor.ID, Tamanho: 38, Quantidade: 1}, outraLoja)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, c.requisicoes.EditarObservacao(req.ID, models.RequisicaoCreate{Observacao: "x"}, outraLoja), appErrors.ErrNotFound)

	lista, err := c.requisicoes.Listar(outraLoja)
	require.NoError(t, err)
	assert.Empty(t, lista)
	lista, err = c.requisicoes.Listar(loja)
	require.NoError(t, err)
	require.Len(t, lista, 1)

	edicao, err := c.requisicoes.Obter(req.ID, loja)
	require.NoError(t, err)
	assert.Equal(t, 4, edicao.TotalPares)

	_, err = c.requisicoes.Criar(models.RequisicaoCreate{}, c.sessao(t, "Operador01"))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestItemDeRequisicaoValidado(t *testing.T) {
	c := novoCenario(t)
	loja := c.sessao(t, "Loja01")

	modelo, err := c.modelosCompras.Criar(models.CatalogoCreate{Nome: "Bota Cano Alto"}, loja)
	require.NoError(t, err)
	cor, err := c.coresCompras.Criar(models.CatalogoCreate{Nome: "Marrom"}, loja)
	require.NoError(t, err)
	req, err := c.requisicoes.Criar(models.RequisicaoCreate{}, loja)
	require.NoError(t, err)

	item := func(tamanho, quantidade int) models.ItemRequisicaoCreate {
		return models.ItemRequisicaoCreate{ModeloID: modelo.ID, CorID: cor.ID, Tamanho: tamanho, Quantidade: quantidade}
	}
	for _, invalido := range []models.ItemRequisicaoCreate{item(25, 1), item(45, 1), item(38, 0), item(38, -2)} {
		_, err := c.requisicoes.AdicionarItem(req.ID, invalido, loja)
		assert.ErrorIs(t, err, appErrors.ErrValidation, "tamanho %d quantidade %d", invalido.Tamanho, invalido.Quantidade)
	}
	for _, valido := range []models.ItemRequisicaoCreate{item(26, 1), item(44, 1)} {
		_, err := c.requisicoes.AdicionarItem(req.ID, valido, loja)
		require.NoError(t, err, "tamanho %d", valido.Tamanho)
	}

	// modelo inativo
	_, err = c.modelosCompras.AlternarAtivo(modelo.ID, loja)
	require.NoError(t, err)
	_, err = c.requisicoes.AdicionarItem(req.ID, item(38, 1), loja)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = c.modelosCompras.AlternarAtivo(modelo.ID, loja)
	require.NoError(t, err)

	// cor na lixeira
	_, err = c.coresCompras.MoverParaLixeira(cor.ID, loja)
	require.NoError(t, err)
	_, err = c.requisicoes.AdicionarItem(req.ID, item(38, 1), loja)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	// modelo na lixeira, com a cor restaurada
	_, err = c.coresCompras.Restaurar(cor.ID, loja)
	require.NoError(t, err)
	_, err = c.modelosCompras.MoverParaLixeira(modelo.ID, loja)
	require.NoError(t, err)
	_, err = c.requisicoes.AdicionarItem(req.ID, item(38, 1), loja)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	edicao, err := c.requisicoes.Obter(req.ID, loja)
	require.NoError(t, err)
	assert.Len(t, edicao.Requisicao.Itens, 2)
	assert.Equal(t, 2, edicao.TotalPares)
}
