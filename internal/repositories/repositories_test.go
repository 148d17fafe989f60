package repositories

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// novoBanco abre um SQLite migrado num diretório temporário do teste.
func novoBanco(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &core.Config{DBEngine: "sqlite", DBName: filepath.Join(t.TempDir(), "teste.db")}
	db, err := data.InitializeDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.CloseDB(db) })
	return db
}

func novoUsuario(t *testing.T, db *gorm.DB) *models.DBUser {
	t.Helper()
	u := &models.DBUser{Username: gofakeit.Username(), PasswordHash: "x", Active: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

// cenarioInventario cria ficha, modelo, cor e um tamanho "38".
type cenarioInventario struct {
	repo    InventarioRepository
	ficha   *models.FichaInventario
	modelo  *models.ModeloCalcado
	cor     *models.CorCalcado
	tamanho *models.TamanhoModelo
}

func novoCenarioInventario(t *testing.T, db *gorm.DB) cenarioInventario {
	t.Helper()
	u := novoUsuario(t, db)
	cores := NewGormCatalogoRepository[models.CorCalcado](db)
	cor, err := cores.Create("Preto", u.ID)
	require.NoError(t, err)

	modelos := NewGormModeloRepository(db)
	modelo, err := modelos.Criar("Sandália "+gofakeit.Word(), u.ID, []uint64{cor.ID}, []string{"38"})
	require.NoError(t, err)
	tamanhos, err := modelos.TamanhosDe(modelo.ID, cor.ID)
	require.NoError(t, err)
	require.Len(t, tamanhos, 1)

	repo := NewGormInventarioRepository(db)
	ficha := &models.FichaInventario{OperadorID: u.ID, Data: time.Now().UTC(), NomeFicha: "Inventário", Setor: models.GrupoInjetora}
	require.NoError(t, repo.Create(ficha))
	return cenarioInventario{repo: repo, ficha: ficha, modelo: modelo, cor: cor, tamanho: &tamanhos[0]}
}

func (c cenarioInventario) novoItem(t *testing.T, esq, dir int) *models.ItemInventario {
	t.Helper()
	item := &models.ItemInventario{
		FichaID: c.ficha.ID, ModeloID: c.modelo.ID, CorID: c.cor.ID, TamanhoID: c.tamanho.ID,
		QuantidadePeEsquerdo: esq, QuantidadePeDireito: dir,
	}
	require.NoError(t, c.repo.CriarItem(item))
	return item
}

func TestApplyDelta(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	item := c.novoItem(t, 10, 7)

	_, err := c.repo.ApplyDelta(item.ID, "quantidade_pe_esquerdo", -11)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNegativeQuantity)

	atual, err := c.repo.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, atual.QuantidadePeEsquerdo, "saldo não muda quando o ajuste é recusado")

	atual, err = c.repo.ApplyDelta(item.ID, "quantidade_pe_esquerdo", -10)
	require.NoError(t, err)
	assert.Equal(t, 0, atual.QuantidadePeEsquerdo)
	assert.Equal(t, 7, atual.QuantidadePeDireito)
	assert.Equal(t, 0, atual.Pares())

	_, err = c.repo.ApplyDelta(item.ID, "id", 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = c.repo.ApplyDelta(item.ID+999, "quantidade_pe_direito", 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestApplyDeltaConcorrente(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	item := c.novoItem(t, 0, 0)

	const n = 20
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.repo.ApplyDelta(item.ID, "quantidade_pe_direito", 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	atual, err := c.repo.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, n, atual.QuantidadePeDireito)
}

func TestApplyDeltaConcorrenteMisto(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	item := c.novoItem(t, 100, 0)

	// 20 entradas de +3 e 20 saídas de -2: saldo final 100 + 60 - 40
	const n = 40
	var g errgroup.Group
	for i := 0; i < n; i++ {
		delta := 3
		if i%2 == 1 {
			delta = -2
		}
		g.Go(func() error {
			_, err := c.repo.ApplyDelta(item.ID, "quantidade_pe_esquerdo", delta)
			return err
		})
	}
	require.NoError(t, g.Wait())

	atual, err := c.repo.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, atual.QuantidadePeEsquerdo)
	assert.Equal(t, 0, atual.QuantidadePeDireito)
}

func TestApplyDeltaConcorrenteParaEmZero(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	item := c.novoItem(t, 0, 10)

	const n = 25
	var aceitos, recusados atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.repo.ApplyDelta(item.ID, "quantidade_pe_direito", -1)
			switch {
			case err == nil:
				aceitos.Add(1)
			case errors.Is(err, appErrors.ErrNegativeQuantity):
				recusados.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), aceitos.Load())
	assert.Equal(t, int32(n-10), recusados.Load())
	atual, err := c.repo.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, atual.QuantidadePeDireito)
}

func TestCriarItemDuplicado(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	c.novoItem(t, 1, 1)

	dup := &models.ItemInventario{FichaID: c.ficha.ID, ModeloID: c.modelo.ID, CorID: c.cor.ID, TamanhoID: c.tamanho.ID}
	err := c.repo.CriarItem(dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateItem)
}

func TestEstatisticasEFacetas(t *testing.T) {
	db := novoBanco(t)
	c := novoCenarioInventario(t, db)
	c.novoItem(t, 5, 3)

	stats, err := c.repo.Estatisticas(c.ficha.ID, models.FiltroItens{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalItens)
	assert.Equal(t, int64(3), stats.TotalPares)
	assert.Equal(t, int64(1), stats.ModelosDiferentes)

	outro := c.modelo.ID + 999
	facetas, err := c.repo.Facetas(c.ficha.ID, models.FiltroItens{ModeloID: &outro})
	require.NoError(t, err)
	assert.Len(t, facetas.Modelos, 1, "modelos ignoram o filtro")
	assert.Empty(t, facetas.Cores)
	assert.Empty(t, facetas.Numeros)

	facetas, err = c.repo.Facetas(c.ficha.ID, models.FiltroItens{ModeloID: &c.modelo.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"38"}, facetas.Numeros)
}

func TestLivroDeQuantidades(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	parte, err := NewGormCatalogoRepository[models.ParteCalcado](db).Create("Cabedal", u.ID)
	require.NoError(t, err)

	repo := NewGormFichaRepository(db)
	ficha := &models.Ficha{OperadorID: u.ID, Data: time.Now().UTC(), NomeFicha: gofakeit.Name()}
	require.NoError(t, repo.Create(ficha))

	for _, v := range []int{5, 3, 8} {
		_, err = repo.AppendQuantidade(ficha.ID, parte.ID, v)
		require.NoError(t, err)
	}
	carregada, err := repo.GetByID(ficha.ID)
	require.NoError(t, err)
	require.Len(t, carregada.Registros, 1)
	assert.Equal(t, models.Quantidades{5, 3, 8}, carregada.Registros[0].Quantidades)
	assert.Equal(t, 16, carregada.TotalGeral())

	qs, err := repo.PopQuantidade(ficha.ID, parte.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Quantidades{5, 3}, qs)
	assert.Equal(t, 8, qs.Total())

	_, err = repo.PopQuantidade(ficha.ID, parte.ID+999)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestLixeiraCicloCompleto(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	cat := NewGormCatalogoRepository[models.ParteCalcado](db)
	lix := NewGormLixeiraRepository[models.ParteCalcado](db, HooksParteCalcado())

	parte, err := cat.Create("Palmilha", u.ID)
	require.NoError(t, err)

	_, err = lix.Restore(parte.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotTrashed)

	movida, err := lix.MoveToTrash(parte.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, movida.Excluido)
	require.NotNil(t, movida.ExcluidoEm)

	_, err = lix.MoveToTrash(parte.ID, u.ID)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyTrashed)

	lista, err := cat.Listar(true)
	require.NoError(t, err)
	assert.Empty(t, lista, "itens da lixeira não aparecem nas listagens")

	na, err := lix.ListTrashed()
	require.NoError(t, err)
	require.Len(t, na, 1)

	restaurada, err := lix.Restore(parte.ID)
	require.NoError(t, err)
	assert.False(t, restaurada.Excluido)
	assert.Nil(t, restaurada.ExcluidoEm)

	_, err = lix.Purge(parte.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotTrashed, "só itens na lixeira podem ser apagados")

	_, err = lix.MoveToTrash(parte.ID, u.ID)
	require.NoError(t, err)
	apagada, err := lix.Purge(parte.ID)
	require.NoError(t, err)
	assert.Equal(t, "Palmilha", apagada.Nome)

	_, err = cat.GetByID(parte.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPurgeBloqueadoPorRequisicao(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	modelos := NewGormCatalogoRepository[models.Modelo](db)
	cores := NewGormCatalogoRepository[models.Cor](db)
	lix := NewGormLixeiraRepository[models.Modelo](db, HooksComprasProtegido("modelo_id"))

	modelo, err := modelos.Create("Tênis", u.ID)
	require.NoError(t, err)
	cor, err := cores.Create("Azul", u.ID)
	require.NoError(t, err)

	reqs := NewGormRequisicaoRepository(db)
	req := &models.Requisicao{UsuarioID: u.ID}
	require.NoError(t, reqs.Create(req))
	require.NoError(t, reqs.AdicionarItem(&models.ItemRequisicao{RequisicaoID: req.ID, ModeloID: modelo.ID, CorID: cor.ID, Tamanho: 38, Quantidade: 2}))

	_, err = lix.MoveToTrash(modelo.ID, u.ID)
	require.NoError(t, err)
	_, err = lix.Purge(modelo.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrReferentialBlock)

	na, err := lix.ListTrashed()
	require.NoError(t, err)
	assert.Len(t, na, 1, "modelo bloqueado continua na lixeira")
}

// tamanhoDe acha a numeração ativa do par (modelo, cor).
func tamanhoDe(t *testing.T, modelos ModeloRepository, modeloID, corID uint64, numero string) *models.TamanhoModelo {
	t.Helper()
	tamanhos, err := modelos.TamanhosDe(modeloID, corID)
	require.NoError(t, err)
	for i := range tamanhos {
		if tamanhos[i].Numero == numero {
			return &tamanhos[i]
		}
	}
	require.FailNowf(t, "numeração não encontrada", "modelo %d cor %d nº %s", modeloID, corID, numero)
	return nil
}

func nomes(opcoes []models.OpcaoFiltro) []string {
	out := make([]string, 0, len(opcoes))
	for _, o := range opcoes {
		out = append(out, o.Nome)
	}
	return out
}

func TestFacetasEmCascata(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	cores := NewGormCatalogoRepository[models.CorCalcado](db)
	preto, err := cores.Create("Preto", u.ID)
	require.NoError(t, err)
	branco, err := cores.Create("Branco", u.ID)
	require.NoError(t, err)

	modelos := NewGormModeloRepository(db)
	alpargata, err := modelos.Criar("Alpargata", u.ID, []uint64{preto.ID, branco.ID}, []string{"38", "39"})
	require.NoError(t, err)
	bota, err := modelos.Criar("Bota", u.ID, []uint64{preto.ID}, []string{"40"})
	require.NoError(t, err)

	repo := NewGormInventarioRepository(db)
	ficha := &models.FichaInventario{OperadorID: u.ID, Data: time.Now().UTC(), NomeFicha: "Estoque", Setor: models.GrupoInjetora}
	require.NoError(t, repo.Create(ficha))
	for _, it := range []struct {
		modelo, cor uint64
		numero      string
	}{
		{alpargata.ID, preto.ID, "39"},
		{alpargata.ID, branco.ID, "38"},
		{bota.ID, preto.ID, "40"},
	} {
		tam := tamanhoDe(t, modelos, it.modelo, it.cor, it.numero)
		require.NoError(t, repo.CriarItem(&models.ItemInventario{
			FichaID: ficha.ID, ModeloID: it.modelo, CorID: it.cor, TamanhoID: tam.ID,
			QuantidadePeEsquerdo: 2, QuantidadePeDireito: 2,
		}))
	}

	todos, err := repo.Facetas(ficha.ID, models.FiltroItens{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpargata", "Bota"}, nomes(todos.Modelos))
	assert.Equal(t, []string{"Branco", "Preto"}, nomes(todos.Cores))
	assert.Equal(t, []string{"38", "39", "40"}, todos.Numeros)

	soBota, err := repo.Facetas(ficha.ID, models.FiltroItens{ModeloID: &bota.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpargata", "Bota"}, nomes(soBota.Modelos), "modelos ignoram os filtros")
	assert.Equal(t, []string{"Preto"}, nomes(soBota.Cores))
	assert.Equal(t, []string{"40"}, soBota.Numeros)

	alpargataBranca, err := repo.Facetas(ficha.ID, models.FiltroItens{ModeloID: &alpargata.ID, CorID: &branco.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpargata", "Bota"}, nomes(alpargataBranca.Modelos))
	assert.Equal(t, []string{"Branco", "Preto"}, nomes(alpargataBranca.Cores), "cores ignoram o filtro de cor")
	assert.Equal(t, []string{"38"}, alpargataBranca.Numeros)

	numero := "40"
	comNumero, err := repo.Facetas(ficha.ID, models.FiltroItens{ModeloID: &alpargata.ID, Numero: &numero})
	require.NoError(t, err)
	assert.Equal(t, []string{"38", "39"}, comNumero.Numeros, "numerações ignoram o filtro de número")

	// limpar o filtro volta a abrir as opções
	semFiltro, err := repo.Facetas(ficha.ID, models.FiltroItens{})
	require.NoError(t, err)
	assert.Equal(t, todos, semFiltro)
}

func TestLixeiraDeModeloPropagaParaNumeracoes(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	cores := NewGormCatalogoRepository[models.CorCalcado](db)
	preto, err := cores.Create("Preto", u.ID)
	require.NoError(t, err)
	caramelo, err := cores.Create("Caramelo", u.ID)
	require.NoError(t, err)

	modelos := NewGormModeloRepository(db)
	mocassim, err := modelos.Criar("Mocassim", u.ID, []uint64{preto.ID, caramelo.ID}, []string{"37", "38"})
	require.NoError(t, err)
	outro, err := modelos.Criar("Chinelo", u.ID, []uint64{preto.ID}, []string{"40"})
	require.NoError(t, err)

	numeracoes := func(modeloID uint64) []models.TamanhoModelo {
		var lista []models.TamanhoModelo
		require.NoError(t, db.Where("modelo_id = ?", modeloID).Find(&lista).Error)
		return lista
	}
	require.Len(t, numeracoes(mocassim.ID), 4)

	lix := NewGormLixeiraRepository[models.ModeloCalcado](db, HooksModeloCalcado())
	_, err = lix.MoveToTrash(mocassim.ID, u.ID)
	require.NoError(t, err)
	for _, tam := range numeracoes(mocassim.ID) {
		assert.True(t, tam.Excluido, "nº %s cor %d", tam.Numero, tam.CorID)
		assert.False(t, tam.Ativo, "nº %s cor %d", tam.Numero, tam.CorID)
	}
	for _, tam := range numeracoes(outro.ID) {
		assert.False(t, tam.Excluido, "outros modelos não são afetados")
		assert.True(t, tam.Ativo)
	}
	vazios, err := modelos.TamanhosDe(mocassim.ID, preto.ID)
	require.NoError(t, err)
	assert.Empty(t, vazios)

	_, err = lix.Restore(mocassim.ID)
	require.NoError(t, err)
	restauradas := numeracoes(mocassim.ID)
	require.Len(t, restauradas, 4)
	for _, tam := range restauradas {
		assert.False(t, tam.Excluido, "nº %s cor %d", tam.Numero, tam.CorID)
		assert.True(t, tam.Ativo, "nº %s cor %d", tam.Numero, tam.CorID)
	}
}

func TestAppendQuantidadeConcorrente(t *testing.T) {
	db := novoBanco(t)
	u := novoUsuario(t, db)
	parte, err := NewGormCatalogoRepository[models.ParteCalcado](db).Create("Solado", u.ID)
	require.NoError(t, err)

	repo := NewGormFichaRepository(db)
	ficha := &models.Ficha{OperadorID: u.ID, Data: time.Now().UTC(), NomeFicha: gofakeit.Name()}
	require.NoError(t, repo.Create(ficha))

	// todos disputam o primeiro lançamento, quando o livro ainda não existe
	const n = 15
	var g errgroup.Group
	for i := 1; i <= n; i++ {
		g.Go(func() error {
			_, err := repo.AppendQuantidade(ficha.ID, parte.ID, i)
			return err
		})
	}
	require.NoError(t, g.Wait())

	carregada, err := repo.GetByID(ficha.ID)
	require.NoError(t, err)
	require.Len(t, carregada.Registros, 1, "um único livro por parte")
	qs := carregada.Registros[0].Quantidades
	assert.Len(t, qs, n)
	assert.Equal(t, n*(n+1)/2, qs.Total())
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, []int(qs))
}
