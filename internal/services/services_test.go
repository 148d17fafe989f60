package services

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
)

type cenario struct {
	cfg     *core.Config
	db      *gorm.DB
	audit   AuditLogService
	partes  CatalogoService[models.ParteCalcado]
	fichas  FichaService
	lixeira LixeiraService
	imports ImportService

	coresCalcado   CatalogoService[models.CorCalcado]
	modelosCompras CatalogoService[models.Modelo]
	coresCompras   CatalogoService[models.Cor]
	modelos        ModeloService
	inventario     InventarioService
	relatorios     RelatorioService
	requisicoes    RequisicaoService
}

func novoCenario(t *testing.T) *cenario {
	t.Helper()
	cfg := &core.Config{
		DBEngine:      "sqlite",
		DBName:        filepath.Join(t.TempDir(), "servicos.db"),
		FichasPerPage: 10,
		ItensPerPage:  20,
	}
	db, err := data.InitializeDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = data.CloseDB(db) })
	require.NoError(t, data.SeedDefaults(db, "senha"))

	audit := NewAuditLogService(repositories.NewGormAuditLogRepository(db))
	partesRepo := repositories.NewGormCatalogoRepository[models.ParteCalcado](db)
	operadoresRepo := repositories.NewGormCatalogoRepository[models.NomeOperador](db)
	coresCalcadoRepo := repositories.NewGormCatalogoRepository[models.CorCalcado](db)
	modelosCalcadoRepo := repositories.NewGormCatalogoRepository[models.ModeloCalcado](db)
	modelosComprasRepo := repositories.NewGormCatalogoRepository[models.Modelo](db)
	coresComprasRepo := repositories.NewGormCatalogoRepository[models.Cor](db)
	fichaRepo := repositories.NewGormFichaRepository(db)
	inventarioRepo := repositories.NewGormInventarioRepository(db)
	modeloRepo := repositories.NewGormModeloRepository(db)
	lixFichas := repositories.NewGormLixeiraRepository[models.Ficha](db, repositories.HooksFicha())
	lixInventarios := repositories.NewGormLixeiraRepository[models.FichaInventario](db, repositories.HooksFichaInventario())

	partes := NewCatalogoService[models.ParteCalcado]("PARTES", auth.CapQualidade, partesRepo,
		repositories.NewGormLixeiraRepository[models.ParteCalcado](db, repositories.HooksParteCalcado()), audit)
	operadores := NewCatalogoService[models.NomeOperador]("OPERADORES", auth.CapQualidade, operadoresRepo,
		repositories.NewGormLixeiraRepository[models.NomeOperador](db, repositories.LixeiraHooks{}), audit)
	inventario := NewInventarioService(cfg, inventarioRepo, modeloRepo, lixInventarios, audit)
	fichas := NewFichaService(cfg, fichaRepo, inventarioRepo, partesRepo, operadoresRepo, lixFichas, inventario, audit)

	return &cenario{
		cfg:     cfg,
		db:      db,
		audit:   audit,
		partes:  partes,
		fichas:  fichas,
		lixeira: NewLixeiraService(lixFichas, lixInventarios, audit),
		imports: NewImportService(cfg, audit, repositories.NewGormImportMetadataRepository(db), partes, operadores),

		coresCalcado: NewCatalogoService[models.CorCalcado]("CORES_CALCADO", auth.CapQualidade, coresCalcadoRepo,
			repositories.NewGormLixeiraRepository[models.CorCalcado](db, repositories.HooksCorCalcado()), audit),
		modelosCompras: NewCatalogoService[models.Modelo]("MODELOS_COMPRAS", auth.CapLoja, modelosComprasRepo,
			repositories.NewGormLixeiraRepository[models.Modelo](db, repositories.HooksComprasProtegido("modelo_id")), audit),
		coresCompras: NewCatalogoService[models.Cor]("CORES_COMPRAS", auth.CapLoja, coresComprasRepo,
			repositories.NewGormLixeiraRepository[models.Cor](db, repositories.HooksComprasProtegido("cor_id")), audit),
		modelos:     NewModeloService(modeloRepo, modelosCalcadoRepo, coresCalcadoRepo, audit),
		inventario:  inventario,
		relatorios:  NewRelatorioService(fichas, inventario, fichaRepo, inventarioRepo, audit),
		requisicoes: NewRequisicaoService(repositories.NewGormRequisicaoRepository(db), modelosComprasRepo, coresComprasRepo, audit),
	}
}

// sessao carrega um usuário semeado com grupos e perfil.
func (c *cenario) sessao(t *testing.T, username string) *auth.SessionData {
	t.Helper()
	u, err := repositories.NewGormUserRepository(c.db).GetByUsername(username)
	require.NoError(t, err)
	return auth.NewSessionData(u, "sid", "127.0.0.1", "teste")
}

// novoUsuario cria um usuário além dos semeados e devolve a sessão dele.
func (c *cenario) novoUsuario(t *testing.T, username, grupo, tipo string) *auth.SessionData {
	t.Helper()
	var g models.DBGroup
	require.NoError(t, c.db.Where("name = ?", grupo).First(&g).Error)
	u := models.DBUser{
		Username:     username,
		PasswordHash: "x",
		Active:       true,
		Groups:       []*models.DBGroup{&g},
		Perfil:       &models.PerfilUsuario{Tipo: tipo},
	}
	require.NoError(t, c.db.Create(&u).Error)
	return c.sessao(t, username)
}

func TestDecodificar(t *testing.T) {
	out, enc, err := decodificar([]byte("\xEF\xBB\xBFCouro Alemão"))
	require.NoError(t, err)
	assert.Equal(t, "UTF-8", enc)
	assert.Equal(t, "Couro Alemão", string(out))

	out, enc, err = decodificar([]byte("Couro Alem\xe3o"))
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", enc)
	assert.Equal(t, "Couro Alemão", string(out))
}

func TestLerNomes(t *testing.T) {
	nomes, err := lerNomes([]byte("Nome;Obs\nCabedal;x\n\n  Palmilha ;y\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cabedal", "Palmilha"}, nomes)

	nomes, err = lerNomes([]byte("Solado,1\nNome,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Solado", "Nome"}, nomes, "cabeçalho só é ignorado na primeira linha")
}

func TestImportarCatalogoLatin1(t *testing.T) {
	c := novoCenario(t)
	qualidade := c.sessao(t, "Qualidade01")

	arquivo := []byte("nome\nCouro Alem\xe3o\npalmilha\nPALMILHA\n")
	res, err := c.imports.ImportarCatalogo("partes", "partes.csv", bytes.NewReader(arquivo), qualidade)
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", res.Encoding)
	assert.Equal(t, 2, res.Criados)
	assert.Equal(t, 1, res.Ignorados)

	lista, err := c.partes.Listar(true, qualidade)
	require.NoError(t, err)
	nomes := []string{}
	for _, p := range lista {
		nomes = append(nomes, p.Nome)
	}
	assert.ElementsMatch(t, []string{"Couro Alemão", "palmilha"}, nomes)

	// reimportar não duplica
	res, err = c.imports.ImportarCatalogo("PARTES", "partes.csv", bytes.NewReader(arquivo), qualidade)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Criados)
	assert.Equal(t, 3, res.Ignorados)

	status, err := c.imports.GetImportStatus("PARTES", qualidade)
	require.NoError(t, err)
	require.NotNil(t, status)

	_, err = c.imports.ImportarCatalogo("PARTES", "partes.xlsx", bytes.NewReader(arquivo), qualidade)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = c.imports.ImportarCatalogo("PARTES", "partes.csv", bytes.NewReader(arquivo), c.sessao(t, "Operador01"))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestLixeiraDeFichas(t *testing.T) {
	c := novoCenario(t)
	operador := c.sessao(t, "Operador01")
	qualidade := c.sessao(t, "Qualidade01")

	criada, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Turno B", Data: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}, operador)
	require.NoError(t, err)
	assert.Equal(t, models.TipoFicha, criada.Tipo)

	_, err = c.fichas.MoverParaLixeira(criada.ID, operador)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	_, err = c.fichas.MoverParaLixeira(criada.ID, qualidade)
	require.NoError(t, err)

	_, err = c.lixeira.ListFichasExcluidas(operador)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	lista, err := c.lixeira.ListFichasExcluidas(qualidade)
	require.NoError(t, err)
	require.Len(t, lista, 1)
	assert.Equal(t, criada.ID, lista[0].ID)
	assert.Equal(t, models.TipoFicha, lista[0].Tipo)

	restaurada, err := c.lixeira.Restaurar("Ficha", criada.ID, qualidade)
	require.NoError(t, err)
	assert.Nil(t, restaurada.ExcluidoEm)

	// ficha fora da lixeira não é "encontrada" pela lixeira
	_, err = c.lixeira.ExcluirPermanente("Ficha", criada.ID, qualidade)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = c.lixeira.Restaurar(models.TipoInventario, criada.ID+100, qualidade)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestInjetoraCriaFichaDeInventario(t *testing.T) {
	c := novoCenario(t)
	criada, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Contagem", Data: time.Now().UTC()}, c.sessao(t, "Injetora01"))
	require.NoError(t, err)
	assert.Equal(t, models.TipoInventario, criada.Tipo)

	_, err = c.fichas.Criar(models.FichaCreate{NomeFicha: "Contagem", Data: time.Now().UTC()}, c.sessao(t, "Loja01"))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestCatalogoLixeiraExigePapel(t *testing.T) {
	c := novoCenario(t)
	qualidade := c.sessao(t, "Qualidade01")
	semPapel := []*auth.SessionData{c.sessao(t, "Operador01"), c.sessao(t, "Loja01")}
	repo := repositories.NewGormCatalogoRepository[models.ParteCalcado](c.db)

	parte, err := c.partes.Criar(models.CatalogoCreate{Nome: "Forro"}, qualidade)
	require.NoError(t, err)

	for _, sess := range semPapel {
		_, err := c.partes.MoverParaLixeira(parte.ID, sess)
		assert.ErrorIs(t, err, appErrors.ErrPermissionDenied, sess.Username)
		_, err = c.partes.ExcluirPermanente(parte.ID, sess)
		assert.ErrorIs(t, err, appErrors.ErrPermissionDenied, sess.Username)
	}
	intacta, err := repo.GetByID(parte.ID)
	require.NoError(t, err)
	assert.False(t, intacta.Excluido)
	assert.True(t, intacta.Ativo)
	assert.Nil(t, intacta.ExcluidoEm)

	_, err = c.partes.MoverParaLixeira(parte.ID, qualidade)
	require.NoError(t, err)
	for _, sess := range semPapel {
		_, err := c.partes.ExcluirPermanente(parte.ID, sess)
		assert.ErrorIs(t, err, appErrors.ErrPermissionDenied, sess.Username)
		_, err = c.partes.Restaurar(parte.ID, sess)
		assert.ErrorIs(t, err, appErrors.ErrPermissionDenied, sess.Username)
	}
	naLixeira, err := repo.GetByID(parte.ID)
	require.NoError(t, err, "exclusão negada não apaga a linha")
	assert.True(t, naLixeira.Excluido)
	require.NotNil(t, naLixeira.ExcluidoEm)

	// cadastro de compras: o papel exigido é o da loja
	cor, err := c.coresCompras.Criar(models.CatalogoCreate{Nome: "Verde"}, c.sessao(t, "Loja01"))
	require.NoError(t, err)
	_, err = c.coresCompras.MoverParaLixeira(cor.ID, c.sessao(t, "Operador01"))
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	_, err = c.coresCompras.MoverParaLixeira(cor.ID, c.sessao(t, "Loja01"))
	require.NoError(t, err)
}

func TestAdicionarQuantidadeEmParteIndisponivel(t *testing.T) {
	c := novoCenario(t)
	operador := c.sessao(t, "Operador01")
	qualidade := c.sessao(t, "Qualidade01")

	ficha, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Turno A", Data: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)}, operador)
	require.NoError(t, err)
	parte, err := c.partes.Criar(models.CatalogoCreate{Nome: "Biqueira"}, qualidade)
	require.NoError(t, err)

	lanc, err := c.fichas.AdicionarQuantidade(ficha.ID, parte.ID, 5, operador)
	require.NoError(t, err)
	assert.Equal(t, 5, lanc.Total)

	_, err = c.partes.AlternarAtivo(parte.ID, qualidade)
	require.NoError(t, err)
	_, err = c.fichas.AdicionarQuantidade(ficha.ID, parte.ID, 2, operador)
	assert.ErrorIs(t, err, appErrors.ErrNotFound, "parte inativa")

	_, err = c.partes.AlternarAtivo(parte.ID, qualidade)
	require.NoError(t, err)
	_, err = c.partes.MoverParaLixeira(parte.ID, qualidade)
	require.NoError(t, err)
	_, err = c.fichas.AdicionarQuantidade(ficha.ID, parte.ID, 2, operador)
	assert.ErrorIs(t, err, appErrors.ErrNotFound, "parte na lixeira")

	vis, err := c.fichas.Visualizar(ficha.ID, operador)
	require.NoError(t, err)
	require.Len(t, vis.Registros, 1)
	assert.Equal(t, models.Quantidades{5}, vis.Registros[0].Quantidades)
}

func TestLixeiraOrdenaTiposPorExclusao(t *testing.T) {
	c := novoCenario(t)
	qualidade := c.sessao(t, "Qualidade01")
	dia := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	antiga, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Corte 1", Data: dia}, c.sessao(t, "Operador01"))
	require.NoError(t, err)
	recente, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Contagem", Data: dia}, c.sessao(t, "Injetora01"))
	require.NoError(t, err)
	meio, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Corte 2", Data: dia}, c.sessao(t, "Operador01"))
	require.NoError(t, err)
	require.Equal(t, models.TipoInventario, recente.Tipo)

	_, err = c.fichas.MoverParaLixeira(antiga.ID, qualidade)
	require.NoError(t, err)
	_, err = c.inventario.MoverParaLixeira(recente.ID, qualidade)
	require.NoError(t, err)
	_, err = c.fichas.MoverParaLixeira(meio.ID, qualidade)
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, c.db.Model(&models.Ficha{}).Where("id = ?", antiga.ID).Update("excluido_em", base.Add(time.Hour)).Error)
	require.NoError(t, c.db.Model(&models.FichaInventario{}).Where("id = ?", recente.ID).Update("excluido_em", base.Add(3*time.Hour)).Error)
	require.NoError(t, c.db.Model(&models.Ficha{}).Where("id = ?", meio.ID).Update("excluido_em", base.Add(2*time.Hour)).Error)

	lista, err := c.lixeira.ListFichasExcluidas(qualidade)
	require.NoError(t, err)
	require.Len(t, lista, 3)
	assert.Equal(t, []string{models.TipoInventario, models.TipoFicha, models.TipoFicha},
		[]string{lista[0].Tipo, lista[1].Tipo, lista[2].Tipo})
	assert.Equal(t, []string{"Contagem", "Corte 2", "Corte 1"},
		[]string{lista[0].NomeFicha, lista[1].NomeFicha, lista[2].NomeFicha})

	restaurada, err := c.lixeira.Restaurar(models.TipoInventario, recente.ID, qualidade)
	require.NoError(t, err)
	assert.Equal(t, "Contagem", restaurada.NomeFicha)
	lista, err = c.lixeira.ListFichasExcluidas(qualidade)
	require.NoError(t, err)
	assert.Len(t, lista, 2)
}

func TestRelatorioPeriodo(t *testing.T) {
	c := novoCenario(t)
	operador := c.sessao(t, "Operador01")
	qualidade := c.sessao(t, "Qualidade01")

	ficha, err := c.fichas.Criar(models.FichaCreate{NomeFicha: "Turno C", Data: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)}, operador)
	require.NoError(t, err)
	parte, err := c.partes.Criar(models.CatalogoCreate{Nome: "Gáspea"}, qualidade)
	require.NoError(t, err)
	for _, v := range []int{5, 3} {
		_, err = c.fichas.AdicionarQuantidade(ficha.ID, parte.ID, v, operador)
		require.NoError(t, err)
	}

	filtro := FiltroPeriodo{Inicio: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Fim: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)}
	var buf bytes.Buffer
	_, err = c.relatorios.RelatorioPeriodo(filtro, &buf, operador)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	_, err = c.relatorios.RelatorioPeriodo(FiltroPeriodo{Inicio: filtro.Fim, Fim: filtro.Inicio}, &buf, qualidade)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	require.Zero(t, buf.Len())

	nome, err := c.relatorios.RelatorioPeriodo(filtro, &buf, qualidade)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(nome, "relatorio_periodo"), nome)

	planilha, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer planilha.Close()
	assert.Equal(t, []string{"Fichas", "Resumo"}, planilha.GetSheetList())
	for celula, esperado := range map[string]string{"B2": "Turno C", "F2": "8"} {
		v, err := planilha.GetCellValue("Fichas", celula)
		require.NoError(t, err)
		assert.Equal(t, esperado, v, celula)
	}
	media, err := planilha.GetCellValue("Resumo", "F2")
	require.NoError(t, err)
	assert.Equal(t, "8.00", media)

	buf.Reset()
	_, err = c.relatorios.RelatorioFicha(ficha.ID, &buf, operador)
	require.NoError(t, err)
	planilha, err = excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer planilha.Close()
	lancamentos, err := planilha.GetCellValue("Partes", "B2")
	require.NoError(t, err)
	assert.Equal(t, "5 + 3", lancamentos)
}
