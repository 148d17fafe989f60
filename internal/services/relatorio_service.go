package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/repositories"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// FiltroPeriodo delimita o relatório consolidado. Setor vazio não filtra.
type FiltroPeriodo struct {
	Inicio time.Time
	Fim    time.Time
	Setor  string
}

// RelatorioService gera as planilhas XLSX das fichas.
// Cada método grava a planilha em w e devolve o nome sugerido do arquivo.
type RelatorioService interface {
	RelatorioFicha(fichaID uint64, w io.Writer, userSession *auth.SessionData) (string, error)
	RelatorioInventario(fichaID uint64, filtro models.FiltroItens, w io.Writer, userSession *auth.SessionData) (string, error)
	RelatorioPeriodo(filtro FiltroPeriodo, w io.Writer, userSession *auth.SessionData) (string, error)
}

type relatorioServiceImpl struct {
	fichas          FichaService
	inventario      InventarioService
	fichaRepo       repositories.FichaRepository
	inventarioRepo  repositories.InventarioRepository
	auditLogService AuditLogService
}

// NewRelatorioService cria uma nova instância de RelatorioService.
func NewRelatorioService(
	fichas FichaService,
	inventario InventarioService,
	fichaRepo repositories.FichaRepository,
	inventarioRepo repositories.InventarioRepository,
	auditLog AuditLogService,
) RelatorioService {
	if fichas == nil || inventario == nil || fichaRepo == nil || inventarioRepo == nil || auditLog == nil {
		appLogger.Fatalf("Dependências nulas fornecidas para NewRelatorioService")
	}
	return &relatorioServiceImpl{
		fichas:          fichas,
		inventario:      inventario,
		fichaRepo:       fichaRepo,
		inventarioRepo:  inventarioRepo,
		auditLogService: auditLog,
	}
}

func formatarLancamentos(qs models.Quantidades) string {
	partes := make([]string, len(qs))
	for i, v := range qs {
		partes[i] = fmt.Sprint(v)
	}
	return strings.Join(partes, " + ")
}

func nomeOperador(u *models.DBUser) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func (s *relatorioServiceImpl) RelatorioFicha(fichaID uint64, w io.Writer, userSession *auth.SessionData) (string, error) {
	vis, err := s.fichas.Visualizar(fichaID, userSession)
	if err != nil {
		return "", err
	}
	f := vis.Ficha

	linhas := make([][]interface{}, 0, len(vis.Registros)+1)
	for _, r := range vis.Registros {
		nome := fmt.Sprintf("Parte %d", r.ParteID)
		if r.Parte != nil {
			nome = r.Parte.Nome
		}
		linhas = append(linhas, []interface{}{nome, formatarLancamentos(r.Quantidades), r.Quantidades.Total()})
	}
	linhas = append(linhas, []interface{}{"TOTAL GERAL", "", vis.TotalGeral})

	setor := ""
	if f.Setor != nil {
		setor = *f.Setor
	}
	cabecalho := [][]interface{}{{f.NomeFicha, f.Data.Format("02/01/2006"), setor, nomeOperador(f.Operador)}}

	partes, err := utils.NewSliceDataInput("Partes", []string{"Parte", "Lançamentos", "Total"}, linhas)
	if err != nil {
		return "", err
	}
	resumo, err := utils.NewSliceDataInput("Ficha", []string{"Ficha", "Data", "Setor", "Operador"}, cabecalho)
	if err != nil {
		return "", err
	}
	if err := utils.WriteXLSX(w, []utils.DataInput{partes, resumo}); err != nil {
		return "", err
	}
	registrar(s.auditLogService, userSession, "RELATORIO_FICHA",
		fmt.Sprintf("Relatório da ficha '%s' gerado.", f.NomeFicha), models.JSONMetadata{"ficha_id": f.ID})
	return utils.NomeArquivo("ficha_" + f.NomeFicha), nil
}

func (s *relatorioServiceImpl) RelatorioInventario(fichaID uint64, filtro models.FiltroItens, w io.Writer, userSession *auth.SessionData) (string, error) {
	ficha, err := s.inventario.Obter(fichaID, userSession)
	if err != nil {
		return "", err
	}
	itens, err := s.inventarioRepo.ListarItens(ficha.ID, filtro, 0, 0)
	if err != nil {
		return "", err
	}
	stats, err := s.inventarioRepo.Estatisticas(ficha.ID, filtro)
	if err != nil {
		return "", err
	}

	linhas := make([][]interface{}, 0, len(itens))
	for _, it := range itens {
		var modelo, cor, numero string
		if it.Modelo != nil {
			modelo = it.Modelo.Nome
		}
		if it.Cor != nil {
			cor = it.Cor.Nome
		}
		if it.Tamanho != nil {
			numero = it.Tamanho.Numero
		}
		linhas = append(linhas, []interface{}{modelo, cor, numero, it.QuantidadePeEsquerdo, it.QuantidadePeDireito, it.Pares()})
	}
	aba, err := utils.NewSliceDataInput("Itens", []string{"Modelo", "Cor", "Número", "Pé Esquerdo", "Pé Direito", "Pares"}, linhas)
	if err != nil {
		return "", err
	}
	totais, err := utils.NewSliceDataInput("Totais", []string{"Ficha", "Setor", "Itens", "Pares", "Modelos diferentes"},
		[][]interface{}{{ficha.NomeFicha, ficha.Setor, stats.TotalItens, stats.TotalPares, stats.ModelosDiferentes}})
	if err != nil {
		return "", err
	}
	if err := utils.WriteXLSX(w, []utils.DataInput{aba, totais}); err != nil {
		return "", err
	}
	registrar(s.auditLogService, userSession, "RELATORIO_INVENTARIO",
		fmt.Sprintf("Relatório da ficha de inventário '%s' gerado (%d itens).", ficha.NomeFicha, len(itens)),
		models.JSONMetadata{"ficha_id": ficha.ID})
	return utils.NomeArquivo("inventario_" + ficha.NomeFicha), nil
}

// RelatorioPeriodo consolida as fichas de produção do intervalo, com a média
// de peças por ficha calculada em decimal.
func (s *relatorioServiceImpl) RelatorioPeriodo(filtro FiltroPeriodo, w io.Writer, userSession *auth.SessionData) (string, error) {
	if err := exigirPapel(userSession, auth.CapQualidade, "Apenas usuários da qualidade podem gerar relatórios"); err != nil {
		return "", err
	}
	if filtro.Inicio.IsZero() || filtro.Fim.IsZero() {
		return "", appErrors.NewValidationError("Informe a data inicial e a final.", map[string]string{"periodo": "obrigatório"})
	}
	if filtro.Fim.Before(filtro.Inicio) {
		return "", appErrors.NewValidationError("A data final deve ser igual ou posterior à inicial.", map[string]string{"fim": "antes do início"})
	}

	ff := repositories.FiltroFichas{Inicio: &filtro.Inicio, Fim: &filtro.Fim}
	if setor := strings.TrimSpace(filtro.Setor); setor != "" {
		ff.Setor = &setor
	}
	fichas, _, err := s.fichaRepo.Listar(ff)
	if err != nil {
		return "", err
	}

	linhas := make([][]interface{}, 0, len(fichas))
	totalPecas := 0
	for _, f := range fichas {
		setor := ""
		if f.Setor != nil {
			setor = *f.Setor
		}
		total := f.TotalGeral()
		totalPecas += total
		linhas = append(linhas, []interface{}{f.Data.Format("02/01/2006"), f.NomeFicha, setor, nomeOperador(f.Operador), len(f.Registros), total})
	}

	media := decimal.Zero
	if len(fichas) > 0 {
		media = decimal.NewFromInt(int64(totalPecas)).Div(decimal.NewFromInt(int64(len(fichas)))).Round(2)
	}

	aba, err := utils.NewSliceDataInput("Fichas", []string{"Data", "Ficha", "Setor", "Operador", "Partes", "Total"}, linhas)
	if err != nil {
		return "", err
	}
	resumo, err := utils.NewSliceDataInput("Resumo", []string{"Início", "Fim", "Setor", "Fichas", "Total de peças", "Média por ficha"},
		[][]interface{}{{
			filtro.Inicio.Format("02/01/2006"), filtro.Fim.Format("02/01/2006"), filtro.Setor,
			len(fichas), totalPecas, media.StringFixed(2),
		}})
	if err != nil {
		return "", err
	}
	if err := utils.WriteXLSX(w, []utils.DataInput{aba, resumo}); err != nil {
		return "", err
	}
	registrar(s.auditLogService, userSession, "RELATORIO_PERIODO",
		fmt.Sprintf("Relatório de %s a %s gerado (%d fichas).", filtro.Inicio.Format("02/01/2006"), filtro.Fim.Format("02/01/2006"), len(fichas)),
		models.JSONMetadata{"fichas": len(fichas), "total": totalPecas, "media": media.String()})
	return utils.NomeArquivo("relatorio_periodo"), nil
}
