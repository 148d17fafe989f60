package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/navigation"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) loginPage(c *gin.Context) {
	if sessao := sessaoDe(c); sessao != nil {
		c.Redirect(http.StatusFound, navigation.Caminho(navigation.Inicial(sessao)))
		return
	}
	s.pagina(c, gin.H{"next": c.Query("next")})
}

func (s *Server) login(c *gin.Context) {
	res, err := s.svc.Authenticator.AuthenticateUser(c.PostForm("username"), c.PostForm("password"), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		s.flashErro(c, err, "/login")
		return
	}
	if !res.Success {
		s.flashErro(c, fmt.Errorf("%w: %s", appErrors.ErrInvalidCredentials, res.Message), "/login")
		return
	}
	if _, err := s.svc.Sessoes.Start(c.Writer, c.Request, res.User.ID); err != nil {
		s.flashErro(c, err, "/login")
		return
	}
	destino := c.PostForm("next")
	if !strings.HasPrefix(destino, "/") || strings.HasPrefix(destino, "//") {
		destino = "/"
	}
	c.Redirect(http.StatusFound, destino)
}

func (s *Server) logout(c *gin.Context) {
	_ = s.svc.Sessoes.Destroy(c.Writer, c.Request)
	c.Redirect(http.StatusFound, "/login")
}

// paginaQuery lê ?page=, tolerando valores inválidos como página 1.
func paginaQuery(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// idParam lê um identificador da rota.
func idParam(c *gin.Context, nome string) (uint64, error) {
	return utils.ParseID(nome, c.Param(nome))
}

func (s *Server) home(c *gin.Context) {
	sessao := sessaoDe(c)
	if inicial := navigation.Inicial(sessao); inicial != navigation.PageHome {
		c.Redirect(http.StatusFound, navigation.Caminho(inicial))
		return
	}
	var data *time.Time
	if raw := c.Query("data"); raw != "" {
		d, err := utils.ParseData("data", raw)
		if err != nil {
			s.paginaErro(c, err)
			return
		}
		data = &d
	}
	home, err := s.svc.Fichas.Home(data, paginaQuery(c), sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"home": home, "data_filtro": c.Query("data")})
}

func (s *Server) criarFichaPage(c *gin.Context) {
	nomes, err := s.svc.Fichas.NomesOperador(sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"nomes_operador": nomes, "data_hoje": time.Now().Format(utils.LayoutData)})
}

// lerFichaCreate lê nome e data; campos vazios ficam para o serviço recusar.
func lerFichaCreate(c *gin.Context) (models.FichaCreate, error) {
	in := models.FichaCreate{NomeFicha: c.PostForm("nome_ficha")}
	if raw := strings.TrimSpace(c.PostForm("data")); raw != "" {
		d, err := utils.ParseData("data", raw)
		if err != nil {
			return in, err
		}
		in.Data = d
	}
	return in, nil
}

func (s *Server) criarFicha(c *gin.Context) {
	in, err := lerFichaCreate(c)
	if err != nil {
		s.flashErro(c, err, "/fichas/criar")
		return
	}
	criada, err := s.svc.Fichas.Criar(in, sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, "/fichas/criar")
		return
	}
	if criada.Tipo == models.TipoInventario {
		s.redirecionar(c, fmt.Sprintf("/inventario/%d/editar", criada.ID), "Ficha de inventário criada com sucesso!")
		return
	}
	s.redirecionar(c, fmt.Sprintf("/fichas/%d/editar", criada.ID), "Ficha criada com sucesso!")
}

func (s *Server) editarFicha(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	edicao, err := s.svc.Fichas.ParaEdicao(id, sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"edicao": edicao})
}

func (s *Server) visualizarFicha(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	vis, err := s.svc.Fichas.Visualizar(id, sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"ficha": vis.Ficha, "registros": vis.Registros, "total_geral": vis.TotalGeral})
}

func (s *Server) excluirFicha(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	ficha, err := s.svc.Fichas.MoverParaLixeira(id, sessaoDe(c))
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	s.redirecionar(c, "/", fmt.Sprintf("Ficha \"%s\" movida para a lixeira.", ficha.NomeFicha))
}

// enviarPlanilha gera o XLSX em memória para poder responder erro antes do primeiro byte.
func enviarPlanilha(c *gin.Context, gerar func(w *bytes.Buffer) (string, error)) error {
	var buf bytes.Buffer
	nome, err := gerar(&buf)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nome))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	return nil
}

func (s *Server) relatorioFicha(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	err = enviarPlanilha(c, func(w *bytes.Buffer) (string, error) {
		return s.svc.Relatorios.RelatorioFicha(id, w, sessaoDe(c))
	})
	if err != nil {
		s.paginaErro(c, err)
	}
}

// --- Lixeira de fichas ---

func (s *Server) lixeiraFichas(c *gin.Context) {
	fichas, err := s.svc.Lixeira.ListFichasExcluidas(sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"fichas": fichas})
}

func rotuloTipo(tipo string) string {
	if tipo == models.TipoInventario {
		return "Ficha de inventário"
	}
	return "Ficha"
}

func (s *Server) lixeiraFichasAcao(c *gin.Context) {
	const destino = "/fichas/lixeira"
	id, err := utils.ParseID("ficha_id", c.PostForm("ficha_id"))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	tipo := c.PostForm("tipo")
	switch c.PostForm("acao") {
	case "restaurar":
		f, err := s.svc.Lixeira.Restaurar(tipo, id, sessaoDe(c))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		s.redirecionar(c, destino, fmt.Sprintf("%s \"%s\" restaurada com sucesso!", rotuloTipo(f.Tipo), f.NomeFicha))
	case "excluir_permanente":
		f, err := s.svc.Lixeira.ExcluirPermanente(tipo, id, sessaoDe(c))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		s.redirecionar(c, destino, fmt.Sprintf("%s \"%s\" excluída permanentemente!", rotuloTipo(f.Tipo), f.NomeFicha))
	default:
		s.flashErro(c, appErrors.NewValidationError("Ação inválida.", map[string]string{"acao": "inválida"}), destino)
	}
}

// --- API dos livros de lançamento ---

// inteiroJSON aceita número ou texto numérico, como os formulários enviam.
func inteiroJSON(corpo map[string]interface{}, chave string) (int, bool) {
	switch v := corpo[chave].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func lerCorpo(c *gin.Context) (map[string]interface{}, bool) {
	corpo := map[string]interface{}{}
	if err := c.ShouldBindJSON(&corpo); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "JSON inválido"})
		return nil, false
	}
	return corpo, true
}

func (s *Server) adicionarParte(c *gin.Context) {
	fichaID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	corpo, ok := lerCorpo(c)
	if !ok {
		return
	}
	parteID, ok := inteiroJSON(corpo, "parte_id")
	if !ok || parteID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ID da parte não fornecido"})
		return
	}
	reg, err := s.svc.Fichas.AdicionarParte(fichaID, uint64(parteID), sessaoDe(c))
	if err != nil {
		jsonErro(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "registro_id": reg.ID, "parte_id": reg.ParteID, "parte_nome": reg.Parte.Nome})
}

func (s *Server) removerParte(c *gin.Context) {
	fichaID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	parteID, err := idParam(c, "parte_id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	if err := s.svc.Fichas.RemoverParte(fichaID, parteID, sessaoDe(c)); err != nil {
		jsonErro(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func responderLancamentos(c *gin.Context, l *services.Lancamentos) {
	c.JSON(http.StatusOK, gin.H{"success": true, "quantidades": l.Quantidades, "total": l.Total})
}

func (s *Server) adicionarQuantidade(c *gin.Context) {
	fichaID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	parteID, err := idParam(c, "parte_id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	corpo, ok := lerCorpo(c)
	if !ok {
		return
	}
	valor, ok := inteiroJSON(corpo, "quantidade")
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Quantidade deve ser maior que zero"})
		return
	}
	l, err := s.svc.Fichas.AdicionarQuantidade(fichaID, parteID, valor, sessaoDe(c))
	if err != nil {
		jsonErro(c, err)
		return
	}
	responderLancamentos(c, l)
}

func (s *Server) removerQuantidade(c *gin.Context) {
	fichaID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	parteID, err := idParam(c, "parte_id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	l, err := s.svc.Fichas.RemoverUltimaQuantidade(fichaID, parteID, sessaoDe(c))
	if err != nil {
		jsonErro(c, err)
		return
	}
	responderLancamentos(c, l)
}
