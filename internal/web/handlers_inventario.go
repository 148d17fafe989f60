package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

func (s *Server) criarFichaInventario(c *gin.Context) {
	in, err := lerFichaCreate(c)
	if err != nil {
		s.flashErro(c, err, "/fichas/criar")
		return
	}
	ficha, err := s.svc.Inventario.CriarFicha(in, sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, "/fichas/criar")
		return
	}
	s.redirecionar(c, fmt.Sprintf("/inventario/%d/editar", ficha.ID), "Ficha de inventário criada com sucesso!")
}

// filtroItens lê ?modelo=&cor=&numero=; valores vazios ou inválidos são ignorados.
func filtroItens(c *gin.Context) models.FiltroItens {
	var f models.FiltroItens
	if id, err := utils.ParseID("modelo", c.Query("modelo")); err == nil {
		f.ModeloID = &id
	}
	if id, err := utils.ParseID("cor", c.Query("cor")); err == nil {
		f.CorID = &id
	}
	if n := strings.TrimSpace(c.Query("numero")); n != "" {
		f.Numero = &n
	}
	return f
}

func (s *Server) listagemInventario(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	listagem, err := s.svc.Inventario.ListarItens(id, filtroItens(c), paginaQuery(c), sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{
		"listagem": listagem,
		"filtro": gin.H{
			"modelo": c.Query("modelo"),
			"cor":    c.Query("cor"),
			"numero": c.Query("numero"),
		},
	})
}

func (s *Server) editarInventario(c *gin.Context)     { s.listagemInventario(c) }
func (s *Server) visualizarInventario(c *gin.Context) { s.listagemInventario(c) }

func (s *Server) adicionarItemInventario(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	destino := fmt.Sprintf("/inventario/%d/editar", id)
	in, err := lerItemInventario(c)
	if err != nil {
		s.falhar(c, err, destino)
		return
	}
	item, err := s.svc.Inventario.CriarItem(id, in, sessaoDe(c))
	if err != nil {
		s.falhar(c, err, destino)
		return
	}
	if querJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
		return
	}
	s.redirecionar(c, destino, "Item adicionado com sucesso!")
}

func lerItemInventario(c *gin.Context) (models.ItemInventarioCreate, error) {
	var in models.ItemInventarioCreate
	var err error
	if in.ModeloID, err = utils.ParseID("modelo", c.PostForm("modelo")); err != nil {
		return in, err
	}
	if in.CorID, err = utils.ParseID("cor", c.PostForm("cor")); err != nil {
		return in, err
	}
	if in.TamanhoID, err = utils.ParseID("tamanho", c.PostForm("tamanho")); err != nil {
		return in, err
	}
	if in.PeEsquerdo, err = quantidadeOpcional("pe_esquerdo", c.PostForm("pe_esquerdo")); err != nil {
		return in, err
	}
	if in.PeDireito, err = quantidadeOpcional("pe_direito", c.PostForm("pe_direito")); err != nil {
		return in, err
	}
	return in, nil
}

// quantidadeOpcional trata campo vazio como zero.
func quantidadeOpcional(campo, raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return utils.ParseNonNegativeInt(campo, raw)
}

func nomeDoLado(lado string) string {
	if lado == models.LadoEsquerdo {
		return "Pé Esquerdo"
	}
	return "Pé Direito"
}

func (s *Server) atualizarItemInventario(c *gin.Context) {
	itemID, err := idParam(c, "id")
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	ajuste := models.AjusteQuantidade{
		Acao: c.PostForm("acao"),
		Lado: strings.ToUpper(strings.TrimSpace(c.PostForm("lado"))),
	}
	destino := voltar(c, "/")
	if ajuste.Valor, err = utils.ParseInt("valor", c.PostForm("valor")); err != nil {
		s.falhar(c, err, destino)
		return
	}
	item, err := s.svc.Inventario.AjustarQuantidade(itemID, ajuste, sessaoDe(c))
	if err != nil {
		s.falhar(c, err, destino)
		return
	}
	if querJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"success":                true,
			"quantidade_pe_esquerdo": item.QuantidadePeEsquerdo,
			"quantidade_pe_direito":  item.QuantidadePeDireito,
			"pares":                  item.Pares(),
		})
		return
	}
	msg := fmt.Sprintf("%d unidade(s) adicionada(s) ao %s!", ajuste.Valor, nomeDoLado(ajuste.Lado))
	if ajuste.Acao == models.AcaoSubtrair {
		msg = fmt.Sprintf("%d unidade(s) removida(s) do %s!", ajuste.Valor, nomeDoLado(ajuste.Lado))
	}
	s.redirecionar(c, fmt.Sprintf("/inventario/%d/editar", item.FichaID), msg)
}

func (s *Server) removerItemInventario(c *gin.Context) {
	itemID, err := idParam(c, "id")
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	item, err := s.svc.Inventario.RemoverItem(itemID, sessaoDe(c))
	if err != nil {
		s.falhar(c, err, voltar(c, "/"))
		return
	}
	if querJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	s.redirecionar(c, fmt.Sprintf("/inventario/%d/editar", item.FichaID), "Item removido com sucesso!")
}

func (s *Server) excluirInventario(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	ficha, err := s.svc.Inventario.MoverParaLixeira(id, sessaoDe(c))
	if err != nil {
		s.falhar(c, err, "/")
		return
	}
	s.redirecionar(c, "/", fmt.Sprintf("Ficha de inventário \"%s\" movida para a lixeira.", ficha.NomeFicha))
}

func (s *Server) relatorioInventario(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	filtro := filtroItens(c)
	err = enviarPlanilha(c, func(w *bytes.Buffer) (string, error) {
		return s.svc.Relatorios.RelatorioInventario(id, filtro, w, sessaoDe(c))
	})
	if err != nil {
		s.paginaErro(c, err)
	}
}

// --- Modelos de calçado ---

func (s *Server) modelos(c *gin.Context) {
	sessao := sessaoDe(c)
	lista, err := s.svc.Modelos.ListarModelos(sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	cores, err := s.svc.CoresInventario.Listar(false, sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{
		"modelos":           lista,
		"cores":             cores,
		"tamanhos_infantis": utils.FaixaTamanhos(utils.TamanhoInfantilMin, utils.TamanhoInfantilMax),
		"tamanhos_adultos":  utils.FaixaTamanhos(utils.TamanhoAdultoMin, utils.TamanhoAdultoMax),
	})
}

func lerTamanhos(c *gin.Context) ([]int, error) {
	return utils.NumerosUnicos("tamanhos", c.PostFormArray("tamanhos"))
}

func (s *Server) modelosAcao(c *gin.Context) {
	const destino = "/modelos"
	sessao := sessaoDe(c)
	switch c.PostForm("acao") {
	case "criar_modelo":
		corIDs, err := utils.ParseIDList("cores", c.PostFormArray("cores"))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		tamanhos, err := lerTamanhos(c)
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		modelo, err := s.svc.Modelos.CriarModelo(models.ModeloCalcadoCreate{Nome: c.PostForm("nome"), CorIDs: corIDs, Tamanhos: tamanhos}, sessao)
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		s.redirecionar(c, destino, fmt.Sprintf("Modelo \"%s\" criado com sucesso!", modelo.Nome))
	case "adicionar_cores":
		modeloID, err := utils.ParseID("modelo_id", c.PostForm("modelo_id"))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		corIDs, err := utils.ParseIDList("cores", c.PostFormArray("cores"))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		res, err := s.svc.Modelos.AdicionarCores(modeloID, c.PostForm("nova_cor"), corIDs, sessao)
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		if len(res.JaVinculadas) > 0 {
			s.flash(c, auth.FlashInfo, "Já vinculadas: "+strings.Join(res.JaVinculadas, ", "))
		}
		s.redirecionar(c, destino, fmt.Sprintf("%d cor(es) adicionada(s).", len(res.Adicionadas)))
	case "adicionar_tamanhos":
		modeloID, err := utils.ParseID("modelo_id", c.PostForm("modelo_id"))
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		tamanhos, err := lerTamanhos(c)
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		res, err := s.svc.Modelos.AdicionarTamanhos(modeloID, tamanhos, sessao)
		if err != nil {
			s.flashErro(c, err, destino)
			return
		}
		if len(res.Existentes) > 0 {
			s.flash(c, auth.FlashInfo, "Numerações já existentes: "+strings.Join(res.Existentes, ", "))
		}
		s.redirecionar(c, destino, fmt.Sprintf("%d numeração(ões) adicionada(s).", res.Adicionados))
	default:
		s.flashErro(c, appErrors.NewValidationError("Ação inválida.", map[string]string{"acao": "inválida"}), destino)
	}
}

// --- Lixeira de modelos e cores do inventário ---

func (s *Server) lixeiraModelos(c *gin.Context) {
	sessao := sessaoDe(c)
	modelos, err := s.svc.ModelosInventario.ListarLixeira(sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	cores, err := s.svc.CoresInventario.ListarLixeira(sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"modelos": modelos, "cores": cores})
}

func (s *Server) lixeiraModelosAcao(c *gin.Context) {
	const destino = "/inventario/lixeira"
	id, err := utils.ParseID("item_id", c.PostForm("item_id"))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	sessao := sessaoDe(c)
	var nome string
	acao := c.PostForm("acao")
	switch c.PostForm("tipo") {
	case "cor":
		nome, err = acaoLixeira(novoCadastro(s.svc.CoresInventario), acao, id, sessao)
	default:
		nome, err = acaoLixeira(novoCadastro(s.svc.ModelosInventario), acao, id, sessao)
	}
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	s.redirecionar(c, destino, mensagemLixeira(acao, nome))
}
