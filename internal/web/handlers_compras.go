package web

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

const destinoCadastrosCompras = "/requisicoes/cadastros"

func (s *Server) requisicoes(c *gin.Context) {
	lista, err := s.svc.Requisicoes.Listar(sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"requisicoes": lista})
}

func (s *Server) novaRequisicao(c *gin.Context) {
	req, err := s.svc.Requisicoes.Criar(models.RequisicaoCreate{Observacao: c.PostForm("observacao")}, sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, "/requisicoes")
		return
	}
	s.redirecionar(c, fmt.Sprintf("/requisicoes/%d/editar", req.ID), "Requisição criada com sucesso!")
}

func (s *Server) editarRequisicao(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	edicao, err := s.svc.Requisicoes.Obter(id, sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"edicao": edicao})
}

func lerItemRequisicao(c *gin.Context) (models.ItemRequisicaoCreate, error) {
	in := models.ItemRequisicaoCreate{Observacao: c.PostForm("observacao_item")}
	var err error
	if in.ModeloID, err = utils.ParseID("modelo_id", c.PostForm("modelo_id")); err != nil {
		return in, err
	}
	if in.CorID, err = utils.ParseID("cor_id", c.PostForm("cor_id")); err != nil {
		return in, err
	}
	if in.Tamanho, err = utils.ParsePositiveInt("tamanho", c.PostForm("tamanho")); err != nil {
		return in, err
	}
	if in.Quantidade, err = utils.ParsePositiveInt("quantidade", c.PostForm("quantidade")); err != nil {
		return in, err
	}
	return in, nil
}

// editarRequisicaoAcao trata acao=adicionar_item|remover_item|editar_observacao.
func (s *Server) editarRequisicaoAcao(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		s.flashErro(c, err, "/requisicoes")
		return
	}
	destino := fmt.Sprintf("/requisicoes/%d/editar", id)
	sessao := sessaoDe(c)

	var msg string
	switch c.PostForm("acao") {
	case "adicionar_item":
		var in models.ItemRequisicaoCreate
		if in, err = lerItemRequisicao(c); err == nil {
			_, err = s.svc.Requisicoes.AdicionarItem(id, in, sessao)
		}
		msg = "Item adicionado!"
	case "remover_item":
		var itemID uint64
		if itemID, err = utils.ParseID("item_id", c.PostForm("item_id")); err == nil {
			err = s.svc.Requisicoes.RemoverItem(id, itemID, sessao)
		}
		msg = "Item removido!"
	case "editar_observacao":
		err = s.svc.Requisicoes.EditarObservacao(id, models.RequisicaoCreate{Observacao: c.PostForm("observacao")}, sessao)
		msg = "Observação atualizada!"
	default:
		err = appErrors.NewValidationError("Ação inválida.", map[string]string{"acao": "inválida"})
	}
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	s.redirecionar(c, destino, msg)
}

// --- Cadastros de compras (modelos e cores da loja) ---

func (s *Server) cadastroCompras(tipo string) (cadastro, error) {
	switch strings.ToLower(tipo) {
	case "modelo":
		return novoCadastro(s.svc.ComprasModelos), nil
	case "cor":
		return novoCadastro(s.svc.ComprasCores), nil
	}
	return nil, fmt.Errorf("%w: Tipo de cadastro inválido.", appErrors.ErrNotFound)
}

func (s *Server) cadastrosCompras(c *gin.Context) {
	sessao := sessaoDe(c)
	modelos, err := s.svc.ComprasModelos.Listar(true, sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	cores, err := s.svc.ComprasCores.Listar(true, sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"modelos": modelos, "cores": cores})
}

func (s *Server) novoCadastroCompras(c *gin.Context) {
	cad, err := s.cadastroCompras(c.Param("tipo"))
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	nome, err := cad.criar(c.PostForm("nome"), sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	s.redirecionar(c, destinoCadastrosCompras, fmt.Sprintf("\"%s\" cadastrado com sucesso!", nome))
}

// editarCadastroCompras salva nome e situação; acao=excluir manda para a lixeira.
func (s *Server) editarCadastroCompras(c *gin.Context) {
	cad, err := s.cadastroCompras(c.Param("tipo"))
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	id, err := idParam(c, "id")
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	sessao := sessaoDe(c)
	if c.PostForm("acao") == "excluir" {
		nome, err := cad.paraLixeira(id, sessao)
		if err != nil {
			s.flashErro(c, err, destinoCadastrosCompras)
			return
		}
		s.redirecionar(c, destinoCadastrosCompras, fmt.Sprintf("\"%s\" movido para a lixeira.", nome))
		return
	}
	nome := c.PostForm("nome")
	ativo := c.PostForm("ativo") == "on" || c.PostForm("ativo") == "1"
	n, err := cad.atualizar(id, models.CatalogoUpdate{Nome: &nome, Ativo: &ativo}, sessao)
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	s.redirecionar(c, destinoCadastrosCompras, fmt.Sprintf("\"%s\" atualizado com sucesso!", n))
}

func (s *Server) lixeiraCompras(c *gin.Context) {
	sessao := sessaoDe(c)
	modelos, err := s.svc.ComprasModelos.ListarLixeira(sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	cores, err := s.svc.ComprasCores.ListarLixeira(sessao)
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"modelos": modelos, "cores": cores})
}

func (s *Server) lixeiraComprasAcao(c *gin.Context) {
	const destino = destinoCadastrosCompras + "/lixeira"
	cad, err := s.cadastroCompras(c.PostForm("tipo"))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	id, err := utils.ParseID("item_id", c.PostForm("item_id"))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	acao := c.PostForm("acao")
	nome, err := acaoLixeira(cad, acao, id, sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	s.redirecionar(c, destino, mensagemLixeira(acao, nome))
}

func (s *Server) importarCadastroCompras(c *gin.Context) {
	cad, err := s.cadastroCompras(c.Param("tipo"))
	if err != nil {
		s.flashErro(c, err, destinoCadastrosCompras)
		return
	}
	s.importar(c, cad, destinoCadastrosCompras)
}
