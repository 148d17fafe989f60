package web

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

type itemPtr[T any] interface {
	*T
	models.ItemCatalogo
}

// cadastro expõe um CatalogoService genérico para handlers que escolhem o
// cadastro em tempo de execução (ex: /requisicoes/cadastros/:tipo).
type cadastro interface {
	services.Importador

	listar(incluirInativos bool, s *auth.SessionData) (any, error)
	listarLixeira(s *auth.SessionData) (any, error)
	criar(nome string, s *auth.SessionData) (string, error)
	atualizar(id uint64, in models.CatalogoUpdate, s *auth.SessionData) (string, error)
	alternar(id uint64, s *auth.SessionData) (string, bool, error)
	paraLixeira(id uint64, s *auth.SessionData) (string, error)
	restaurar(id uint64, s *auth.SessionData) (string, error)
	excluirPermanente(id uint64, s *auth.SessionData) (string, error)
}

type cadastroGenerico[T any, PT itemPtr[T]] struct {
	services.CatalogoService[T]
}

func novoCadastro[T any, PT itemPtr[T]](svc services.CatalogoService[T]) cadastro {
	return cadastroGenerico[T, PT]{svc}
}

func nomeDe[T any, PT itemPtr[T]](item *T) string {
	return PT(item).Base().Nome
}

func (g cadastroGenerico[T, PT]) nome(item *T, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return nomeDe[T, PT](item), nil
}

func (g cadastroGenerico[T, PT]) listar(incluirInativos bool, s *auth.SessionData) (any, error) {
	return g.Listar(incluirInativos, s)
}

func (g cadastroGenerico[T, PT]) listarLixeira(s *auth.SessionData) (any, error) {
	return g.ListarLixeira(s)
}

func (g cadastroGenerico[T, PT]) criar(nome string, s *auth.SessionData) (string, error) {
	return g.nome(g.Criar(models.CatalogoCreate{Nome: nome}, s))
}

func (g cadastroGenerico[T, PT]) atualizar(id uint64, in models.CatalogoUpdate, s *auth.SessionData) (string, error) {
	return g.nome(g.Atualizar(id, in, s))
}

func (g cadastroGenerico[T, PT]) alternar(id uint64, s *auth.SessionData) (string, bool, error) {
	item, err := g.AlternarAtivo(id, s)
	if err != nil {
		return "", false, err
	}
	return nomeDe[T, PT](item), PT(item).Base().Ativo, nil
}

func (g cadastroGenerico[T, PT]) paraLixeira(id uint64, s *auth.SessionData) (string, error) {
	return g.nome(g.MoverParaLixeira(id, s))
}

func (g cadastroGenerico[T, PT]) restaurar(id uint64, s *auth.SessionData) (string, error) {
	return g.nome(g.Restaurar(id, s))
}

func (g cadastroGenerico[T, PT]) excluirPermanente(id uint64, s *auth.SessionData) (string, error) {
	return g.nome(g.ExcluirPermanente(id, s))
}

func acaoLixeira(cad cadastro, acao string, id uint64, s *auth.SessionData) (string, error) {
	switch acao {
	case "restaurar":
		return cad.restaurar(id, s)
	case "excluir_permanente":
		return cad.excluirPermanente(id, s)
	}
	return "", appErrors.NewValidationError("Ação inválida.", map[string]string{"acao": "inválida"})
}

func mensagemLixeira(acao, nome string) string {
	if acao == "restaurar" {
		return fmt.Sprintf("\"%s\" restaurado com sucesso!", nome)
	}
	return fmt.Sprintf("\"%s\" excluído permanentemente!", nome)
}

func mensagemAtivo(nome string, ativo bool) string {
	if ativo {
		return fmt.Sprintf("\"%s\" ativado.", nome)
	}
	return fmt.Sprintf("\"%s\" desativado.", nome)
}

// registrarCatalogo monta a tela de um cadastro simples, sua lixeira e,
// quando importavel, o upload de CSV.
func (s *Server) registrarCatalogo(g *gin.RouterGroup, caminho string, cad cadastro, importavel bool) {
	base := path.Join(g.BasePath(), caminho)
	g.GET(caminho, func(c *gin.Context) {
		sessao := sessaoDe(c)
		itens, err := cad.listar(c.Query("inativos") == "1", sessao)
		if err != nil {
			s.paginaErro(c, err)
			return
		}
		dados := gin.H{"itens": itens, "chave": cad.Chave()}
		if importavel {
			if status, err := s.svc.Importacao.GetImportStatus(cad.Chave(), sessao); err == nil {
				dados["ultima_importacao"] = status
			}
		}
		s.pagina(c, dados)
	})
	g.POST(caminho, func(c *gin.Context) {
		s.acaoCatalogo(c, cad, base)
	})
	g.GET(caminho+"/lixeira", func(c *gin.Context) {
		itens, err := cad.listarLixeira(sessaoDe(c))
		if err != nil {
			s.paginaErro(c, err)
			return
		}
		s.pagina(c, gin.H{"itens": itens, "chave": cad.Chave()})
	})
	g.POST(caminho+"/lixeira", func(c *gin.Context) {
		destino := base + "/lixeira"
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
	})
	if importavel {
		g.POST(caminho+"/importar", func(c *gin.Context) {
			s.importar(c, cad, base)
		})
	}
}

// acaoCatalogo trata os formulários da tela de cadastro (acao=criar|editar|alternar|excluir).
func (s *Server) acaoCatalogo(c *gin.Context, cad cadastro, caminho string) {
	destino := voltar(c, caminho)
	sessao := sessaoDe(c)
	acao := c.PostForm("acao")
	if acao == "criar" {
		nome, err := cad.criar(c.PostForm("nome"), sessao)
		if err != nil {
			s.falhar(c, err, destino)
			return
		}
		s.responderCatalogo(c, destino, fmt.Sprintf("\"%s\" cadastrado com sucesso!", nome))
		return
	}

	id, err := utils.ParseID("item_id", c.PostForm("item_id"))
	if err != nil {
		s.falhar(c, err, destino)
		return
	}
	var msg string
	switch acao {
	case "editar":
		nome := c.PostForm("nome")
		var n string
		if n, err = cad.atualizar(id, models.CatalogoUpdate{Nome: &nome}, sessao); err == nil {
			msg = fmt.Sprintf("\"%s\" atualizado com sucesso!", n)
		}
	case "alternar":
		var n string
		var ativo bool
		if n, ativo, err = cad.alternar(id, sessao); err == nil {
			msg = mensagemAtivo(n, ativo)
		}
	case "excluir":
		var n string
		if n, err = cad.paraLixeira(id, sessao); err == nil {
			msg = fmt.Sprintf("\"%s\" movido para a lixeira.", n)
		}
	default:
		err = appErrors.NewValidationError("Ação inválida.", map[string]string{"acao": "inválida"})
	}
	if err != nil {
		s.falhar(c, err, destino)
		return
	}
	s.responderCatalogo(c, destino, msg)
}

func (s *Server) responderCatalogo(c *gin.Context, destino, msg string) {
	if querJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
		return
	}
	s.redirecionar(c, destino, msg)
}

// importar recebe o CSV do campo "arquivo" e repassa ao serviço de importação.
func (s *Server) importar(c *gin.Context, imp services.Importador, destino string) {
	arquivo, err := c.FormFile("arquivo")
	if err != nil {
		s.flashErro(c, appErrors.NewValidationError("Selecione um arquivo para importar.", map[string]string{"arquivo": "obrigatório"}), destino)
		return
	}
	f, err := arquivo.Open()
	if err != nil {
		s.flashErro(c, fmt.Errorf("%w: %v", appErrors.ErrDataImport, err), destino)
		return
	}
	defer f.Close()

	res, err := s.svc.Importacao.ImportarCatalogo(imp.Chave(), arquivo.Filename, f, sessaoDe(c))
	if err != nil {
		s.flashErro(c, err, destino)
		return
	}
	s.redirecionar(c, destino, fmt.Sprintf("Importação concluída: %d criado(s), %d ignorado(s).", res.Criados, res.Ignorados))
}
