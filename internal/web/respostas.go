package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/navigation"
)

// statusDoErro mapeia os erros de domínio para o status HTTP.
func statusDoErro(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrUnauthorized), errors.Is(err, appErrors.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, appErrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, appErrors.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, appErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrNegativeQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, appErrors.ErrDuplicateItem), errors.Is(err, appErrors.ErrConflict),
		errors.Is(err, appErrors.ErrAlreadyTrashed), errors.Is(err, appErrors.ErrNotTrashed),
		errors.Is(err, appErrors.ErrReferentialBlock):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrValidation), errors.Is(err, appErrors.ErrInvalidInput),
		errors.Is(err, appErrors.ErrDataImport):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// mensagemDoErro esconde detalhes de erros internos.
func mensagemDoErro(err error) string {
	if statusDoErro(err) == http.StatusInternalServerError {
		return "Erro interno do servidor."
	}
	return appErrors.UserMessage(err)
}

// querJSON: rotas /api, chamadas AJAX ou clientes que pedem JSON.
func querJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.HasPrefix(c.ContentType(), "application/json")
}

func logarErro(c *gin.Context, err error) {
	if statusDoErro(err) == http.StatusInternalServerError {
		appLogger.Errorf("Erro em %s %s (request %s): %v", c.Request.Method, c.Request.URL.Path, requestIDDe(c), err)
	}
}

// jsonErro responde {error} com o status do erro.
func jsonErro(c *gin.Context, err error) {
	logarErro(c, err)
	c.AbortWithStatusJSON(statusDoErro(err), gin.H{"error": mensagemDoErro(err)})
}

func (s *Server) flash(c *gin.Context, tipo, msg string) {
	s.svc.Sessoes.AddFlash(c.Writer, c.Request, tipo, msg)
}

// redirecionar encerra um POST de formulário com mensagem de sucesso.
func (s *Server) redirecionar(c *gin.Context, destino, msg string) {
	if msg != "" {
		s.flash(c, auth.FlashSuccess, msg)
	}
	c.Redirect(http.StatusFound, destino)
}

// flashErro grava a mensagem do erro e redireciona. Sem sessão vai para o login.
func (s *Server) flashErro(c *gin.Context, err error, destino string) {
	logarErro(c, err)
	if statusDoErro(err) == http.StatusUnauthorized {
		c.Redirect(http.StatusFound, navigation.Caminho(navigation.PageLogin))
		c.Abort()
		return
	}
	s.flash(c, auth.FlashError, mensagemDoErro(err))
	c.Redirect(http.StatusFound, destino)
	c.Abort()
}

// falhar escolhe entre JSON e flash+redirect.
func (s *Server) falhar(c *gin.Context, err error, destino string) {
	if querJSON(c) {
		jsonErro(c, err)
		return
	}
	s.flashErro(c, err, destino)
}

// pagina entrega o modelo de visão de uma tela, com menu e mensagens pendentes.
// Em GET, erros que não são de sessão viram status + JSON.
func (s *Server) pagina(c *gin.Context, dados gin.H) {
	sessao := sessaoDe(c)
	dados["menu"] = navigation.Menu(sessao)
	dados["mensagens"] = s.svc.Sessoes.Flashes(c.Writer, c.Request)
	if sessao != nil {
		dados["usuario"] = gin.H{
			"username":       sessao.Username,
			"papeis":         sessao.Roles,
			"primeiro_grupo": sessao.PrimeiroGrupo,
		}
	}
	c.JSON(http.StatusOK, dados)
}

// paginaErro trata erros de GET: páginas protegidas por papel redirecionam para
// a home com a mensagem, os demais respondem JSON.
func (s *Server) paginaErro(c *gin.Context, err error) {
	if querJSON(c) {
		jsonErro(c, err)
		return
	}
	switch statusDoErro(err) {
	case http.StatusForbidden, http.StatusUnauthorized:
		s.flashErro(c, err, navigation.Caminho(navigation.Inicial(sessaoDe(c))))
	default:
		jsonErro(c, err)
	}
}

// voltar devolve o Referer quando é um caminho local, senão o padrão.
func voltar(c *gin.Context, padrao string) string {
	ref := c.Request.Referer()
	if i := strings.Index(ref, "://"); i >= 0 {
		rest := ref[i+3:]
		j := strings.Index(rest, "/")
		if j < 0 || rest[:j] != c.Request.Host {
			return padrao
		}
		ref = rest[j:]
	}
	if caminhoLocal(ref) {
		return ref
	}
	return padrao
}

// caminhoLocal aceita só caminhos do próprio site. Navegadores tratam "//" e
// "/\" como início de outro host.
func caminhoLocal(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
