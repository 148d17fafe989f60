package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
)

// Chaves do gin.Context.
const (
	ctxRequestID = "request_id"
	ctxSessao    = "sessao"
)

const headerRequestID = "X-Request-ID"

// requestID reaproveita o X-Request-ID recebido ou gera um novo.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(headerRequestID))
		if err != nil {
			id = uuid.New()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id.String())
		c.Next()
	}
}

func requestIDDe(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxRequestID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// accessLog registra cada requisição no logger da aplicação.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		inicio := time.Now()
		c.Next()

		fields := logrus.Fields{
			"request_id": requestIDDe(c).String(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(inicio).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if s := sessaoDe(c); s != nil {
			fields["user"] = s.Username
		}
		entry := appLogger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP")
		default:
			entry.Info("HTTP")
		}
	}
}

// recovery transforma pânicos em 500 sem derrubar o servidor.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		appLogger.WithFields(logrus.Fields{
			"request_id": requestIDDe(c).String(),
			"path":       c.Request.URL.Path,
		}).Errorf("Pânico no handler: %v", rec)
		if querJSON(c) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Erro interno do servidor."})
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// carregarSessao reconstrói o ator a partir do cookie. Sem cookie válido a
// requisição segue anônima.
func (s *Server) carregarSessao() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, sessionID, err := s.svc.Sessoes.Current(c.Request)
		if err != nil {
			c.Next()
			return
		}
		sessao, err := s.svc.Authenticator.LoadSession(userID, sessionID, c.ClientIP(), c.Request.UserAgent())
		if err != nil {
			appLogger.Warnf("Sessão do usuário %d não carregada: %v", userID, err)
			if errors.Is(err, appErrors.ErrInvalidSession) {
				_ = s.svc.Sessoes.Destroy(c.Writer, c.Request)
			}
			c.Next()
			return
		}
		sessao.RequestID = requestIDDe(c)
		c.Set(ctxSessao, sessao)
		c.Next()
	}
}

func sessaoDe(c *gin.Context) *auth.SessionData {
	if v, ok := c.Get(ctxSessao); ok {
		if s, ok := v.(*auth.SessionData); ok {
			return s
		}
	}
	return nil
}

// exigirLogin redireciona visitantes anônimos para o login, guardando o destino.
func (s *Server) exigirLogin(c *gin.Context) {
	if sessaoDe(c) != nil {
		c.Next()
		return
	}
	if querJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Autenticação necessária."})
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func (s *Server) exigirLoginAPI(c *gin.Context) {
	if sessaoDe(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Autenticação necessária."})
		return
	}
	c.Next()
}
