package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	appLogger "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/logger"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

// SessionData é o ator de uma requisição. É montado a cada requisição a partir
// do usuário no banco e passado explicitamente para os serviços.
type SessionData struct {
	ID            string    `json:"id"`
	UserID        uint64    `json:"user_id"`
	Username      string    `json:"username"`
	Roles         []string  `json:"roles"`
	Capabilities  RoleSet   `json:"-"`
	Groups        []string  `json:"groups"`
	PrimeiroGrupo string    `json:"primeiro_grupo,omitempty"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	RequestID     uuid.UUID `json:"request_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewSessionData monta o ator a partir de um usuário com grupos e perfil carregados.
func NewSessionData(user *models.DBUser, sessionID, ip, userAgent string) *SessionData {
	roles := ResolveRoles(user)
	return &SessionData{
		ID:            sessionID,
		UserID:        user.ID,
		Username:      user.Username,
		Roles:         roles.Names(),
		Capabilities:  roles,
		Groups:        user.GroupNames(),
		PrimeiroGrupo: user.PrimeiroGrupo(),
		IPAddress:     ip,
		UserAgent:     userAgent,
		CreatedAt:     time.Now().UTC(),
	}
}

// Has é um atalho para Capabilities.Has que aceita sessão nula.
func (s *SessionData) Has(c Capability) bool {
	return s != nil && s.Capabilities.Has(c)
}

// InGroup compara sem distinção de caixa.
func (s *SessionData) InGroup(name string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.Groups {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

// Chaves gravadas no cookie de sessão.
const (
	sessionKeyUserID    = "user_id"
	sessionKeySessionID = "session_id"
	sessionKeyCreatedAt = "created_at"
)

// Tipos de mensagem flash.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// SessionManager guarda o id do usuário em um cookie assinado e entrega as
// mensagens flash entre o POST e o redirecionamento.
type SessionManager struct {
	cfg   *core.Config
	store *sessions.CookieStore
}

// NewSessionManager cria o gerenciador sobre um CookieStore.
func NewSessionManager(cfg *core.Config) *SessionManager {
	if cfg == nil {
		appLogger.Fatalf("Config não pode ser nil para NewSessionManager")
	}
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SessionCookieSafe,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{cfg: cfg, store: store}
}

func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	// Cookie inválido ou com assinatura antiga: Get devolve sessão nova e o erro, que ignoramos.
	s, err := sm.store.Get(r, sm.cfg.SessionName)
	if err != nil {
		appLogger.Debugf("Cookie de sessão descartado: %v", err)
	}
	return s
}

// Start grava o usuário autenticado no cookie e devolve o id da sessão.
func (sm *SessionManager) Start(w http.ResponseWriter, r *http.Request, userID uint64) (string, error) {
	s := sm.session(r)
	sessionID := uuid.NewString()
	s.Values[sessionKeyUserID] = userID
	s.Values[sessionKeySessionID] = sessionID
	s.Values[sessionKeyCreatedAt] = time.Now().UTC().Unix()
	if err := s.Save(r, w); err != nil {
		appLogger.Errorf("Erro ao salvar cookie de sessão: %v", err)
		return "", fmt.Errorf("%w: falha ao iniciar sessão", appErrors.ErrInternal)
	}
	return sessionID, nil
}

// Current devolve o usuário e o id da sessão gravados no cookie.
func (sm *SessionManager) Current(r *http.Request) (uint64, string, error) {
	s := sm.session(r)
	userID, ok := s.Values[sessionKeyUserID].(uint64)
	if !ok || userID == 0 {
		return 0, "", appErrors.ErrUnauthorized
	}
	sessionID, _ := s.Values[sessionKeySessionID].(string)
	if created, ok := s.Values[sessionKeyCreatedAt].(int64); ok && sm.cfg.SessionMaxAge > 0 {
		if time.Since(time.Unix(created, 0)) > sm.cfg.SessionMaxAge {
			return 0, "", fmt.Errorf("%w: sessão expirada", appErrors.ErrInvalidSession)
		}
	}
	return userID, sessionID, nil
}

// Destroy apaga o cookie de sessão.
func (sm *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) error {
	s := sm.session(r)
	for k := range s.Values {
		delete(s.Values, k)
	}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// AddFlash registra uma mensagem a ser exibida na próxima página.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := sm.session(r)
	s.AddFlash(message, kind)
	if err := s.Save(r, w); err != nil {
		appLogger.Warnf("Falha ao salvar mensagem flash: %v", err)
	}
}

// Flashes consome as mensagens pendentes, agrupadas por tipo.
func (sm *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) map[string][]string {
	s := sm.session(r)
	out := map[string][]string{}
	for _, kind := range []string{FlashSuccess, FlashError, FlashInfo} {
		for _, f := range s.Flashes(kind) {
			if msg, ok := f.(string); ok {
				out[kind] = append(out[kind], msg)
			}
		}
	}
	if len(out) > 0 {
		if err := s.Save(r, w); err != nil {
			appLogger.Warnf("Falha ao consumir mensagens flash: %v", err)
		}
	}
	return out
}
