package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core"
	appErrors "github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/core/errors"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
)

func usuario(tipo string, grupos ...string) *models.DBUser {
	u := &models.DBUser{ID: gofakeit.Uint64()%1000 + 1, Username: gofakeit.Username(), Active: true}
	if tipo != "" {
		u.Perfil = &models.PerfilUsuario{Tipo: tipo}
	}
	for i, g := range grupos {
		u.Groups = append(u.Groups, &models.DBGroup{ID: uint64(i + 1), Name: g})
	}
	return u
}

func sessao(u *models.DBUser) *SessionData {
	return NewSessionData(u, "sid", "127.0.0.1", "teste")
}

func TestResolveRoles(t *testing.T) {
	assert.Empty(t, ResolveRoles(nil))

	rs := ResolveRoles(usuario(" Qualidade "))
	assert.True(t, rs.Has(CapQualidade))
	assert.False(t, rs.Has(CapLoja))

	// grupo Loja concede o papel mesmo com outro tipo de perfil
	rs = ResolveRoles(usuario(models.TipoOperador, "loja"))
	assert.Equal(t, []string{"loja", "operador"}, rs.Names())

	admin := usuario("")
	admin.IsSuperuser = true
	rs = ResolveRoles(admin)
	for _, c := range []Capability{CapOperador, CapQualidade, CapLoja} {
		assert.True(t, rs.Has(c), c)
	}

	assert.Empty(t, ResolveRoles(usuario("gerente")).Names(), "tipo desconhecido não concede papel")
}

func TestCheckRole(t *testing.T) {
	err := CheckRole(nil, CapQualidade)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	err = CheckRole(sessao(usuario(models.TipoOperador)), CapQualidade)
	require.ErrorIs(t, err, appErrors.ErrPermissionDenied)
	assert.Equal(t, "Apenas usuários da qualidade podem realizar esta ação.", appErrors.UserMessage(err))

	assert.NoError(t, CheckRole(sessao(usuario(models.TipoLoja)), CapLoja))
}

func TestCheckOwnerOrRole(t *testing.T) {
	dono := usuario(models.TipoOperador, models.GrupoInjetora)
	assert.NoError(t, CheckOwnerOrRole(sessao(dono), dono.ID, CapQualidade))

	outro := usuario(models.TipoOperador)
	outro.ID = dono.ID + 1
	assert.ErrorIs(t, CheckOwnerOrRole(sessao(outro), dono.ID, CapQualidade), appErrors.ErrPermissionDenied)

	// a loja não é operadora, mesmo sendo dona do id
	loja := usuario(models.TipoLoja)
	assert.ErrorIs(t, CheckOwnerOrRole(sessao(loja), loja.ID, CapQualidade), appErrors.ErrPermissionDenied)

	assert.NoError(t, CheckOwnerOrRole(sessao(usuario(models.TipoQualidade)), dono.ID, CapQualidade))
	assert.ErrorIs(t, CheckOwnerOrRole(nil, dono.ID, CapQualidade), appErrors.ErrUnauthorized)
}

func TestSessionData(t *testing.T) {
	var nula *SessionData
	assert.False(t, nula.Has(CapOperador))
	assert.False(t, nula.InGroup(models.GrupoLoja))

	s := sessao(usuario(models.TipoOperador, models.GrupoCorte, models.GrupoInjetora))
	assert.Equal(t, models.GrupoCorte, s.PrimeiroGrupo)
	assert.True(t, s.InGroup("injetora"))
}

func TestSenha(t *testing.T) {
	senha := gofakeit.Password(true, true, true, false, false, 12)
	hash, err := HashPassword(senha)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(senha, hash))
	assert.False(t, VerifyPassword(senha+"x", hash))
	assert.False(t, VerifyPassword("", hash))

	_, err = HashPassword("")
	assert.Error(t, err)
}

// --- Authenticator com repositório em memória ---

type repoUsuarios struct {
	porNome map[string]*models.DBUser
	logins  int
}

func (r *repoUsuarios) GetByID(id uint64) (*models.DBUser, error) {
	for _, u := range r.porNome {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (r *repoUsuarios) GetByUsername(nome string) (*models.DBUser, error) {
	if u, ok := r.porNome[nome]; ok {
		return u, nil
	}
	return nil, appErrors.ErrNotFound
}

func (r *repoUsuarios) UpdateLastLogin(uint64) error {
	r.logins++
	return nil
}

func (r *repoUsuarios) GetAllUsers(bool) ([]*models.DBUser, error) { return nil, nil }

type auditoriaMemoria struct{ acoes []string }

func (a *auditoriaMemoria) LogAction(e models.AuditLogEntry, _ *SessionData) error {
	a.acoes = append(a.acoes, e.Action)
	return nil
}

func TestAuthenticateUser(t *testing.T) {
	hash, err := HashPassword("segredo123")
	require.NoError(t, err)
	ativo := usuario(models.TipoQualidade)
	ativo.Username, ativo.PasswordHash = "maria", hash
	inativo := usuario(models.TipoOperador)
	inativo.Username, inativo.PasswordHash, inativo.Active = "joao", hash, false
	inativo.ID = ativo.ID + 1

	repo := &repoUsuarios{porNome: map[string]*models.DBUser{"maria": ativo, "joao": inativo}}
	audit := &auditoriaMemoria{}
	a := NewAuthenticator(repo, audit)

	res, err := a.AuthenticateUser(" maria ", "segredo123", "10.0.0.1", "ua")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, repo.logins)

	for _, caso := range [][2]string{{"maria", "errada"}, {"joao", "segredo123"}, {"ninguem", "x"}, {"", ""}} {
		res, err := a.AuthenticateUser(caso[0], caso[1], "10.0.0.1", "ua")
		require.NoError(t, err)
		assert.False(t, res.Success, caso[0])
	}
	assert.Contains(t, audit.acoes, "LOGIN_SUCCESS")
	assert.Contains(t, audit.acoes, "LOGIN_FAILED_INACTIVE")

	s, err := a.LoadSession(ativo.ID, "sid", "10.0.0.1", "ua")
	require.NoError(t, err)
	assert.True(t, s.Has(CapQualidade))

	_, err = a.LoadSession(inativo.ID, "sid", "", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)
	_, err = a.LoadSession(9999, "sid", "", "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)
}

func TestSessionManagerCookie(t *testing.T) {
	cfg := &core.Config{
		SecretKey:     "chave-de-teste-com-mais-de-32-caracteres",
		SessionName:   "fabrica_teste",
		SessionMaxAge: time.Hour,
	}
	sm := NewSessionManager(cfg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	sid, err := sm.Start(w, r, 42)
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range w.Result().Cookies() {
		r2.AddCookie(ck)
	}
	userID, atual, err := sm.Current(r2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
	assert.Equal(t, sid, atual)

	_, _, err = sm.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
