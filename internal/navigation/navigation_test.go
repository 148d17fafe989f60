package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
)

func sessaoCom(caps ...auth.Capability) *auth.SessionData {
	rs := auth.RoleSet{}
	for _, c := range caps {
		rs[c] = true
	}
	return &auth.SessionData{Username: "teste", Capabilities: rs}
}

func ids(itens []Item) []PageID {
	out := make([]PageID, 0, len(itens))
	for _, i := range itens {
		out = append(out, i.ID)
	}
	return out
}

func TestMenu(t *testing.T) {
	assert.Equal(t, []PageID{PageLogin}, ids(Menu(nil)))

	assert.Equal(t, []PageID{PageHome}, ids(Menu(sessaoCom(auth.CapOperador))))

	qualidade := ids(Menu(sessaoCom(auth.CapQualidade)))
	assert.Contains(t, qualidade, PageAuditoria)
	assert.Contains(t, qualidade, PageLixeiraModelos)
	assert.NotContains(t, qualidade, PageRequisicoes)

	loja := ids(Menu(sessaoCom(auth.CapLoja)))
	assert.Equal(t, []PageID{PageHome, PageRequisicoes, PageCadastrosCompras, PageLixeiraCompras}, loja)

	assert.Len(t, Menu(sessaoCom(auth.CapSuperuser)), len(paginas))
}

func TestInicial(t *testing.T) {
	assert.Equal(t, PageHome, Inicial(nil))
	assert.Equal(t, PageRequisicoes, Inicial(sessaoCom(auth.CapLoja)))
	assert.Equal(t, PageHome, Inicial(sessaoCom(auth.CapLoja, auth.CapOperador)))
	assert.Equal(t, PageHome, Inicial(sessaoCom(auth.CapSuperuser)))
}

func TestCaminho(t *testing.T) {
	assert.Equal(t, "/login", Caminho(PageLogin))
	assert.Equal(t, "/inventario/cores", Caminho(PageCoresInventario))
	assert.Equal(t, "/", Caminho(PageID(999)))
}
