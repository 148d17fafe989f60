package navigation

import (
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
)

// PageID define um identificador único para cada página da aplicação.
type PageID int

const (
	PageNone PageID = iota
	PageLogin
	PageHome
	PageLixeiraFichas
	PagePartes
	PageOperadores
	PageCoresInventario
	PageModelos
	PageLixeiraModelos
	PageRelatorios
	PageAuditoria
	PageRequisicoes
	PageCadastrosCompras
	PageLixeiraCompras
)

// Item é uma entrada do menu principal.
type Item struct {
	ID      PageID `json:"id"`
	Titulo  string `json:"titulo"`
	Caminho string `json:"caminho"`
}

type entrada struct {
	Item
	papel auth.Capability // vazio: qualquer usuário autenticado
}

var paginas = []entrada{
	{Item{PageHome, "Início", "/"}, ""},
	{Item{PageLixeiraFichas, "Lixeira de fichas", "/fichas/lixeira"}, auth.CapQualidade},
	{Item{PagePartes, "Partes", "/partes"}, auth.CapQualidade},
	{Item{PageOperadores, "Operadores", "/operadores"}, auth.CapQualidade},
	{Item{PageCoresInventario, "Cores", "/inventario/cores"}, auth.CapQualidade},
	{Item{PageModelos, "Modelos", "/modelos"}, auth.CapQualidade},
	{Item{PageLixeiraModelos, "Lixeira de modelos", "/inventario/lixeira"}, auth.CapQualidade},
	{Item{PageRelatorios, "Relatórios", "/relatorios"}, auth.CapQualidade},
	{Item{PageAuditoria, "Auditoria", "/auditoria"}, auth.CapQualidade},
	{Item{PageRequisicoes, "Requisições", "/requisicoes"}, auth.CapLoja},
	{Item{PageCadastrosCompras, "Cadastros", "/requisicoes/cadastros"}, auth.CapLoja},
	{Item{PageLixeiraCompras, "Lixeira de cadastros", "/requisicoes/cadastros/lixeira"}, auth.CapLoja},
}

// Caminho devolve a URL da página, ou "/" para IDs desconhecidos.
func Caminho(id PageID) string {
	if id == PageLogin {
		return "/login"
	}
	for _, p := range paginas {
		if p.ID == id {
			return p.Caminho
		}
	}
	return "/"
}

// Menu lista as páginas que o usuário pode abrir, na ordem de exibição.
// A loja não usa a home da qualidade e vai direto para as requisições.
func Menu(userSession *auth.SessionData) []Item {
	if userSession == nil {
		return []Item{{ID: PageLogin, Titulo: "Entrar", Caminho: "/login"}}
	}
	out := make([]Item, 0, len(paginas))
	for _, p := range paginas {
		if p.papel != "" && !userSession.Has(p.papel) {
			continue
		}
		out = append(out, p.Item)
	}
	return out
}

// Inicial é a página aberta logo após o login.
func Inicial(userSession *auth.SessionData) PageID {
	if userSession != nil && userSession.Capabilities[auth.CapLoja] && !userSession.Has(auth.CapQualidade) &&
		!userSession.Capabilities[auth.CapOperador] {
		return PageRequisicoes
	}
	return PageHome
}
