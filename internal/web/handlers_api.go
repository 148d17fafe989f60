package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

// apiCores alimenta o select de cores a partir do modelo escolhido.
func (s *Server) apiCores(c *gin.Context) {
	modeloID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	cores, err := s.svc.Modelos.CoresDoModelo(modeloID, sessaoDe(c))
	if err != nil {
		jsonErro(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cores": cores})
}

type opcaoTamanho struct {
	ID     uint64 `json:"id"`
	Numero string `json:"numero"`
}

// apiTamanhos: /api/get_tamanhos/:cor_id?modelo_id=.
func (s *Server) apiTamanhos(c *gin.Context) {
	corID, err := idParam(c, "id")
	if err != nil {
		jsonErro(c, err)
		return
	}
	modeloID, err := utils.ParseID("modelo_id", c.Query("modelo_id"))
	if err != nil {
		jsonErro(c, err)
		return
	}
	tamanhos, err := s.svc.Modelos.TamanhosDe(modeloID, corID, sessaoDe(c))
	if err != nil {
		jsonErro(c, err)
		return
	}
	out := make([]opcaoTamanho, 0, len(tamanhos))
	for _, t := range tamanhos {
		out = append(out, opcaoTamanho{ID: t.ID, Numero: t.Numero})
	}
	c.JSON(http.StatusOK, gin.H{"tamanhos": out})
}
