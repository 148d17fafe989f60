package web

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/auth"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/data/models"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/services"
	"github.com/Dukorsa/FABRICA_CALCADOS_GO/internal/utils"
)

const tamanhoPaginaAuditoria = 50

func (s *Server) relatorios(c *gin.Context) {
	if err := auth.CheckRole(sessaoDe(c), auth.CapQualidade); err != nil {
		s.paginaErro(c, err)
		return
	}
	hoje := time.Now()
	s.pagina(c, gin.H{
		"inicio_padrao": hoje.AddDate(0, 0, -30).Format(utils.LayoutData),
		"fim_padrao":    hoje.Format(utils.LayoutData),
		"setores":       []string{models.GrupoInjetora, models.GrupoQualidade},
	})
}

// dataOpcional lê uma data de query; vazio vira tempo zero.
func dataOpcional(c *gin.Context, campo string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(campo))
	if raw == "" {
		return time.Time{}, nil
	}
	return utils.ParseData(campo, raw)
}

func (s *Server) relatorioPeriodo(c *gin.Context) {
	inicio, err := dataOpcional(c, "inicio")
	if err != nil {
		s.flashErro(c, err, "/relatorios")
		return
	}
	fim, err := dataOpcional(c, "fim")
	if err != nil {
		s.flashErro(c, err, "/relatorios")
		return
	}
	filtro := services.FiltroPeriodo{Inicio: inicio, Fim: fim, Setor: c.Query("setor")}
	err = enviarPlanilha(c, func(w *bytes.Buffer) (string, error) {
		return s.svc.Relatorios.RelatorioPeriodo(filtro, w, sessaoDe(c))
	})
	if err == nil {
		return
	}
	if querJSON(c) || statusDoErro(err) == http.StatusInternalServerError {
		jsonErro(c, err)
		return
	}
	s.flashErro(c, err, "/relatorios")
}

func textoOpcional(c *gin.Context, campo string) *string {
	if v := strings.TrimSpace(c.Query(campo)); v != "" {
		return &v
	}
	return nil
}

func (s *Server) auditoria(c *gin.Context) {
	filtro := models.AuditLogFilter{
		Severity: textoOpcional(c, "severity"),
		User:     textoOpcional(c, "user"),
		Action:   textoOpcional(c, "action"),
		Limit:    tamanhoPaginaAuditoria,
	}
	if d, err := dataOpcional(c, "inicio"); err != nil {
		s.paginaErro(c, err)
		return
	} else if !d.IsZero() {
		filtro.StartDate = &d
	}
	if d, err := dataOpcional(c, "fim"); err != nil {
		s.paginaErro(c, err)
		return
	} else if !d.IsZero() {
		filtro.EndDate = &d
	}
	pagina := paginaQuery(c)
	filtro.Offset = (pagina - 1) * tamanhoPaginaAuditoria

	logs, total, err := s.svc.Auditoria.GetAuditLogs(filtro, sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	totalPaginas := int((total + tamanhoPaginaAuditoria - 1) / tamanhoPaginaAuditoria)
	s.pagina(c, gin.H{
		"logs":          logs,
		"total":         total,
		"pagina":        pagina,
		"total_paginas": totalPaginas,
	})
}

func (s *Server) importacoes(c *gin.Context) {
	status, err := s.svc.Importacao.GetAllImportStatus(sessaoDe(c))
	if err != nil {
		s.paginaErro(c, err)
		return
	}
	s.pagina(c, gin.H{"importacoes": status})
}
