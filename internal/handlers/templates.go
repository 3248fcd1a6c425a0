package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhatro-app/report-service/internal/services"
)

type TemplatesHandler struct {
	templates  *services.TemplateService
	procedures *services.ProcedureService
}

func NewTemplatesHandler(templates *services.TemplateService, procedures *services.ProcedureService) *TemplatesHandler {
	return &TemplatesHandler{
		templates:  templates,
		procedures: procedures,
	}
}

func (h *TemplatesHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *TemplatesHandler) Get(c *gin.Context) {
	template, err := h.templates.Get(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *TemplatesHandler) Create(c *gin.Context) {
	var input services.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	template, err := h.templates.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

func (h *TemplatesHandler) Update(c *gin.Context) {
	var input services.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	template, err := h.templates.Update(c.Request.Context(), c.Param("templateId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *TemplatesHandler) Delete(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), c.Param("templateId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

// Variables samples the bound routine and returns the discovered columns
// with inferred types, for the designer's variable palette.
func (h *TemplatesHandler) Variables(c *gin.Context) {
	variables, err := h.templates.DiscoverVariables(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variables": variables})
}

func (h *TemplatesHandler) ListProcedures(c *gin.Context) {
	procedures, err := h.procedures.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list procedures"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"procedures": procedures})
}
