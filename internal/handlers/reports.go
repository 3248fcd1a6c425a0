package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nhatro-app/report-service/internal/models"
	"github.com/nhatro-app/report-service/internal/services"
)

// ReportGenerator is the slice of the generator the HTTP layer needs.
type ReportGenerator interface {
	Generate(ctx context.Context, req services.GenerationRequest) (*services.GenerationResult, error)
	Preview(ctx context.Context, req services.GenerationRequest) (string, error)
}

// HistoryLister lists past generations.
type HistoryLister interface {
	List(ctx context.Context, templateID string, limit, offset int) ([]models.GeneratedReport, int64, error)
}

type ReportsHandler struct {
	generator ReportGenerator
	history   HistoryLister
}

func NewReportsHandler(generator ReportGenerator, history HistoryLister) *ReportsHandler {
	return &ReportsHandler{
		generator: generator,
		history:   history,
	}
}

type generateRequest struct {
	TemplateID string            `json:"template_id" binding:"required"`
	Parameters map[string]string `json:"parameters"`
	UserID     string            `json:"user_id"`
	UserName   string            `json:"user_name"`
}

func (h *ReportsHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), services.GenerationRequest{
		TemplateID: req.TemplateID,
		Parameters: req.Parameters,
		UserID:     req.UserID,
		UserName:   req.UserName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReportsHandler) Preview(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	html, err := h.generator.Preview(c.Request.Context(), services.GenerationRequest{
		TemplateID: req.TemplateID,
		Parameters: req.Parameters,
		UserID:     req.UserID,
		UserName:   req.UserName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

type historyResponse struct {
	Reports    []models.GeneratedReport `json:"reports"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

func (h *ReportsHandler) ListReports(c *gin.Context) {
	limit, page := parsePagination(c)
	offset := (page - 1) * limit

	reports, total, err := h.history.List(c.Request.Context(), c.Query("template_id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, historyResponse{
		Reports:    reports,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

func parsePagination(c *gin.Context) (limit, page int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	page, err = strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	return limit, page
}

// respondError maps typed report errors onto HTTP statuses and keeps the
// structured {code, category, message, details} shape for the caller.
func respondError(c *gin.Context, err error) {
	if reportErr, ok := services.AsReportError(err); ok {
		c.JSON(statusFor(reportErr), gin.H{"error": reportErr})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"code":     services.CodeGenerationUnexpected,
		"category": services.CategoryGeneration,
		"message":  "unexpected error",
	}})
}

func statusFor(err *services.ReportError) int {
	switch err.Code {
	case services.CodeTemplateNotFound, services.CodeProcedureNotFound:
		return http.StatusNotFound
	case services.CodeTemplateInvalidFormat, services.CodeProcedureInvalidName:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
