package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhatro-app/report-service/internal/models"
	"github.com/nhatro-app/report-service/internal/services"
)

type LogsHandler struct {
	activityLogService *services.ActivityLogService
}

func NewLogsHandler(activityLogService *services.ActivityLogService) *LogsHandler {
	return &LogsHandler{
		activityLogService: activityLogService,
	}
}

type LogsResponse struct {
	Logs       interface{} `json:"logs"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetAllLogs returns activity logs with pagination, optionally filtered by
// method or path substring.
func (h *LogsHandler) GetAllLogs(c *gin.Context) {
	limit, page := parsePagination(c)
	offset := (page - 1) * limit

	method := c.Query("method")
	path := c.Query("path")

	var logs []models.ActivityLog
	var total int64
	var err error

	if method != "" {
		logs, total, err = h.activityLogService.GetLogsByMethod(method, limit, offset)
	} else if path != "" {
		logs, total, err = h.activityLogService.GetLogsByPath(path, limit, offset)
	} else {
		logs, total, err = h.activityLogService.GetAllLogs(limit, offset)
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, LogsResponse{
		Logs:       logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

// GetLogStats aggregates request counts by method, path and status code.
func (h *LogsHandler) GetLogStats(c *gin.Context) {
	logs, total, err := h.activityLogService.GetAllLogs(0, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch log stats"})
		return
	}

	methodCounts := make(map[string]int)
	pathCounts := make(map[string]int)
	statusCounts := make(map[int]int)

	for _, log := range logs {
		methodCounts[log.Method]++
		pathCounts[log.Path]++
		statusCounts[log.StatusCode]++
	}

	c.JSON(http.StatusOK, gin.H{
		"total_requests": total,
		"methods":        methodCounts,
		"paths":          pathCounts,
		"status_codes":   statusCounts,
	})
}
