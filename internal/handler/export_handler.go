package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madrasatech/madrasa-api/internal/service"
	"github.com/madrasatech/madrasa-api/pkg/response"
)

// ExportHandler serves rendered result exports for download.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ExamResults godoc
// @Summary Download exam results
// @Tags Export
// @Produce text/csv,application/pdf
// @Param id path string true "Exam ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exams/{id}/export [get]
func (h *ExportHandler) ExamResults(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.ExamResults(c.Request.Context(), identity, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

// HomeworkSubmissions godoc
// @Summary Download homework submissions
// @Tags Export
// @Produce text/csv,application/pdf
// @Param id path string true "Homework ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /homework/{id}/export [get]
func (h *ExportHandler) HomeworkSubmissions(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.HomeworkSubmissions(c.Request.Context(), identity, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveExport(c, result)
}

func serveExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
