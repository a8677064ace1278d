package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prodline/internal/service"
	"prodline/pkg/response"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 报表导出 HTTP 处理器
type ExportHandler struct {
	reportSvc service.ReportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(reportSvc service.ReportService) *ExportHandler {
	return &ExportHandler{reportSvc: reportSvc}
}

// ExportPDF 导出生产报表
// GET /api/v1/export/pdf
func (h *ExportHandler) ExportPDF(c *gin.Context) {
	h.export(c, h.reportSvc.ExportPDF, contentTypePDF)
}

// ExportXLSX 导出班次明细
// GET /api/v1/export/xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	h.export(c, h.reportSvc.ExportXLSX, contentTypeXLSX)
}

func (h *ExportHandler) export(c *gin.Context, render func(context.Context) (*bytes.Buffer, string, error), contentType string) {
	buf, filename, err := render(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 30001, "生成报表失败", err.Error())
	case errors.Is(err, service.ErrTrackerStopped):
		response.ServiceUnavailable(c, 50001, "服务正在关闭")
	default:
		response.InternalError(c)
	}
}
