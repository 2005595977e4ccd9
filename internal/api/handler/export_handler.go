package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"manasa/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Gradebook 导出小组成绩册
// GET /api/v1/groups/:id/export/grades
func (h *ExportHandler) Gradebook(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.Gradebook(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	attachment(c, buf, filename, contentTypeXLSX)
}

// WeeklyICS 导出周课表日历
// GET /api/v1/schedule/weekly.ics
func (h *ExportHandler) WeeklyICS(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.WeeklyICS(c.Request.Context(), caller)
	if err != nil {
		handleError(c, err)
		return
	}

	attachment(c, buf, filename, contentTypeICS)
}

// attachment 设置下载响应头（文件名可能含阿拉伯文，使用 RFC 5987 编码）
func attachment(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
