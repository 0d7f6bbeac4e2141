package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWorkbook 导出全部科目与出勤明细
// GET /api/v1/export/attendance.xlsx
func (h *ExportHandler) ExportWorkbook(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportWorkbook(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.File(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, buf.Bytes())
}
