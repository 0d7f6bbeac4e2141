package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

// AttendanceHandler 出勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	exportSvc     service.ExportService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, exportSvc service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, exportSvc: exportSvc}
}

// ListAttendance 科目出勤历史（按日期倒序）
// GET /api/v1/subjects/:id/attendance
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	records, err := h.attendanceSvc.ListBySubject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": records})
}

// ExportCalendar 科目出勤历史导出为 iCalendar
// GET /api/v1/subjects/:id/attendance.ics
func (h *AttendanceHandler) ExportCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.File(c, "text/calendar; charset=utf-8", filename, buf.Bytes())
}

// CreateAttendance 标记出勤
// POST /api/v1/attendance
func (h *AttendanceHandler) CreateAttendance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.attendanceSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, record)
}

// DeleteAttendance 删除出勤记录
// DELETE /api/v1/attendance/:id
func (h *AttendanceHandler) DeleteAttendance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, response.CodeInvalidParam, err.Error())
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, response.CodeSubjectNotFound, err.Error())
	case errors.Is(err, service.ErrAttendanceDuplicate):
		response.Conflict(c, response.CodeAttendanceDuplicate, err.Error())
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, response.CodeAttendanceNotFound, err.Error())
	default:
		response.InternalError(c)
	}
}
