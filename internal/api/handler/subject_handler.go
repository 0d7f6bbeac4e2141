package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

// SubjectHandler 科目模块 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects 科目列表（附出勤率与等级）
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	subjects, err := h.subjectSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// CreateSubject 新建科目
// POST /api/v1/subjects
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSubjectRequest
	if !bindJSON(c, &req) {
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.Created(c, subject)
}

// DeleteSubject 删除科目及其出勤记录
// DELETE /api/v1/subjects/:id
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.subjectSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNameRequired):
		response.BadRequest(c, response.CodeInvalidParam, err.Error())
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, response.CodeSubjectNotFound, err.Error())
	default:
		response.InternalError(c)
	}
}
