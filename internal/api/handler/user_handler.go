package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

// UserHandler 个人资料 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetProfile 获取个人资料
// GET /api/v1/users/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateProfile 更新个人资料
// PUT /api/v1/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, response.CodeUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, response.CodeEmailTaken, err.Error())
	case errors.Is(err, service.ErrCurrentPasswordRequired):
		response.BadRequest(c, response.CodeInvalidParam, err.Error())
	case errors.Is(err, service.ErrWrongPassword):
		response.BadRequest(c, response.CodeWrongPassword, err.Error())
	default:
		response.InternalError(c)
	}
}
