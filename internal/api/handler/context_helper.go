package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/api/middleware"
	"attendance-tracker/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextUserID)
	if s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// tokenIdentity 当前 Access Token 的 jti 与过期时间（用于登出）
func tokenIdentity(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.ContextTokenID)
	exp, _ := c.Get(middleware.ContextTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// bindJSON 绑定并校验请求体；失败时写入响应并返回 false
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeInvalidParam, "参数校验失败", err.Error())
		return false
	}
	return true
}
