package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

// AnalyticsHandler 统计模块 HTTP 处理器
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
}

// NewAnalyticsHandler 创建 AnalyticsHandler
func NewAnalyticsHandler(analyticsSvc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// GetAnalytics 概览、柱状图与分布数据
// GET /api/v1/analytics
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.analyticsSvc.Get(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// BarChart 各科出勤率柱状图
// GET /api/v1/analytics/charts/bar.png
func (h *AnalyticsHandler) BarChart(c *gin.Context) {
	h.renderChart(c, "attendance_bar.png", h.analyticsSvc.BarChartPNG)
}

// PieChart 出勤等级分布饼图
// GET /api/v1/analytics/charts/pie.png
func (h *AnalyticsHandler) PieChart(c *gin.Context) {
	h.renderChart(c, "attendance_pie.png", h.analyticsSvc.PieChartPNG)
}

func (h *AnalyticsHandler) renderChart(c *gin.Context, filename string, fn func(context.Context, string) ([]byte, error)) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	png, err := fn(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoChartData) {
			response.NotFound(c, response.CodeSubjectNotFound, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.File(c, "image/png", filename, png)
}
