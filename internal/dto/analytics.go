package dto

import "attendance-tracker/backend/internal/stats"

// ── 统计模块 DTO ──

// AnalyticsResponse 统计页数据；每次请求重新计算
type AnalyticsResponse struct {
	Summary      stats.Summary         `json:"summary"`
	BarSeries    []stats.BarPoint      `json:"bar_series"`
	Distribution []stats.CategoryCount `json:"distribution"`
	Subjects     []SubjectResponse     `json:"subjects"`
}
