package dto

import "attendance-tracker/backend/internal/stats"

// ── 科目模块 DTO ──

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,notblank,max=100"`
}

// SubjectResponse 科目信息，附带由计数派生的出勤率与等级
type SubjectResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	TotalClasses         int          `json:"total_classes"`
	AttendedClasses      int          `json:"attended_classes"`
	AttendancePercentage int          `json:"attendance_percentage"`
	Status               stats.Status `json:"status"`
	CreatedAt            string       `json:"created_at"`
}
