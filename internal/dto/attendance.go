package dto

// ── 出勤模块 DTO ──

// CreateAttendanceRequest 标记出勤请求
type CreateAttendanceRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	Date      string `json:"date"       binding:"required,calendar_date"`
	Status    string `json:"status"     binding:"required,oneof=present absent"`
}

// AttendanceResponse 出勤记录
type AttendanceResponse struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}
