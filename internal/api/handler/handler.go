package handler

import "attendance-tracker/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Subject    *SubjectHandler
	Attendance *AttendanceHandler
	Analytics  *AnalyticsHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Subject:    NewSubjectHandler(svc.Subject),
		Attendance: NewAttendanceHandler(svc.Attendance, svc.Export),
		Analytics:  NewAnalyticsHandler(svc.Analytics),
		Export:     NewExportHandler(svc.Export),
	}
}
