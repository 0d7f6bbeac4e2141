package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"attendance-tracker/backend/config"
	"attendance-tracker/backend/internal/repository"
	"attendance-tracker/backend/pkg/jwt"
)

// TokenBlacklist 登出 Token 黑名单；Redis 不可用时传 nil，相关功能降级
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Subject    SubjectService
	Attendance AttendanceService
	Analytics  AnalyticsService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:       NewUserService(repo, logger),
		Subject:    NewSubjectService(repo, logger),
		Attendance: NewAttendanceService(repo, logger),
		Analytics:  NewAnalyticsService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}

// formatTime 统一的时间输出格式
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
