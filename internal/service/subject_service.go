package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/internal/repository"
	"attendance-tracker/backend/internal/stats"
)

// ── 科目模块业务错误 ──

var (
	ErrSubjectNameRequired = errors.New("科目名称不能为空")
	ErrSubjectNotFound     = errors.New("科目不存在")
)

// SubjectService 科目业务接口
type SubjectService interface {
	List(ctx context.Context, userID string) ([]dto.SubjectResponse, error)
	Create(ctx context.Context, userID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error)
	// Delete 删除科目及其全部出勤记录
	Delete(ctx context.Context, userID, subjectID string) error
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

func (s *subjectService) List(ctx context.Context, userID string) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx, userID)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toSubjectResponses(subjects), nil
}

func (s *subjectService) Create(ctx context.Context, userID string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrSubjectNameRequired
	}

	subject := &model.Subject{UserID: userID, Name: name}
	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("科目已创建", zap.String("subject_id", subject.SubjectID), zap.String("name", name))
	resp := toSubjectResponse(subject)
	return &resp, nil
}

func (s *subjectService) Delete(ctx context.Context, userID, subjectID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Subject.Delete(ctx, userID, subjectID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("删除科目失败", zap.String("subject_id", subjectID), zap.Error(err))
		return err
	}
	s.logger.Info("科目已删除", zap.String("subject_id", subjectID))
	return nil
}

// ── 转换 ──

func toSubjectResponse(subject *model.Subject) dto.SubjectResponse {
	pct := stats.PercentageOf(subject.AttendedClasses, subject.TotalClasses)
	return dto.SubjectResponse{
		ID:                   subject.SubjectID,
		Name:                 subject.Name,
		TotalClasses:         subject.TotalClasses,
		AttendedClasses:      subject.AttendedClasses,
		AttendancePercentage: pct,
		Status:               stats.Classify(pct),
		CreatedAt:            formatTime(subject.CreatedAt),
	}
}

func toSubjectResponses(subjects []model.Subject) []dto.SubjectResponse {
	list := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		list = append(list, toSubjectResponse(&subjects[i]))
	}
	return list
}

func toEntries(subjects []model.Subject) []stats.Entry {
	entries := make([]stats.Entry, 0, len(subjects))
	for _, sub := range subjects {
		entries = append(entries, stats.Entry{
			Name:     sub.Name,
			Attended: sub.AttendedClasses,
			Total:    sub.TotalClasses,
		})
	}
	return entries
}
