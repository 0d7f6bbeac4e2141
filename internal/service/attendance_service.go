package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/internal/repository"
)

// ── 出勤模块业务错误 ──

var (
	ErrInvalidDate         = errors.New("日期格式应为 YYYY-MM-DD")
	ErrInvalidStatus       = errors.New("出勤状态只能是 present 或 absent")
	ErrAttendanceDuplicate = errors.New("该科目在这一天已有出勤记录")
	ErrAttendanceNotFound  = errors.New("出勤记录不存在")
)

// AttendanceService 出勤业务接口
//
// 记录的增删与科目计数在同一事务内完成：
// 新增 total+1（present 时 attended+1），删除时反向调整。
type AttendanceService interface {
	Create(ctx context.Context, userID string, req *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error)
	ListBySubject(ctx context.Context, userID, subjectID string) ([]dto.AttendanceResponse, error)
	Delete(ctx context.Context, userID, recordID string) error
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *attendanceService) Create(ctx context.Context, userID string, req *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error) {
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	status := model.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	record := &model.AttendanceRecord{
		SubjectID: req.SubjectID,
		UserID:    userID,
		Date:      date,
		Status:    status,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 1. 科目必须属于当前用户
		if _, err := tx.Subject.GetByID(ctx, userID, req.SubjectID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubjectNotFound
			}
			return err
		}

		// 2. 同一天只能有一条记录（唯一索引兜底并发）
		exists, err := tx.Attendance.ExistsOnDate(ctx, req.SubjectID, date)
		if err != nil {
			return err
		}
		if exists {
			return ErrAttendanceDuplicate
		}

		// 3. 写入记录并调整计数
		if err := tx.Attendance.Create(ctx, record); err != nil {
			if errors.Is(err, repository.ErrDuplicateDate) {
				return ErrAttendanceDuplicate
			}
			return err
		}
		return tx.Subject.AdjustCounts(ctx, req.SubjectID, 1, attendedDelta(status))
	})
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) || errors.Is(err, ErrAttendanceDuplicate) {
			return nil, err
		}
		s.logger.Error("创建出勤记录失败",
			zap.String("subject_id", req.SubjectID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("出勤已记录",
		zap.String("subject_id", req.SubjectID),
		zap.String("date", req.Date),
		zap.String("status", req.Status),
	)
	resp := toAttendanceResponse(record)
	return &resp, nil
}

// ────────────────────── ListBySubject ──────────────────────

func (s *attendanceService) ListBySubject(ctx context.Context, userID, subjectID string) ([]dto.AttendanceResponse, error) {
	if _, err := s.repo.Subject.GetByID(ctx, userID, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, err
	}

	records, err := s.repo.Attendance.ListBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		list = append(list, toAttendanceResponse(&records[i]))
	}
	return list, nil
}

// ────────────────────── Delete ──────────────────────

func (s *attendanceService) Delete(ctx context.Context, userID, recordID string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		record, err := tx.Attendance.GetByID(ctx, userID, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceNotFound
			}
			return err
		}
		if err := tx.Attendance.Delete(ctx, record.RecordID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceNotFound
			}
			return err
		}
		return tx.Subject.AdjustCounts(ctx, record.SubjectID, -1, -attendedDelta(record.Status))
	})
	if err != nil {
		if errors.Is(err, ErrAttendanceNotFound) {
			return err
		}
		s.logger.Error("删除出勤记录失败", zap.String("record_id", recordID), zap.Error(err))
		return err
	}

	s.logger.Info("出勤记录已删除", zap.String("record_id", recordID))
	return nil
}

// ── 内部辅助方法 ──

func attendedDelta(status model.AttendanceStatus) int {
	if status == model.AttendancePresent {
		return 1
	}
	return 0
}

func toAttendanceResponse(record *model.AttendanceRecord) dto.AttendanceResponse {
	return dto.AttendanceResponse{
		ID:        record.RecordID,
		SubjectID: record.SubjectID,
		Date:      record.Date.Format(model.DateLayout),
		Status:    string(record.Status),
		CreatedAt: formatTime(record.CreatedAt),
	}
}
