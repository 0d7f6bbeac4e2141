package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"attendance-tracker/backend/internal/model"
)

// ErrDuplicateDate 唯一索引 (subject_id, date) 冲突
var ErrDuplicateDate = errors.New("该日期已存在出勤记录")

// AttendanceRepository 出勤记录数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByID(ctx context.Context, userID, id string) (*model.AttendanceRecord, error)
	ExistsOnDate(ctx context.Context, subjectID string, date time.Time) (bool, error)
	// ListBySubject 按日期倒序
	ListBySubject(ctx context.Context, subjectID string) ([]model.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	err := r.db.WithContext(ctx).Omit("Subject").Create(record).Error
	if isUniqueViolation(err) {
		return ErrDuplicateDate
	}
	return err
}

func (r *attendanceRepo) GetByID(ctx context.Context, userID, id string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("record_id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) ExistsOnDate(ctx context.Context, subjectID string, date time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("subject_id = ? AND date = ?", subjectID, date).
		Count(&n).Error
	return n > 0, err
}

func (r *attendanceRepo) ListBySubject(ctx context.Context, subjectID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("date DESC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("record_id = ?", id).Delete(&model.AttendanceRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// isUniqueViolation 兼容 PostgreSQL (23505) 与 SQLite 的唯一约束错误
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
