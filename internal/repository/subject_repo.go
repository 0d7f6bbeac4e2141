package repository

import (
	"context"

	"gorm.io/gorm"

	"attendance-tracker/backend/internal/model"
)

// SubjectRepository 科目数据访问接口；所有查询均按所属用户限定
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, userID, id string) (*model.Subject, error)
	List(ctx context.Context, userID string) ([]model.Subject, error)
	// AdjustCounts 原子地调整计数；delta 可为负
	AdjustCounts(ctx context.Context, id string, totalDelta, attendedDelta int) error
	Delete(ctx context.Context, userID, id string) error
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, userID, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND user_id = ?", id, userID).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) List(ctx context.Context, userID string) ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, name ASC").
		Find(&subjects).Error
	return subjects, err
}

func (r *subjectRepo) AdjustCounts(ctx context.Context, id string, totalDelta, attendedDelta int) error {
	res := r.db.WithContext(ctx).
		Model(&model.Subject{}).
		Where("subject_id = ?", id).
		Updates(map[string]interface{}{
			"total_classes":    gorm.Expr("total_classes + ?", totalDelta),
			"attended_classes": gorm.Expr("attended_classes + ?", attendedDelta),
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 先确认科目属于该用户，再级联删除其出勤记录与科目本身；调用方负责放在事务中
func (r *subjectRepo) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.GetByID(ctx, userID, id); err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("subject_id = ?", id).Delete(&model.AttendanceRecord{}).Error; err != nil {
		return err
	}
	res := db.Where("subject_id = ? AND user_id = ?", id, userID).Delete(&model.Subject{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
