package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Subject    SubjectRepository
	Attendance AttendanceRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Subject:    NewSubjectRepo(db),
		Attendance: NewAttendanceRepo(db),
		db:         db,
	}
}

// Transaction 在同一事务中执行 fn；fn 收到的是绑定到该事务的 Repository。
// 未绑定数据库（如单元测试中的 mock 聚合）时直接以自身执行。
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
