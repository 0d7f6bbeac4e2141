package model

import "gorm.io/gorm"

// Subject 科目表 — 对应 subjects
//
// TotalClasses / AttendedClasses 仅由出勤记录的创建与删除维护，
// 始终满足 0 <= AttendedClasses <= TotalClasses。
type Subject struct {
	SubjectID       string `gorm:"type:uuid;primaryKey"                json:"subject_id"`
	UserID          string `gorm:"type:uuid;not null;index"            json:"user_id"`
	Name            string `gorm:"type:varchar(100);not null"          json:"name"`
	TotalClasses    int    `gorm:"not null;default:0"                  json:"total_classes"`
	AttendedClasses int    `gorm:"not null;default:0"                  json:"attended_classes"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// BeforeCreate 生成主键
func (s *Subject) BeforeCreate(_ *gorm.DB) error {
	newID(&s.SubjectID)
	return nil
}
