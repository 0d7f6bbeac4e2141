package model

import (
	"time"

	"gorm.io/gorm"
)

// AttendanceStatus 出勤状态
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid 是否为受支持的状态
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent:
		return true
	default:
		return false
	}
}

// DateLayout 出勤日期格式（无时间部分）
const DateLayout = "2006-01-02"

// AttendanceRecord 出勤记录表 — 对应 attendance_records
//
// (subject_id, date) 唯一；记录只会被创建和删除，不做原地更新。
type AttendanceRecord struct {
	RecordID  string           `gorm:"type:uuid;primaryKey"                               json:"record_id"`
	SubjectID string           `gorm:"type:uuid;not null;uniqueIndex:uk_attendance_subject_date" json:"subject_id"`
	UserID    string           `gorm:"type:uuid;not null;index"                           json:"user_id"`
	Date      time.Time        `gorm:"type:date;not null;uniqueIndex:uk_attendance_subject_date" json:"date"`
	Status    AttendanceStatus `gorm:"type:varchar(10);not null"                          json:"status"`
	BaseModel

	// 关联（仅回查，不表示所有权）
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID;constraint:OnDelete:CASCADE" json:"subject,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// BeforeCreate 生成主键
func (r *AttendanceRecord) BeforeCreate(_ *gorm.DB) error {
	newID(&r.RecordID)
	return nil
}

// ParseDate 解析 YYYY-MM-DD，结果为 UTC 零点
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
