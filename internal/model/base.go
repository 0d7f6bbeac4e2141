package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// newID 主键由应用生成，PostgreSQL 与 SQLite 两种驱动行为一致
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
