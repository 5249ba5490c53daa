package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员表
type Admin struct {
	ID           uint           `gorm:"primarykey" json:"id"`                              // 主键
	Username     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"` // 用户名
	PasswordHash string         `gorm:"type:varchar(120);not null" json:"-"`               // 密码哈希
	LastLoginAt  *time.Time     `json:"last_login_at"`                                     // 最近登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
