package models

import (
	"time"

	"gorm.io/gorm"
)

// Batch 令牌批次表
// 说明：有效期窗口在创建时一次性解析并落库，后续不再重算。
type Batch struct {
	ID              uint           `gorm:"primarykey" json:"id"`                             // 主键
	BatchNo         string         `gorm:"type:varchar(48);uniqueIndex;not null" json:"batch_no"` // 批次号
	Description     string         `gorm:"type:varchar(200);not null" json:"description"`    // 描述
	Mode            string         `gorm:"type:varchar(24);index;not null" json:"mode"`      // 有效期模式（by_days/single_day/single_hour）
	ValidityDays    *int           `json:"validity_days,omitempty"`                          // by_days 天数
	ValidityDate    *string        `gorm:"type:varchar(10)" json:"validity_date,omitempty"`  // single_day/single_hour 日期（YYYY-MM-DD）
	StartTime       *string        `gorm:"type:varchar(5)" json:"start_time,omitempty"`      // single_hour 起始时刻（HH:MM）
	DurationMinutes *int           `json:"duration_minutes,omitempty"`                       // single_hour 持续分钟数
	ValidFrom       *time.Time     `gorm:"index" json:"valid_from"`                          // 解析后的生效时间（NULL=立即生效）
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                          // 解析后的过期时间（NULL=永不过期）
	IsReusable      bool           `gorm:"default:false" json:"is_reusable"`                 // 是否可重复抽取
	StaticTargetURL *string        `gorm:"type:text" json:"static_target_url,omitempty"`     // 外链目标（非空则扫码直接跳转）
	TotalTokens     int            `gorm:"not null;default:0" json:"total_tokens"`           // 生成令牌总数
	CreatedBy       *uint          `gorm:"index" json:"created_by,omitempty"`                // 创建管理员ID
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                          // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间

	Tokens []Token `gorm:"foreignKey:BatchID" json:"tokens,omitempty"` // 批次令牌
}

// TableName 指定表名
func (Batch) TableName() string {
	return "batches"
}
