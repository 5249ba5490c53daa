package models

import (
	"time"

	"gorm.io/gorm"
)

// Prize 奖品库存表
// 说明：stock 为 NULL 表示不限量；emitted_total 只增不减。
type Prize struct {
	ID           uint           `gorm:"primarykey" json:"id"`                            // 主键
	Key          string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"key"` // 奖品标识（retry/lose 为系统保留）
	Label        string         `gorm:"type:varchar(120);not null" json:"label"`         // 展示名称
	Color        string         `gorm:"type:varchar(16)" json:"color"`                   // 展示颜色
	Active       bool           `gorm:"default:true;index" json:"active"`                // 是否启用
	Stock        *int64         `json:"stock"`                                           // 剩余库存（NULL=不限量）
	EmittedTotal int64          `gorm:"not null;default:0" json:"emitted_total"`         // 历史发放总量
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                         // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                  // 软删除时间
}

// TableName 指定表名
func (Prize) TableName() string {
	return "prizes"
}

// HasFiniteStock 判断是否为有限库存奖品
func (p *Prize) HasFiniteStock() bool {
	return p != nil && p.Stock != nil
}
