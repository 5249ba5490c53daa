package models

import (
	"time"
)

// Token 奖品令牌表
// 说明：生命周期状态由时间戳派生，不落库存储；库存在生成时扣减而非揭示时。
type Token struct {
	ID             string     `gorm:"type:varchar(36);primarykey" json:"id"`      // 全局唯一令牌ID（UUID）
	PrizeID        uint       `gorm:"index;not null" json:"prize_id"`             // 奖品ID（创建后不变）
	BatchID        uint       `gorm:"index;not null" json:"batch_id"`             // 批次ID
	ValidFrom      *time.Time `gorm:"index" json:"valid_from"`                    // 生效时间（NULL=立即生效）
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at"`                    // 过期时间（NULL=永不过期）
	RevealedAt     *time.Time `gorm:"index" json:"revealed_at"`                   // 揭示时间（只能设置一次）
	DeliveredAt    *time.Time `gorm:"index" json:"delivered_at"`                  // 交付时间（必须先揭示）
	Disabled       bool       `gorm:"default:false;index" json:"disabled"`        // 是否停用
	DisabledReason *string    `gorm:"type:varchar(200)" json:"disabled_reason"`   // 停用原因
	ExtendedCount  int        `gorm:"not null;default:0" json:"extended_count"`   // 延期次数
	LastExtendedAt *time.Time `json:"last_extended_at"`                           // 最近延期时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt      time.Time  `gorm:"index" json:"updated_at"`                    // 更新时间

	Prize *Prize `gorm:"foreignKey:PrizeID" json:"prize,omitempty"` // 奖品信息
	Batch *Batch `gorm:"foreignKey:BatchID" json:"batch,omitempty"` // 批次信息
}

// TableName 指定表名
func (Token) TableName() string {
	return "tokens"
}
