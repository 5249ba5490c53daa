package models

import "time"

// TokenAuditLog 令牌审计日志表（追加写，不修改）
type TokenAuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`                        // 主键
	TokenID   string    `gorm:"type:varchar(36);index;not null" json:"token_id"` // 令牌ID
	Event     string    `gorm:"type:varchar(24);index;not null" json:"event"`    // 事件（revealed/delivered/disabled/extended）
	Detail    string    `gorm:"type:varchar(200)" json:"detail"`             // 事件详情
	ActorID   *uint     `gorm:"index" json:"actor_id,omitempty"`             // 操作管理员ID（扫码事件为空）
	CreatedAt time.Time `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (TokenAuditLog) TableName() string {
	return "token_audit_logs"
}
