package service

import (
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
)

// DeriveTokenState 从令牌时间戳派生当前状态。
// 优先级：disabled > delivered > revealed > expired > upcoming > active。
// 状态永不落库，同一令牌在不同时刻可派生出不同状态（active -> expired），
// 但 revealed/delivered 一经设置即不可逆。
func DeriveTokenState(token *models.Token, now time.Time) string {
	if token == nil {
		return ""
	}
	if token.Disabled {
		return constants.TokenStateDisabled
	}
	if token.DeliveredAt != nil {
		return constants.TokenStateDelivered
	}
	if token.RevealedAt != nil {
		return constants.TokenStateRevealed
	}
	if token.ExpiresAt != nil && !token.ExpiresAt.After(now) {
		return constants.TokenStateExpired
	}
	if token.ValidFrom != nil && token.ValidFrom.After(now) {
		return constants.TokenStateUpcoming
	}
	return constants.TokenStateActive
}

// IsSystemPrizeKey 判断是否为系统保留奖品 key（retry/lose）
func IsSystemPrizeKey(key string) bool {
	return key == constants.PrizeKeyRetry || key == constants.PrizeKeyLose
}
