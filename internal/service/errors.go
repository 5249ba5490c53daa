package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("记录不存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
)

// 奖品错误
var (
	ErrPrizeInvalid      = errors.New("奖品参数无效")
	ErrPrizeNotFound     = errors.New("奖品不存在")
	ErrPrizeKeyExists    = errors.New("奖品 key 已存在")
	ErrPrizeKeyReserved  = errors.New("奖品 key 为系统保留")
	ErrPrizeInactive     = errors.New("奖品已停用")
	ErrPrizeReferenced   = errors.New("奖品已被令牌引用，不可删除")
	ErrPrizeFetchFailed  = errors.New("获取奖品失败")
	ErrPrizeCreateFailed = errors.New("创建奖品失败")
	ErrPrizeUpdateFailed = errors.New("更新奖品失败")
	ErrPrizeDeleteFailed = errors.New("删除奖品失败")
	ErrInsufficientStock = errors.New("奖品库存不足")
)

// 批次错误
var (
	ErrBatchInvalid      = errors.New("批次参数无效")
	ErrBatchNotFound     = errors.New("批次不存在")
	ErrBatchEmpty        = errors.New("批次不含任何令牌")
	ErrBatchTooLarge     = errors.New("批次令牌数超出上限")
	ErrBatchCreateFailed = errors.New("创建批次失败")
	ErrBatchFetchFailed  = errors.New("获取批次失败")
	ErrBatchPurgeFailed  = errors.New("清除批次失败")
)

// 令牌错误
var (
	ErrTokenInvalid         = errors.New("令牌参数无效")
	ErrTokenNotFound        = errors.New("令牌不存在")
	ErrTokenDisabled        = errors.New("令牌已停用")
	ErrTokenUpcoming        = errors.New("令牌尚未生效")
	ErrTokenExpired         = errors.New("令牌已过期")
	ErrTokenAlreadyRevealed = errors.New("令牌已揭示")
	ErrTokenNotRevealed     = errors.New("令牌尚未揭示")
	ErrTokenDelivered       = errors.New("令牌已交付")
	ErrTokenNotExtendable   = errors.New("令牌不可延期")
	ErrTokenExtendConflict  = errors.New("令牌延期冲突，请重试")
	ErrTokenExtendLimit     = errors.New("令牌延期次数已达上限")
	ErrTokenSystemPrize     = errors.New("系统奖品令牌不可交付")
	ErrTokenFetchFailed     = errors.New("获取令牌失败")
	ErrTokenUpdateFailed    = errors.New("更新令牌失败")
)

// 报表错误
var (
	ErrReportFetchFailed = errors.New("获取统计数据失败")
)
