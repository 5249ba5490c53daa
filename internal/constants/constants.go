package constants

// 系统奖品保留 key（转盘揭示流程的特殊结果）
const (
	PrizeKeyRetry = "retry"
	PrizeKeyLose  = "lose"
)

// 批次有效期模式
const (
	BatchModeByDays     = "by_days"
	BatchModeSingleDay  = "single_day"
	BatchModeSingleHour = "single_hour"
)

// 令牌派生状态
const (
	TokenStateUpcoming  = "upcoming"
	TokenStateActive    = "active"
	TokenStateRevealed  = "revealed"
	TokenStateDelivered = "delivered"
	TokenStateExpired   = "expired"
	TokenStateDisabled  = "disabled"
)

// 令牌审计事件
const (
	TokenEventRevealed  = "revealed"
	TokenEventDelivered = "delivered"
	TokenEventDisabled  = "disabled"
	TokenEventExtended  = "extended"
)

// 队列与任务名称
const (
	QueueDefault = "default"

	TaskBatchManifest  = "batch:manifest"
	TaskReportSnapshot = "report:snapshot"
)

// 场馆本地时间默认 UTC 偏移（分钟，-300 即 UTC-5，无夏令时）
const DefaultVenueUTCOffsetMinutes = -300

// 令牌默认策略上限
const (
	DefaultMaxExtensions  = 3
	DefaultMaxBatchTokens = 10000
)

// 列表分页边界
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
