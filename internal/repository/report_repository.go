package repository

import (
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"gorm.io/gorm"
)

// ReportRepository 库存与生命周期聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则，也绝不写库。
type ReportRepository interface {
	GetPrizeCounters(onlyActive bool) ([]PrizeCounterRow, error)
	GetBatchBreakdown(batchID uint, now time.Time) ([]BatchBreakdownRow, error)
	GetTotals(startAt, endAt *time.Time, now time.Time) (TokenTotalsRow, error)
	GetLeadTimePairs(startAt, endAt *time.Time) ([]LeadTimePairRow, error)
}

// PrizeCounterRow 单奖品计数原始行
type PrizeCounterRow struct {
	PrizeID        uint
	Key            string
	Label          string
	EmittedTotal   int64
	RevealedCount  int64
	DeliveredCount int64
}

// BatchBreakdownRow 批次内单奖品拆分原始行
type BatchBreakdownRow struct {
	PrizeID   uint
	Key       string
	Label     string
	Total     int64
	Valid     int64
	Expired   int64
	Revealed  int64
	Delivered int64
}

// TokenTotalsRow 全局/时段令牌总量原始行
type TokenTotalsRow struct {
	Total     int64
	Revealed  int64
	Delivered int64
	Expired   int64
	Disabled  int64
}

// LeadTimePairRow 揭示/交付时间对
type LeadTimePairRow struct {
	RevealedAt  time.Time
	DeliveredAt time.Time
}

// GormReportRepository GORM 聚合实现
type GormReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建聚合仓库
func NewReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// GetPrizeCounters 获取每个奖品的揭示/交付计数
// revealed 口径：已揭示且未交付；delivered 口径：已交付。
func (r *GormReportRepository) GetPrizeCounters(onlyActive bool) ([]PrizeCounterRow, error) {
	query := r.db.Model(&models.Prize{}).
		Select(`prizes.id as prize_id,
			prizes.key as key,
			prizes.label as label,
			prizes.emitted_total as emitted_total,
			COALESCE(SUM(CASE WHEN tokens.revealed_at IS NOT NULL AND tokens.delivered_at IS NULL THEN 1 ELSE 0 END), 0) as revealed_count,
			COALESCE(SUM(CASE WHEN tokens.delivered_at IS NOT NULL THEN 1 ELSE 0 END), 0) as delivered_count`).
		Joins("LEFT JOIN tokens ON tokens.prize_id = prizes.id").
		Group("prizes.id, prizes.key, prizes.label, prizes.emitted_total").
		Order("prizes.id asc")
	if onlyActive {
		query = query.Where("prizes.active = ?", true)
	}
	var rows []PrizeCounterRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetBatchBreakdown 获取批次内按奖品的拆分，含有效/过期子口径
func (r *GormReportRepository) GetBatchBreakdown(batchID uint, now time.Time) ([]BatchBreakdownRow, error) {
	var rows []BatchBreakdownRow
	if err := r.db.Model(&models.Token{}).
		Select(`tokens.prize_id as prize_id,
			prizes.key as key,
			prizes.label as label,
			COUNT(*) as total,
			SUM(CASE WHEN tokens.expires_at IS NULL OR tokens.expires_at > ? THEN 1 ELSE 0 END) as valid,
			SUM(CASE WHEN tokens.expires_at IS NOT NULL AND tokens.expires_at <= ? AND tokens.revealed_at IS NULL THEN 1 ELSE 0 END) as expired,
			SUM(CASE WHEN tokens.revealed_at IS NOT NULL THEN 1 ELSE 0 END) as revealed,
			SUM(CASE WHEN tokens.delivered_at IS NOT NULL THEN 1 ELSE 0 END) as delivered`,
			now, now).
		Joins("LEFT JOIN prizes ON prizes.id = tokens.prize_id").
		Where("tokens.batch_id = ?", batchID).
		Group("tokens.prize_id, prizes.key, prizes.label").
		Order("tokens.prize_id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTotals 获取时段内令牌总量统计
func (r *GormReportRepository) GetTotals(startAt, endAt *time.Time, now time.Time) (TokenTotalsRow, error) {
	result := TokenTotalsRow{}
	base := func() *gorm.DB {
		query := r.db.Model(&models.Token{})
		if startAt != nil {
			query = query.Where("created_at >= ?", *startAt)
		}
		if endAt != nil {
			query = query.Where("created_at < ?", *endAt)
		}
		return query
	}

	if err := base().Count(&result.Total).Error; err != nil {
		return result, err
	}
	if err := base().Where("revealed_at IS NOT NULL").Count(&result.Revealed).Error; err != nil {
		return result, err
	}
	if err := base().Where("delivered_at IS NOT NULL").Count(&result.Delivered).Error; err != nil {
		return result, err
	}
	if err := base().
		Where("revealed_at IS NULL AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Count(&result.Expired).Error; err != nil {
		return result, err
	}
	if err := base().Where("disabled = ?", true).Count(&result.Disabled).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetLeadTimePairs 获取已揭示且已交付令牌的时间对
// 平均交付时长在服务层计算，避免跨方言的日期差函数。
func (r *GormReportRepository) GetLeadTimePairs(startAt, endAt *time.Time) ([]LeadTimePairRow, error) {
	query := r.db.Model(&models.Token{}).
		Select("revealed_at, delivered_at").
		Where("revealed_at IS NOT NULL AND delivered_at IS NOT NULL")
	if startAt != nil {
		query = query.Where("created_at >= ?", *startAt)
	}
	if endAt != nil {
		query = query.Where("created_at < ?", *endAt)
	}
	var rows []LeadTimePairRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
