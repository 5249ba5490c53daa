package service

import (
	"context"
	"fmt"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/cache"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"
)

const reportCacheTTL = 60 * time.Second

// ReportService 库存与生命周期统计服务
type ReportService struct {
	repo      repository.ReportRepository
	prizeRepo repository.PrizeRepository
}

// ReportQueryInput 统计查询输入
type ReportQueryInput struct {
	StartAt      *time.Time
	EndAt        *time.Time
	ForceRefresh bool
}

// PrizeReportRow 单奖品统计
type PrizeReportRow struct {
	PrizeID        uint   `json:"prize_id"`
	Key            string `json:"key"`
	Label          string `json:"label"`
	Stock          *int64 `json:"stock"` // null 表示不限量
	EmittedTotal   int64  `json:"emitted_total"`
	RevealedCount  int64  `json:"revealed_count"`
	DeliveredCount int64  `json:"delivered_count"`
	DeliveryRate   string `json:"delivery_rate"`
}

// BatchReportLine 批次统计单奖品行
type BatchReportLine struct {
	PrizeID   uint   `json:"prize_id"`
	Key       string `json:"key"`
	Label     string `json:"label"`
	Total     int64  `json:"total"`
	Valid     int64  `json:"valid"`
	Expired   int64  `json:"expired"`
	Revealed  int64  `json:"revealed"`
	Delivered int64  `json:"delivered"`
}

// BatchReportResponse 批次统计响应
type BatchReportResponse struct {
	BatchID     uint              `json:"batch_id"`
	GeneratedAt string            `json:"generated_at"`
	Lines       []BatchReportLine `json:"lines"`
}

// ReportSummaryResponse 全局统计响应
type ReportSummaryResponse struct {
	From               string           `json:"from,omitempty"`
	To                 string           `json:"to,omitempty"`
	GeneratedAt        string           `json:"generated_at"`
	TotalTokens        int64            `json:"total_tokens"`
	RevealedCount      int64            `json:"revealed_count"`
	DeliveredCount     int64            `json:"delivered_count"`
	ExpiredCount       int64            `json:"expired_count"`
	DisabledCount      int64            `json:"disabled_count"`
	RevealRate         string           `json:"reveal_rate"`
	DeliveryRate       string           `json:"delivery_rate"`
	AvgLeadTimeSeconds int64            `json:"avg_lead_time_seconds"`
	Prizes             []PrizeReportRow `json:"prizes"`
}

// NewReportService 创建统计服务
func NewReportService(repo repository.ReportRepository, prizeRepo repository.PrizeRepository) *ReportService {
	return &ReportService{repo: repo, prizeRepo: prizeRepo}
}

// GetSummary 获取全局统计
// 揭示率 = revealed/total，交付率 = delivered/revealed；
// retry/lose 为不限量系统奖品，永远不会出现在 delivered 口径中。
func (s *ReportService) GetSummary(ctx context.Context, input ReportQueryInput) (*ReportSummaryResponse, error) {
	if s == nil || s.repo == nil {
		return nil, ErrReportFetchFailed
	}

	cacheKey := buildReportCacheKey("report:summary", input.StartAt, input.EndAt)
	if !input.ForceRefresh {
		var cached ReportSummaryResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	now := time.Now().UTC()
	totals, err := s.repo.GetTotals(input.StartAt, input.EndAt, now)
	if err != nil {
		return nil, ErrReportFetchFailed
	}
	counters, err := s.repo.GetPrizeCounters(false)
	if err != nil {
		return nil, ErrReportFetchFailed
	}
	pairs, err := s.repo.GetLeadTimePairs(input.StartAt, input.EndAt)
	if err != nil {
		return nil, ErrReportFetchFailed
	}

	prizes, err := s.prizeRepo.ListByIDs(collectPrizeIDs(counters))
	if err != nil {
		return nil, ErrReportFetchFailed
	}
	stockByID := make(map[uint]*int64, len(prizes))
	for i := range prizes {
		stockByID[prizes[i].ID] = prizes[i].Stock
	}

	rows := make([]PrizeReportRow, 0, len(counters))
	for _, counter := range counters {
		deliveryRate := 0.0
		revealedTotal := counter.RevealedCount + counter.DeliveredCount
		if revealedTotal > 0 {
			deliveryRate = float64(counter.DeliveredCount) / float64(revealedTotal) * 100
		}
		rows = append(rows, PrizeReportRow{
			PrizeID:        counter.PrizeID,
			Key:            counter.Key,
			Label:          counter.Label,
			Stock:          stockByID[counter.PrizeID],
			EmittedTotal:   counter.EmittedTotal,
			RevealedCount:  counter.RevealedCount,
			DeliveredCount: counter.DeliveredCount,
			DeliveryRate:   formatPercentValue(deliveryRate),
		})
	}

	revealRate := 0.0
	if totals.Total > 0 {
		revealRate = float64(totals.Revealed) / float64(totals.Total) * 100
	}
	deliveryRate := 0.0
	if totals.Revealed > 0 {
		deliveryRate = float64(totals.Delivered) / float64(totals.Revealed) * 100
	}

	response := &ReportSummaryResponse{
		GeneratedAt:        now.Format(time.RFC3339),
		TotalTokens:        totals.Total,
		RevealedCount:      totals.Revealed,
		DeliveredCount:     totals.Delivered,
		ExpiredCount:       totals.Expired,
		DisabledCount:      totals.Disabled,
		RevealRate:         formatPercentValue(revealRate),
		DeliveryRate:       formatPercentValue(deliveryRate),
		AvgLeadTimeSeconds: averageLeadTimeSeconds(pairs),
		Prizes:             rows,
	}
	if input.StartAt != nil {
		response.From = input.StartAt.UTC().Format(time.RFC3339)
	}
	if input.EndAt != nil {
		response.To = input.EndAt.UTC().Format(time.RFC3339)
	}

	_ = cache.SetJSON(ctx, cacheKey, response, reportCacheTTL)
	return response, nil
}

// GetBatchReport 获取批次统计
func (s *ReportService) GetBatchReport(ctx context.Context, batchID uint) (*BatchReportResponse, error) {
	if s == nil || s.repo == nil || batchID == 0 {
		return nil, ErrReportFetchFailed
	}
	now := time.Now().UTC()
	rows, err := s.repo.GetBatchBreakdown(batchID, now)
	if err != nil {
		return nil, ErrReportFetchFailed
	}
	lines := make([]BatchReportLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, BatchReportLine{
			PrizeID:   row.PrizeID,
			Key:       row.Key,
			Label:     row.Label,
			Total:     row.Total,
			Valid:     row.Valid,
			Expired:   row.Expired,
			Revealed:  row.Revealed,
			Delivered: row.Delivered,
		})
	}
	return &BatchReportResponse{
		BatchID:     batchID,
		GeneratedAt: now.Format(time.RFC3339),
		Lines:       lines,
	}, nil
}

// RefreshSummarySnapshot 刷新全局统计快照（供后台任务调用）
func (s *ReportService) RefreshSummarySnapshot(ctx context.Context) error {
	_, err := s.GetSummary(ctx, ReportQueryInput{ForceRefresh: true})
	return err
}

func collectPrizeIDs(counters []repository.PrizeCounterRow) []uint {
	ids := make([]uint, 0, len(counters))
	for _, counter := range counters {
		ids = append(ids, counter.PrizeID)
	}
	return ids
}

// averageLeadTimeSeconds 平均交付时长（揭示到交付，秒）
// 仅统计严格为正的间隔，非正值剔除而非归零。
func averageLeadTimeSeconds(pairs []repository.LeadTimePairRow) int64 {
	if len(pairs) == 0 {
		return 0
	}
	var total time.Duration
	count := 0
	for _, pair := range pairs {
		lead := pair.DeliveredAt.Sub(pair.RevealedAt)
		if lead <= 0 {
			continue
		}
		total += lead
		count++
	}
	if count == 0 {
		return 0
	}
	return int64((total / time.Duration(count)).Seconds())
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildReportCacheKey(prefix string, startAt, endAt *time.Time) string {
	start := int64(0)
	end := int64(0)
	if startAt != nil {
		start = startAt.Unix()
	}
	if endAt != nil {
		end = endAt.Unix()
	}
	return fmt.Sprintf("%s:%d:%d", prefix, start, end)
}
