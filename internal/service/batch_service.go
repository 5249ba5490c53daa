package service

import (
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/queue"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/validity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const batchNoPrefix = "TKB"

// BatchService 批次生成服务
type BatchService struct {
	cfg         *config.Config
	batchRepo   repository.BatchRepository
	prizeRepo   repository.PrizeRepository
	tokenRepo   repository.TokenRepository
	queueClient *queue.Client
}

// BatchLineInput 批次单奖品行输入
type BatchLineInput struct {
	PrizeID uint
	Count   int
}

// GenerateBatchInput 生成批次输入
type GenerateBatchInput struct {
	Description     string
	Mode            string
	ValidityDays    int
	ValidityDate    string
	StartTime       string
	DurationMinutes int
	Lines           []BatchLineInput
	GenerateAll     bool // 按现有有限库存全量生成（忽略 Lines）
	IsReusable      bool
	StaticTargetURL string
	CreatedBy       *uint
}

// BatchListInput 批次列表输入
type BatchListInput struct {
	Page        int
	PageSize    int
	Mode        string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ManifestLine 批次清单单奖品行
type ManifestLine struct {
	PrizeID uint   `json:"prize_id"`
	Key     string `json:"key"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

// ManifestMeta 批次清单元数据
type ManifestMeta struct {
	TotalTokens int `json:"total_tokens"`
}

// BatchManifest 批次清单（批次与其令牌构成的对账契约）
type BatchManifest struct {
	BatchID     uint           `json:"batch_id"`
	BatchNo     string         `json:"batch_no"`
	Description string         `json:"description"`
	Mode        string         `json:"mode"`
	ValidFrom   *time.Time     `json:"valid_from"`
	ExpiresAt   *time.Time     `json:"expires_at"`
	Prizes      []ManifestLine `json:"prizes"`
	Meta        ManifestMeta   `json:"meta"`
}

// NewBatchService 创建批次服务
func NewBatchService(cfg *config.Config, batchRepo repository.BatchRepository, prizeRepo repository.PrizeRepository, tokenRepo repository.TokenRepository, queueClient *queue.Client) *BatchService {
	return &BatchService{
		cfg:         cfg,
		batchRepo:   batchRepo,
		prizeRepo:   prizeRepo,
		tokenRepo:   tokenRepo,
		queueClient: queueClient,
	}
}

// GenerateBatch 原子生成批次与令牌
// 单事务内完成：库存条件预占 -> 批次落库 -> 令牌批量落库。
// 任一行库存不足则整体失败，不留半成品批次。
func (s *BatchService) GenerateBatch(input GenerateBatchInput) (*models.Batch, *BatchManifest, error) {
	if s == nil || s.batchRepo == nil || s.prizeRepo == nil {
		return nil, nil, ErrBatchCreateFailed
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, nil, ErrBatchInvalid
	}
	if !input.GenerateAll && len(input.Lines) == 0 {
		return nil, nil, ErrBatchEmpty
	}

	now := time.Now().UTC()
	mode := validity.Mode{
		Kind:            strings.TrimSpace(input.Mode),
		Days:            input.ValidityDays,
		Date:            strings.TrimSpace(input.ValidityDate),
		StartTime:       strings.TrimSpace(input.StartTime),
		DurationMinutes: input.DurationMinutes,
	}
	validFrom, expiresAt, err := validity.ResolveWindow(mode, now, s.venueOffsetMinutes())
	if err != nil {
		return nil, nil, ErrBatchInvalid
	}

	batch := &models.Batch{
		BatchNo:     generateBatchNo(now),
		Description: description,
		Mode:        mode.Kind,
		ValidFrom:   validFrom,
		ExpiresAt:   expiresAt,
		IsReusable:  input.IsReusable,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch mode.Kind {
	case constants.BatchModeByDays:
		days := mode.Days
		batch.ValidityDays = &days
	case constants.BatchModeSingleDay:
		date := mode.Date
		batch.ValidityDate = &date
	case constants.BatchModeSingleHour:
		date := mode.Date
		start := mode.StartTime
		duration := mode.DurationMinutes
		batch.ValidityDate = &date
		batch.StartTime = &start
		batch.DurationMinutes = &duration
	}
	if target := strings.TrimSpace(input.StaticTargetURL); target != "" {
		batch.StaticTargetURL = &target
	}

	var manifest *BatchManifest
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		batchRepo := s.batchRepo.WithTx(tx)
		prizeRepo := s.prizeRepo.WithTx(tx)

		lines, prizes, resolveErr := s.resolveLines(prizeRepo, input)
		if resolveErr != nil {
			return resolveErr
		}

		totalTokens := 0
		for _, line := range lines {
			totalTokens += line.Count
		}
		if totalTokens == 0 {
			return ErrBatchEmpty
		}
		if max := s.maxBatchTokens(); totalTokens > max {
			return ErrBatchTooLarge
		}

		tokens := make([]models.Token, 0, totalTokens)
		manifestLines := make([]ManifestLine, 0, len(lines))
		for _, line := range lines {
			prize := prizes[line.PrizeID]
			affected, reserveErr := prizeRepo.ReserveStock(line.PrizeID, line.Count)
			if reserveErr != nil {
				return ErrBatchCreateFailed
			}
			if affected == 0 {
				return s.classifyReserveFailure(prizeRepo, line.PrizeID)
			}
			for i := 0; i < line.Count; i++ {
				tokens = append(tokens, models.Token{
					ID:        uuid.NewString(),
					PrizeID:   line.PrizeID,
					ValidFrom: validFrom,
					ExpiresAt: expiresAt,
					CreatedAt: now,
					UpdatedAt: now,
				})
			}
			manifestLines = append(manifestLines, ManifestLine{
				PrizeID: prize.ID,
				Key:     prize.Key,
				Label:   prize.Label,
				Count:   line.Count,
			})
		}

		batch.TotalTokens = totalTokens
		if createErr := batchRepo.CreateWithTokens(batch, tokens); createErr != nil {
			return ErrBatchCreateFailed
		}

		manifest = &BatchManifest{
			BatchID:     batch.ID,
			BatchNo:     batch.BatchNo,
			Description: batch.Description,
			Mode:        batch.Mode,
			ValidFrom:   batch.ValidFrom,
			ExpiresAt:   batch.ExpiresAt,
			Prizes:      manifestLines,
			Meta:        ManifestMeta{TotalTokens: totalTokens},
		}
		return nil
	})
	if err != nil {
		if isBatchDomainError(err) {
			return nil, nil, err
		}
		logger.Errorw("batch_generate_failed", "batch_no", batch.BatchNo, "error", err)
		return nil, nil, ErrBatchCreateFailed
	}

	logger.Infow("batch_generated",
		"batch_id", batch.ID,
		"batch_no", batch.BatchNo,
		"mode", batch.Mode,
		"total_tokens", batch.TotalTokens)

	if s.queueClient != nil {
		if enqueueErr := s.queueClient.EnqueueBatchManifest(queue.BatchManifestPayload{BatchID: batch.ID}); enqueueErr != nil {
			logger.Warnw("batch_manifest_enqueue_failed", "batch_id", batch.ID, "error", enqueueErr)
		}
	}
	return batch, manifest, nil
}

// resolveLines 解析批次行：显式行或按现有有限库存全量派生。
// 全量派生必须在事务内读库存，保证派生数与预占数一致。
func (s *BatchService) resolveLines(prizeRepo repository.PrizeRepository, input GenerateBatchInput) ([]BatchLineInput, map[uint]*models.Prize, error) {
	prizes := make(map[uint]*models.Prize)

	if input.GenerateAll {
		actives, err := prizeRepo.ListActiveFiniteStock()
		if err != nil {
			return nil, nil, ErrBatchCreateFailed
		}
		lines := make([]BatchLineInput, 0, len(actives))
		for i := range actives {
			prize := actives[i]
			lines = append(lines, BatchLineInput{PrizeID: prize.ID, Count: int(*prize.Stock)})
			prizes[prize.ID] = &actives[i]
		}
		if len(lines) == 0 {
			return nil, nil, ErrBatchEmpty
		}
		return lines, prizes, nil
	}

	merged := make(map[uint]int, len(input.Lines))
	order := make([]uint, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.PrizeID == 0 || line.Count <= 0 {
			return nil, nil, ErrBatchInvalid
		}
		if _, ok := merged[line.PrizeID]; !ok {
			order = append(order, line.PrizeID)
		}
		merged[line.PrizeID] += line.Count
	}

	lines := make([]BatchLineInput, 0, len(order))
	for _, prizeID := range order {
		prize, err := prizeRepo.GetByID(prizeID)
		if err != nil {
			return nil, nil, ErrBatchCreateFailed
		}
		if prize == nil {
			return nil, nil, ErrPrizeNotFound
		}
		if !prize.Active {
			return nil, nil, ErrPrizeInactive
		}
		prizes[prizeID] = prize
		lines = append(lines, BatchLineInput{PrizeID: prizeID, Count: merged[prizeID]})
	}
	return lines, prizes, nil
}

// classifyReserveFailure 预占失败归因：条件更新零行后回读定位原因
func (s *BatchService) classifyReserveFailure(prizeRepo repository.PrizeRepository, prizeID uint) error {
	prize, err := prizeRepo.GetByID(prizeID)
	if err != nil || prize == nil {
		return ErrPrizeNotFound
	}
	if !prize.Active {
		return ErrPrizeInactive
	}
	return ErrInsufficientStock
}

// GetBatch 获取批次
func (s *BatchService) GetBatch(id uint) (*models.Batch, error) {
	if s == nil || s.batchRepo == nil || id == 0 {
		return nil, ErrBatchInvalid
	}
	batch, err := s.batchRepo.GetByID(id)
	if err != nil {
		return nil, ErrBatchFetchFailed
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

// ListBatches 获取批次列表
func (s *BatchService) ListBatches(input BatchListInput) ([]models.Batch, int64, error) {
	if s == nil || s.batchRepo == nil {
		return nil, 0, ErrBatchFetchFailed
	}
	batches, total, err := s.batchRepo.List(repository.BatchListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		Mode:        strings.TrimSpace(input.Mode),
		Search:      strings.TrimSpace(input.Search),
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
	})
	if err != nil {
		return nil, 0, ErrBatchFetchFailed
	}
	return batches, total, nil
}

// BuildManifest 重建批次清单
// 从落库令牌聚合而非读缓存，作为对外对账的权威口径。
func (s *BatchService) BuildManifest(batchID uint) (*BatchManifest, error) {
	if s == nil || s.batchRepo == nil || s.tokenRepo == nil || batchID == 0 {
		return nil, ErrBatchInvalid
	}
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, ErrBatchFetchFailed
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	tokens, err := s.tokenRepo.ListByBatch(batchID)
	if err != nil {
		return nil, ErrBatchFetchFailed
	}

	counts := make(map[uint]int)
	labels := make(map[uint]*models.Prize)
	order := make([]uint, 0)
	for i := range tokens {
		token := tokens[i]
		if _, ok := counts[token.PrizeID]; !ok {
			order = append(order, token.PrizeID)
		}
		counts[token.PrizeID]++
		if token.Prize != nil {
			labels[token.PrizeID] = token.Prize
		}
	}

	lines := make([]ManifestLine, 0, len(order))
	for _, prizeID := range order {
		line := ManifestLine{PrizeID: prizeID, Count: counts[prizeID]}
		if prize := labels[prizeID]; prize != nil {
			line.Key = prize.Key
			line.Label = prize.Label
		}
		lines = append(lines, line)
	}

	return &BatchManifest{
		BatchID:     batch.ID,
		BatchNo:     batch.BatchNo,
		Description: batch.Description,
		Mode:        batch.Mode,
		ValidFrom:   batch.ValidFrom,
		ExpiresAt:   batch.ExpiresAt,
		Prizes:      lines,
		Meta:        ManifestMeta{TotalTokens: len(tokens)},
	}, nil
}

// PurgeBatch 清除批次及其全部令牌
// 注意：不回补库存——令牌已对外发放过的口径以 emitted_total 为准。
func (s *BatchService) PurgeBatch(id uint) error {
	if s == nil || s.batchRepo == nil || id == 0 {
		return ErrBatchInvalid
	}
	batch, err := s.batchRepo.GetByID(id)
	if err != nil {
		return ErrBatchFetchFailed
	}
	if batch == nil {
		return ErrBatchNotFound
	}
	if err := s.batchRepo.Purge(id); err != nil {
		logger.Errorw("batch_purge_failed", "batch_id", id, "error", err)
		return ErrBatchPurgeFailed
	}
	logger.Infow("batch_purged", "batch_id", id, "batch_no", batch.BatchNo)
	return nil
}

func (s *BatchService) venueOffsetMinutes() int {
	if s == nil || s.cfg == nil {
		return 0
	}
	return s.cfg.Venue.UTCOffsetMinutes
}

func (s *BatchService) maxBatchTokens() int {
	if s == nil || s.cfg == nil || s.cfg.Tokens.MaxBatchTokens <= 0 {
		return 10000
	}
	return s.cfg.Tokens.MaxBatchTokens
}

func isBatchDomainError(err error) bool {
	for _, domainErr := range []error{
		ErrBatchInvalid,
		ErrBatchEmpty,
		ErrBatchTooLarge,
		ErrPrizeNotFound,
		ErrPrizeInactive,
		ErrInsufficientStock,
	} {
		if errors.Is(err, domainErr) {
			return true
		}
	}
	return false
}

func generateBatchNo(now time.Time) string {
	return strings.ToUpper(fmt.Sprintf("%s%s%s", batchNoPrefix, now.Format("20060102150405"), randomHex(4)))
}

func randomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		// crypto/rand 不可用时退化为时间种子，批次号仍需保持唯一
		fillSeededBytes(buf, time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func fillSeededBytes(buf []byte, seed int64) {
	state := uint64(seed)
	for i := range buf {
		state = state*6364136223846793005 + 1442695040888963407
		buf[i] = byte(state >> 56)
	}
}
