package service

import (
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"
)

// PrizeService 奖品库存服务
type PrizeService struct {
	repo repository.PrizeRepository
}

// CreatePrizeInput 创建奖品输入
type CreatePrizeInput struct {
	Key    string
	Label  string
	Color  string
	Active *bool
	Stock  *int64 // nil 表示不限量
}

// UpdatePrizeInput 更新奖品输入
type UpdatePrizeInput struct {
	Label      *string
	Color      *string
	Active     *bool
	Stock      *int64
	ClearStock bool // 置为不限量
}

// PrizeListInput 奖品列表输入
type PrizeListInput struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// NewPrizeService 创建奖品服务
func NewPrizeService(repo repository.PrizeRepository) *PrizeService {
	return &PrizeService{repo: repo}
}

// CreatePrize 创建奖品
func (s *PrizeService) CreatePrize(input CreatePrizeInput) (*models.Prize, error) {
	if s == nil || s.repo == nil {
		return nil, ErrPrizeCreateFailed
	}
	key := normalizePrizeKey(input.Key)
	label := strings.TrimSpace(input.Label)
	if key == "" || label == "" {
		return nil, ErrPrizeInvalid
	}
	if IsSystemPrizeKey(key) {
		return nil, ErrPrizeKeyReserved
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, ErrPrizeInvalid
	}

	existing, err := s.repo.GetByKey(key)
	if err != nil {
		return nil, ErrPrizeFetchFailed
	}
	if existing != nil {
		return nil, ErrPrizeKeyExists
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	now := time.Now()
	prize := &models.Prize{
		Key:       key,
		Label:     label,
		Color:     strings.TrimSpace(input.Color),
		Active:    active,
		Stock:     input.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(prize); err != nil {
		logger.Errorw("prize_create_failed", "key", key, "error", err)
		return nil, ErrPrizeCreateFailed
	}
	logger.Infow("prize_created", "prize_id", prize.ID, "key", key)
	return prize, nil
}

// GetPrize 获取奖品
func (s *PrizeService) GetPrize(id uint) (*models.Prize, error) {
	if s == nil || s.repo == nil || id == 0 {
		return nil, ErrPrizeInvalid
	}
	prize, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrPrizeFetchFailed
	}
	if prize == nil {
		return nil, ErrPrizeNotFound
	}
	return prize, nil
}

// ListPrizes 获取奖品列表
func (s *PrizeService) ListPrizes(input PrizeListInput) ([]models.Prize, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, ErrPrizeFetchFailed
	}
	prizes, total, err := s.repo.List(repository.PrizeListFilter{
		Page:       input.Page,
		PageSize:   input.PageSize,
		Search:     strings.TrimSpace(input.Search),
		OnlyActive: input.OnlyActive,
	})
	if err != nil {
		return nil, 0, ErrPrizeFetchFailed
	}
	return prizes, total, nil
}

// UpdatePrize 更新奖品
// 说明：key 创建后不可变更；系统保留奖品只允许改展示字段。
func (s *PrizeService) UpdatePrize(id uint, input UpdatePrizeInput) (*models.Prize, error) {
	if s == nil || s.repo == nil || id == 0 {
		return nil, ErrPrizeInvalid
	}
	prize, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrPrizeFetchFailed
	}
	if prize == nil {
		return nil, ErrPrizeNotFound
	}

	if IsSystemPrizeKey(prize.Key) {
		if input.Active != nil || input.Stock != nil || input.ClearStock {
			return nil, ErrPrizeKeyReserved
		}
	}

	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, ErrPrizeInvalid
		}
		prize.Label = label
	}
	if input.Color != nil {
		prize.Color = strings.TrimSpace(*input.Color)
	}
	if input.Active != nil {
		prize.Active = *input.Active
	}
	if input.ClearStock {
		prize.Stock = nil
	} else if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, ErrPrizeInvalid
		}
		stock := *input.Stock
		prize.Stock = &stock
	}
	prize.UpdatedAt = time.Now()

	if err := s.repo.Update(prize); err != nil {
		logger.Errorw("prize_update_failed", "prize_id", id, "error", err)
		return nil, ErrPrizeUpdateFailed
	}
	return prize, nil
}

// DeletePrize 删除奖品
// 已被令牌引用的奖品不可删除，只能停用，避免令牌悬挂引用。
func (s *PrizeService) DeletePrize(id uint) error {
	if s == nil || s.repo == nil || id == 0 {
		return ErrPrizeInvalid
	}
	prize, err := s.repo.GetByID(id)
	if err != nil {
		return ErrPrizeFetchFailed
	}
	if prize == nil {
		return ErrPrizeNotFound
	}
	if IsSystemPrizeKey(prize.Key) {
		return ErrPrizeKeyReserved
	}
	count, err := s.repo.CountTokens(id)
	if err != nil {
		return ErrPrizeFetchFailed
	}
	if count > 0 {
		return ErrPrizeReferenced
	}
	if err := s.repo.Delete(id); err != nil {
		logger.Errorw("prize_delete_failed", "prize_id", id, "error", err)
		return ErrPrizeDeleteFailed
	}
	logger.Infow("prize_deleted", "prize_id", id, "key", prize.Key)
	return nil
}

func normalizePrizeKey(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}
