package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"gorm.io/gorm"
)

// TokenRepository 令牌仓储接口
// 说明：所有生命周期写入都是带前置条件的条件更新（update-where-state-matches），
// RowsAffected=0 表示前置条件已不成立，由服务层回读令牌定位具体原因。
type TokenRepository interface {
	GetByID(id string) (*models.Token, error)
	List(filter TokenListFilter) ([]models.Token, int64, error)
	ListByBatch(batchID uint) ([]models.Token, error)
	MarkRevealed(id string, now time.Time) (int64, error)
	MarkDelivered(id string, now time.Time) (int64, error)
	MarkDisabled(id string, reason string, now time.Time) (int64, error)
	ExtendExpiry(id string, expectedExtendedCount int, newExpiresAt time.Time, now time.Time) (int64, error)
	AppendAudit(entry *models.TokenAuditLog) error
	ListAudit(tokenID string) ([]models.TokenAuditLog, error)
	WithTx(tx *gorm.DB) TokenRepository
}

// GormTokenRepository GORM 令牌仓储实现
type GormTokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 创建令牌仓储
func NewTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	if tx == nil {
		return r
	}
	return &GormTokenRepository{db: tx}
}

// GetByID 根据 ID 查询令牌（含奖品与批次）
func (r *GormTokenRepository) GetByID(id string) (*models.Token, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var token models.Token
	if err := r.db.Preload("Prize").Preload("Batch").
		Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// List 查询令牌列表
func (r *GormTokenRepository) List(filter TokenListFilter) ([]models.Token, int64, error) {
	query := r.db.Model(&models.Token{}).Preload("Prize")
	if filter.BatchID > 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.PrizeID > 0 {
		query = query.Where("prize_id = ?", filter.PrizeID)
	}
	if filter.Revealed != nil {
		if *filter.Revealed {
			query = query.Where("revealed_at IS NOT NULL")
		} else {
			query = query.Where("revealed_at IS NULL")
		}
	}
	if filter.Delivered != nil {
		if *filter.Delivered {
			query = query.Where("delivered_at IS NOT NULL")
		} else {
			query = query.Where("delivered_at IS NULL")
		}
	}
	if filter.Disabled != nil {
		query = query.Where("disabled = ?", *filter.Disabled)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tokens []models.Token
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("created_at desc, id asc").Find(&tokens).Error; err != nil {
		return nil, 0, err
	}
	return tokens, total, nil
}

// ListByBatch 查询批次全部令牌
func (r *GormTokenRepository) ListByBatch(batchID uint) ([]models.Token, error) {
	if batchID == 0 {
		return []models.Token{}, nil
	}
	var tokens []models.Token
	if err := r.db.Preload("Prize").
		Where("batch_id = ?", batchID).Order("id asc").Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// MarkRevealed 条件揭示
// 前置：未揭示、未停用、窗口已开且未过期。两次并发扫码只会有一次生效。
func (r *GormTokenRepository) MarkRevealed(id string, now time.Time) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, errors.New("invalid token id")
	}
	result := r.db.Model(&models.Token{}).
		Where("id = ? AND revealed_at IS NULL AND disabled = ?", id, false).
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Updates(map[string]interface{}{
			"revealed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkDelivered 条件交付
// 前置：已揭示、未交付、未停用。
func (r *GormTokenRepository) MarkDelivered(id string, now time.Time) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, errors.New("invalid token id")
	}
	result := r.db.Model(&models.Token{}).
		Where("id = ? AND revealed_at IS NOT NULL AND delivered_at IS NULL AND disabled = ?", id, false).
		Updates(map[string]interface{}{
			"delivered_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkDisabled 条件停用
// 前置：未交付且未停用；重复停用由服务层按幂等成功处理。
func (r *GormTokenRepository) MarkDisabled(id string, reason string, now time.Time) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, errors.New("invalid token id")
	}
	result := r.db.Model(&models.Token{}).
		Where("id = ? AND disabled = ? AND delivered_at IS NULL", id, false).
		Updates(map[string]interface{}{
			"disabled":        true,
			"disabled_reason": strings.TrimSpace(reason),
			"updated_at":      now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExtendExpiry 乐观延期
// 以 extended_count 作为版本号，避免并发延期叠加越过策略上限。
func (r *GormTokenRepository) ExtendExpiry(id string, expectedExtendedCount int, newExpiresAt time.Time, now time.Time) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, errors.New("invalid token id")
	}
	result := r.db.Model(&models.Token{}).
		Where("id = ? AND expires_at IS NOT NULL AND disabled = ? AND extended_count = ?", id, false, expectedExtendedCount).
		Updates(map[string]interface{}{
			"expires_at":       newExpiresAt,
			"extended_count":   gorm.Expr("extended_count + 1"),
			"last_extended_at": now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AppendAudit 追加令牌审计日志
func (r *GormTokenRepository) AppendAudit(entry *models.TokenAuditLog) error {
	if entry == nil {
		return errors.New("audit entry is nil")
	}
	return r.db.Create(entry).Error
}

// ListAudit 查询令牌审计日志
func (r *GormTokenRepository) ListAudit(tokenID string) ([]models.TokenAuditLog, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return []models.TokenAuditLog{}, nil
	}
	var entries []models.TokenAuditLog
	if err := r.db.Where("token_id = ?", tokenID).Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
