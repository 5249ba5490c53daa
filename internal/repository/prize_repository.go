package repository

import (
	"errors"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"gorm.io/gorm"
)

// PrizeRepository 奖品数据访问接口
type PrizeRepository interface {
	GetByID(id uint) (*models.Prize, error)
	GetByKey(key string) (*models.Prize, error)
	List(filter PrizeListFilter) ([]models.Prize, int64, error)
	ListByIDs(ids []uint) ([]models.Prize, error)
	ListActiveFiniteStock() ([]models.Prize, error)
	Create(prize *models.Prize) error
	Update(prize *models.Prize) error
	Delete(id uint) error
	CountTokens(prizeID uint) (int64, error)
	ReserveStock(prizeID uint, count int) (int64, error)
	ReleaseStock(prizeID uint, count int) (int64, error)
	WithTx(tx *gorm.DB) PrizeRepository
}

// GormPrizeRepository GORM 奖品仓储实现
type GormPrizeRepository struct {
	db *gorm.DB
}

// NewPrizeRepository 创建奖品仓储
func NewPrizeRepository(db *gorm.DB) *GormPrizeRepository {
	return &GormPrizeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPrizeRepository) WithTx(tx *gorm.DB) PrizeRepository {
	if tx == nil {
		return r
	}
	return &GormPrizeRepository{db: tx}
}

// GetByID 根据 ID 查询奖品
func (r *GormPrizeRepository) GetByID(id uint) (*models.Prize, error) {
	if id == 0 {
		return nil, nil
	}
	var prize models.Prize
	if err := r.db.First(&prize, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prize, nil
}

// GetByKey 根据 key 查询奖品
func (r *GormPrizeRepository) GetByKey(key string) (*models.Prize, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var prize models.Prize
	if err := r.db.Where("key = ?", key).First(&prize).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prize, nil
}

// List 查询奖品列表
func (r *GormPrizeRepository) List(filter PrizeListFilter) ([]models.Prize, int64, error) {
	query := r.db.Model(&models.Prize{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("key LIKE ? OR label LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if filter.OnlyActive {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var prizes []models.Prize
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id asc").Find(&prizes).Error; err != nil {
		return nil, 0, err
	}
	return prizes, total, nil
}

// ListByIDs 批量查询奖品
func (r *GormPrizeRepository) ListByIDs(ids []uint) ([]models.Prize, error) {
	if len(ids) == 0 {
		return []models.Prize{}, nil
	}
	var prizes []models.Prize
	if err := r.db.Where("id IN ?", ids).Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

// ListActiveFiniteStock 查询所有启用且有限库存大于零的奖品
// 说明：供“按现有库存全量生成”在事务内派生批次行使用。
func (r *GormPrizeRepository) ListActiveFiniteStock() ([]models.Prize, error) {
	var prizes []models.Prize
	if err := r.db.
		Where("active = ? AND stock IS NOT NULL AND stock > 0", true).
		Order("id asc").Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

// Create 创建奖品
func (r *GormPrizeRepository) Create(prize *models.Prize) error {
	if prize == nil {
		return errors.New("prize is nil")
	}
	return r.db.Create(prize).Error
}

// Update 更新奖品
func (r *GormPrizeRepository) Update(prize *models.Prize) error {
	if prize == nil {
		return errors.New("prize is nil")
	}
	return r.db.Save(prize).Error
}

// Delete 删除奖品
func (r *GormPrizeRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Prize{}, id).Error
}

// CountTokens 统计引用该奖品的令牌数
func (r *GormPrizeRepository) CountTokens(prizeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Token{}).Where("prize_id = ?", prizeID).Count(&count).Error
	return count, err
}

// ReserveStock 原子预占库存
// 条件更新（decrement-if-enough）保证并发批次生成不会超卖；
// stock 为 NULL（不限量）时仅累加发放总量。
func (r *GormPrizeRepository) ReserveStock(prizeID uint, count int) (int64, error) {
	if prizeID == 0 || count <= 0 {
		return 0, errors.New("invalid stock reserve params")
	}
	result := r.db.Model(&models.Prize{}).
		Where("id = ? AND active = ? AND (stock IS NULL OR stock >= ?)", prizeID, true, count).
		Updates(map[string]interface{}{
			"stock":         gorm.Expr("CASE WHEN stock IS NULL THEN NULL ELSE stock - ? END", count),
			"emitted_total": gorm.Expr("emitted_total + ?", count),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseStock 补偿释放库存
// 仅供批次生成事务在后续步骤失败时回补，不暴露给其他调用方。
func (r *GormPrizeRepository) ReleaseStock(prizeID uint, count int) (int64, error) {
	if prizeID == 0 || count <= 0 {
		return 0, errors.New("invalid stock release params")
	}
	result := r.db.Model(&models.Prize{}).
		Where("id = ? AND emitted_total >= ?", prizeID, count).
		Updates(map[string]interface{}{
			"stock":         gorm.Expr("CASE WHEN stock IS NULL THEN NULL ELSE stock + ? END", count),
			"emitted_total": gorm.Expr("emitted_total - ?", count),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
