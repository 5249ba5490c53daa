package repository

import (
	"errors"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"gorm.io/gorm"
)

// BatchRepository 批次仓储接口
type BatchRepository interface {
	CreateWithTokens(batch *models.Batch, tokens []models.Token) error
	GetByID(id uint) (*models.Batch, error)
	GetByBatchNo(batchNo string) (*models.Batch, error)
	List(filter BatchListFilter) ([]models.Batch, int64, error)
	Purge(id uint) error
	WithTx(tx *gorm.DB) BatchRepository
}

// GormBatchRepository GORM 批次仓储实现
type GormBatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓储
func NewBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBatchRepository) WithTx(tx *gorm.DB) BatchRepository {
	if tx == nil {
		return r
	}
	return &GormBatchRepository{db: tx}
}

// CreateWithTokens 创建批次与令牌
func (r *GormBatchRepository) CreateWithTokens(batch *models.Batch, tokens []models.Token) error {
	if batch == nil {
		return errors.New("invalid batch")
	}
	if err := r.db.Create(batch).Error; err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	for idx := range tokens {
		tokens[idx].BatchID = batch.ID
	}
	return r.db.CreateInBatches(&tokens, 500).Error
}

// GetByID 根据 ID 查询批次
func (r *GormBatchRepository) GetByID(id uint) (*models.Batch, error) {
	if id == 0 {
		return nil, nil
	}
	var batch models.Batch
	if err := r.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetByBatchNo 根据批次号查询批次
func (r *GormBatchRepository) GetByBatchNo(batchNo string) (*models.Batch, error) {
	batchNo = strings.TrimSpace(strings.ToUpper(batchNo))
	if batchNo == "" {
		return nil, nil
	}
	var batch models.Batch
	if err := r.db.Where("batch_no = ?", batchNo).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// List 查询批次列表
func (r *GormBatchRepository) List(filter BatchListFilter) ([]models.Batch, int64, error) {
	query := r.db.Model(&models.Batch{})
	if mode := strings.TrimSpace(filter.Mode); mode != "" {
		query = query.Where("mode = ?", mode)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("description LIKE ? OR batch_no LIKE ?", "%"+search+"%", "%"+strings.ToUpper(search)+"%")
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

	var batches []models.Batch
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id desc").Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// Purge 清除批次：物理删除其全部令牌并软删除批次行
func (r *GormBatchRepository) Purge(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Batch{}, id).Error
	})
}
