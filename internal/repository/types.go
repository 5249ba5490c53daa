package repository

import (
	"time"

	"gorm.io/gorm"
)

// PrizeListFilter 查询奖品列表的过滤条件
type PrizeListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// BatchListFilter 查询批次列表的过滤条件
type BatchListFilter struct {
	Page        int
	PageSize    int
	Mode        string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TokenListFilter 查询令牌列表的过滤条件
type TokenListFilter struct {
	Page        int
	PageSize    int
	BatchID     uint
	PrizeID     uint
	Revealed    *bool
	Delivered   *bool
	Disabled    *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// applyPagination 应用分页参数，page 从 1 起，pageSize 不合法时不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
