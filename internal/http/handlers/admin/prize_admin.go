package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePrizeRequest 创建奖品请求
type CreatePrizeRequest struct {
	Key    string `json:"key" binding:"required"`
	Label  string `json:"label" binding:"required"`
	Color  string `json:"color"`
	Active *bool  `json:"active"`
	Stock  *int64 `json:"stock"` // 缺省为不限量
}

// UpdatePrizeRequest 更新奖品请求
type UpdatePrizeRequest struct {
	Label      *string `json:"label"`
	Color      *string `json:"color"`
	Active     *bool   `json:"active"`
	Stock      *int64  `json:"stock"`
	ClearStock bool    `json:"clear_stock"`
}

// GetAdminPrizes 获取奖品列表 (Admin)
func (h *Handler) GetAdminPrizes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	search := c.Query("search")
	onlyActive := strings.EqualFold(c.Query("only_active"), "true")

	prizes, total, err := h.PrizeService.ListPrizes(service.PrizeListInput{
		Page:       page,
		PageSize:   pageSize,
		Search:     search,
		OnlyActive: onlyActive,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取奖品列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, prizes, pagination)
}

// GetAdminPrize 获取奖品详情 (Admin)
func (h *Handler) GetAdminPrize(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	prize, err := h.PrizeService.GetPrize(id)
	if err != nil {
		if errors.Is(err, service.ErrPrizeNotFound) {
			respondError(c, response.CodeNotFound, "奖品不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取奖品失败", err)
		return
	}
	response.Success(c, prize)
}

// CreateAdminPrize 创建奖品 (Admin)
func (h *Handler) CreateAdminPrize(c *gin.Context) {
	var req CreatePrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	prize, err := h.PrizeService.CreatePrize(service.CreatePrizeInput{
		Key:    req.Key,
		Label:  req.Label,
		Color:  req.Color,
		Active: req.Active,
		Stock:  req.Stock,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPrizeInvalid):
			respondError(c, response.CodeBadRequest, "奖品参数无效", nil)
		case errors.Is(err, service.ErrPrizeKeyExists):
			respondError(c, response.CodeConflict, "奖品 key 已存在", nil)
		case errors.Is(err, service.ErrPrizeKeyReserved):
			respondError(c, response.CodeBadRequest, "奖品 key 为系统保留", nil)
		default:
			respondError(c, response.CodeInternal, "创建奖品失败", err)
		}
		return
	}
	response.Success(c, prize)
}

// UpdateAdminPrize 更新奖品 (Admin)
func (h *Handler) UpdateAdminPrize(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	var req UpdatePrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	prize, err := h.PrizeService.UpdatePrize(id, service.UpdatePrizeInput{
		Label:      req.Label,
		Color:      req.Color,
		Active:     req.Active,
		Stock:      req.Stock,
		ClearStock: req.ClearStock,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPrizeNotFound):
			respondError(c, response.CodeNotFound, "奖品不存在", nil)
		case errors.Is(err, service.ErrPrizeInvalid):
			respondError(c, response.CodeBadRequest, "奖品参数无效", nil)
		case errors.Is(err, service.ErrPrizeKeyReserved):
			respondError(c, response.CodeForbidden, "系统奖品不允许该操作", nil)
		default:
			respondError(c, response.CodeInternal, "更新奖品失败", err)
		}
		return
	}
	response.Success(c, prize)
}

// DeleteAdminPrize 删除奖品 (Admin)
func (h *Handler) DeleteAdminPrize(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	if err := h.PrizeService.DeletePrize(id); err != nil {
		switch {
		case errors.Is(err, service.ErrPrizeNotFound):
			respondError(c, response.CodeNotFound, "奖品不存在", nil)
		case errors.Is(err, service.ErrPrizeReferenced):
			respondError(c, response.CodeConflict, "奖品已被令牌引用，不可删除", nil)
		case errors.Is(err, service.ErrPrizeKeyReserved):
			respondError(c, response.CodeForbidden, "系统奖品不可删除", nil)
		default:
			respondError(c, response.CodeInternal, "删除奖品失败", err)
		}
		return
	}
	response.SuccessWithMsg(c, "奖品已删除", nil)
}

func parsePathID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "ID 参数无效", err)
		return 0, false
	}
	return uint(parsed), true
}
