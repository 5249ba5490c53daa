package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// BatchLineRequest 批次单奖品行请求
type BatchLineRequest struct {
	PrizeID uint `json:"prize_id" binding:"required"`
	Count   int  `json:"count" binding:"required"`
}

// GenerateBatchRequest 生成批次请求
type GenerateBatchRequest struct {
	Description     string             `json:"description" binding:"required"`
	Mode            string             `json:"mode" binding:"required"`
	ValidityDays    int                `json:"validity_days"`
	ValidityDate    string             `json:"validity_date"`
	StartTime       string             `json:"start_time"`
	DurationMinutes int                `json:"duration_minutes"`
	Lines           []BatchLineRequest `json:"lines"`
	GenerateAll     bool               `json:"generate_all"`
	IsReusable      bool               `json:"is_reusable"`
	StaticTargetURL string             `json:"static_target_url"`
}

// GenerateAdminBatch 生成批次 (Admin)
func (h *Handler) GenerateAdminBatch(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req GenerateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	lines := make([]service.BatchLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.BatchLineInput{PrizeID: line.PrizeID, Count: line.Count})
	}

	batch, manifest, err := h.BatchService.GenerateBatch(service.GenerateBatchInput{
		Description:     req.Description,
		Mode:            req.Mode,
		ValidityDays:    req.ValidityDays,
		ValidityDate:    req.ValidityDate,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Lines:           lines,
		GenerateAll:     req.GenerateAll,
		IsReusable:      req.IsReusable,
		StaticTargetURL: req.StaticTargetURL,
		CreatedBy:       &adminID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchInvalid):
			respondError(c, response.CodeBadRequest, "批次参数无效", nil)
		case errors.Is(err, service.ErrBatchEmpty):
			respondError(c, response.CodeBadRequest, "批次不含任何令牌", nil)
		case errors.Is(err, service.ErrBatchTooLarge):
			respondError(c, response.CodeBadRequest, "批次令牌数超出上限", nil)
		case errors.Is(err, service.ErrPrizeNotFound):
			respondError(c, response.CodeNotFound, "奖品不存在", nil)
		case errors.Is(err, service.ErrPrizeInactive):
			respondError(c, response.CodeConflict, "奖品已停用", nil)
		case errors.Is(err, service.ErrInsufficientStock):
			respondError(c, response.CodeConflict, "奖品库存不足", nil)
		default:
			respondError(c, response.CodeInternal, "创建批次失败", err)
		}
		return
	}

	requestLog(c).Infow("admin_batch_generated",
		"admin_id", adminID,
		"batch_id", batch.ID,
		"total_tokens", batch.TotalTokens)
	response.Success(c, gin.H{
		"batch":    batch,
		"manifest": manifest,
	})
}

// GetAdminBatches 获取批次列表 (Admin)
func (h *Handler) GetAdminBatches(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数无效", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数无效", err)
		return
	}

	batches, total, err := h.BatchService.ListBatches(service.BatchListInput{
		Page:        page,
		PageSize:    pageSize,
		Mode:        c.Query("mode"),
		Search:      c.Query("search"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取批次列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, batches, pagination)
}

// GetAdminBatch 获取批次详情 (Admin)
func (h *Handler) GetAdminBatch(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	batch, err := h.BatchService.GetBatch(id)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			respondError(c, response.CodeNotFound, "批次不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取批次失败", err)
		return
	}
	response.Success(c, batch)
}

// GetAdminBatchManifest 获取批次清单 (Admin)
func (h *Handler) GetAdminBatchManifest(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	manifest, err := h.BatchService.BuildManifest(id)
	if err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			respondError(c, response.CodeNotFound, "批次不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取批次清单失败", err)
		return
	}
	response.Success(c, manifest)
}

// PurgeAdminBatch 清除批次 (Admin)
func (h *Handler) PurgeAdminBatch(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	if err := h.BatchService.PurgeBatch(id); err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			respondError(c, response.CodeNotFound, "批次不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "清除批次失败", err)
		return
	}
	requestLog(c).Infow("admin_batch_purged", "admin_id", adminID, "batch_id", id)
	response.SuccessWithMsg(c, "批次已清除", nil)
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	value := parsed.UTC()
	return &value, nil
}
