package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// DisableTokenRequest 停用令牌请求
type DisableTokenRequest struct {
	Reason string `json:"reason"`
}

// ExtendTokenRequest 延期令牌请求
type ExtendTokenRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

// GetAdminTokens 获取令牌列表 (Admin)
func (h *Handler) GetAdminTokens(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	input := service.TokenListInput{Page: page, PageSize: pageSize}
	if raw := strings.TrimSpace(c.Query("batch_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "batch_id 参数无效", err)
			return
		}
		input.BatchID = uint(parsed)
	}
	if raw := strings.TrimSpace(c.Query("prize_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "prize_id 参数无效", err)
			return
		}
		input.PrizeID = uint(parsed)
	}
	input.Revealed = parseBoolNullable(c.Query("revealed"))
	input.Delivered = parseBoolNullable(c.Query("delivered"))
	input.Disabled = parseBoolNullable(c.Query("disabled"))

	views, total, err := h.TokenService.ListTokens(input)
	if err != nil {
		respondError(c, response.CodeInternal, "获取令牌列表失败", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, views, pagination)
}

// GetAdminToken 获取令牌详情 (Admin)
func (h *Handler) GetAdminToken(c *gin.Context) {
	view, err := h.TokenService.GetToken(c.Param("id"))
	if err != nil {
		respondTokenError(c, err, "获取令牌失败")
		return
	}
	response.Success(c, view)
}

// DeliverAdminToken 标记令牌交付 (Admin)
func (h *Handler) DeliverAdminToken(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	view, err := h.TokenService.Deliver(c.Param("id"), &adminID)
	if err != nil {
		respondTokenError(c, err, "交付令牌失败")
		return
	}
	requestLog(c).Infow("admin_token_delivered", "admin_id", adminID, "token_id", view.Token.ID)
	response.Success(c, view)
}

// DisableAdminToken 停用令牌 (Admin)
func (h *Handler) DisableAdminToken(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req DisableTokenRequest
	// reason 可缺省，允许空请求体
	_ = c.ShouldBindJSON(&req)
	view, err := h.TokenService.Disable(c.Param("id"), req.Reason, &adminID)
	if err != nil {
		respondTokenError(c, err, "停用令牌失败")
		return
	}
	requestLog(c).Infow("admin_token_disabled", "admin_id", adminID, "token_id", view.Token.ID)
	response.Success(c, view)
}

// ExtendAdminToken 延长令牌有效期 (Admin)
func (h *Handler) ExtendAdminToken(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ExtendTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	view, err := h.TokenService.Extend(c.Param("id"), service.TokenExtendInput{
		Days:    req.Days,
		ActorID: &adminID,
	})
	if err != nil {
		respondTokenError(c, err, "延期令牌失败")
		return
	}
	requestLog(c).Infow("admin_token_extended",
		"admin_id", adminID,
		"token_id", view.Token.ID,
		"days", req.Days)
	response.Success(c, view)
}

// GetAdminTokenAudit 获取令牌审计日志 (Admin)
func (h *Handler) GetAdminTokenAudit(c *gin.Context) {
	entries, err := h.TokenService.ListAudit(c.Param("id"))
	if err != nil {
		respondTokenError(c, err, "获取审计日志失败")
		return
	}
	response.Success(c, entries)
}

func respondTokenError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrTokenInvalid):
		respondError(c, response.CodeBadRequest, "令牌参数无效", nil)
	case errors.Is(err, service.ErrTokenNotFound):
		respondError(c, response.CodeNotFound, "令牌不存在", nil)
	case errors.Is(err, service.ErrTokenDisabled):
		respondError(c, response.CodeConflict, "令牌已停用", nil)
	case errors.Is(err, service.ErrTokenUpcoming):
		respondError(c, response.CodeConflict, "令牌尚未生效", nil)
	case errors.Is(err, service.ErrTokenExpired):
		respondError(c, response.CodeConflict, "令牌已过期", nil)
	case errors.Is(err, service.ErrTokenAlreadyRevealed):
		respondError(c, response.CodeConflict, "令牌已揭示", nil)
	case errors.Is(err, service.ErrTokenNotRevealed):
		respondError(c, response.CodeConflict, "令牌尚未揭示", nil)
	case errors.Is(err, service.ErrTokenDelivered):
		respondError(c, response.CodeConflict, "令牌已交付", nil)
	case errors.Is(err, service.ErrTokenSystemPrize):
		respondError(c, response.CodeConflict, "系统奖品令牌不可交付", nil)
	case errors.Is(err, service.ErrTokenNotExtendable):
		respondError(c, response.CodeConflict, "令牌不可延期", nil)
	case errors.Is(err, service.ErrTokenExtendLimit):
		respondError(c, response.CodeConflict, "令牌延期次数已达上限", nil)
	case errors.Is(err, service.ErrTokenExtendConflict):
		respondError(c, response.CodeConflict, "令牌延期冲突，请重试", nil)
	default:
		respondError(c, response.CodeInternal, fallback, err)
	}
}

func parseBoolNullable(raw string) *bool {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "true", "1":
		value := true
		return &value
	case "false", "0":
		value := false
		return &value
	default:
		return nil
	}
}
