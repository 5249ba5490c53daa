package public

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// PublicTokenView 顾客侧令牌视图
// 说明：只暴露展示所需字段，库存、审计等后台信息不下发；
// 奖品信息在揭示前不下发，避免提前剧透。
type PublicTokenView struct {
	ID         string     `json:"id"`
	State      string     `json:"state"`
	PrizeLabel string     `json:"prize_label,omitempty"`
	PrizeColor string     `json:"prize_color,omitempty"`
	ValidFrom  *time.Time `json:"valid_from"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RevealedAt *time.Time `json:"revealed_at"`
	IsReusable bool       `json:"is_reusable"`
}

// PublicRevealView 顾客侧揭示结果视图
type PublicRevealView struct {
	Token   PublicTokenView `json:"token"`
	Outcome string          `json:"outcome"`
}

func buildPublicTokenView(token *models.Token, state string) PublicTokenView {
	view := PublicTokenView{
		ID:         token.ID,
		State:      state,
		ValidFrom:  token.ValidFrom,
		ExpiresAt:  token.ExpiresAt,
		RevealedAt: token.RevealedAt,
	}
	if token.RevealedAt != nil && token.Prize != nil {
		view.PrizeLabel = token.Prize.Label
		view.PrizeColor = token.Prize.Color
	}
	if token.Batch != nil {
		view.IsReusable = token.Batch.IsReusable
	}
	return view
}

// GetPublicToken 获取令牌状态 (Public)
func (h *Handler) GetPublicToken(c *gin.Context) {
	view, err := h.TokenService.GetToken(c.Param("id"))
	if err != nil {
		respondTokenLookupError(c, err)
		return
	}
	response.Success(c, buildPublicTokenView(view.Token, view.State))
}

// RevealPublicToken 揭示令牌 (Public)
func (h *Handler) RevealPublicToken(c *gin.Context) {
	result, err := h.TokenService.Reveal(c.Param("id"))
	if err != nil {
		respondTokenRevealError(c, err)
		return
	}
	requestLog(c).Infow("public_token_revealed",
		"token_id", result.Token.ID,
		"outcome", result.Outcome)
	response.Success(c, PublicRevealView{
		Token:   buildPublicTokenView(result.Token, result.State),
		Outcome: result.Outcome,
	})
}

// RedirectShortLink 短链跳转 (Public)
// 批次配置了外链目标时直接跳转外链，否则跳转令牌页。
func (h *Handler) RedirectShortLink(c *gin.Context) {
	view, err := h.TokenService.GetToken(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) || errors.Is(err, service.ErrTokenNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	token := view.Token
	if token.Batch != nil && token.Batch.StaticTargetURL != nil {
		if target := strings.TrimSpace(*token.Batch.StaticTargetURL); target != "" {
			c.Redirect(http.StatusFound, target)
			return
		}
	}
	base := strings.TrimRight(h.Config.Public.BaseURL, "/")
	c.Redirect(http.StatusFound, base+"/t/"+token.ID)
}
