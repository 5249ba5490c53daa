package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"

	"gorm.io/gorm"
)

// 揭示结果走向
const (
	RevealOutcomePrize = "prize" // 中奖，等待线下交付
	RevealOutcomeRetry = "retry" // 再来一次，可继续抽取
	RevealOutcomeLose  = "lose"  // 未中奖，流程结束
)

// TokenService 令牌生命周期服务
type TokenService struct {
	cfg       *config.Config
	tokenRepo repository.TokenRepository
}

// TokenView 令牌视图（含派生状态）
type TokenView struct {
	Token *models.Token `json:"token"`
	State string        `json:"state"`
}

// RevealResult 揭示结果
type RevealResult struct {
	Token   *models.Token `json:"token"`
	State   string        `json:"state"`
	Outcome string        `json:"outcome"`
}

// TokenExtendInput 令牌延期输入
type TokenExtendInput struct {
	Days    int
	ActorID *uint
}

// TokenListInput 令牌列表输入
type TokenListInput struct {
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

// NewTokenService 创建令牌服务
func NewTokenService(cfg *config.Config, tokenRepo repository.TokenRepository) *TokenService {
	return &TokenService{cfg: cfg, tokenRepo: tokenRepo}
}

// GetToken 获取令牌与派生状态
func (s *TokenService) GetToken(id string) (*TokenView, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenFetchFailed
	}
	token, err := s.loadToken(id)
	if err != nil {
		return nil, err
	}
	return &TokenView{Token: token, State: DeriveTokenState(token, time.Now())}, nil
}

// ListTokens 获取令牌列表
func (s *TokenService) ListTokens(input TokenListInput) ([]TokenView, int64, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, 0, ErrTokenFetchFailed
	}
	tokens, total, err := s.tokenRepo.List(repository.TokenListFilter{
		Page:        input.Page,
		PageSize:    input.PageSize,
		BatchID:     input.BatchID,
		PrizeID:     input.PrizeID,
		Revealed:    input.Revealed,
		Delivered:   input.Delivered,
		Disabled:    input.Disabled,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
	})
	if err != nil {
		return nil, 0, ErrTokenFetchFailed
	}
	now := time.Now()
	views := make([]TokenView, 0, len(tokens))
	for i := range tokens {
		views = append(views, TokenView{Token: &tokens[i], State: DeriveTokenState(&tokens[i], now)})
	}
	return views, total, nil
}

// Reveal 揭示令牌
// 单次条件更新保证两次并发扫码只有一次生效；
// 失败时回读令牌按派生状态归因。
func (s *TokenService) Reveal(id string) (*RevealResult, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenUpdateFailed
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrTokenInvalid
	}

	now := time.Now().UTC()
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.tokenRepo.WithTx(tx)
		affected, markErr := repo.MarkRevealed(id, now)
		if markErr != nil {
			return ErrTokenUpdateFailed
		}
		if affected == 0 {
			return s.classifyLifecycleFailure(repo, id, now, constants.TokenEventRevealed)
		}
		return repo.AppendAudit(&models.TokenAuditLog{
			TokenID:   id,
			Event:     constants.TokenEventRevealed,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	token, err := s.loadToken(id)
	if err != nil {
		return nil, err
	}
	outcome := RevealOutcomePrize
	if token.Prize != nil {
		switch token.Prize.Key {
		case constants.PrizeKeyRetry:
			outcome = RevealOutcomeRetry
		case constants.PrizeKeyLose:
			outcome = RevealOutcomeLose
		}
	}
	logger.Infow("token_revealed", "token_id", id, "prize_id", token.PrizeID, "outcome", outcome)
	return &RevealResult{
		Token:   token,
		State:   DeriveTokenState(token, now),
		Outcome: outcome,
	}, nil
}

// Deliver 标记交付
// 前置：已揭示且为实物奖品；retry/lose 令牌无可交付物。
func (s *TokenService) Deliver(id string, actorID *uint) (*TokenView, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenUpdateFailed
	}
	token, err := s.loadToken(id)
	if err != nil {
		return nil, err
	}
	if token.Prize != nil && IsSystemPrizeKey(token.Prize.Key) {
		return nil, ErrTokenSystemPrize
	}

	now := time.Now().UTC()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.tokenRepo.WithTx(tx)
		affected, markErr := repo.MarkDelivered(id, now)
		if markErr != nil {
			return ErrTokenUpdateFailed
		}
		if affected == 0 {
			return s.classifyLifecycleFailure(repo, id, now, constants.TokenEventDelivered)
		}
		return repo.AppendAudit(&models.TokenAuditLog{
			TokenID:   id,
			Event:     constants.TokenEventDelivered,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("token_delivered", "token_id", id)
	return s.GetToken(id)
}

// Disable 停用令牌
// 重复停用按幂等成功处理；已交付的令牌不可停用。
func (s *TokenService) Disable(id, reason string, actorID *uint) (*TokenView, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenUpdateFailed
	}
	token, err := s.loadToken(id)
	if err != nil {
		return nil, err
	}
	if token.Disabled {
		return &TokenView{Token: token, State: constants.TokenStateDisabled}, nil
	}
	if token.DeliveredAt != nil {
		return nil, ErrTokenDelivered
	}

	now := time.Now().UTC()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.tokenRepo.WithTx(tx)
		affected, markErr := repo.MarkDisabled(id, reason, now)
		if markErr != nil {
			return ErrTokenUpdateFailed
		}
		if affected == 0 {
			// 并发下可能已被他人停用，按幂等处理
			current, readErr := repo.GetByID(id)
			if readErr != nil || current == nil {
				return ErrTokenFetchFailed
			}
			if current.Disabled {
				return nil
			}
			if current.DeliveredAt != nil {
				return ErrTokenDelivered
			}
			return ErrTokenUpdateFailed
		}
		return repo.AppendAudit(&models.TokenAuditLog{
			TokenID:   id,
			Event:     constants.TokenEventDisabled,
			Detail:    strings.TrimSpace(reason),
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("token_disabled", "token_id", id, "reason", strings.TrimSpace(reason))
	return s.GetToken(id)
}

// Extend 按天数延长令牌有效期
// 以 extended_count 作为乐观版本号，策略上限由配置控制。
func (s *TokenService) Extend(id string, input TokenExtendInput) (*TokenView, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenUpdateFailed
	}
	if input.Days <= 0 {
		return nil, ErrTokenInvalid
	}
	token, err := s.loadToken(id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if token.Disabled {
		return nil, ErrTokenDisabled
	}
	if token.DeliveredAt != nil {
		return nil, ErrTokenDelivered
	}
	if token.ExpiresAt == nil {
		return nil, ErrTokenNotExtendable
	}
	if token.ExtendedCount >= s.maxExtensions() {
		return nil, ErrTokenExtendLimit
	}
	newExpiresAt := token.ExpiresAt.Add(time.Duration(input.Days) * 24 * time.Hour).UTC()

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.tokenRepo.WithTx(tx)
		affected, extendErr := repo.ExtendExpiry(id, token.ExtendedCount, newExpiresAt, now)
		if extendErr != nil {
			return ErrTokenUpdateFailed
		}
		if affected == 0 {
			return ErrTokenExtendConflict
		}
		return repo.AppendAudit(&models.TokenAuditLog{
			TokenID:   id,
			Event:     constants.TokenEventExtended,
			Detail:    fmt.Sprintf("expires_at: %s -> %s", token.ExpiresAt.Format(time.RFC3339), newExpiresAt.Format(time.RFC3339)),
			ActorID:   input.ActorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("token_extended", "token_id", id, "new_expires_at", newExpiresAt)
	return s.GetToken(id)
}

// ListAudit 获取令牌审计日志
func (s *TokenService) ListAudit(tokenID string) ([]models.TokenAuditLog, error) {
	if s == nil || s.tokenRepo == nil {
		return nil, ErrTokenFetchFailed
	}
	if _, err := s.loadToken(tokenID); err != nil {
		return nil, err
	}
	entries, err := s.tokenRepo.ListAudit(tokenID)
	if err != nil {
		return nil, ErrTokenFetchFailed
	}
	return entries, nil
}

func (s *TokenService) loadToken(id string) (*models.Token, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrTokenInvalid
	}
	token, err := s.tokenRepo.GetByID(id)
	if err != nil {
		return nil, ErrTokenFetchFailed
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// classifyLifecycleFailure 条件更新零行后的失败归因
func (s *TokenService) classifyLifecycleFailure(repo repository.TokenRepository, id string, now time.Time, event string) error {
	token, err := repo.GetByID(id)
	if err != nil {
		return ErrTokenFetchFailed
	}
	if token == nil {
		return ErrTokenNotFound
	}
	switch DeriveTokenState(token, now) {
	case constants.TokenStateDisabled:
		return ErrTokenDisabled
	case constants.TokenStateDelivered:
		return ErrTokenDelivered
	case constants.TokenStateRevealed:
		if event == constants.TokenEventRevealed {
			return ErrTokenAlreadyRevealed
		}
		return ErrTokenUpdateFailed
	case constants.TokenStateExpired:
		return ErrTokenExpired
	case constants.TokenStateUpcoming:
		return ErrTokenUpcoming
	case constants.TokenStateActive:
		if event == constants.TokenEventDelivered {
			return ErrTokenNotRevealed
		}
		return ErrTokenUpdateFailed
	}
	return ErrTokenUpdateFailed
}

func (s *TokenService) maxExtensions() int {
	if s == nil || s.cfg == nil || s.cfg.Tokens.MaxExtensions <= 0 {
		return constants.DefaultMaxExtensions
	}
	return s.cfg.Tokens.MaxExtensions
}
