package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTokenServiceTest(t *testing.T) (*TokenService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:token_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Prize{},
		&models.Batch{},
		&models.Token{},
		&models.TokenAuditLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.Tokens.MaxExtensions = 2

	return NewTokenService(cfg, repository.NewTokenRepository(db)), db
}

func seedLifecycleToken(t *testing.T, db *gorm.DB, prizeKey string, mutate func(*models.Token)) models.Token {
	t.Helper()
	prize := models.Prize{Key: prizeKey, Label: prizeKey, Active: true}
	if err := db.Where("key = ?", prizeKey).First(&prize).Error; err != nil {
		if err := db.Create(&prize).Error; err != nil {
			t.Fatalf("create prize failed: %v", err)
		}
	}
	batch := models.Batch{BatchNo: fmt.Sprintf("TKB-%s", uuid.NewString()[:8]), Mode: constants.BatchModeByDays, TotalTokens: 1}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	token := models.Token{ID: uuid.NewString(), PrizeID: prize.ID, BatchID: batch.ID}
	if mutate != nil {
		mutate(&token)
	}
	if err := db.Create(&token).Error; err != nil {
		t.Fatalf("create token failed: %v", err)
	}
	return token
}

func TestTokenServiceRevealAndDeliver(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	token := seedLifecycleToken(t, db, "gold", nil)

	result, err := svc.Reveal(token.ID)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if result.Outcome != RevealOutcomePrize {
		t.Fatalf("outcome want prize got %s", result.Outcome)
	}
	if result.State != constants.TokenStateRevealed {
		t.Fatalf("state want revealed got %s", result.State)
	}

	if _, err := svc.Reveal(token.ID); err != ErrTokenAlreadyRevealed {
		t.Fatalf("expected ErrTokenAlreadyRevealed, got: %v", err)
	}

	view, err := svc.Deliver(token.ID, nil)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if view.State != constants.TokenStateDelivered {
		t.Fatalf("state want delivered got %s", view.State)
	}

	if _, err := svc.Deliver(token.ID, nil); err != ErrTokenDelivered {
		t.Fatalf("expected ErrTokenDelivered, got: %v", err)
	}

	// 审计链：revealed -> delivered
	entries, err := svc.ListAudit(token.ID)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries want 2 got %d", len(entries))
	}
	if entries[0].Event != constants.TokenEventRevealed || entries[1].Event != constants.TokenEventDelivered {
		t.Fatalf("unexpected audit chain: %s, %s", entries[0].Event, entries[1].Event)
	}
}

func TestTokenServiceDeliverRequiresReveal(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	token := seedLifecycleToken(t, db, "gold", nil)

	if _, err := svc.Deliver(token.ID, nil); err != ErrTokenNotRevealed {
		t.Fatalf("expected ErrTokenNotRevealed, got: %v", err)
	}
}

func TestTokenServiceRevealOutcomes(t *testing.T) {
	svc, db := setupTokenServiceTest(t)

	retryToken := seedLifecycleToken(t, db, constants.PrizeKeyRetry, nil)
	result, err := svc.Reveal(retryToken.ID)
	if err != nil {
		t.Fatalf("reveal retry failed: %v", err)
	}
	if result.Outcome != RevealOutcomeRetry {
		t.Fatalf("outcome want retry got %s", result.Outcome)
	}

	loseToken := seedLifecycleToken(t, db, constants.PrizeKeyLose, nil)
	result, err = svc.Reveal(loseToken.ID)
	if err != nil {
		t.Fatalf("reveal lose failed: %v", err)
	}
	if result.Outcome != RevealOutcomeLose {
		t.Fatalf("outcome want lose got %s", result.Outcome)
	}

	// 系统奖品令牌无可交付物
	if _, err := svc.Deliver(retryToken.ID, nil); err != ErrTokenSystemPrize {
		t.Fatalf("expected ErrTokenSystemPrize, got: %v", err)
	}
}

func TestTokenServiceRevealWindowGuards(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	now := time.Now().UTC()

	future := now.Add(24 * time.Hour)
	upcoming := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		tok.ValidFrom = &future
	})
	if _, err := svc.Reveal(upcoming.ID); err != ErrTokenUpcoming {
		t.Fatalf("expected ErrTokenUpcoming, got: %v", err)
	}

	past := now.Add(-time.Hour)
	expired := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		tok.ExpiresAt = &past
	})
	if _, err := svc.Reveal(expired.ID); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got: %v", err)
	}
}

func TestTokenServiceDisableIdempotent(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	token := seedLifecycleToken(t, db, "gold", nil)

	view, err := svc.Disable(token.ID, "misprint", nil)
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if view.State != constants.TokenStateDisabled {
		t.Fatalf("state want disabled got %s", view.State)
	}

	// 重复停用幂等成功，不追加审计
	if _, err := svc.Disable(token.ID, "again", nil); err != nil {
		t.Fatalf("repeat disable failed: %v", err)
	}
	entries, err := svc.ListAudit(token.ID)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries want 1 got %d", len(entries))
	}

	if _, err := svc.Reveal(token.ID); err != ErrTokenDisabled {
		t.Fatalf("expected ErrTokenDisabled, got: %v", err)
	}
}

func TestTokenServiceDisableDeliveredRejected(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	now := time.Now().UTC()
	token := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		revealed := now.Add(-time.Hour)
		tok.RevealedAt = &revealed
		tok.DeliveredAt = &now
	})

	if _, err := svc.Disable(token.ID, "late", nil); err != ErrTokenDelivered {
		t.Fatalf("expected ErrTokenDelivered, got: %v", err)
	}
}

func TestTokenServiceExtend(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	expiresAt := now.Add(24 * time.Hour)
	token := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		tok.ExpiresAt = &expiresAt
	})

	view, err := svc.Extend(token.ID, TokenExtendInput{Days: 2})
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if view.Token.ExtendedCount != 1 {
		t.Fatalf("extended_count want 1 got %d", view.Token.ExtendedCount)
	}
	wantExpiry := expiresAt.Add(48 * time.Hour)
	if view.Token.ExpiresAt == nil || !view.Token.ExpiresAt.UTC().Equal(wantExpiry) {
		t.Fatalf("expires_at want %v got %v", wantExpiry, view.Token.ExpiresAt)
	}

	// 天数必须为正
	if _, err := svc.Extend(token.ID, TokenExtendInput{Days: 0}); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got: %v", err)
	}

	if _, err := svc.Extend(token.ID, TokenExtendInput{Days: 1}); err != nil {
		t.Fatalf("second extend failed: %v", err)
	}

	// 配置上限为 2 次
	if _, err := svc.Extend(token.ID, TokenExtendInput{Days: 1}); err != ErrTokenExtendLimit {
		t.Fatalf("expected ErrTokenExtendLimit, got: %v", err)
	}
}

func TestTokenServiceExtendGuards(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	now := time.Now().UTC()

	noExpiry := seedLifecycleToken(t, db, "gold", nil)
	if _, err := svc.Extend(noExpiry.ID, TokenExtendInput{Days: 1}); err != ErrTokenNotExtendable {
		t.Fatalf("expected ErrTokenNotExtendable, got: %v", err)
	}

	expiresAt := now.Add(time.Hour)
	disabled := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		tok.ExpiresAt = &expiresAt
		tok.Disabled = true
	})
	if _, err := svc.Extend(disabled.ID, TokenExtendInput{Days: 2}); err != ErrTokenDisabled {
		t.Fatalf("expected ErrTokenDisabled, got: %v", err)
	}
}

func TestTokenServiceDerivedStateTransitions(t *testing.T) {
	svc, db := setupTokenServiceTest(t)
	now := time.Now().UTC()

	// 同一令牌随时间自然流转：upcoming -> active -> expired
	start := now.Add(-2 * time.Hour)
	end := now.Add(-time.Hour)
	token := seedLifecycleToken(t, db, "gold", func(tok *models.Token) {
		tok.ValidFrom = &start
		tok.ExpiresAt = &end
	})

	loaded, err := svc.GetToken(token.ID)
	if err != nil {
		t.Fatalf("get token failed: %v", err)
	}
	if loaded.State != constants.TokenStateExpired {
		t.Fatalf("state want expired got %s", loaded.State)
	}
	if DeriveTokenState(loaded.Token, start.Add(-time.Minute)) != constants.TokenStateUpcoming {
		t.Fatalf("state before window should derive upcoming")
	}
	if DeriveTokenState(loaded.Token, start.Add(time.Minute)) != constants.TokenStateActive {
		t.Fatalf("state inside window should derive active")
	}
}
