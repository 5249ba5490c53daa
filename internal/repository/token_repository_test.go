package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTokenRepositoryTest(t *testing.T) (*GormTokenRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:token_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return NewTokenRepository(db), db
}

func seedToken(t *testing.T, db *gorm.DB, mutate func(*models.Token)) models.Token {
	t.Helper()
	prize := models.Prize{Key: fmt.Sprintf("prize_%s", uuid.NewString()[:8]), Label: "Prize", Active: true}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}
	batch := models.Batch{BatchNo: fmt.Sprintf("B-%s", uuid.NewString()[:8]), Mode: "by_days", TotalTokens: 1}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	token := models.Token{
		ID:      uuid.NewString(),
		PrizeID: prize.ID,
		BatchID: batch.ID,
	}
	if mutate != nil {
		mutate(&token)
	}
	if err := db.Create(&token).Error; err != nil {
		t.Fatalf("create token failed: %v", err)
	}
	return token
}

func TestTokenRepositoryMarkRevealed(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	token := seedToken(t, db, nil)

	affected, err := repo.MarkRevealed(token.ID, now)
	if err != nil {
		t.Fatalf("mark revealed failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	// 再揭示一次必须失败，revealed_at 保持首次时间
	affected, err = repo.MarkRevealed(token.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second reveal failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second reveal affected want 0 got %d", affected)
	}
	reloaded, err := repo.GetByID(token.ID)
	if err != nil {
		t.Fatalf("reload token failed: %v", err)
	}
	if reloaded.RevealedAt == nil || !reloaded.RevealedAt.Equal(now) {
		t.Fatalf("revealed_at want %v got %v", now, reloaded.RevealedAt)
	}
}

func TestTokenRepositoryMarkRevealedOutsideWindow(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	future := now.Add(24 * time.Hour)
	upcoming := seedToken(t, db, func(tok *models.Token) {
		tok.ValidFrom = &future
	})
	affected, err := repo.MarkRevealed(upcoming.ID, now)
	if err != nil {
		t.Fatalf("mark revealed failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("upcoming reveal affected want 0 got %d", affected)
	}

	past := now.Add(-time.Hour)
	expired := seedToken(t, db, func(tok *models.Token) {
		tok.ExpiresAt = &past
	})
	affected, err = repo.MarkRevealed(expired.ID, now)
	if err != nil {
		t.Fatalf("mark revealed failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expired reveal affected want 0 got %d", affected)
	}
}

func TestTokenRepositoryMarkDelivered(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	token := seedToken(t, db, nil)

	// 未揭示不可交付
	affected, err := repo.MarkDelivered(token.ID, now)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("deliver before reveal affected want 0 got %d", affected)
	}

	if _, err := repo.MarkRevealed(token.ID, now); err != nil {
		t.Fatalf("mark revealed failed: %v", err)
	}
	affected, err = repo.MarkDelivered(token.ID, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	affected, err = repo.MarkDelivered(token.ID, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second deliver failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second deliver affected want 0 got %d", affected)
	}
}

func TestTokenRepositoryMarkDisabled(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	token := seedToken(t, db, nil)
	affected, err := repo.MarkDisabled(token.ID, "fraud", now)
	if err != nil {
		t.Fatalf("mark disabled failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	reloaded, err := repo.GetByID(token.ID)
	if err != nil {
		t.Fatalf("reload token failed: %v", err)
	}
	if !reloaded.Disabled {
		t.Fatalf("token should be disabled")
	}
	if reloaded.DisabledReason == nil || *reloaded.DisabledReason != "fraud" {
		t.Fatalf("disabled_reason want fraud got %v", reloaded.DisabledReason)
	}

	// 已交付的令牌不可停用
	delivered := seedToken(t, db, func(tok *models.Token) {
		revealed := now.Add(-time.Hour)
		tok.RevealedAt = &revealed
		tok.DeliveredAt = &now
	})
	affected, err = repo.MarkDisabled(delivered.ID, "late", now)
	if err != nil {
		t.Fatalf("mark disabled failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("disable delivered affected want 0 got %d", affected)
	}
}

func TestTokenRepositoryExtendExpiry(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	expiresAt := now.Add(24 * time.Hour)
	token := seedToken(t, db, func(tok *models.Token) {
		tok.ExpiresAt = &expiresAt
	})

	newExpiry := expiresAt.Add(48 * time.Hour)
	affected, err := repo.ExtendExpiry(token.ID, 0, newExpiry, now)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	// 过期的版本号不生效
	affected, err = repo.ExtendExpiry(token.ID, 0, newExpiry.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("stale extend affected want 0 got %d", affected)
	}

	reloaded, err := repo.GetByID(token.ID)
	if err != nil {
		t.Fatalf("reload token failed: %v", err)
	}
	if reloaded.ExtendedCount != 1 {
		t.Fatalf("extended_count want 1 got %d", reloaded.ExtendedCount)
	}
	if reloaded.ExpiresAt == nil || !reloaded.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("expires_at want %v got %v", newExpiry, reloaded.ExpiresAt)
	}

	// 无到期时间（by_days 不限期）不可延期
	unlimited := seedToken(t, db, nil)
	affected, err = repo.ExtendExpiry(unlimited.ID, 0, newExpiry, now)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("extend without expiry affected want 0 got %d", affected)
	}
}

func TestTokenRepositoryAudit(t *testing.T) {
	repo, db := setupTokenRepositoryTest(t)
	token := seedToken(t, db, nil)

	for _, event := range []string{"revealed", "delivered"} {
		if err := repo.AppendAudit(&models.TokenAuditLog{TokenID: token.ID, Event: event}); err != nil {
			t.Fatalf("append audit failed: %v", err)
		}
	}

	entries, err := repo.ListAudit(token.ID)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries len want 2 got %d", len(entries))
	}
	if entries[0].Event != "revealed" || entries[1].Event != "delivered" {
		t.Fatalf("unexpected audit order: %s, %s", entries[0].Event, entries[1].Event)
	}
}
