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
	"gorm.io/gorm"
)

func setupBatchServiceTest(t *testing.T) (*BatchService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:batch_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	cfg.Venue.UTCOffsetMinutes = constants.DefaultVenueUTCOffsetMinutes
	cfg.Tokens.MaxExtensions = constants.DefaultMaxExtensions
	cfg.Tokens.MaxBatchTokens = 100

	svc := NewBatchService(cfg,
		repository.NewBatchRepository(db),
		repository.NewPrizeRepository(db),
		repository.NewTokenRepository(db),
		nil)
	return svc, db
}

func seedBatchPrize(t *testing.T, db *gorm.DB, key string, stock *int64, active bool) models.Prize {
	t.Helper()
	prize := models.Prize{Key: key, Label: key, Active: active, Stock: stock}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}
	return prize
}

func TestBatchServiceGenerateBatch(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(10)
	gold := seedBatchPrize(t, db, "gold", &stock, true)
	retry := seedBatchPrize(t, db, "retry", nil, true)

	batch, manifest, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "周末活动",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 7,
		Lines: []BatchLineInput{
			{PrizeID: gold.ID, Count: 4},
			{PrizeID: retry.ID, Count: 6},
		},
	})
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	if batch == nil || batch.ID == 0 {
		t.Fatalf("invalid batch result: %+v", batch)
	}
	if batch.TotalTokens != 10 {
		t.Fatalf("total_tokens want 10 got %d", batch.TotalTokens)
	}
	if manifest == nil || manifest.Meta.TotalTokens != 10 {
		t.Fatalf("invalid manifest: %+v", manifest)
	}
	if len(manifest.Prizes) != 2 {
		t.Fatalf("manifest lines want 2 got %d", len(manifest.Prizes))
	}

	var tokenCount int64
	if err := db.Model(&models.Token{}).Where("batch_id = ?", batch.ID).Count(&tokenCount).Error; err != nil {
		t.Fatalf("count tokens failed: %v", err)
	}
	if tokenCount != 10 {
		t.Fatalf("tokens in batch want 10 got %d", tokenCount)
	}

	var reloaded models.Prize
	if err := db.First(&reloaded, gold.ID).Error; err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil || *reloaded.Stock != 6 {
		t.Fatalf("gold stock want 6 got %v", reloaded.Stock)
	}
	if reloaded.EmittedTotal != 4 {
		t.Fatalf("gold emitted_total want 4 got %d", reloaded.EmittedTotal)
	}
}

func TestBatchServiceGenerateBatchInsufficientStockRollsBack(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(10)
	small := int64(2)
	gold := seedBatchPrize(t, db, "gold", &stock, true)
	silver := seedBatchPrize(t, db, "silver", &small, true)

	_, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "超量批次",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 7,
		Lines: []BatchLineInput{
			{PrizeID: gold.ID, Count: 5},
			{PrizeID: silver.ID, Count: 3}, // 仅剩 2，必须整体失败
		},
	})
	if err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	// 第一行已预占的库存必须随事务回滚
	var reloaded models.Prize
	if err := db.First(&reloaded, gold.ID).Error; err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil || *reloaded.Stock != 10 {
		t.Fatalf("gold stock after rollback want 10 got %v", reloaded.Stock)
	}
	if reloaded.EmittedTotal != 0 {
		t.Fatalf("gold emitted_total after rollback want 0 got %d", reloaded.EmittedTotal)
	}

	var batchCount int64
	if err := db.Model(&models.Batch{}).Count(&batchCount).Error; err != nil {
		t.Fatalf("count batches failed: %v", err)
	}
	if batchCount != 0 {
		t.Fatalf("no batch row should survive, got %d", batchCount)
	}
	var tokenCount int64
	if err := db.Model(&models.Token{}).Count(&tokenCount).Error; err != nil {
		t.Fatalf("count tokens failed: %v", err)
	}
	if tokenCount != 0 {
		t.Fatalf("no token row should survive, got %d", tokenCount)
	}
}

func TestBatchServiceGenerateBatchInactivePrize(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(5)
	prize := seedBatchPrize(t, db, "gold", &stock, false)

	_, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "停用奖品批次",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 3,
		Lines:        []BatchLineInput{{PrizeID: prize.ID, Count: 1}},
	})
	if err != ErrPrizeInactive {
		t.Fatalf("expected ErrPrizeInactive, got: %v", err)
	}
}

func TestBatchServiceGenerateAll(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stockA := int64(3)
	stockB := int64(5)
	seedBatchPrize(t, db, "gold", &stockA, true)
	seedBatchPrize(t, db, "silver", &stockB, true)
	seedBatchPrize(t, db, "retry", nil, true)     // 不限量：全量生成时跳过
	zero := int64(0)
	seedBatchPrize(t, db, "empty", &zero, true)   // 零库存：跳过
	seedBatchPrize(t, db, "off", &stockA, false)  // 停用：跳过

	batch, manifest, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "全量生成",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 30,
		GenerateAll:  true,
	})
	if err != nil {
		t.Fatalf("generate all failed: %v", err)
	}
	if batch.TotalTokens != 8 {
		t.Fatalf("total_tokens want 8 got %d", batch.TotalTokens)
	}
	if len(manifest.Prizes) != 2 {
		t.Fatalf("manifest lines want 2 got %d", len(manifest.Prizes))
	}

	// 全量生成后有限库存应清零
	var remaining int64
	if err := db.Model(&models.Prize{}).
		Where("stock IS NOT NULL AND active = ?", true).
		Select("COALESCE(SUM(stock), 0)").Scan(&remaining).Error; err != nil {
		t.Fatalf("sum stock failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining finite stock want 0 got %d", remaining)
	}
}

func TestBatchServiceGenerateBatchTooLarge(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	retry := seedBatchPrize(t, db, "retry", nil, true)

	_, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "超限批次",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 7,
		Lines:        []BatchLineInput{{PrizeID: retry.ID, Count: 101}},
	})
	if err != ErrBatchTooLarge {
		t.Fatalf("expected ErrBatchTooLarge, got: %v", err)
	}
}

func TestBatchServiceGenerateBatchWindowPersisted(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(2)
	prize := seedBatchPrize(t, db, "gold", &stock, true)

	batch, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:     "时段活动",
		Mode:            constants.BatchModeSingleHour,
		ValidityDate:    "2027-03-05",
		StartTime:       "20:00",
		DurationMinutes: 90,
		Lines:           []BatchLineInput{{PrizeID: prize.ID, Count: 2}},
	})
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	// UTC-5 场馆 20:00 对应次日 01:00 UTC
	wantStart := time.Date(2027, 3, 6, 1, 0, 0, 0, time.UTC)
	wantEnd := wantStart.Add(90 * time.Minute)
	if batch.ValidFrom == nil || !batch.ValidFrom.Equal(wantStart) {
		t.Fatalf("valid_from want %v got %v", wantStart, batch.ValidFrom)
	}
	if batch.ExpiresAt == nil || !batch.ExpiresAt.Equal(wantEnd) {
		t.Fatalf("expires_at want %v got %v", wantEnd, batch.ExpiresAt)
	}

	// 窗口必须逐令牌落库
	var tokens []models.Token
	if err := db.Where("batch_id = ?", batch.ID).Find(&tokens).Error; err != nil {
		t.Fatalf("load tokens failed: %v", err)
	}
	for _, token := range tokens {
		if token.ValidFrom == nil || !token.ValidFrom.Equal(wantStart) {
			t.Fatalf("token valid_from want %v got %v", wantStart, token.ValidFrom)
		}
		if token.ExpiresAt == nil || !token.ExpiresAt.Equal(wantEnd) {
			t.Fatalf("token expires_at want %v got %v", wantEnd, token.ExpiresAt)
		}
	}
}

func TestBatchServiceBuildManifest(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(6)
	prize := seedBatchPrize(t, db, "gold", &stock, true)

	batch, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "清单批次",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 7,
		Lines:        []BatchLineInput{{PrizeID: prize.ID, Count: 6}},
	})
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}

	manifest, err := svc.BuildManifest(batch.ID)
	if err != nil {
		t.Fatalf("build manifest failed: %v", err)
	}
	if manifest.BatchID != batch.ID || manifest.BatchNo != batch.BatchNo {
		t.Fatalf("manifest identity mismatch: %+v", manifest)
	}
	if manifest.Meta.TotalTokens != 6 {
		t.Fatalf("manifest total want 6 got %d", manifest.Meta.TotalTokens)
	}
	if len(manifest.Prizes) != 1 || manifest.Prizes[0].Count != 6 || manifest.Prizes[0].Key != "gold" {
		t.Fatalf("unexpected manifest lines: %+v", manifest.Prizes)
	}

	var lineSum int
	for _, line := range manifest.Prizes {
		lineSum += line.Count
	}
	if lineSum != manifest.Meta.TotalTokens {
		t.Fatalf("manifest line sum %d != total %d", lineSum, manifest.Meta.TotalTokens)
	}
	_ = db
}

func TestBatchServicePurgeBatch(t *testing.T) {
	svc, db := setupBatchServiceTest(t)
	stock := int64(4)
	prize := seedBatchPrize(t, db, "gold", &stock, true)

	batch, _, err := svc.GenerateBatch(GenerateBatchInput{
		Description:  "待清除批次",
		Mode:         constants.BatchModeByDays,
		ValidityDays: 7,
		Lines:        []BatchLineInput{{PrizeID: prize.ID, Count: 4}},
	})
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}

	if err := svc.PurgeBatch(batch.ID); err != nil {
		t.Fatalf("purge batch failed: %v", err)
	}

	var tokenCount int64
	if err := db.Unscoped().Model(&models.Token{}).Where("batch_id = ?", batch.ID).Count(&tokenCount).Error; err != nil {
		t.Fatalf("count tokens failed: %v", err)
	}
	if tokenCount != 0 {
		t.Fatalf("tokens must be hard-deleted, got %d", tokenCount)
	}
	if _, err := svc.GetBatch(batch.ID); err != ErrBatchNotFound {
		t.Fatalf("expected ErrBatchNotFound after purge, got: %v", err)
	}
}

func TestRandomHexLength(t *testing.T) {
	if got := randomHex(4); len(got) != 8 {
		t.Fatalf("random hex length want 8 got %d", len(got))
	}
	if randomHex(0) != "" {
		t.Fatalf("non-positive length must return empty string")
	}
}

func TestFillSeededBytesVariesBySeed(t *testing.T) {
	a := make([]byte, 4)
	b := make([]byte, 4)
	fillSeededBytes(a, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	fillSeededBytes(b, time.Date(2026, 3, 1, 12, 0, 0, 1, time.UTC).UnixNano())
	if string(a) == string(b) {
		t.Fatalf("不同时间种子必须产生不同字节: %x", a)
	}

	c := make([]byte, 4)
	fillSeededBytes(c, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	if string(a) != string(c) {
		t.Fatalf("相同种子必须可复现: %x vs %x", a, c)
	}
}
