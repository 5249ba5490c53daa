package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPrizeRepositoryTest(t *testing.T) (*GormPrizeRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:prize_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Prize{},
		&models.Batch{},
		&models.Token{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewPrizeRepository(db), db
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestPrizeRepositoryReserveStock(t *testing.T) {
	repo, db := setupPrizeRepositoryTest(t)

	prize := models.Prize{Key: "gold", Label: "Gold Prize", Active: true, Stock: int64Ptr(10)}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	affected, err := repo.ReserveStock(prize.ID, 4)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	reloaded, err := repo.GetByID(prize.ID)
	if err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil || *reloaded.Stock != 6 {
		t.Fatalf("stock want 6 got %v", reloaded.Stock)
	}
	if reloaded.EmittedTotal != 4 {
		t.Fatalf("emitted_total want 4 got %d", reloaded.EmittedTotal)
	}

	// 剩余 6，请求 7 必须整单拒绝，库存不变
	affected, err = repo.ReserveStock(prize.ID, 7)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("over-reserve affected want 0 got %d", affected)
	}
	reloaded, err = repo.GetByID(prize.ID)
	if err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil || *reloaded.Stock != 6 {
		t.Fatalf("stock after rejected reserve want 6 got %v", reloaded.Stock)
	}
	if reloaded.EmittedTotal != 4 {
		t.Fatalf("emitted_total after rejected reserve want 4 got %d", reloaded.EmittedTotal)
	}
}

func TestPrizeRepositoryReserveStockUnlimited(t *testing.T) {
	repo, db := setupPrizeRepositoryTest(t)

	prize := models.Prize{Key: "retry", Label: "Try Again", Active: true, Stock: nil}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		affected, err := repo.ReserveStock(prize.ID, 100)
		if err != nil {
			t.Fatalf("reserve failed: %v", err)
		}
		if affected != 1 {
			t.Fatalf("affected want 1 got %d", affected)
		}
	}

	reloaded, err := repo.GetByID(prize.ID)
	if err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock != nil {
		t.Fatalf("unlimited stock must stay NULL, got %v", *reloaded.Stock)
	}
	if reloaded.EmittedTotal != 300 {
		t.Fatalf("emitted_total want 300 got %d", reloaded.EmittedTotal)
	}
}

func TestPrizeRepositoryReserveStockInactive(t *testing.T) {
	repo, db := setupPrizeRepositoryTest(t)

	prize := models.Prize{Key: "silver", Label: "Silver Prize", Active: false, Stock: int64Ptr(10)}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	affected, err := repo.ReserveStock(prize.ID, 1)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("inactive prize reserve affected want 0 got %d", affected)
	}
}

func TestPrizeRepositoryConcurrentReserveNoOversell(t *testing.T) {
	repo, db := setupPrizeRepositoryTest(t)

	const stock = int64(25)
	prize := models.Prize{Key: "bronze", Label: "Bronze Prize", Active: true, Stock: int64Ptr(stock)}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	// 40 个并发预占，每次 3 个：最多只能有 8 次成功（8*3=24 <= 25，第 9 次需 27）
	const workers = 40
	const each = 3
	var wg sync.WaitGroup
	results := make([]int64, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = repo.ReserveStock(prize.ID, each)
		}(i)
	}
	wg.Wait()

	var succeeded int64
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("reserve %d failed: %v", i, errs[i])
		}
		succeeded += results[i]
	}

	reloaded, err := repo.GetByID(prize.ID)
	if err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil {
		t.Fatalf("stock must stay finite")
	}
	if *reloaded.Stock < 0 {
		t.Fatalf("stock went negative: %d", *reloaded.Stock)
	}
	if succeeded*each != stock-*reloaded.Stock {
		t.Fatalf("reserved %d but stock dropped by %d", succeeded*each, stock-*reloaded.Stock)
	}
	if reloaded.EmittedTotal != succeeded*each {
		t.Fatalf("emitted_total want %d got %d", succeeded*each, reloaded.EmittedTotal)
	}
	if succeeded != 8 {
		t.Fatalf("succeeded reserves want 8 got %d", succeeded)
	}
}

func TestPrizeRepositoryReleaseStock(t *testing.T) {
	repo, db := setupPrizeRepositoryTest(t)

	prize := models.Prize{Key: "gold", Label: "Gold Prize", Active: true, Stock: int64Ptr(10)}
	if err := db.Create(&prize).Error; err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	if _, err := repo.ReserveStock(prize.ID, 6); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	affected, err := repo.ReleaseStock(prize.ID, 6)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	reloaded, err := repo.GetByID(prize.ID)
	if err != nil {
		t.Fatalf("reload prize failed: %v", err)
	}
	if reloaded.Stock == nil || *reloaded.Stock != 10 {
		t.Fatalf("stock want 10 got %v", reloaded.Stock)
	}
	if reloaded.EmittedTotal != 0 {
		t.Fatalf("emitted_total want 0 got %d", reloaded.EmittedTotal)
	}

	// 未发放过的量不能回补
	affected, err = repo.ReleaseStock(prize.ID, 1)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("release without reserve affected want 0 got %d", affected)
	}
}
