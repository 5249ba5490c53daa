package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupPrizeServiceTest(t *testing.T) (*PrizeService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:prize_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Prize{},
		&models.Batch{},
		&models.Token{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewPrizeService(repository.NewPrizeRepository(db)), db
}

func TestPrizeServiceCreatePrize(t *testing.T) {
	svc, _ := setupPrizeServiceTest(t)

	stock := int64(20)
	prize, err := svc.CreatePrize(CreatePrizeInput{
		Key:   " Gold ",
		Label: "黄金奖",
		Color: "#fbbf24",
		Stock: &stock,
	})
	if err != nil {
		t.Fatalf("create prize failed: %v", err)
	}
	if prize.Key != "gold" {
		t.Fatalf("key should be normalized, got %s", prize.Key)
	}
	if !prize.Active {
		t.Fatalf("prize should default to active")
	}

	if _, err := svc.CreatePrize(CreatePrizeInput{Key: "gold", Label: "重复"}); err != ErrPrizeKeyExists {
		t.Fatalf("expected ErrPrizeKeyExists, got: %v", err)
	}
	if _, err := svc.CreatePrize(CreatePrizeInput{Key: constants.PrizeKeyRetry, Label: "保留"}); err != ErrPrizeKeyReserved {
		t.Fatalf("expected ErrPrizeKeyReserved, got: %v", err)
	}
	negative := int64(-1)
	if _, err := svc.CreatePrize(CreatePrizeInput{Key: "bad", Label: "负库存", Stock: &negative}); err != ErrPrizeInvalid {
		t.Fatalf("expected ErrPrizeInvalid, got: %v", err)
	}
}

func TestPrizeServiceUpdatePrizeStock(t *testing.T) {
	svc, _ := setupPrizeServiceTest(t)

	stock := int64(5)
	prize, err := svc.CreatePrize(CreatePrizeInput{Key: "gold", Label: "Gold", Stock: &stock})
	if err != nil {
		t.Fatalf("create prize failed: %v", err)
	}

	updated, err := svc.UpdatePrize(prize.ID, UpdatePrizeInput{ClearStock: true})
	if err != nil {
		t.Fatalf("update prize failed: %v", err)
	}
	if updated.Stock != nil {
		t.Fatalf("stock should be unlimited after clear, got %v", *updated.Stock)
	}

	newStock := int64(8)
	updated, err = svc.UpdatePrize(prize.ID, UpdatePrizeInput{Stock: &newStock})
	if err != nil {
		t.Fatalf("update prize failed: %v", err)
	}
	if updated.Stock == nil || *updated.Stock != 8 {
		t.Fatalf("stock want 8 got %v", updated.Stock)
	}
}

func TestPrizeServiceSystemPrizeProtections(t *testing.T) {
	svc, db := setupPrizeServiceTest(t)

	retry := models.Prize{Key: constants.PrizeKeyRetry, Label: "再来一次", Active: true}
	if err := db.Create(&retry).Error; err != nil {
		t.Fatalf("create system prize failed: %v", err)
	}

	inactive := false
	if _, err := svc.UpdatePrize(retry.ID, UpdatePrizeInput{Active: &inactive}); err != ErrPrizeKeyReserved {
		t.Fatalf("expected ErrPrizeKeyReserved, got: %v", err)
	}
	if err := svc.DeletePrize(retry.ID); err != ErrPrizeKeyReserved {
		t.Fatalf("expected ErrPrizeKeyReserved, got: %v", err)
	}

	// 改展示字段允许
	label := "幸运重抽"
	updated, err := svc.UpdatePrize(retry.ID, UpdatePrizeInput{Label: &label})
	if err != nil {
		t.Fatalf("update system prize label failed: %v", err)
	}
	if updated.Label != label {
		t.Fatalf("label want %s got %s", label, updated.Label)
	}
}

func TestPrizeServiceDeleteReferencedPrize(t *testing.T) {
	svc, db := setupPrizeServiceTest(t)

	prize, err := svc.CreatePrize(CreatePrizeInput{Key: "gold", Label: "Gold"})
	if err != nil {
		t.Fatalf("create prize failed: %v", err)
	}
	batch := models.Batch{BatchNo: "TKB-REF", Mode: constants.BatchModeByDays, TotalTokens: 1}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("create batch failed: %v", err)
	}
	token := models.Token{ID: uuid.NewString(), PrizeID: prize.ID, BatchID: batch.ID}
	if err := db.Create(&token).Error; err != nil {
		t.Fatalf("create token failed: %v", err)
	}

	if err := svc.DeletePrize(prize.ID); err != ErrPrizeReferenced {
		t.Fatalf("expected ErrPrizeReferenced, got: %v", err)
	}
}
