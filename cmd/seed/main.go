package main

import (
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 系统保留奖品
	if err := models.InitSystemPrizes(); err != nil {
		stdLog.Fatalf("Failed to seed system prizes: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to seed default admin: %v", err)
	}

	// 演示奖品
	stockOf := func(v int64) *int64 { return &v }
	prizes := []models.Prize{
		{Key: "gold_shot", Label: "金牌特调", Color: "#fbbf24", Active: true, Stock: stockOf(20)},
		{Key: "free_entry", Label: "免费入场券", Color: "#34d399", Active: true, Stock: stockOf(50)},
		{Key: "house_sticker", Label: "纪念贴纸", Color: "#60a5fa", Active: true, Stock: nil},
	}
	for _, prize := range prizes {
		var existing models.Prize
		if err := models.DB.Where("key = ?", prize.Key).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prize).Error; err != nil {
				stdLog.Printf("Failed to create prize %s: %v", prize.Key, err)
			} else {
				stdLog.Printf("Created prize: %s", prize.Key)
			}
		} else {
			stdLog.Printf("Prize already exists: %s", prize.Key)
		}
	}

	stdLog.Printf("Seed finished")
}
