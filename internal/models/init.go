package models

import (
	"errors"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitDefaultAdmin 初始化默认管理员账号
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == "admin123" {
		logger.Warnw("default_admin_created_with_default_password", "username", username, "password", password)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}

// InitSystemPrizes 初始化系统保留奖品（retry/lose）
// 说明：保留 key 作为普通库存行建模，揭示客户端按 key 特判。
func InitSystemPrizes() error {
	seeds := []Prize{
		{Key: constants.PrizeKeyRetry, Label: "再来一次", Color: "#f59e0b", Active: true},
		{Key: constants.PrizeKeyLose, Label: "谢谢参与", Color: "#6b7280", Active: true},
	}
	for _, seed := range seeds {
		var existing Prize
		err := DB.Where("key = ?", seed.Key).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := DB.Create(&seed).Error; err != nil {
			return err
		}
		logger.Infow("system_prize_created", "key", seed.Key)
	}
	return nil
}
