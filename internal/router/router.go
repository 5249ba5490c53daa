package router

import (
	"fmt"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/cache"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	adminhandlers "github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/handlers/admin"
	publichandlers "github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/handlers/public"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "tk"
	}
	redisClient := cache.Client()
	revealRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:reveal", redisPrefix),
		WindowSeconds: cfg.Security.RevealRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RevealRateLimit.MaxRequests,
		Message:       "扫码过于频繁",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 短链跳转（印在二维码上，必须保持在根路径）
	r.GET("/s/:id", publicHandler.RedirectShortLink)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（顾客侧扫码）
		public := apiV1.Group("/public")
		{
			public.GET("/tokens/:id", publicHandler.GetPublicToken)
			public.POST("/tokens/:id/reveal",
				RateLimitMiddleware(redisClient, revealRule, KeyByIPAndParam("id")),
				publicHandler.RevealPublicToken)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				// 账号
				authorized.GET("/profile", adminHandler.GetAdminProfile)
				authorized.PUT("/password", adminHandler.ChangeAdminPassword)

				// 奖品管理
				authorized.GET("/prizes", adminHandler.GetAdminPrizes)
				authorized.GET("/prizes/:id", adminHandler.GetAdminPrize)
				authorized.POST("/prizes", adminHandler.CreateAdminPrize)
				authorized.PUT("/prizes/:id", adminHandler.UpdateAdminPrize)
				authorized.DELETE("/prizes/:id", adminHandler.DeleteAdminPrize)

				// 批次管理
				authorized.GET("/batches", adminHandler.GetAdminBatches)
				authorized.GET("/batches/:id", adminHandler.GetAdminBatch)
				authorized.POST("/batches", adminHandler.GenerateAdminBatch)
				authorized.GET("/batches/:id/manifest", adminHandler.GetAdminBatchManifest)
				authorized.GET("/batches/:id/report", adminHandler.GetAdminBatchReport)
				authorized.DELETE("/batches/:id", adminHandler.PurgeAdminBatch)

				// 令牌管理
				authorized.GET("/tokens", adminHandler.GetAdminTokens)
				authorized.GET("/tokens/:id", adminHandler.GetAdminToken)
				authorized.POST("/tokens/:id/deliver", adminHandler.DeliverAdminToken)
				authorized.POST("/tokens/:id/disable", adminHandler.DisableAdminToken)
				authorized.POST("/tokens/:id/extend", adminHandler.ExtendAdminToken)
				authorized.GET("/tokens/:id/audit", adminHandler.GetAdminTokenAudit)

				// 报表
				authorized.GET("/reports/summary", adminHandler.GetAdminReportSummary)
				authorized.POST("/reports/snapshot", adminHandler.TriggerAdminReportSnapshot)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
