package provider

import (
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/cache"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/config"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/models"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/queue"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/repository"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo  repository.AdminRepository
	PrizeRepo  repository.PrizeRepository
	BatchRepo  repository.BatchRepository
	TokenRepo  repository.TokenRepository
	ReportRepo repository.ReportRepository

	// Services
	AuthService   *service.AuthService
	PrizeService  *service.PrizeService
	BatchService  *service.BatchService
	TokenService  *service.TokenService
	ReportService *service.ReportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.PrizeRepo = repository.NewPrizeRepository(db)
	c.BatchRepo = repository.NewBatchRepository(db)
	c.TokenRepo = repository.NewTokenRepository(db)
	c.ReportRepo = repository.NewReportRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.PrizeService = service.NewPrizeService(c.PrizeRepo)
	c.BatchService = service.NewBatchService(c.Config, c.BatchRepo, c.PrizeRepo, c.TokenRepo, c.QueueClient)
	c.TokenService = service.NewTokenService(c.Config, c.TokenRepo)
	c.ReportService = service.NewReportService(c.ReportRepo, c.PrizeRepo)
}
