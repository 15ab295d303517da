package provider

import (
	"github.com/vipo-core/internal/authz"
	"github.com/vipo-core/internal/cache"
	"github.com/vipo-core/internal/config"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/models"
	"github.com/vipo-core/internal/queue"
	"github.com/vipo-core/internal/repository"
	"github.com/vipo-core/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	OrderRepo         repository.OrderRepository
	AgentRepo         repository.AgentRepository
	PaymentEventRepo  repository.PaymentEventRepository
	SyncRecordRepo    repository.SyncRecordRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository

	// Services
	AuthzService          *authz.Service
	AuthzAuditService     *service.AuthzAuditService
	AuthService           *service.AuthService
	CommissionService     *service.CommissionService
	PaymentEventService   *service.PaymentEventService
	ReconciliationService *service.ReconciliationService
	AlertService          *service.AlertService
	NotificationService   *service.NotificationService
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

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.AgentRepo = repository.NewAgentRepository(db)
	c.PaymentEventRepo = repository.NewPaymentEventRepository(db)
	c.SyncRecordRepo = repository.NewSyncRecordRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.AuthService = service.NewAuthService(c.Config)
	c.AlertService = service.NewAlertService(&c.Config.Alert)
	c.NotificationService = service.NewNotificationService(&c.Config.Notification)
	c.CommissionService = service.NewCommissionService(
		c.OrderRepo,
		c.AgentRepo,
		c.QueueClient,
		c.Config.Commission.HoldDays,
	)
	c.PaymentEventService = service.NewPaymentEventService(
		c.PaymentEventRepo,
		c.OrderRepo,
		c.CommissionService,
		c.QueueClient,
		c.Config.Retry.MaxAttempts,
		c.Config.Retry.BackoffSeconds,
		c.Config.Retry.SweepBatchSize,
	)
	c.ReconciliationService = service.NewReconciliationService(
		c.PaymentEventRepo,
		c.OrderRepo,
		c.SyncRecordRepo,
		c.QueueClient,
		c.Config.Reconciliation.AmountTolerance,
		c.Config.Reconciliation.IssueLimit,
	)
}
