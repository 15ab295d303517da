package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vipo-core/internal/authz"
	"github.com/vipo-core/internal/cache"
	"github.com/vipo-core/internal/config"
	adminhandlers "github.com/vipo-core/internal/http/handlers/admin"
	publichandlers "github.com/vipo-core/internal/http/handlers/public"
	"github.com/vipo-core/internal/http/response"
	"github.com/vipo-core/internal/logger"
	"github.com/vipo-core/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按对外/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "vipo"
	}
	redisClient := cache.Client()
	webhookRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:webhook", redisPrefix),
		WindowSeconds: cfg.Security.WebhookRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.WebhookRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 支付事件 webhook（上游网关推送）
		apiV1.POST("/webhooks/payment-events",
			RateLimitMiddleware(redisClient, webhookRule, KeyByIP),
			publicHandler.PaymentEventWebhook,
		)

		// 定时触发接口（外部调度器调用）
		cron := apiV1.Group("/cron")
		cron.Use(CronAuthMiddleware(cfg.Cron.Secret))
		{
			cron.POST("/commissions/release", publicHandler.CronReleaseCommissions)
			cron.POST("/payment-events/retry-sweep", publicHandler.CronRetrySweep)
			cron.POST("/reconciliation", publicHandler.CronReconciliation)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			authorized := admin.Use(JWTAuthMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				// 佣金操作
				authorized.POST("/commissions/release-all", adminHandler.ReleaseAllCommissions)
				authorized.POST("/commissions/:id/release", adminHandler.ReleaseCommission)
				authorized.POST("/commissions/:id/cancel", adminHandler.CancelCommission)
				authorized.POST("/commissions/:id/fix-balance", adminHandler.FixCommissionBalance)

				// 订单
				authorized.GET("/orders", adminHandler.AdminListOrders)
				authorized.GET("/orders/:id", adminHandler.AdminGetOrder)

				// 支付事件
				authorized.GET("/payment-events", adminHandler.ListPaymentEvents)
				authorized.POST("/payment-events/:event_id/retry", adminHandler.RetryPaymentEvent)

				// 对账
				authorized.GET("/reconciliation/report", adminHandler.GetReconciliationReport)

				// 代理
				authorized.GET("/agents/:id", adminHandler.GetAgent)

				// 权限管理
				authorized.GET("/authz/me", adminHandler.GetAuthzMe)
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
				authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
