package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "mailroute/backend/internal/auth/jwt"
	"mailroute/backend/internal/config"
	"mailroute/backend/internal/health"
	"mailroute/backend/internal/middleware"
	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	IngestService  *service.IngestService
	MailboxService *service.MailboxService
	MessageService *service.MessageService
	DomainService  *service.CustomDomainService
	JWTManager     *jwtpkg.Manager
	Metrics        *monitoring.Metrics
	Health         *health.Checker
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)

	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(monitor.HTTPMetrics())

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewHandler(deps.MailboxService, deps.MessageService, deps.Metrics)
	inboundHandler := NewInboundHandler(deps.IngestService, deps.Metrics, deps.Logger)
	domainHandler := NewDomainHandler(deps.DomainService)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 健康检查与指标
	router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint()))
	router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Inbound Routes（上游中继投递） ==========
		// 入站邮件体可远大于普通 API 请求，单独设置大小上限
		inboundLimit := deps.Config.Ingest.MaxMessageBytes + 64*1024
		v1.POST("/inbound", middleware.BodySizeLimit(inboundLimit), inboundHandler.Receive)

		// 其余路由使用默认请求体限制
		api := v1.Group("", middleware.BodySizeLimit(middleware.DefaultBodyLimit))

		// ========== Mailbox Routes ==========
		mailboxRoutes := api.Group("/mailboxes")
		{
			mailboxRoutes.POST("", jwtAuth.OptionalAuth(), handler.createMailbox)
			mailboxRoutes.GET("/:id", jwtAuth.OptionalAuth(), handler.getMailbox)
			mailboxRoutes.DELETE("/:id", jwtAuth.OptionalAuth(), handler.deleteMailbox)

			mailboxRoutes.GET("/:id/messages", jwtAuth.OptionalAuth(), handler.listMessages)
			mailboxRoutes.GET("/:id/messages/:messageId", jwtAuth.OptionalAuth(), handler.getMessage)
			mailboxRoutes.GET("/:id/messages/:messageId/attachments/:attachmentId", jwtAuth.OptionalAuth(), handler.downloadAttachment)
		}

		// ========== Domain Routes（需要认证） ==========
		domainRoutes := api.Group("/domains", jwtAuth.RequireAuth())
		{
			domainRoutes.POST("", domainHandler.AddDomain)
			domainRoutes.GET("", domainHandler.ListDomains)
			domainRoutes.GET("/:id", domainHandler.GetDomain)
			domainRoutes.DELETE("/:id", domainHandler.DeleteDomain)
			domainRoutes.POST("/:id/verify", domainHandler.VerifyDomain)
			domainRoutes.PATCH("/:id/forward", domainHandler.UpdateForward)
			domainRoutes.GET("/:id/issues", domainHandler.ListIssues)
		}
	}

	return router
}
