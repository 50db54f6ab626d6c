package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "mailroute/backend/internal/auth/jwt"
	"mailroute/backend/internal/config"
	"mailroute/backend/internal/dnscheck"
	"mailroute/backend/internal/health"
	"mailroute/backend/internal/logger"
	"mailroute/backend/internal/mailer"
	"mailroute/backend/internal/monitor"
	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
	"mailroute/backend/internal/storage"
	httptransport "mailroute/backend/internal/transport/http"
)

// main 启动入站邮件路由服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting mailroute server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := storage.New(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log)

	// 初始化出站转发通道
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := mailer.New(ctx, &cfg.Forward, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize forward provider: %v", err))
	}
	log.Info("forward provider initialized", zap.String("provider", provider.Name()))

	// 初始化 DNS 验证器
	verifier := dnscheck.New(dnscheck.Config{
		MXHosts:         cfg.DNS.MXHosts,
		SPFInclude:      cfg.DNS.SPFInclude,
		MailCNAMETarget: cfg.DNS.MailCNAMETarget,
		DKIMSelector:    cfg.DNS.DKIMSelector,
		LookupTimeout:   cfg.DNS.LookupTimeout,
	}, log)

	// 初始化服务层
	mailboxService := service.NewMailboxService(store, cfg)
	messageService := service.NewMessageService(store)
	resolverService := service.NewResolverService(store, cfg)
	forwardService := service.NewForwardService(provider, &cfg.Forward, log).WithMetrics(metrics)
	ingestService := service.NewIngestService(store, resolverService, mailboxService, forwardService, cfg, log).WithMetrics(metrics)
	domainService := service.NewCustomDomainService(store, verifier, cfg, log)

	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// 域名巡检
	domainMonitor := monitor.New(store, verifier, domainService.RequiredChecks(), &cfg.Monitor, log).WithMetrics(metrics)
	if err := domainMonitor.Start(ctx); err != nil {
		panic(fmt.Sprintf("failed to start domain monitor: %v", err))
	}
	defer domainMonitor.Stop()

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		IngestService:  ingestService,
		MailboxService: mailboxService,
		MessageService: messageService,
		DomainService:  domainService,
		JWTManager:     jwtManager,
		Metrics:        metrics,
		Health:         healthChecker,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期邮箱 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Info("starting expired mailbox cleanup task", zap.Duration("interval", 1*time.Hour))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("cleanup task stopped")
				return nil
			case <-ticker.C:
				count, err := store.DeleteExpiredMailboxes()
				if err != nil {
					log.Error("failed to cleanup expired mailboxes", zap.Error(err))
				} else if count > 0 {
					metrics.RecordMailboxExpired(count)
					log.Info("expired mailboxes cleaned up", zap.Int("count", count))
				}
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
