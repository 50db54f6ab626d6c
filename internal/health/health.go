package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailroute/backend/internal/domain"
)

// Checker 健康检查器
type Checker struct {
	health healthcheck.Handler
	store  domain.Store
	logger *zap.Logger
}

// NewChecker 创建健康检查器。存储层的 Health 同时覆盖
// 数据库与缓存（hybrid 实现二者任一异常即不健康）。
func NewChecker(store domain.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	c.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(2048))
	c.health.AddReadinessCheck("storage", func() error {
		if err := c.store.Health(); err != nil {
			c.logger.Warn("storage health check failed", zap.Error(err))
			return err
		}
		return nil
	})

	return c
}

// LiveEndpoint 存活探针处理器
func (c *Checker) LiveEndpoint() http.HandlerFunc {
	return c.health.LiveEndpoint
}

// ReadyEndpoint 就绪探针处理器
func (c *Checker) ReadyEndpoint() http.HandlerFunc {
	return c.health.ReadyEndpoint
}
