package storage

import (
	"fmt"

	"go.uber.org/zap"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/storage/hybrid"
	"mailroute/backend/internal/storage/memory"
	"mailroute/backend/internal/storage/redis"
	"mailroute/backend/internal/storage/sql"
)

// New 按配置组装存储栈。
//
// database.type 为 "memory"（或留空）时使用内存存储；
// 否则连接 SQL 数据库，并在配置了 Redis 地址时叠加缓存层。
func New(cfg *config.Config, log *zap.Logger) (domain.Store, error) {
	var store domain.Store

	switch cfg.Database.Type {
	case "", "memory":
		log.Info("using in-memory storage")
		store = memory.NewStore()
	case "mysql", "postgres":
		sqlStore, err := sql.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Database.Type, err)
		}
		log.Info("connected to database", zap.String("driver", cfg.Database.Type))
		store = sqlStore
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if cfg.Redis.Address == "" {
		return store, nil
	}

	cache, err := redis.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("redis cache enabled", zap.String("address", cfg.Redis.Address))

	return hybrid.NewStore(store, cache, log), nil
}
