package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mailroute/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = fmt.Errorf("cache miss")

// Cache 基于 Redis 的路由热路径缓存。
//
// 只缓存收信路径上的两类查询：按地址查邮箱、按名称查域名。
// 缓存层的任何错误都不应影响主流程的正确性。
type Cache struct {
	client *goredis.Client
}

// NewCache 创建 Redis 缓存实例。
func NewCache(addr, password string, db int) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping 测试 Redis 连接。
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func mailboxKey(address string) string {
	return "route:mailbox:" + strings.ToLower(address)
}

func domainKey(name string) string {
	return "route:domain:" + strings.ToLower(name)
}

// CacheMailbox 按地址缓存邮箱。
func (c *Cache) CacheMailbox(ctx context.Context, mailbox *domain.Mailbox, ttl time.Duration) error {
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, mailboxKey(mailbox.Address), data, ttl).Err()
}

// GetCachedMailbox 按地址获取缓存的邮箱。
func (c *Cache) GetCachedMailbox(ctx context.Context, address string) (*domain.Mailbox, error) {
	data, err := c.client.Get(ctx, mailboxKey(address)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal(data, &mailbox); err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// InvalidateMailbox 清除地址对应的邮箱缓存。
func (c *Cache) InvalidateMailbox(ctx context.Context, address string) error {
	return c.client.Del(ctx, mailboxKey(address)).Err()
}

// CacheCustomDomain 按名称缓存自定义域名。
func (c *Cache) CacheCustomDomain(ctx context.Context, d *domain.CustomDomain, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, domainKey(d.Domain), data, ttl).Err()
}

// GetCachedCustomDomain 按名称获取缓存的自定义域名。
func (c *Cache) GetCachedCustomDomain(ctx context.Context, name string) (*domain.CustomDomain, error) {
	data, err := c.client.Get(ctx, domainKey(name)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var d domain.CustomDomain
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// InvalidateCustomDomain 清除名称对应的域名缓存。
func (c *Cache) InvalidateCustomDomain(ctx context.Context, name string) error {
	return c.client.Del(ctx, domainKey(name)).Err()
}
