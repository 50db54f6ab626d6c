package hybrid

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/storage/redis"
)

// 路由热路径缓存的保留时间。
const (
	mailboxCacheTTL = 5 * time.Minute
	domainCacheTTL  = 10 * time.Minute
)

// Store 组合持久化存储与 Redis 缓存。
//
// 收信路径的按地址/按名称查询走缓存，其余操作直通底层存储。
// 缓存故障只记录日志，读写照常落到持久层。
type Store struct {
	persistent domain.Store
	cache      *redis.Cache
	log        *zap.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore 创建混合存储。
func NewStore(persistent domain.Store, cache *redis.Cache, log *zap.Logger) *Store {
	return &Store{persistent: persistent, cache: cache, log: log}
}

// SaveMailbox 保存邮箱并使旧缓存失效。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	if err := s.persistent.SaveMailbox(mailbox); err != nil {
		return err
	}
	s.invalidateMailbox(mailbox.Address)
	return nil
}

// GetMailbox 根据 ID 获取邮箱，不走缓存。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	return s.persistent.GetMailbox(id)
}

// GetMailboxByAddress 按地址获取邮箱，优先读缓存。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	ctx, cancel := cacheContext()
	defer cancel()

	if mailbox, err := s.cache.GetCachedMailbox(ctx, address); err == nil {
		return mailbox, nil
	} else if err != redis.ErrCacheMiss {
		s.log.Warn("mailbox cache read failed", zap.Error(err))
	}

	mailbox, err := s.persistent.GetMailboxByAddress(address)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheMailbox(ctx, mailbox, mailboxCacheTTL); err != nil {
		s.log.Warn("mailbox cache write failed", zap.Error(err))
	}
	return mailbox, nil
}

// DeleteMailbox 删除邮箱并清除缓存。
func (s *Store) DeleteMailbox(id string) error {
	mailbox, err := s.persistent.GetMailbox(id)
	if err != nil {
		return err
	}
	if err := s.persistent.DeleteMailbox(id); err != nil {
		return err
	}
	s.invalidateMailbox(mailbox.Address)
	return nil
}

// DeleteExpiredMailboxes 删除过期邮箱。过期邮箱的缓存条目靠 TTL 自然过期。
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	return s.persistent.DeleteExpiredMailboxes()
}

// SaveMessage 直通持久层，保持其原子语义。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.persistent.SaveMessage(message)
}

// GetMessage 获取邮件。
func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	return s.persistent.GetMessage(mailboxID, messageID)
}

// ListMessages 列出邮箱内全部邮件。
func (s *Store) ListMessages(mailboxID string) ([]*domain.Message, error) {
	return s.persistent.ListMessages(mailboxID)
}

// GetAttachment 获取附件。
func (s *Store) GetAttachment(messageID, attachmentID string) (*domain.Attachment, error) {
	return s.persistent.GetAttachment(messageID, attachmentID)
}

// GetProcessedDelivery 查询上游投递记录。
func (s *Store) GetProcessedDelivery(upstreamID string) (*domain.ProcessedDelivery, error) {
	return s.persistent.GetProcessedDelivery(upstreamID)
}

// SaveCustomDomain 保存域名并使旧缓存失效。
func (s *Store) SaveCustomDomain(d *domain.CustomDomain) error {
	if err := s.persistent.SaveCustomDomain(d); err != nil {
		return err
	}
	s.invalidateDomain(d.Domain)
	return nil
}

// SaveCustomDomainWithRecords 保存域名与验证记录并使旧缓存失效。
func (s *Store) SaveCustomDomainWithRecords(d *domain.CustomDomain, records []*domain.VerificationRecord) error {
	if err := s.persistent.SaveCustomDomainWithRecords(d, records); err != nil {
		return err
	}
	s.invalidateDomain(d.Domain)
	return nil
}

// GetCustomDomain 根据 ID 获取域名，不走缓存。
func (s *Store) GetCustomDomain(id string) (*domain.CustomDomain, error) {
	return s.persistent.GetCustomDomain(id)
}

// GetCustomDomainByName 按名称获取域名，优先读缓存。
func (s *Store) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	ctx, cancel := cacheContext()
	defer cancel()

	if d, err := s.cache.GetCachedCustomDomain(ctx, name); err == nil {
		return d, nil
	} else if err != redis.ErrCacheMiss {
		s.log.Warn("domain cache read failed", zap.Error(err))
	}

	d, err := s.persistent.GetCustomDomainByName(name)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheCustomDomain(ctx, d, domainCacheTTL); err != nil {
		s.log.Warn("domain cache write failed", zap.Error(err))
	}
	return d, nil
}

// ListCustomDomainsByUserID 列出用户的域名。
func (s *Store) ListCustomDomainsByUserID(userID string) ([]*domain.CustomDomain, error) {
	return s.persistent.ListCustomDomainsByUserID(userID)
}

// ListCustomDomainsByStatus 按状态列出域名。
func (s *Store) ListCustomDomainsByStatus(statuses ...domain.DomainStatus) ([]*domain.CustomDomain, error) {
	return s.persistent.ListCustomDomainsByStatus(statuses...)
}

// DeleteCustomDomain 删除域名并清除缓存。
func (s *Store) DeleteCustomDomain(id string) error {
	d, err := s.persistent.GetCustomDomain(id)
	if err != nil {
		return err
	}
	if err := s.persistent.DeleteCustomDomain(id); err != nil {
		return err
	}
	s.invalidateDomain(d.Domain)
	return nil
}

// ListVerificationRecords 返回域名的验证记录。
func (s *Store) ListVerificationRecords(domainID string) ([]*domain.VerificationRecord, error) {
	return s.persistent.ListVerificationRecords(domainID)
}

// AppendDomainIssue 追加域名问题记录。
func (s *Store) AppendDomainIssue(issue *domain.DomainIssue) error {
	return s.persistent.AppendDomainIssue(issue)
}

// ListDomainIssues 返回域名问题记录。
func (s *Store) ListDomainIssues(domainID string, limit int) ([]*domain.DomainIssue, error) {
	return s.persistent.ListDomainIssues(domainID, limit)
}

// Close 依次关闭缓存和持久层。
func (s *Store) Close() error {
	if err := s.cache.Close(); err != nil {
		s.log.Warn("failed to close cache", zap.Error(err))
	}
	return s.persistent.Close()
}

// Health 二者任一异常即不健康。
func (s *Store) Health() error {
	ctx, cancel := cacheContext()
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		return err
	}
	return s.persistent.Health()
}

func (s *Store) invalidateMailbox(address string) {
	ctx, cancel := cacheContext()
	defer cancel()
	if err := s.cache.InvalidateMailbox(ctx, address); err != nil {
		s.log.Warn("mailbox cache invalidation failed", zap.Error(err))
	}
}

func (s *Store) invalidateDomain(name string) {
	ctx, cancel := cacheContext()
	defer cancel()
	if err := s.cache.InvalidateCustomDomain(ctx, name); err != nil {
		s.log.Warn("domain cache invalidation failed", zap.Error(err))
	}
}

func cacheContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}
