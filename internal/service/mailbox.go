package service

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
)

// MailboxService 封装邮箱相关业务操作。
type MailboxService struct {
	store domain.Store
	cfg   *config.Config

	mu     sync.Mutex
	random *rand.Rand
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(store domain.Store, cfg *config.Config) *MailboxService {
	return &MailboxService{
		store:  store,
		cfg:    cfg,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateMailboxInput 定义创建邮箱所需的输入。
type CreateMailboxInput struct {
	Prefix    string             // 本地部分，留空时随机生成
	Domain    string             // 域名，留空时使用第一个系统域名
	Type      domain.MailboxType // 邮箱类型，默认 temporary
	UserID    *string            // 可选：关联的用户ID
	ForwardTo string             // 可选：转发目标（仅高级邮箱）
}

// Create 创建新的邮箱。
//
// 域名必须是系统域名，或当前用户的已验证自定义域名。
// 高级邮箱必须关联用户；转发目标只在高级邮箱上生效。
func (s *MailboxService) Create(input CreateMailboxInput) (*domain.Mailbox, error) {
	mailboxType := input.Type
	if mailboxType == "" {
		mailboxType = domain.MailboxTypeTemporary
	}

	selectedDomain := strings.ToLower(strings.TrimSpace(input.Domain))
	if selectedDomain == "" {
		selectedDomain = s.cfg.Mailbox.SystemDomains[0]
	}
	if err := s.checkDomainPermission(selectedDomain, input.UserID); err != nil {
		return nil, err
	}

	localPart := strings.ToLower(strings.TrimSpace(input.Prefix))
	if localPart == "" {
		localPart = s.randomLocalPart(10)
	}

	address := localPart + "@" + selectedDomain
	if !domain.ValidateEmail(address) {
		return nil, ErrPrefixInvalid
	}

	if existing, err := s.store.GetMailboxByAddress(address); err == nil {
		now := time.Now().UTC()
		if !existing.Expired(now) {
			return nil, fmt.Errorf("%w: address already taken", ErrPrefixInvalid)
		}
		// 过期邮箱让位：历史记录随旧邮箱删除
		if err := s.store.DeleteMailbox(existing.ID); err != nil {
			return nil, err
		}
	}

	if mailboxType == domain.MailboxTypePremium {
		if input.UserID == nil {
			return nil, fmt.Errorf("%w: premium mailbox requires a user", ErrDomainNotAllowed)
		}
		if input.ForwardTo != "" && !domain.ValidateEmail(input.ForwardTo) {
			return nil, ErrForwardTargetInvalid
		}
	}

	now := time.Now().UTC()
	ttl := s.cfg.Mailbox.DefaultTTL
	forwardTo := ""
	if mailboxType == domain.MailboxTypePremium {
		ttl = s.cfg.Mailbox.PremiumTTL
		forwardTo = domain.NormalizeAddress(input.ForwardTo)
	}
	expiresAt := now.Add(ttl)

	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		LocalPart: localPart,
		Domain:    selectedDomain,
		Type:      mailboxType,
		UserID:    input.UserID,
		ForwardTo: forwardTo,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	if err := s.store.SaveMailbox(mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

// checkDomainPermission 校验域名是否允许当前用户创建邮箱。
func (s *MailboxService) checkDomainPermission(name string, userID *string) error {
	if s.cfg.IsSystemDomain(name) {
		return nil
	}

	custom, err := s.store.GetCustomDomainByName(name)
	if err != nil {
		return ErrDomainNotAllowed
	}
	if !custom.Status.Routable() {
		return fmt.Errorf("%w: domain not verified", ErrDomainNotAllowed)
	}
	if userID == nil || custom.UserID != *userID {
		return fmt.Errorf("%w: domain owned by another user", ErrDomainNotAllowed)
	}
	return nil
}

// EnsureCustomMailbox 为已验证自定义域名兜底创建邮箱。
//
// 收信管线在域名整体可路由但确切地址尚无邮箱时调用，
// 邮箱归属域名所有者，地址已存在时直接复用。
func (s *MailboxService) EnsureCustomMailbox(address string, custom *domain.CustomDomain) (*domain.Mailbox, error) {
	address = domain.NormalizeAddress(address)
	if existing, err := s.store.GetMailboxByAddress(address); err == nil {
		if !existing.Expired(time.Now().UTC()) {
			return existing, nil
		}
		if err := s.store.DeleteMailbox(existing.ID); err != nil {
			return nil, err
		}
	}

	localPart := strings.SplitN(address, "@", 2)[0]
	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.Mailbox.PremiumTTL)

	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		LocalPart: localPart,
		Domain:    strings.ToLower(custom.Domain),
		Type:      domain.MailboxTypePremium,
		UserID:    &custom.UserID,
		ForwardTo: "",
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}
	if err := s.store.SaveMailbox(mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

// Get 根据 ID 获取邮箱。
func (s *MailboxService) Get(id string) (*domain.Mailbox, error) {
	return s.store.GetMailbox(id)
}

// GetByAddress 根据地址获取邮箱。
func (s *MailboxService) GetByAddress(address string) (*domain.Mailbox, error) {
	return s.store.GetMailboxByAddress(domain.NormalizeAddress(address))
}

// Delete 删除邮箱及其全部邮件。
func (s *MailboxService) Delete(id string) error {
	return s.store.DeleteMailbox(id)
}

// DeleteExpired 清理过期邮箱，返回删除数量。
func (s *MailboxService) DeleteExpired() (int, error) {
	return s.store.DeleteExpiredMailboxes()
}

const localPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomLocalPart 生成随机本地部分。
func (s *MailboxService) randomLocalPart(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = localPartAlphabet[s.random.Intn(len(localPartAlphabet))]
	}
	return string(b)
}
