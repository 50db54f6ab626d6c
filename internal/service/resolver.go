package service

import (
	"errors"
	"fmt"
	"time"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
)

// ResolverService 把规整后的收件地址解析为路由决策。
type ResolverService struct {
	store domain.Store
	cfg   *config.Config
}

// NewResolverService 创建收件人解析服务。
func NewResolverService(store domain.Store, cfg *config.Config) *ResolverService {
	return &ResolverService{store: store, cfg: cfg}
}

// Resolve 按优先级解析收件地址，首个命中即返回：
//
//	高级邮箱精确匹配（未过期）
//	→ 已验证自定义域名（按域名后缀，大小写不敏感）
//	→ 系统域名邮箱
//	→ 临时邮箱精确匹配（未过期）
//	→ 无路由
//
// 只有查无记录才算无路由；存储层故障原样上抛，不得被
// 误判成收件人不存在。
func (s *ResolverService) Resolve(address string) (domain.RoutingDecision, error) {
	addr := domain.NormalizeAddress(address)
	addrDomain := domain.AddressDomain(addr)
	if addrDomain == "" {
		return domain.NoRoute(), nil
	}

	now := time.Now().UTC()
	var mailbox *domain.Mailbox
	found, err := s.store.GetMailboxByAddress(addr)
	switch {
	case err == nil:
		if !found.Expired(now) {
			mailbox = found
		}
	case errors.Is(err, domain.ErrMailboxNotFound):
	default:
		return domain.NoRoute(), fmt.Errorf("lookup mailbox: %w", err)
	}

	if mailbox != nil && mailbox.Type == domain.MailboxTypePremium {
		return domain.RoutingDecision{
			Kind:        domain.RoutePremium,
			Domain:      mailbox.Domain,
			Mailbox:     mailbox,
			ForwardTo:   mailbox.ForwardTo,
			OwnerUserID: mailbox.UserID,
		}, nil
	}

	custom, err := s.store.GetCustomDomainByName(addrDomain)
	switch {
	case err == nil:
		if custom.Status.Routable() {
			owner := custom.UserID
			return domain.RoutingDecision{
				Kind:        domain.RouteCustom,
				Domain:      addrDomain,
				Mailbox:     mailbox, // 可为 nil：按域名兜底创建
				ForwardTo:   custom.ForwardTo,
				OwnerUserID: &owner,
			}, nil
		}
	case errors.Is(err, domain.ErrDomainNotFound):
	default:
		return domain.NoRoute(), fmt.Errorf("lookup custom domain: %w", err)
	}

	if mailbox != nil && s.cfg.IsSystemDomain(addrDomain) {
		return domain.RoutingDecision{
			Kind:        domain.RouteSystem,
			Domain:      addrDomain,
			Mailbox:     mailbox,
			OwnerUserID: mailbox.UserID,
		}, nil
	}

	if mailbox != nil {
		return domain.RoutingDecision{
			Kind:        domain.RouteTemporary,
			Domain:      mailbox.Domain,
			Mailbox:     mailbox,
			OwnerUserID: mailbox.UserID,
		}, nil
	}

	return domain.NoRoute(), nil
}
