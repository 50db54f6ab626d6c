package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			SystemDomains: []string{"route.mail"},
			DefaultTTL:    time.Hour,
			PremiumTTL:    24 * 365 * time.Hour,
		},
		Ingest: config.IngestConfig{MaxMessageBytes: 10 * 1024 * 1024},
	}
}

func saveMailbox(t *testing.T, store domain.Store, address string, mbType domain.MailboxType, userID *string, forwardTo string) *domain.Mailbox {
	t.Helper()
	expires := time.Now().UTC().Add(time.Hour)
	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		Domain:    domain.AddressDomain(address),
		Type:      mbType,
		UserID:    userID,
		ForwardTo: forwardTo,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: &expires,
	}
	require.NoError(t, store.SaveMailbox(mailbox))
	return mailbox
}

func TestResolvePrecedence(t *testing.T) {
	store := memory.NewStore()
	cfg := testConfig()
	resolver := NewResolverService(store, cfg)
	userID := "user-1"

	t.Run("高级邮箱优先于系统域名", func(t *testing.T) {
		// 同一个地址既是高级邮箱又落在系统域名上
		saveMailbox(t, store, "vip@route.mail", domain.MailboxTypePremium, &userID, "target@forward.example")

		decision, err := resolver.Resolve("VIP@Route.Mail")
		require.NoError(t, err)
		assert.Equal(t, domain.RoutePremium, decision.Kind)
		assert.Equal(t, "target@forward.example", decision.ForwardTo)
		require.NotNil(t, decision.OwnerUserID)
		assert.Equal(t, userID, *decision.OwnerUserID)
	})

	t.Run("已验证自定义域名按后缀命中", func(t *testing.T) {
		verified := &domain.CustomDomain{
			ID:        uuid.NewString(),
			UserID:    userID,
			Domain:    "corp.example",
			Status:    domain.DomainStatusVerified,
			ForwardTo: "inbox@corp-owner.example",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.SaveCustomDomain(verified))

		decision, err := resolver.Resolve("anyone@corp.example")
		require.NoError(t, err)
		assert.Equal(t, domain.RouteCustom, decision.Kind)
		assert.Nil(t, decision.Mailbox)
		assert.Equal(t, "inbox@corp-owner.example", decision.ForwardTo)
	})

	t.Run("未验证域名不参与路由", func(t *testing.T) {
		pending := &domain.CustomDomain{
			ID:        uuid.NewString(),
			UserID:    userID,
			Domain:    "pending.example",
			Status:    domain.DomainStatusPending,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.SaveCustomDomain(pending))

		decision, err := resolver.Resolve("anyone@pending.example")
		require.NoError(t, err)
		assert.Equal(t, domain.RouteNone, decision.Kind)
	})

	t.Run("系统域名邮箱", func(t *testing.T) {
		saveMailbox(t, store, "plain@route.mail", domain.MailboxTypeTemporary, nil, "")

		decision, err := resolver.Resolve("plain@route.mail")
		require.NoError(t, err)
		assert.Equal(t, domain.RouteSystem, decision.Kind)
		assert.Empty(t, decision.ForwardTo)
	})

	t.Run("过期邮箱不再命中", func(t *testing.T) {
		expired := saveMailbox(t, store, "gone@route.mail", domain.MailboxTypeTemporary, nil, "")
		past := time.Now().UTC().Add(-time.Minute)
		expired.ExpiresAt = &past
		require.NoError(t, store.SaveMailbox(expired))

		decision, err := resolver.Resolve("gone@route.mail")
		require.NoError(t, err)
		assert.Equal(t, domain.RouteNone, decision.Kind)
	})

	t.Run("无法解析的地址返回无路由", func(t *testing.T) {
		decision, err := resolver.Resolve("not-an-address")
		require.NoError(t, err)
		assert.Equal(t, domain.RouteNone, decision.Kind)
	})
}

func TestResolveInactiveDomainStopsRouting(t *testing.T) {
	store := memory.NewStore()
	resolver := NewResolverService(store, testConfig())

	inactive := &domain.CustomDomain{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		Domain:    "lapsed.example",
		Status:    domain.DomainStatusInactive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveCustomDomain(inactive))

	decision, err := resolver.Resolve("a@lapsed.example")
	require.NoError(t, err)
	assert.Equal(t, domain.RouteNone, decision.Kind)
}

// brokenStore 模拟存储层基础设施故障（连接拒绝等）。
type brokenStore struct {
	domain.Store
	err error
}

func (s *brokenStore) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	return nil, s.err
}

func (s *brokenStore) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	return nil, s.err
}

func TestResolveStoreFailureIsNotNoRoute(t *testing.T) {
	underlying := memory.NewStore()
	userID := "user-1"
	saveMailbox(t, underlying, "vip@route.mail", domain.MailboxTypePremium, &userID, "target@forward.example")

	storeErr := errors.New("dial tcp: connection refused")
	resolver := NewResolverService(&brokenStore{Store: underlying, err: storeErr}, testConfig())

	// 邮箱明明存在，存储故障不能被当成“收件人不存在”
	decision, err := resolver.Resolve("vip@route.mail")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Equal(t, domain.RouteNone, decision.Kind)
}
