package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailroute/backend/internal/dnscheck"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/storage/memory"
)

// fakeVerifier 按预设结果回答验证请求。
type fakeVerifier struct {
	valid  bool
	checks map[domain.VerificationRecordType]bool
}

func (f *fakeVerifier) Verify(_ context.Context, _ string, required []domain.VerificationRecordType) dnscheck.Result {
	result := dnscheck.Result{
		Checks:    make(map[domain.VerificationRecordType]bool, len(required)),
		Observed:  make(map[domain.VerificationRecordType]string, len(required)),
		Valid:     true,
		CheckedAt: time.Now().UTC(),
	}
	for _, rt := range required {
		ok := f.valid
		if f.checks != nil {
			ok = f.checks[rt]
		}
		result.Checks[rt] = ok
		if !ok {
			result.Valid = false
		}
	}
	return result
}

func (f *fakeVerifier) Expected(rt domain.VerificationRecordType) string {
	return "expected-" + string(rt)
}

func newDomainService(t *testing.T, verifier DomainVerifier) (*CustomDomainService, domain.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewCustomDomainService(store, verifier, testConfig(), zap.NewNop()), store
}

func TestAddDomain(t *testing.T) {
	svc, store := newDomainService(t, &fakeVerifier{valid: true})

	t.Run("注册生成全部期望记录", func(t *testing.T) {
		custom, records, err := svc.AddDomain("user-1", "Corp.Example", "inbox@owner.example")
		require.NoError(t, err)
		assert.Equal(t, "corp.example", custom.Domain)
		assert.Equal(t, domain.DomainStatusPending, custom.Status)
		require.Len(t, records, 3) // 无 DKIM 选择器时 MX+SPF+CNAME
		for _, record := range records {
			assert.Equal(t, "expected-"+string(record.Type), record.Expected)
			assert.False(t, record.Observed)
		}

		stored, err := store.ListVerificationRecords(custom.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("重复注册被拒绝", func(t *testing.T) {
		_, _, err := svc.AddDomain("user-2", "corp.example", "")
		assert.ErrorIs(t, err, ErrDomainExists)
	})

	t.Run("系统域名被拒绝", func(t *testing.T) {
		_, _, err := svc.AddDomain("user-1", "route.mail", "")
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("非法域名被拒绝", func(t *testing.T) {
		_, _, err := svc.AddDomain("user-1", "not a domain", "")
		assert.ErrorIs(t, err, ErrDomainInvalid)
	})

	t.Run("非法转发目标被拒绝", func(t *testing.T) {
		_, _, err := svc.AddDomain("user-1", "other.example", "not-an-email")
		assert.ErrorIs(t, err, ErrForwardTargetInvalid)
	})
}

func TestVerifyDomainAllChecksPass(t *testing.T) {
	svc, _ := newDomainService(t, &fakeVerifier{valid: true})
	custom, _, err := svc.AddDomain("user-1", "corp.example", "")
	require.NoError(t, err)

	verified, records, err := svc.Verify(context.Background(), custom.ID, "user-1", false)
	require.NoError(t, err)

	assert.Equal(t, domain.DomainStatusVerified, verified.Status)
	assert.NotNil(t, verified.VerifiedAt)
	assert.NotNil(t, verified.LastCheckAt)
	for _, record := range records {
		assert.True(t, record.Observed)
		assert.NotNil(t, record.VerifiedAt)
	}
}

func TestVerifyDomainPartialFailureNoPartialCredit(t *testing.T) {
	verifier := &fakeVerifier{checks: map[domain.VerificationRecordType]bool{
		domain.VerificationRecordMX:    true,
		domain.VerificationRecordSPF:   true,
		domain.VerificationRecordCNAME: false,
	}}
	svc, _ := newDomainService(t, verifier)
	custom, _, err := svc.AddDomain("user-1", "corp.example", "")
	require.NoError(t, err)

	failed, records, err := svc.Verify(context.Background(), custom.ID, "user-1", false)
	require.NoError(t, err)

	// MX 真 + SPF 真 + CNAME 假 ⇒ 整体失败
	assert.Equal(t, domain.DomainStatusFailed, failed.Status)
	assert.Nil(t, failed.VerifiedAt)
	observed := map[domain.VerificationRecordType]bool{}
	for _, record := range records {
		observed[record.Type] = record.Observed
	}
	assert.True(t, observed[domain.VerificationRecordMX])
	assert.True(t, observed[domain.VerificationRecordSPF])
	assert.False(t, observed[domain.VerificationRecordCNAME])
}

func TestVerifyDomainOwnership(t *testing.T) {
	svc, _ := newDomainService(t, &fakeVerifier{valid: true})
	custom, _, err := svc.AddDomain("user-1", "corp.example", "")
	require.NoError(t, err)

	t.Run("非所有者被拒绝", func(t *testing.T) {
		_, _, err := svc.Verify(context.Background(), custom.ID, "user-2", false)
		assert.ErrorIs(t, err, ErrNotDomainOwner)
	})

	t.Run("管理员不受限制", func(t *testing.T) {
		_, _, err := svc.Verify(context.Background(), custom.ID, "user-2", true)
		assert.NoError(t, err)
	})
}

func TestSetForwardTo(t *testing.T) {
	svc, _ := newDomainService(t, &fakeVerifier{valid: true})
	custom, _, err := svc.AddDomain("user-1", "corp.example", "")
	require.NoError(t, err)

	updated, err := svc.SetForwardTo(custom.ID, "user-1", false, "Inbox@Owner.Example")
	require.NoError(t, err)
	assert.Equal(t, "inbox@owner.example", updated.ForwardTo)

	_, err = svc.SetForwardTo(custom.ID, "user-1", false, "bad address")
	assert.ErrorIs(t, err, ErrForwardTargetInvalid)

	cleared, err := svc.SetForwardTo(custom.ID, "user-1", false, "")
	require.NoError(t, err)
	assert.Empty(t, cleared.ForwardTo)
}
