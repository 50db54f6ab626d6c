package dnscheck

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mailroute/backend/internal/domain"
)

type fakeResolver struct {
	mx    map[string][]*net.MX
	txt   map[string][]string
	cname map[string]string
	err   map[string]error
}

func (f *fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if err := f.err[name]; err != nil {
		return nil, err
	}
	return f.mx[name], nil
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if err := f.err[name]; err != nil {
		return nil, err
	}
	return f.txt[name], nil
}

func (f *fakeResolver) LookupCNAME(_ context.Context, name string) (string, error) {
	if err := f.err[name]; err != nil {
		return "", err
	}
	return f.cname[name], nil
}

func testConfig() Config {
	return Config{
		MXHosts:         []string{"mx1.mailroute.dev", "mx2.mailroute.dev"},
		SPFInclude:      "spf.mailroute.dev",
		MailCNAMETarget: "mail.mailroute.dev",
		DKIMSelector:    "mr1",
		LookupTimeout:   time.Second,
	}
}

func healthyResolver() *fakeResolver {
	return &fakeResolver{
		mx: map[string][]*net.MX{
			"example.com": {{Host: "MX1.mailroute.dev.", Pref: 10}},
		},
		txt: map[string][]string{
			"example.com":                {"v=spf1 include:spf.mailroute.dev ~all"},
			"mr1._domainkey.example.com": {"v=DKIM1; k=rsa; p=abc"},
		},
		cname: map[string]string{
			"mail.example.com": "mail.mailroute.dev.",
		},
		err: map[string]error{},
	}
}

var allChecks = []domain.VerificationRecordType{
	domain.VerificationRecordMX,
	domain.VerificationRecordSPF,
	domain.VerificationRecordCNAME,
	domain.VerificationRecordDKIM,
}

func TestVerifyAllChecksPass(t *testing.T) {
	v := NewWithResolver(testConfig(), healthyResolver(), zap.NewNop())

	result := v.Verify(context.Background(), "Example.COM.", allChecks)

	assert.True(t, result.Valid)
	for _, rt := range allChecks {
		assert.True(t, result.Checks[rt], "check=%s", rt)
	}
	assert.Equal(t, "mx1.mailroute.dev", result.Observed[domain.VerificationRecordMX])
	assert.False(t, result.CheckedAt.IsZero())
}

func TestVerifySingleFailureFailsAggregate(t *testing.T) {
	resolver := healthyResolver()
	resolver.cname["mail.example.com"] = "elsewhere.example.net."

	v := NewWithResolver(testConfig(), resolver, zap.NewNop())
	result := v.Verify(context.Background(), "example.com", allChecks)

	// MX 真 + SPF 真 + CNAME 假 ⇒ 聚合为假
	assert.False(t, result.Valid)
	assert.True(t, result.Checks[domain.VerificationRecordMX])
	assert.True(t, result.Checks[domain.VerificationRecordSPF])
	assert.False(t, result.Checks[domain.VerificationRecordCNAME])
	assert.True(t, result.Checks[domain.VerificationRecordDKIM])
}

func TestVerifyLookupErrorIsCheckFailureNotFatal(t *testing.T) {
	resolver := healthyResolver()
	resolver.err["example.com"] = errors.New("i/o timeout")

	v := NewWithResolver(testConfig(), resolver, zap.NewNop())
	result := v.Verify(context.Background(), "example.com", allChecks)

	// MX 和 SPF 查询同一名字都失败，其余检查照常给出结果
	assert.False(t, result.Valid)
	assert.False(t, result.Checks[domain.VerificationRecordMX])
	assert.False(t, result.Checks[domain.VerificationRecordSPF])
	assert.True(t, result.Checks[domain.VerificationRecordCNAME])
	assert.True(t, result.Checks[domain.VerificationRecordDKIM])
	assert.Len(t, result.Checks, len(allChecks))
}

func TestVerifyRequiredSubset(t *testing.T) {
	v := NewWithResolver(testConfig(), healthyResolver(), zap.NewNop())

	required := []domain.VerificationRecordType{
		domain.VerificationRecordMX,
		domain.VerificationRecordSPF,
		domain.VerificationRecordCNAME,
	}
	result := v.Verify(context.Background(), "example.com", required)

	assert.True(t, result.Valid)
	assert.Len(t, result.Checks, 3)
	assert.NotContains(t, result.Checks, domain.VerificationRecordDKIM)
}

func TestVerifySPFRequiresInclude(t *testing.T) {
	resolver := healthyResolver()
	resolver.txt["example.com"] = []string{"v=spf1 include:other.example.net ~all"}

	v := NewWithResolver(testConfig(), resolver, zap.NewNop())
	result := v.Verify(context.Background(), "example.com", []domain.VerificationRecordType{domain.VerificationRecordSPF})

	assert.False(t, result.Valid)
}

func TestVerifySPFScansAllRecords(t *testing.T) {
	resolver := healthyResolver()
	// 第一条 SPF 不带 include，匹配的在后面
	resolver.txt["example.com"] = []string{
		"v=spf1 mx ~all",
		"v=spf1 include:spf.mailroute.dev ~all",
	}

	v := NewWithResolver(testConfig(), resolver, zap.NewNop())
	result := v.Verify(context.Background(), "example.com", []domain.VerificationRecordType{domain.VerificationRecordSPF})

	assert.True(t, result.Valid)
	assert.Equal(t, "v=spf1 include:spf.mailroute.dev ~all", result.Observed[domain.VerificationRecordSPF])
}

func TestExpected(t *testing.T) {
	v := NewWithResolver(testConfig(), healthyResolver(), zap.NewNop())

	assert.Equal(t, "mx1.mailroute.dev, mx2.mailroute.dev", v.Expected(domain.VerificationRecordMX))
	assert.Equal(t, "v=spf1 include:spf.mailroute.dev ~all", v.Expected(domain.VerificationRecordSPF))
	assert.Equal(t, "mail.mailroute.dev", v.Expected(domain.VerificationRecordCNAME))
	assert.Equal(t, "v=DKIM1", v.Expected(domain.VerificationRecordDKIM))
}
