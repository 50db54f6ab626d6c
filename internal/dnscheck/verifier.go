package dnscheck

import (
	"context"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailroute/backend/internal/domain"
)

// Resolver 抽象 DNS 查询，*net.Resolver 直接满足该接口。
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, name string) (string, error)
}

// Config 是验证器的期望记录配置，来自部署配置而非硬编码。
type Config struct {
	MXHosts         []string      // 系统邮件交换主机名
	SPFInclude      string        // SPF include 目标域
	MailCNAMETarget string        // mail. 子域应指向的主机名
	DKIMSelector    string        // DKIM 选择器
	LookupTimeout   time.Duration // 单次 DNS 查询超时
}

// Result 是一次域名验证的完整结果。
//
// 单项查询失败（超时、NXDOMAIN）记为该项 false，不中断整体验证；
// 调用方总能拿到完整的逐项布尔结果和聚合结论。
type Result struct {
	Checks    map[domain.VerificationRecordType]bool
	Observed  map[domain.VerificationRecordType]string
	Valid     bool
	CheckedAt time.Time
}

// Verifier 按配置的期望值逐项核对域名 DNS 记录。
type Verifier struct {
	cfg      Config
	resolver Resolver
	log      *zap.Logger
}

// New 创建使用系统默认解析器的验证器。
func New(cfg Config, log *zap.Logger) *Verifier {
	return NewWithResolver(cfg, net.DefaultResolver, log)
}

// NewWithResolver 创建使用指定解析器的验证器，便于测试注入。
func NewWithResolver(cfg Config, resolver Resolver, log *zap.Logger) *Verifier {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	return &Verifier{cfg: cfg, resolver: resolver, log: log}
}

// Verify 对域名执行 required 指定的各项检查。
//
// 聚合结论是所有要求项的逻辑与，没有部分通过的中间状态。
func (v *Verifier) Verify(ctx context.Context, name string, required []domain.VerificationRecordType) Result {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))

	result := Result{
		Checks:    make(map[domain.VerificationRecordType]bool, len(required)),
		Observed:  make(map[domain.VerificationRecordType]string, len(required)),
		Valid:     true,
		CheckedAt: time.Now().UTC(),
	}

	for _, rt := range required {
		var ok bool
		var observed string

		switch rt {
		case domain.VerificationRecordMX:
			ok, observed = v.checkMX(ctx, name)
		case domain.VerificationRecordSPF:
			ok, observed = v.checkSPF(ctx, name)
		case domain.VerificationRecordCNAME:
			ok, observed = v.checkCNAME(ctx, name)
		case domain.VerificationRecordDKIM:
			ok, observed = v.checkDKIM(ctx, name)
		}

		result.Checks[rt] = ok
		result.Observed[rt] = observed
		if !ok {
			result.Valid = false
		}
	}

	return result
}

// Expected 返回记录类型对应的期望值描述，用于生成验证记录和配置指引。
func (v *Verifier) Expected(rt domain.VerificationRecordType) string {
	switch rt {
	case domain.VerificationRecordMX:
		return strings.Join(v.cfg.MXHosts, ", ")
	case domain.VerificationRecordSPF:
		return "v=spf1 include:" + v.cfg.SPFInclude + " ~all"
	case domain.VerificationRecordCNAME:
		return v.cfg.MailCNAMETarget
	case domain.VerificationRecordDKIM:
		return "v=DKIM1"
	default:
		return ""
	}
}

func (v *Verifier) checkMX(ctx context.Context, name string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	defer cancel()

	records, err := v.resolver.LookupMX(ctx, name)
	if err != nil {
		v.log.Debug("MX lookup failed", zap.String("domain", name), zap.Error(err))
		return false, ""
	}

	hosts := make([]string, 0, len(records))
	matched := false
	for _, mx := range records {
		host := normalizeHost(mx.Host)
		hosts = append(hosts, host)
		for _, want := range v.cfg.MXHosts {
			if host == normalizeHost(want) {
				matched = true
			}
		}
	}
	return matched, strings.Join(hosts, ", ")
}

func (v *Verifier) checkSPF(ctx context.Context, name string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	defer cancel()

	records, err := v.resolver.LookupTXT(ctx, name)
	if err != nil {
		v.log.Debug("SPF lookup failed", zap.String("domain", name), zap.Error(err))
		return false, ""
	}

	// 域名可能发布多条 SPF 记录，任意一条同时带标记即通过
	include := "include:" + strings.ToLower(v.cfg.SPFInclude)
	observed := ""
	for _, txt := range records {
		lower := strings.ToLower(txt)
		if !strings.Contains(lower, "v=spf1") {
			continue
		}
		if observed == "" {
			observed = txt
		}
		if strings.Contains(lower, include) {
			return true, txt
		}
	}
	return false, observed
}

func (v *Verifier) checkCNAME(ctx context.Context, name string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	defer cancel()

	target, err := v.resolver.LookupCNAME(ctx, "mail."+name)
	if err != nil {
		v.log.Debug("CNAME lookup failed", zap.String("domain", name), zap.Error(err))
		return false, ""
	}

	target = normalizeHost(target)
	return target == normalizeHost(v.cfg.MailCNAMETarget), target
}

func (v *Verifier) checkDKIM(ctx context.Context, name string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	defer cancel()

	host := v.cfg.DKIMSelector + "._domainkey." + name
	records, err := v.resolver.LookupTXT(ctx, host)
	if err != nil {
		v.log.Debug("DKIM lookup failed", zap.String("domain", name), zap.Error(err))
		return false, ""
	}

	for _, txt := range records {
		if strings.Contains(strings.ToLower(txt), "v=dkim1") {
			return true, txt
		}
	}
	return false, ""
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
}
