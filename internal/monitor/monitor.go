package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
)

// Monitor 周期性复核已验证域名的 DNS 记录。
//
// 这是唯一在用户显式验证之外自主改写域名状态的组件。
// 降级使用与显式验证完全相同的全有或全无判定，不会因为
// 单项检查结果的中间状态而降级域名。
type Monitor struct {
	store     domain.Store
	verifier  service.DomainVerifier
	required  []domain.VerificationRecordType
	interval  time.Duration
	limiter   *rate.Limiter
	log       *zap.Logger
	scheduler *gocron.Scheduler
	metrics   *monitoring.Metrics
}

// New 创建域名巡检器。
func New(store domain.Store, verifier service.DomainVerifier, required []domain.VerificationRecordType, cfg *config.MonitorConfig, log *zap.Logger) *Monitor {
	lookupsPerSec := cfg.LookupsPerSec
	if lookupsPerSec <= 0 {
		lookupsPerSec = 5
	}

	return &Monitor{
		store:    store,
		verifier: verifier,
		required: required,
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(rate.Limit(lookupsPerSec), 1),
		log:      log,
	}
}

// WithMetrics 启用巡检指标上报。
func (m *Monitor) WithMetrics(metrics *monitoring.Metrics) *Monitor {
	m.metrics = metrics
	return m
}

// Start 启动周期巡检，立即返回。
func (m *Monitor) Start(ctx context.Context) error {
	if m.scheduler != nil {
		return fmt.Errorf("monitor already started")
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(m.interval).Tag("domain sweep").Do(func() {
		if err := m.Sweep(ctx); err != nil {
			m.log.Error("domain sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule domain sweep: %w", err)
	}

	scheduler.StartAsync()
	m.scheduler = scheduler
	m.log.Info("domain monitor started", zap.Duration("interval", m.interval))
	return nil
}

// Stop 停止巡检调度。
func (m *Monitor) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
		m.scheduler = nil
	}
}

// Sweep 执行一轮巡检：复核 verified 与 inactive 域名。
func (m *Monitor) Sweep(ctx context.Context) error {
	domains, err := m.store.ListCustomDomainsByStatus(
		domain.DomainStatusVerified,
		domain.DomainStatusInactive,
	)
	if err != nil {
		return fmt.Errorf("list domains: %w", err)
	}

	for _, custom := range domains {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		m.checkDomain(ctx, custom)
	}
	return nil
}

// checkDomain 复核单个域名并按结果迁移状态。
func (m *Monitor) checkDomain(ctx context.Context, custom *domain.CustomDomain) {
	result := m.verifier.Verify(ctx, custom.Domain, m.required)
	checkedAt := result.CheckedAt
	custom.LastCheckAt = &checkedAt

	if m.metrics != nil {
		outcome := "pass"
		if !result.Valid {
			outcome = "fail"
		}
		m.metrics.RecordDomainCheck(outcome)
	}

	switch {
	case !result.Valid && custom.Status == domain.DomainStatusVerified:
		custom.Status = domain.DomainStatusInactive
		if err := m.store.SaveCustomDomain(custom); err != nil {
			m.log.Error("failed to deactivate domain", zap.String("domain", custom.Domain), zap.Error(err))
			return
		}
		if err := m.store.AppendDomainIssue(&domain.DomainIssue{
			ID:        uuid.NewString(),
			DomainID:  custom.ID,
			Detail:    describeFailures(result.Checks),
			CreatedAt: checkedAt,
		}); err != nil {
			m.log.Error("failed to record domain issue", zap.String("domain", custom.Domain), zap.Error(err))
		}
		if m.metrics != nil {
			m.metrics.RecordDomainDeactivated()
		}
		m.log.Warn("domain deactivated",
			zap.String("domain", custom.Domain),
			zap.String("detail", describeFailures(result.Checks)),
		)

	case result.Valid && custom.Status == domain.DomainStatusInactive:
		custom.Status = domain.DomainStatusVerified
		custom.VerifiedAt = &checkedAt
		if err := m.store.SaveCustomDomain(custom); err != nil {
			m.log.Error("failed to reactivate domain", zap.String("domain", custom.Domain), zap.Error(err))
			return
		}
		if m.metrics != nil {
			m.metrics.RecordDomainReactivated()
		}
		m.log.Info("domain reactivated", zap.String("domain", custom.Domain))

	default:
		// 状态不变，只更新检查时间
		if err := m.store.SaveCustomDomain(custom); err != nil {
			m.log.Error("failed to update domain check time", zap.String("domain", custom.Domain), zap.Error(err))
		}
	}
}

// describeFailures 汇总未通过的检查项。
func describeFailures(checks map[domain.VerificationRecordType]bool) string {
	failed := make([]string, 0, len(checks))
	for rt, ok := range checks {
		if !ok {
			failed = append(failed, string(rt))
		}
	}
	if len(failed) == 0 {
		return "all checks passed"
	}
	sort.Strings(failed)
	return "dns checks failed: " + strings.Join(failed, ", ")
}
