package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/dnscheck"
	"mailroute/backend/internal/domain"
)

// DomainVerifier 抽象 DNS 验证能力，便于测试注入。
type DomainVerifier interface {
	Verify(ctx context.Context, name string, required []domain.VerificationRecordType) dnscheck.Result
	Expected(rt domain.VerificationRecordType) string
}

// CustomDomainService 管理用户自定义域名的生命周期。
type CustomDomainService struct {
	store    domain.Store
	verifier DomainVerifier
	cfg      *config.Config
	log      *zap.Logger
}

// NewCustomDomainService 创建自定义域名服务。
func NewCustomDomainService(store domain.Store, verifier DomainVerifier, cfg *config.Config, log *zap.Logger) *CustomDomainService {
	return &CustomDomainService{
		store:    store,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}
}

// RequiredChecks 返回域名激活必须通过的记录类型。
//
// MX、SPF、CNAME 必查；配置了 DKIM 选择器时 DKIM 一并必查。
func (s *CustomDomainService) RequiredChecks() []domain.VerificationRecordType {
	required := []domain.VerificationRecordType{
		domain.VerificationRecordMX,
		domain.VerificationRecordSPF,
		domain.VerificationRecordCNAME,
	}
	if s.cfg.DNS.DKIMSelector != "" {
		required = append(required, domain.VerificationRecordDKIM)
	}
	return required
}

// AddDomain 注册一个待验证的自定义域名。
//
// 同时生成该域名需要配置的全部期望 DNS 记录，供前端展示配置指引。
func (s *CustomDomainService) AddDomain(userID, name, forwardTo string) (*domain.CustomDomain, []*domain.VerificationRecord, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !domain.ValidateDomain(name) {
		return nil, nil, ErrDomainInvalid
	}
	if s.cfg.IsSystemDomain(name) {
		return nil, nil, fmt.Errorf("%w: system domain", ErrDomainNotAllowed)
	}
	if forwardTo != "" && !domain.ValidateEmail(forwardTo) {
		return nil, nil, ErrForwardTargetInvalid
	}

	if _, err := s.store.GetCustomDomainByName(name); err == nil {
		return nil, nil, ErrDomainExists
	}

	now := time.Now().UTC()
	custom := &domain.CustomDomain{
		ID:        uuid.NewString(),
		UserID:    userID,
		Domain:    name,
		Status:    domain.DomainStatusPending,
		ForwardTo: domain.NormalizeAddress(forwardTo),
		CreatedAt: now,
	}

	records := make([]*domain.VerificationRecord, 0, 4)
	for _, rt := range s.RequiredChecks() {
		records = append(records, &domain.VerificationRecord{
			ID:       uuid.NewString(),
			DomainID: custom.ID,
			Type:     rt,
			Expected: s.verifier.Expected(rt),
		})
	}

	if err := s.store.SaveCustomDomainWithRecords(custom, records); err != nil {
		return nil, nil, err
	}

	s.log.Info("custom domain registered",
		zap.String("domain", name),
		zap.String("user_id", userID),
	)
	return custom, records, nil
}

// Verify 对域名执行一次完整验证并持久化逐项结果。
//
// 所有必需检查同时通过才转为 verified，否则转为 failed；
// 没有部分通过的中间状态。
func (s *CustomDomainService) Verify(ctx context.Context, domainID, userID string, isAdmin bool) (*domain.CustomDomain, []*domain.VerificationRecord, error) {
	custom, err := s.getOwned(domainID, userID, isAdmin)
	if err != nil {
		return nil, nil, err
	}

	result := s.verifier.Verify(ctx, custom.Domain, s.RequiredChecks())

	records, err := s.store.ListVerificationRecords(custom.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, record := range records {
		observed := result.Checks[record.Type]
		record.Observed = observed
		if observed {
			at := result.CheckedAt
			record.VerifiedAt = &at
		} else {
			record.VerifiedAt = nil
		}
	}

	checkedAt := result.CheckedAt
	custom.LastCheckAt = &checkedAt
	if result.Valid {
		custom.Status = domain.DomainStatusVerified
		custom.VerifiedAt = &checkedAt
	} else {
		custom.Status = domain.DomainStatusFailed
		custom.VerifiedAt = nil
	}

	if err := s.store.SaveCustomDomainWithRecords(custom, records); err != nil {
		return nil, nil, err
	}

	s.log.Info("custom domain verification finished",
		zap.String("domain", custom.Domain),
		zap.Bool("valid", result.Valid),
	)
	return custom, records, nil
}

// Get 获取域名详情及其验证记录。
func (s *CustomDomainService) Get(domainID, userID string, isAdmin bool) (*domain.CustomDomain, []*domain.VerificationRecord, error) {
	custom, err := s.getOwned(domainID, userID, isAdmin)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.store.ListVerificationRecords(custom.ID)
	if err != nil {
		return nil, nil, err
	}
	return custom, records, nil
}

// List 列出用户的全部域名。
func (s *CustomDomainService) List(userID string) ([]*domain.CustomDomain, error) {
	return s.store.ListCustomDomainsByUserID(userID)
}

// Delete 删除域名及其验证记录。
func (s *CustomDomainService) Delete(domainID, userID string, isAdmin bool) error {
	custom, err := s.getOwned(domainID, userID, isAdmin)
	if err != nil {
		return err
	}
	return s.store.DeleteCustomDomain(custom.ID)
}

// SetForwardTo 更新域名级转发目标，空串表示取消转发。
func (s *CustomDomainService) SetForwardTo(domainID, userID string, isAdmin bool, forwardTo string) (*domain.CustomDomain, error) {
	custom, err := s.getOwned(domainID, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	if forwardTo != "" && !domain.ValidateEmail(forwardTo) {
		return nil, ErrForwardTargetInvalid
	}
	custom.ForwardTo = domain.NormalizeAddress(forwardTo)

	if err := s.store.SaveCustomDomain(custom); err != nil {
		return nil, err
	}
	return custom, nil
}

// ListIssues 返回域名最近的巡检问题记录。
func (s *CustomDomainService) ListIssues(domainID, userID string, isAdmin bool, limit int) ([]*domain.DomainIssue, error) {
	custom, err := s.getOwned(domainID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	return s.store.ListDomainIssues(custom.ID, limit)
}

// getOwned 获取域名并校验所有权，管理员不受限制。
func (s *CustomDomainService) getOwned(domainID, userID string, isAdmin bool) (*domain.CustomDomain, error) {
	custom, err := s.store.GetCustomDomain(domainID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && custom.UserID != userID {
		return nil, ErrNotDomainOwner
	}
	return custom, nil
}
