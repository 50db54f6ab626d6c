package memory

import (
	"sort"
	"strings"
	"time"

	"mailroute/backend/internal/domain"
)

// SaveCustomDomain 保存自定义域名。
func (s *Store) SaveCustomDomain(d *domain.CustomDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveCustomDomainLocked(d)
	return nil
}

func (s *Store) saveCustomDomainLocked(d *domain.CustomDomain) {
	d.UpdatedAt = time.Now().UTC()
	s.domains[d.ID] = d
	s.byDomainName[strings.ToLower(d.Domain)] = d.ID
}

// SaveCustomDomainWithRecords 原子写入域名及其整组验证记录。
//
// 旧记录整组替换，不存在新旧记录混合的可见状态。
func (s *Store) SaveCustomDomainWithRecords(d *domain.CustomDomain, records []*domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveCustomDomainLocked(d)
	replaced := make([]*domain.VerificationRecord, len(records))
	copy(replaced, records)
	s.records[d.ID] = replaced
	return nil
}

// GetCustomDomain 根据 ID 获取自定义域名。
func (s *Store) GetCustomDomain(id string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return d, nil
}

// GetCustomDomainByName 根据域名字符串获取自定义域名（大小写不敏感）。
func (s *Store) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDomainName[strings.ToLower(name)]
	if !ok {
		return nil, domain.ErrDomainNotFound
	}
	return s.domains[id], nil
}

// ListCustomDomainsByUserID 列出用户的全部自定义域名。
func (s *Store) ListCustomDomainsByUserID(userID string) ([]*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.CustomDomain, 0)
	for _, d := range s.domains {
		if d.UserID == userID {
			list = append(list, d)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// ListCustomDomainsByStatus 列出处于任一给定状态的域名。
func (s *Store) ListCustomDomainsByStatus(statuses ...domain.DomainStatus) ([]*domain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.CustomDomain, 0)
	for _, d := range s.domains {
		for _, status := range statuses {
			if d.Status == status {
				list = append(list, d)
				break
			}
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// DeleteCustomDomain 删除域名及其验证记录和问题记录。
func (s *Store) DeleteCustomDomain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[id]
	if !ok {
		return domain.ErrDomainNotFound
	}

	delete(s.byDomainName, strings.ToLower(d.Domain))
	delete(s.records, id)
	delete(s.issues, id)
	delete(s.domains, id)
	return nil
}

// ListVerificationRecords 返回域名的全部验证记录。
func (s *Store) ListVerificationRecords(domainID string) ([]*domain.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[domainID]
	out := make([]*domain.VerificationRecord, len(records))
	copy(out, records)
	return out, nil
}

// AppendDomainIssue 追加一条域名巡检问题记录。
func (s *Store) AppendDomainIssue(issue *domain.DomainIssue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issues[issue.DomainID] = append(s.issues[issue.DomainID], issue)
	return nil
}

// ListDomainIssues 返回域名最近的问题记录，按时间倒序，limit<=0 表示不限制。
func (s *Store) ListDomainIssues(domainID string, limit int) ([]*domain.DomainIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issues := s.issues[domainID]
	out := make([]*domain.DomainIssue, len(issues))
	copy(out, issues)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
