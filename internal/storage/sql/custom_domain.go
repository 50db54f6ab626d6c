package sql

import (
	"errors"

	"gorm.io/gorm"

	"mailroute/backend/internal/domain"
)

// SaveCustomDomain 保存自定义域名（存在则更新）。
func (s *Store) SaveCustomDomain(d *domain.CustomDomain) error {
	return s.db.Save(d).Error
}

// SaveCustomDomainWithRecords 在单个事务内保存域名并整组替换验证记录。
func (s *Store) SaveCustomDomainWithRecords(d *domain.CustomDomain, records []*domain.VerificationRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(d).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.VerificationRecord{}, "domain_id = ?", d.ID).Error; err != nil {
			return err
		}
		for _, record := range records {
			record.DomainID = d.ID
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCustomDomain 根据 ID 获取自定义域名。
func (s *Store) GetCustomDomain(id string) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	err := s.db.First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetCustomDomainByName 根据域名字符串获取自定义域名（大小写不敏感）。
func (s *Store) GetCustomDomainByName(name string) (*domain.CustomDomain, error) {
	var d domain.CustomDomain
	err := s.db.First(&d, "lower(domain) = lower(?)", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListCustomDomainsByUserID 列出用户的全部自定义域名。
func (s *Store) ListCustomDomainsByUserID(userID string) ([]*domain.CustomDomain, error) {
	var list []*domain.CustomDomain
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ListCustomDomainsByStatus 列出处于任一给定状态的域名。
func (s *Store) ListCustomDomainsByStatus(statuses ...domain.DomainStatus) ([]*domain.CustomDomain, error) {
	var list []*domain.CustomDomain
	err := s.db.
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// DeleteCustomDomain 删除域名及其验证记录和问题记录。
func (s *Store) DeleteCustomDomain(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.CustomDomain{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrDomainNotFound
		}
		if err := tx.Delete(&domain.VerificationRecord{}, "domain_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.DomainIssue{}, "domain_id = ?", id).Error
	})
}

// ListVerificationRecords 返回域名的全部验证记录。
func (s *Store) ListVerificationRecords(domainID string) ([]*domain.VerificationRecord, error) {
	var records []*domain.VerificationRecord
	err := s.db.
		Where("domain_id = ?", domainID).
		Order("type ASC").
		Find(&records).Error
	return records, err
}

// AppendDomainIssue 追加一条域名巡检问题记录。
func (s *Store) AppendDomainIssue(issue *domain.DomainIssue) error {
	return s.db.Create(issue).Error
}

// ListDomainIssues 返回域名最近的问题记录，按时间倒序，limit<=0 表示不限制。
func (s *Store) ListDomainIssues(domainID string, limit int) ([]*domain.DomainIssue, error) {
	query := s.db.
		Where("domain_id = ?", domainID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var issues []*domain.DomainIssue
	err := query.Find(&issues).Error
	return issues, err
}
