package domain

import "time"

// DomainStatus 自定义域名状态
type DomainStatus string

const (
	// DomainStatusPending 待验证
	DomainStatusPending DomainStatus = "pending"
	// DomainStatusVerifying 验证进行中
	DomainStatusVerifying DomainStatus = "verifying"
	// DomainStatusVerified 已验证（可参与路由）
	DomainStatusVerified DomainStatus = "verified"
	// DomainStatusFailed 验证失败
	DomainStatusFailed DomainStatus = "failed"
	// DomainStatusInactive 已失效（巡检发现 DNS 记录不再满足要求）
	DomainStatusInactive DomainStatus = "inactive"
)

// Routable 判断该状态下的域名是否可参与收信路由。
func (s DomainStatus) Routable() bool {
	return s == DomainStatusVerified
}

// CustomDomain 用户自定义域名。
//
// 只有 verified 状态的域名可以承载可路由的邮箱，
// 或作为解析器返回的转发来源。
type CustomDomain struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string       `json:"userId" gorm:"type:varchar(36);index;not null"`
	Domain      string       `json:"domain" gorm:"uniqueIndex;type:varchar(100);not null"`
	Status      DomainStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ForwardTo   string       `json:"forwardTo,omitempty" gorm:"type:varchar(255)"` // 域名级转发目标（作用于域内全部邮箱）
	VerifiedAt  *time.Time   `json:"verifiedAt"`
	LastCheckAt *time.Time   `json:"lastCheckAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`
}

// VerificationRecordType DNS 验证记录类型
type VerificationRecordType string

const (
	VerificationRecordMX    VerificationRecordType = "mx"
	VerificationRecordSPF   VerificationRecordType = "spf"
	VerificationRecordCNAME VerificationRecordType = "cname"
	VerificationRecordDKIM  VerificationRecordType = "dkim"
)

// VerificationRecord 域名的一条 DNS 验证记录。
//
// 域名只有在所有必需记录同时验证通过时才转为 verified，
// 不存在部分通过的中间状态。
type VerificationRecord struct {
	ID         string                 `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DomainID   string                 `json:"domainId" gorm:"type:varchar(36);index;not null"`
	Type       VerificationRecordType `json:"type" gorm:"type:varchar(10);not null"`
	Expected   string                 `json:"expected" gorm:"type:varchar(500)"` // 期望的记录值/模式
	Observed   bool                   `json:"observed" gorm:"default:false"`     // 最近一次检查是否命中
	VerifiedAt *time.Time             `json:"verifiedAt"`
}

// DomainIssue 域名巡检发现的问题记录，由管理界面消费。
type DomainIssue struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DomainID  string    `json:"domainId" gorm:"type:varchar(36);index;not null"`
	Detail    string    `json:"detail" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}
