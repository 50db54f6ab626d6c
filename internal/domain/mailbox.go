package domain

import (
	"time"
)

// MailboxType 邮箱类型
type MailboxType string

const (
	// MailboxTypeTemporary 临时邮箱（一次性，可匿名）
	MailboxTypeTemporary MailboxType = "temporary"
	// MailboxTypePremium 高级邮箱（用户所有，支持转发，租期更长）
	MailboxTypePremium MailboxType = "premium"
)

// Mailbox 表示一个可收信的邮箱实体。
//
// 地址在未过期的邮箱之间全局唯一；过期的邮箱不再接收邮件，
// 但历史记录保留到显式删除为止。
type Mailbox struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address   string      `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	LocalPart string      `json:"localPart" gorm:"type:varchar(255)"`
	Domain    string      `json:"domain" gorm:"type:varchar(100);index"`
	Type      MailboxType `json:"type" gorm:"type:varchar(20);default:'temporary';index"`
	UserID    *string     `json:"userId,omitempty" gorm:"type:varchar(36);index"` // 关联的用户ID（游客模式为nil）
	ForwardTo string      `json:"forwardTo,omitempty" gorm:"type:varchar(255)"`   // 转发目标地址（仅高级邮箱）
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// Expired 判断邮箱在给定时刻是否已过期。
func (m *Mailbox) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}
