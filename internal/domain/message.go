package domain

import "time"

// Message 表示投递到某个邮箱的一封邮件。
//
// 由持久化协调器在单个事务内创建，创建后不再修改，
// 随邮箱过期级联删除或由用户显式删除。
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxID  string    `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	Sender     string    `json:"sender" gorm:"type:varchar(255)"`
	SenderName string    `json:"senderName" gorm:"type:varchar(255)"`
	Recipient  string    `json:"recipient" gorm:"type:varchar(255)"`
	Subject    string    `json:"subject" gorm:"type:varchar(500)"`
	HTMLBody   string    `json:"htmlBody,omitempty" gorm:"type:text"`
	TextBody   string    `json:"textBody,omitempty" gorm:"type:text"`
	UpstreamID string    `json:"-" gorm:"type:varchar(255);index"` // 上游投递标识（去重用，可为空）
	CreatedAt  time.Time `json:"createdAt"`
	ReceivedAt time.Time `json:"receivedAt"`

	Attachments []*Attachment `json:"attachments,omitempty" gorm:"-"` // 附件列表（单独成行存储）
}

// ProcessedDelivery 记录已处理的上游投递标识，保证重复投递幂等。
//
// 与邮件行在同一事务内写入：同一 UpstreamID 的第二次投递
// 不再产生新的邮件行。
type ProcessedDelivery struct {
	UpstreamID  string    `json:"upstreamId" gorm:"primaryKey;type:varchar(255)"`
	MessageID   string    `json:"messageId" gorm:"type:varchar(36);not null"`
	ProcessedAt time.Time `json:"processedAt"`
}
