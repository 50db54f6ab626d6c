package domain

// Store 聚合核心管线依赖的全部存储接口。
//
// 多行写入（邮件+附件、域名+验证记录）必须在实现内部以单个
// 事务完成：任何一步失败都回滚整个单元，外界观察不到部分写入。
type Store interface {
	// ========== Mailbox Repository ==========
	SaveMailbox(mailbox *Mailbox) error
	GetMailbox(id string) (*Mailbox, error)
	GetMailboxByAddress(address string) (*Mailbox, error)
	DeleteMailbox(id string) error
	DeleteExpiredMailboxes() (int, error)

	// ========== Message Repository ==========
	// SaveMessage 原子写入邮件行与全部附件行。
	// message.UpstreamID 非空且已出现过时返回 ErrDuplicateDelivery，
	// 不产生任何新行。
	SaveMessage(message *Message) error
	GetMessage(mailboxID, messageID string) (*Message, error)
	ListMessages(mailboxID string) ([]*Message, error)
	GetAttachment(messageID, attachmentID string) (*Attachment, error)
	GetProcessedDelivery(upstreamID string) (*ProcessedDelivery, error)

	// ========== Custom Domain Repository ==========
	SaveCustomDomain(domain *CustomDomain) error
	// SaveCustomDomainWithRecords 原子写入域名行与整组验证记录
	// （整组替换旧记录）。
	SaveCustomDomainWithRecords(domain *CustomDomain, records []*VerificationRecord) error
	GetCustomDomain(id string) (*CustomDomain, error)
	GetCustomDomainByName(name string) (*CustomDomain, error)
	ListCustomDomainsByUserID(userID string) ([]*CustomDomain, error)
	ListCustomDomainsByStatus(statuses ...DomainStatus) ([]*CustomDomain, error)
	DeleteCustomDomain(id string) error
	ListVerificationRecords(domainID string) ([]*VerificationRecord, error)

	// ========== Domain Issue Repository ==========
	AppendDomainIssue(issue *DomainIssue) error
	ListDomainIssues(domainID string, limit int) ([]*DomainIssue, error)

	// ========== Lifecycle ==========
	Close() error
	Health() error
}
