package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"mailroute/backend/internal/domain"
)

// Store 使用内存保存路由管线的全部数据，主要用于开发验证和测试。
//
// 多行写入与数据库实现保持相同的原子语义：先校验后落表，
// 校验失败时不修改任何内部状态。
type Store struct {
	mu          sync.RWMutex
	mailboxes   map[string]*domain.Mailbox
	byAddress   map[string]string
	messages    map[string]map[string]*domain.Message // mailboxID -> messageID -> message
	attachments map[string][]*domain.Attachment       // messageID -> attachments
	deliveries  map[string]*domain.ProcessedDelivery  // upstreamID -> delivery

	domains      map[string]*domain.CustomDomain         // domainID -> domain
	byDomainName map[string]string                       // domain name -> domainID
	records      map[string][]*domain.VerificationRecord // domainID -> records
	issues       map[string][]*domain.DomainIssue        // domainID -> issues
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes:    make(map[string]*domain.Mailbox),
		byAddress:    make(map[string]string),
		messages:     make(map[string]map[string]*domain.Message),
		attachments:  make(map[string][]*domain.Attachment),
		deliveries:   make(map[string]*domain.ProcessedDelivery),
		domains:      make(map[string]*domain.CustomDomain),
		byDomainName: make(map[string]string),
		records:      make(map[string][]*domain.VerificationRecord),
		issues:       make(map[string][]*domain.DomainIssue),
	}
}

var _ domain.Store = (*Store)(nil)

// SaveMailbox 保存邮箱信息。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mailboxes[mailbox.ID] = mailbox
	s.byAddress[strings.ToLower(mailbox.Address)] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil, domain.ErrMailboxNotFound
	}
	return mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[strings.ToLower(address)]
	if !ok {
		return nil, domain.ErrMailboxNotFound
	}
	return s.mailboxes[id], nil
}

// DeleteMailbox 删除邮箱及其全部邮件和附件。
func (s *Store) DeleteMailbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteMailboxLocked(id)
}

func (s *Store) deleteMailboxLocked(id string) error {
	mailbox, ok := s.mailboxes[id]
	if !ok {
		return domain.ErrMailboxNotFound
	}

	for messageID := range s.messages[id] {
		delete(s.attachments, messageID)
	}
	delete(s.messages, id)
	delete(s.byAddress, strings.ToLower(mailbox.Address))
	delete(s.mailboxes, id)
	return nil
}

// DeleteExpiredMailboxes 删除全部已过期邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for id, mailbox := range s.mailboxes {
		if mailbox.Expired(now) {
			_ = s.deleteMailboxLocked(id)
			count++
		}
	}
	return count, nil
}

// SaveMessage 原子写入邮件行与全部附件行。
//
// 附件校验在任何状态修改之前完成：任何一个附件不合法，
// 整个写入不产生可见效果。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[message.MailboxID]; !ok {
		return domain.ErrMailboxNotFound
	}

	if message.UpstreamID != "" {
		if _, seen := s.deliveries[message.UpstreamID]; seen {
			return domain.ErrDuplicateDelivery
		}
	}

	// 先整体校验，后整体落表
	for _, att := range message.Attachments {
		if int64(len(att.Content)) > domain.MaxAttachmentBytes {
			return domain.ErrAttachmentTooLarge
		}
	}

	if s.messages[message.MailboxID] == nil {
		s.messages[message.MailboxID] = make(map[string]*domain.Message)
	}
	s.messages[message.MailboxID][message.ID] = message

	for _, att := range message.Attachments {
		att.MessageID = message.ID
		s.attachments[message.ID] = append(s.attachments[message.ID], att)
	}

	if message.UpstreamID != "" {
		s.deliveries[message.UpstreamID] = &domain.ProcessedDelivery{
			UpstreamID:  message.UpstreamID,
			MessageID:   message.ID,
			ProcessedAt: time.Now().UTC(),
		}
	}
	return nil
}

// GetMessage 获取指定邮箱下的一封邮件。
func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[mailboxID][messageID]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	out := *message
	out.Attachments = s.attachments[messageID]
	return &out, nil
}

// ListMessages 返回邮箱内全部邮件，按接收时间倒序。
func (s *Store) ListMessages(mailboxID string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.Message, 0, len(s.messages[mailboxID]))
	for _, message := range s.messages[mailboxID] {
		out := *message
		out.Attachments = s.attachments[message.ID]
		list = append(list, &out)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ReceivedAt.After(list[j].ReceivedAt)
	})
	return list, nil
}

// GetAttachment 获取邮件的一个附件。
func (s *Store) GetAttachment(messageID, attachmentID string) (*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, att := range s.attachments[messageID] {
		if att.ID == attachmentID {
			return att, nil
		}
	}
	return nil, domain.ErrAttachmentNotFound
}

// GetProcessedDelivery 查询上游投递标识的处理记录。
func (s *Store) GetProcessedDelivery(upstreamID string) (*domain.ProcessedDelivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivery, ok := s.deliveries[upstreamID]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	return delivery, nil
}

// Close 关闭存储。内存实现无事可做。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查。内存实现总是健康。
func (s *Store) Health() error {
	return nil
}
