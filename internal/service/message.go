package service

import (
	"mailroute/backend/internal/domain"
)

// MessageService 封装邮件读取操作。
type MessageService struct {
	store domain.Store
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(store domain.Store) *MessageService {
	return &MessageService{store: store}
}

// List 返回邮箱内全部邮件，按接收时间倒序。
func (s *MessageService) List(mailboxID string) ([]*domain.Message, error) {
	if _, err := s.store.GetMailbox(mailboxID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(mailboxID)
}

// Get 获取一封邮件。
func (s *MessageService) Get(mailboxID, messageID string) (*domain.Message, error) {
	return s.store.GetMessage(mailboxID, messageID)
}

// GetAttachment 获取附件内容，调用方负责以原始字节返回。
func (s *MessageService) GetAttachment(mailboxID, messageID, attachmentID string) (*domain.Attachment, error) {
	if _, err := s.store.GetMessage(mailboxID, messageID); err != nil {
		return nil, err
	}
	return s.store.GetAttachment(messageID, attachmentID)
}
