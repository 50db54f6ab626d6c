package sql

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"mailroute/backend/internal/domain"
)

// SaveMessage 在单个事务内写入邮件行与全部附件行。
//
// 任何一步失败整体回滚，外界观察不到部分附件集。
// UpstreamID 已处理过时返回 ErrDuplicateDelivery，不产生新行。
func (s *Store) SaveMessage(message *domain.Message) error {
	for _, att := range message.Attachments {
		if int64(len(att.Content)) > domain.MaxAttachmentBytes {
			return domain.ErrAttachmentTooLarge
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if message.UpstreamID != "" {
			var seen domain.ProcessedDelivery
			err := tx.First(&seen, "upstream_id = ?", message.UpstreamID).Error
			if err == nil {
				return domain.ErrDuplicateDelivery
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}

		for _, att := range message.Attachments {
			att.MessageID = message.ID
			if err := tx.Create(att).Error; err != nil {
				return err
			}
		}

		if message.UpstreamID != "" {
			delivery := &domain.ProcessedDelivery{
				UpstreamID:  message.UpstreamID,
				MessageID:   message.ID,
				ProcessedAt: time.Now().UTC(),
			}
			if err := tx.Create(delivery).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMessage 获取指定邮箱下的一封邮件，附件只带元数据不带内容。
func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.First(&message, "id = ? AND mailbox_id = ?", messageID, mailboxID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadAttachmentMeta(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// ListMessages 返回邮箱内全部邮件，按接收时间倒序。
func (s *Store) ListMessages(mailboxID string) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := s.db.
		Where("mailbox_id = ?", mailboxID).
		Order("received_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for _, message := range messages {
		if err := s.loadAttachmentMeta(message); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// loadAttachmentMeta 加载附件元数据，内容留待单独下载。
func (s *Store) loadAttachmentMeta(message *domain.Message) error {
	return s.db.Model(&domain.Attachment{}).
		Select("id", "message_id", "filename", "content_type", "size").
		Where("message_id = ?", message.ID).
		Find(&message.Attachments).Error
}

// GetAttachment 获取邮件的一个附件，含完整内容。
func (s *Store) GetAttachment(messageID, attachmentID string) (*domain.Attachment, error) {
	var att domain.Attachment
	err := s.db.First(&att, "id = ? AND message_id = ?", attachmentID, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// GetProcessedDelivery 查询上游投递标识的处理记录。
func (s *Store) GetProcessedDelivery(upstreamID string) (*domain.ProcessedDelivery, error) {
	var delivery domain.ProcessedDelivery
	err := s.db.First(&delivery, "upstream_id = ?", upstreamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}
