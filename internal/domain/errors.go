package domain

import "errors"

// 存储接口的公共错误，所有 Store 实现必须返回同一组哨兵值。
var (
	// ErrMailboxNotFound 邮箱不存在
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrAttachmentNotFound 附件不存在
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrDomainNotFound 域名不存在
	ErrDomainNotFound = errors.New("domain not found")
	// ErrDeliveryNotFound 上游投递记录不存在
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrDuplicateDelivery 上游投递标识已处理过（幂等去重命中）
	ErrDuplicateDelivery = errors.New("duplicate delivery")
	// ErrAttachmentTooLarge 附件超出大小上限
	ErrAttachmentTooLarge = errors.New("attachment too large")
)
