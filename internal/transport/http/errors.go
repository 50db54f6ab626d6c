package httptransport

import (
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// Mailbox 错误
	service.ErrDomainNotAllowed: "域名不在允许列表中",
	service.ErrPrefixInvalid:    "邮箱前缀格式无效",
	domain.ErrMailboxNotFound:   "邮箱不存在",

	// Message 错误
	domain.ErrMessageNotFound:    "邮件不存在",
	domain.ErrAttachmentNotFound: "附件不存在",

	// 入站投递错误
	service.ErrRecipientNotFound: "收件地址不存在",
	service.ErrMessageTooLarge:   "邮件超出大小限制",

	// 域名错误
	service.ErrDomainInvalid:        "域名格式无效",
	service.ErrDomainExists:         "域名已存在",
	domain.ErrDomainNotFound:        "域名不存在",
	service.ErrNotDomainOwner:       "您不是该域名的所有者",
	service.ErrForwardTargetInvalid: "转发地址格式无效",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest     = "请求参数格式错误"
	MsgUnsupportedContent = "不支持的内容类型"
	MsgRecipientRequired  = "缺少收件地址"

	MsgAuthRequired = "需要登录认证"

	MsgMailboxCreateFailed = "创建邮箱失败"
	MsgMailboxDeleteFailed = "删除邮箱失败"
	MsgMessageListFailed   = "获取邮件列表失败"
	MsgMessageGetFailed    = "获取邮件详情失败"

	MsgIngestFailed = "邮件投递处理失败"

	MsgDomainAddFailed    = "添加域名失败"
	MsgDomainListFailed   = "获取域名列表失败"
	MsgDomainGetFailed    = "获取域名详情失败"
	MsgDomainVerifyFailed = "验证域名失败"
	MsgDomainUpdateFailed = "更新域名失败"
	MsgDomainDeleteFailed = "删除域名失败"
	MsgIssueListFailed    = "获取域名问题记录失败"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
