package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
)

// Message 是一封待外发的邮件。
//
// Attachments 直接复用存储用的解码字节，转发不做二次解析。
type Message struct {
	From        string
	To          []string
	ReplyTo     string
	Subject     string
	TextBody    string
	HTMLBody    string
	Headers     map[string]string // 附加头（如 X-Original-From）
	Attachments []*domain.Attachment
}

// Provider 抽象外发邮件通道。
type Provider interface {
	// Send 通过该通道投递一封邮件，失败返回错误。
	Send(ctx context.Context, msg *Message) error

	// Name 返回通道名称。
	Name() string
}

// New 按配置创建外发通道。
func New(ctx context.Context, cfg *config.ForwardConfig, log *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPProvider(cfg.SMTP, cfg.Timeout), nil
	case "ses":
		return NewSESProvider(ctx, cfg.SES)
	case "stdout":
		return NewStdoutProvider(log), nil
	default:
		return nil, fmt.Errorf("unsupported forward provider: %s", cfg.Provider)
	}
}
