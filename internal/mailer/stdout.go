package mailer

import (
	"context"

	"go.uber.org/zap"
)

// StdoutProvider 只把邮件摘要写进日志，用于开发环境和联调。
type StdoutProvider struct {
	log *zap.Logger
}

// NewStdoutProvider 创建日志输出通道。
func NewStdoutProvider(log *zap.Logger) *StdoutProvider {
	return &StdoutProvider{log: log}
}

// Name 返回通道名称。
func (p *StdoutProvider) Name() string {
	return "stdout"
}

// Send 记录邮件摘要，总是成功。
func (p *StdoutProvider) Send(_ context.Context, msg *Message) error {
	p.log.Info("outbound mail",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
