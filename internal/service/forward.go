package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/mailer"
	"mailroute/backend/internal/monitoring"
)

// ForwardService 把已入库的邮件转发到外部地址。
//
// 转发是尽力而为的：失败只记录日志，不回滚也不阻塞已提交的
// 存储，调用方不应据此改变摄取结果。
type ForwardService struct {
	provider mailer.Provider
	from     string
	timeout  time.Duration
	log      *zap.Logger
	metrics  *monitoring.Metrics
}

// NewForwardService 创建转发服务。
func NewForwardService(provider mailer.Provider, cfg *config.ForwardConfig, log *zap.Logger) *ForwardService {
	from := cfg.SMTP.From
	if cfg.Provider == "ses" {
		from = cfg.SES.Sender
	}
	if from == "" {
		from = "forwarder@localhost"
	}

	return &ForwardService{
		provider: provider,
		from:     from,
		timeout:  cfg.Timeout,
		log:      log,
	}
}

// WithMetrics 启用转发指标上报。
func (s *ForwardService) WithMetrics(m *monitoring.Metrics) *ForwardService {
	s.metrics = m
	return s
}

// Forward 转发一封邮件副本。
//
// 原始发件人身份保留在 X-Original-From 和 Reply-To 头中，
// From 使用本系统的转发地址，不伪造来源。附件直接复用存储
// 时的解码字节，不做二次解析。
func (s *ForwardService) Forward(ctx context.Context, message *domain.Message, forwardTo string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	originalFrom := message.Sender
	if message.SenderName != "" {
		originalFrom = fmt.Sprintf("%s <%s>", message.SenderName, message.Sender)
	}

	out := &mailer.Message{
		From:     s.from,
		To:       []string{forwardTo},
		ReplyTo:  message.Sender,
		Subject:  message.Subject,
		TextBody: message.TextBody,
		HTMLBody: message.HTMLBody,
		Headers: map[string]string{
			"X-Original-From": originalFrom,
			"X-Original-To":   message.Recipient,
		},
		Attachments: message.Attachments,
	}

	start := time.Now()
	if err := s.provider.Send(ctx, out); err != nil {
		if s.metrics != nil {
			s.metrics.RecordForward("error", time.Since(start))
		}
		s.log.Warn("forward failed",
			zap.String("provider", s.provider.Name()),
			zap.String("message_id", message.ID),
			zap.String("forward_to", forwardTo),
			zap.Error(err),
		)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordForward("sent", time.Since(start))
	}
	s.log.Info("message forwarded",
		zap.String("provider", s.provider.Name()),
		zap.String("message_id", message.ID),
		zap.String("forward_to", forwardTo),
	)
	return nil
}
