package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailroute/backend/internal/config"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/mailparse"
	"mailroute/backend/internal/monitoring"
)

// InboundEmail 是上游中继投递进来的一封原始邮件。
type InboundEmail struct {
	Recipient  string // 传输侧收件地址
	Sender     string // 传输侧发件地址（解析头缺失时兜底）
	RawBody    []byte // 原始邮件内容
	UpstreamID string // 上游投递标识（可为空，用于幂等去重）
}

// IngestResult 是一次摄取的结果。
type IngestResult struct {
	MessageID string
	Recipient string
	Duplicate bool // 上游重复投递，已存在的邮件未被改动
}

// IngestService 是入站邮件的唯一处理管线。
//
// 固定顺序：解析 → 路由 → 持久化 → 转发。转发永远不先于
// 也不阻塞持久化；持久化失败时不会发生转发。
type IngestService struct {
	store     domain.Store
	resolver  *ResolverService
	mailboxes *MailboxService
	forwarder *ForwardService
	cfg       *config.Config
	log       *zap.Logger
	metrics   *monitoring.Metrics
}

// NewIngestService 创建摄取管线。
func NewIngestService(
	store domain.Store,
	resolver *ResolverService,
	mailboxes *MailboxService,
	forwarder *ForwardService,
	cfg *config.Config,
	log *zap.Logger,
) *IngestService {
	return &IngestService{
		store:     store,
		resolver:  resolver,
		mailboxes: mailboxes,
		forwarder: forwarder,
		cfg:       cfg,
		log:       log,
	}
}

// WithMetrics 启用摄取指标上报。
func (s *IngestService) WithMetrics(m *monitoring.Metrics) *IngestService {
	s.metrics = m
	return s
}

// Ingest 处理一封入站邮件。
//
// 返回 ErrRecipientNotFound 时未发生任何持久化；返回其他错误
// 表示持久化失败；重复投递返回 Duplicate=true 和原邮件 ID，
// 不产生新行。
func (s *IngestService) Ingest(ctx context.Context, in *InboundEmail) (*IngestResult, error) {
	if max := s.cfg.Ingest.MaxMessageBytes; max > 0 && int64(len(in.RawBody)) > max {
		return nil, ErrMessageTooLarge
	}

	parsed := mailparse.Parse(in.RawBody, in.Sender, in.Recipient)
	if parsed.Degraded {
		if s.metrics != nil {
			s.metrics.RecordParseDegraded()
		}
		s.log.Warn("inbound message degraded to raw text",
			zap.String("recipient", parsed.Recipient),
		)
	}

	decision, err := s.resolver.Resolve(parsed.Recipient)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if decision.Kind == domain.RouteNone {
		return nil, ErrRecipientNotFound
	}

	mailbox := decision.Mailbox
	if mailbox == nil {
		// 已验证自定义域名的兜底邮箱
		custom, err := s.store.GetCustomDomainByName(decision.Domain)
		if err != nil {
			return nil, fmt.Errorf("resolve custom domain: %w", err)
		}
		mailbox, err = s.mailboxes.EnsureCustomMailbox(parsed.Recipient, custom)
		if err != nil {
			return nil, fmt.Errorf("ensure mailbox: %w", err)
		}
	}

	now := time.Now().UTC()
	message := &domain.Message{
		ID:          uuid.NewString(),
		MailboxID:   mailbox.ID,
		Sender:      parsed.Sender,
		SenderName:  parsed.SenderName,
		Recipient:   parsed.Recipient,
		Subject:     parsed.Subject,
		HTMLBody:    parsed.HTML,
		TextBody:    parsed.Text,
		UpstreamID:  in.UpstreamID,
		CreatedAt:   now,
		ReceivedAt:  now,
		Attachments: parsed.Attachments,
	}

	if err := s.store.SaveMessage(message); err != nil {
		if errors.Is(err, domain.ErrDuplicateDelivery) {
			return s.duplicateResult(in.UpstreamID, parsed.Recipient)
		}
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.log.Info("message stored",
		zap.String("message_id", message.ID),
		zap.String("mailbox_id", mailbox.ID),
		zap.String("route", string(decision.Kind)),
		zap.Int("attachments", len(message.Attachments)),
	)

	// 转发在提交之后，失败只记录不影响结果
	if decision.ForwardTo != "" {
		_ = s.forwarder.Forward(ctx, message, decision.ForwardTo)
	}

	return &IngestResult{
		MessageID: message.ID,
		Recipient: parsed.Recipient,
	}, nil
}

// duplicateResult 把幂等命中转换成指向原邮件的结果。
func (s *IngestService) duplicateResult(upstreamID, recipient string) (*IngestResult, error) {
	delivery, err := s.store.GetProcessedDelivery(upstreamID)
	if err != nil {
		return nil, fmt.Errorf("lookup duplicate delivery: %w", err)
	}
	s.log.Info("duplicate delivery skipped",
		zap.String("upstream_id", upstreamID),
		zap.String("message_id", delivery.MessageID),
	)
	return &IngestResult{
		MessageID: delivery.MessageID,
		Recipient: recipient,
		Duplicate: true,
	}, nil
}
