package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"mailroute/backend/internal/config"
)

// SMTPProvider 通过外部 SMTP 中继外发邮件。
type SMTPProvider struct {
	cfg     config.ForwardSMTPConfig
	timeout time.Duration
}

// NewSMTPProvider 创建 SMTP 中继通道。
func NewSMTPProvider(cfg config.ForwardSMTPConfig, timeout time.Duration) *SMTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPProvider{cfg: cfg, timeout: timeout}
}

// Name 返回通道名称。
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// Send 通过中继投递一封邮件。
//
// 信封发件人使用配置的转发地址，原始发件人身份保留在
// 邮件头中（From / Reply-To / 附加头），不伪造信封。
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	raw, err := BuildRawMessage(msg)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	host, _, splitErr := net.SplitHostPort(p.cfg.Addr)
	if splitErr != nil {
		host = p.cfg.Addr
	}
	client, err := smtp.NewClientStartTLS(conn, &tls.Config{ServerName: host})
	if err != nil {
		conn.Close()
		return fmt.Errorf("starttls failed: %w", err)
	}
	defer client.Close()

	if p.cfg.Username != "" {
		auth := sasl.NewPlainClient("", p.cfg.Username, p.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth failed: %w", err)
		}
	}

	envelopeFrom := p.cfg.From
	if envelopeFrom == "" {
		envelopeFrom = msg.From
	}
	if err := client.Mail(envelopeFrom, nil); err != nil {
		return fmt.Errorf("mail command failed: %w", err)
	}
	for _, to := range msg.To {
		if err := client.Rcpt(to, nil); err != nil {
			return fmt.Errorf("rcpt command failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data command failed: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}
