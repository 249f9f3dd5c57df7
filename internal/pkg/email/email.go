package email

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
)

const maxRetries = 3

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers guardian messages as plain-text email.
type SMTPSender struct {
	cfg      config.SMTPConfig
	send     sendFunc
	baseWait time.Duration
}

// NewSMTPSender creates a notification.Sender backed by net/smtp
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:      cfg,
		send:     smtp.SendMail,
		baseWait: time.Second,
	}
}

// Send implements notification.Sender.
func (s *SMTPSender) Send(ctx context.Context, ch notification.Channel, msg notification.Message) error {
	message := s.compose(ch, msg)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, s.cfg.From, []string{ch.Address}, message)
		if err == nil {
			slog.Debug("email sent", "to", ch.Address, "relation", ch.Relation, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Warn("failed to send email",
			"to", ch.Address,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Wait before retrying (exponential backoff: 1s, 2s, 4s)
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("email to %s: %w", ch.Address, ctx.Err())
			case <-time.After(s.baseWait << (attempt - 1)):
			}
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

func (s *SMTPSender) compose(ch notification.Channel, msg notification.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.From)
	if ch.Name != "" {
		fmt.Fprintf(&b, "To: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", ch.Name), ch.Address)
	} else {
		fmt.Fprintf(&b, "To: %s\r\n", ch.Address)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
