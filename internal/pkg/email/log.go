package email

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development and when no delivery driver is configured.
type LogSender struct{}

func NewLogSender() LogSender {
	return LogSender{}
}

// Send implements notification.Sender.
func (LogSender) Send(ctx context.Context, ch notification.Channel, msg notification.Message) error {
	slog.InfoContext(ctx, "notification (log driver)",
		"relation", ch.Relation,
		"to", ch.Address,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
