package sendgrid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/config"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Sender delivers guardian messages through the SendGrid v3 mail API.
type Sender struct {
	key  string
	from *sgmail.Email
	api  func(context.Context, rest.Request) (*rest.Response, error)
}

func NewSender(cfg config.SendGridConfig) *Sender {
	return &Sender{
		key:  cfg.APIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.From),
		api:  rest.SendWithContext,
	}
}

func (s *Sender) prepare(ch notification.Channel, msg notification.Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(ch.Name, ch.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return m
}

// Send implements notification.Sender.
func (s *Sender) Send(ctx context.Context, ch notification.Channel, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sg.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(ch, msg))

	res, err := s.api(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
