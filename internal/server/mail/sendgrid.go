package mail

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sgClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client    sgClient
	fromEmail string
	fromName  string
}

func NewSendGridMailer(apiKey, fromEmail, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGridMailer) Send(ctx context.Context, m Message) error {
	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	to := sgmail.NewEmail("", m.To)
	msg := sgmail.NewSingleEmail(from, m.Subject, to, m.Text, m.HTML)

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid error: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func htmlEscape(s string) string { return html.EscapeString(s) }
