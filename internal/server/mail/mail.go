// Package mail sends transactional e-mail (password reset links).
package mail

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/betclever/internal/logging"
)

// Message is a single outgoing e-mail.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// PasswordResetMessage renders the reset mail pointing at link.
func PasswordResetMessage(to, username, link string) Message {
	if username == "" {
		username = to
	}
	return Message{
		To:      to,
		Subject: "BetClever: Passwort zurücksetzen",
		Text: fmt.Sprintf("Hallo %s,\n\nüber folgenden Link kannst du ein neues Passwort festlegen:\n%s\n\n"+
			"Falls du das nicht angefordert hast, ignoriere diese E-Mail.\n", username, link),
		HTML: fmt.Sprintf(`<p>Hallo %s,</p><p>über folgenden Link kannst du ein neues Passwort festlegen:</p>`+
			`<p><a href="%s">Passwort zurücksetzen</a></p>`+
			`<p>Falls du das nicht angefordert hast, ignoriere diese E-Mail.</p>`, htmlEscape(username), link),
	}
}

// LogMailer writes messages to the log instead of sending them. Used when
// no SendGrid key is configured.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (l *LogMailer) Send(ctx context.Context, m Message) error {
	l.log.Info(ctx, "mail not sent, no provider configured", "to", m.To, "subject", m.Subject, "body", m.Text)
	return nil
}
