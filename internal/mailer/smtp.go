package mailer

import (
	"context"

	"gopkg.in/gomail.v2"
)

type smtpMailer struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPMailer sends through a plain SMTP relay. Used for local development
// and self-hosted deployments without an email API.
func NewSMTPMailer(host string, port int, username, password string) Mailer {
	return &smtpMailer{host: host, port: port, username: username, password: password}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", msg.From, msg.FromName)
	gm.SetAddressHeader("To", msg.To, msg.ToName)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	d := gomail.NewDialer(m.host, m.port, m.username, m.password)

	// gomail has no context support; run the dial in a goroutine so a stalled
	// relay cannot block the dispatcher past its per-send deadline.
	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(gm) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
