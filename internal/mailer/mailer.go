package mailer

import (
	"fmt"

	"webmail_auth/internal/models"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	dialer dialer
}

func New(host string, port int, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}

	return &Mailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (m *Mailer) Send(msg models.Message) error {
	const op = "mailer.Send"

	if err := m.dialer.DialAndSend(m.compose(msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mailer) compose(msg models.Message) *gomail.Message {
	subject, body := render(msg)

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("Subject", subject)
	gm.SetBody("text/plain", body)

	return gm
}

func render(msg models.Message) (subject, body string) {
	switch msg.Purpose {
	case models.PurposeEmailVerification:
		return "Confirm your mailbox address",
			"Open the link below to confirm your address:\n\n" + msg.Link + "\n\nIf you did not create an account, ignore this message."
	default:
		return "Webmail notification", msg.Link
	}
}
