package smtp

import (
	"errors"
	"fmt"

	"github.com/desofme/bank/pkg/email"

	"github.com/go-gomail/gomail"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	from     string
	fromName string
	dialer   Dialer
}

func NewSMTPSender(from, pass, host string, port int) (*SMTPSender, error) {
	if !email.IsEmailValid(from) {
		return nil, errors.New("invalid from email")
	}

	return &SMTPSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, from, pass),
	}, nil
}

// WithFromName sets the display name shown next to the sender address.
func (s *SMTPSender) WithFromName(name string) *SMTPSender {
	s.fromName = name
	return s
}

func (s *SMTPSender) Send(input email.SendEmailInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	msg := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	msg.SetHeader("From", msg.FormatAddress(s.from, s.fromName))
	msg.SetHeader("To", input.To)
	msg.SetHeader("Subject", input.Subject)
	msg.SetBody("text/html", input.Body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email via smtp: %w", err)
	}

	return nil
}
