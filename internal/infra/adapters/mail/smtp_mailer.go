package mail

import (
	"context"
	"fmt"
	"io"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/ports/adapter"

	"gopkg.in/gomail.v2"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

type SMTPMailer struct {
	send       func(m ...*gomail.Message) error
	senderName string
	sender     string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return &SMTPMailer{send: d.DialAndSend, senderName: cfg.SenderName, sender: cfg.SenderEmail}
}

func (s *SMTPMailer) message(e adapter.Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.sender, s.senderName)
	if e.ToName != "" {
		m.SetAddressHeader("To", e.To, e.ToName)
	} else {
		m.SetHeader("To", e.To)
	}
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/html", e.HTML)
	for _, a := range e.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Name, settings...)
	}
	return m
}

// Send blocks on the SMTP dialogue; gomail has no context support, so ctx is
// only checked before dialing.
func (s *SMTPMailer) Send(ctx context.Context, e adapter.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.message(e)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMailFailed, err)
	}
	return nil
}
