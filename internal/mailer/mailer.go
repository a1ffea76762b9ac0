// Package mailer sends plain-text email through SMTP, or keeps it in memory.
package mailer

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/unclebandit/moderated-board/internal/config"
	"github.com/unclebandit/moderated-board/internal/model"
)

var ErrNoRecipients = errors.New("email has no recipients")

type Mailer interface {
	Send(email model.Email) error
}

// SMTPMailer dials the server for every message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(email model.Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)

	return m.dialer.DialAndSend(msg)
}

// LogMailer writes mail to the log instead of delivering it. Meant for development.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m *LogMailer) Send(email model.Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}
	m.Log.WithFields(logrus.Fields{
		"to":      strings.Join(email.To, ", "),
		"subject": email.Subject,
	}).Info(email.Body)
	return nil
}

// Outbox records sent mail in memory. Set Err to make every Send fail.
type Outbox struct {
	mu   sync.Mutex
	sent []model.Email
	Err  error
}

func (o *Outbox) Send(email model.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return o.Err
	}
	if len(email.To) == 0 {
		return ErrNoRecipients
	}
	o.sent = append(o.sent, email)
	return nil
}

func (o *Outbox) Sent() []model.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Email(nil), o.sent...)
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = nil
	o.Err = nil
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
	_ Mailer = (*Outbox)(nil)
)

// FromConfig picks the transport named by MAIL_BACKEND.
func FromConfig(cfg *config.Config, log logrus.FieldLogger) Mailer {
	if cfg.MailBackend == "log" {
		return &LogMailer{Log: log}
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail)
}
