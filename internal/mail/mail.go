// Package mail delivers worksheet links to the configured recipients.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/gpotter/worksheetbot/internal/config"
)

const subject = "New Worksheet from WorksheetBot"

// Sender delivers a worksheet link to the fixed recipient list.
type Sender interface {
	SendLink(ctx context.Context, link string) error
}

// SMTPSender sends over SMTP with implicit TLS (port 465 by default).
type SMTPSender struct {
	cfg config.MailConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendLink composes and sends the notification mail.
func (s *SMTPSender) SendLink(ctx context.Context, link string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("set mail sender: %w", err)
	}
	if err := msg.To(s.cfg.Recipients...); err != nil {
		return fmt.Errorf("set mail recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf("Here is the latest worksheet link:\n%s", link))

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("build smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send worksheet mail: %w", err)
	}
	return nil
}
