// Package mailer delivers password-reset links.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends out-of-band messages.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers mail through the SendGrid API.
type SendGridMailer struct {
	client   sender
	from     *mail.Email
	siteName string
}

// NewSendGridMailer creates a SendGridMailer.
func NewSendGridMailer(apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     mail.NewEmail(fromName, fromAddress),
		siteName: fromName,
	}
}

// SendPasswordReset mails the reset link to the recipient.
func (m *SendGridMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	subject := fmt.Sprintf("%s: password reset", m.siteName)
	plain := fmt.Sprintf("To reset your password open %s\nThe link is valid for one hour.", link)
	html := fmt.Sprintf(`<p>To reset your password open <a href="%s">this link</a>.</p><p>The link is valid for one hour.</p>`, link)

	msg := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), plain, html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send reset email: sendgrid status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer writes the link to the log instead of sending it.
// It is the development stand-in when no SendGrid key is configured.
type LogMailer struct {
	Log *zap.Logger
}

// SendPasswordReset logs the reset link.
func (m *LogMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.Log.Info("password reset link (not emailed)", zap.String("to", to), zap.String("link", link))
	return nil
}
