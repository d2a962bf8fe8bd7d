// Package notify holds the outbound notification collaborators: the SMTP
// mailer for password-reset emails and the Twilio SMS sender.
//
// Both are fire-and-forget from the service's point of view: the
// forgot-password response never waits on delivery and never fails because
// delivery failed. Errors surface only in the logs.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// Mailer dispatches the password-reset email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, redirectTo string) error
}

// resetTemplate is the reset-password mail body. Its context carries the
// redirect target only — the reset code travels back to the API caller in
// the forgot-password response, not through this mail.
var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello,</p>
<p>A password reset was requested for your account.</p>
<p><a href="{{.RedirectTo}}">Continue to reset your password</a></p>
<p>If you did not request this, you can ignore this message.</p>
`))

// SMTPMailer sends mail over SMTP. When no host is configured it logs the
// message instead of sending, so local development needs no mail server.
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

// NewSMTPMailer creates an SMTPMailer. An empty host yields a logging stub.
func NewSMTPMailer(host string, port int, username, password, from string, logger *slog.Logger) (*SMTPMailer, error) {
	m := &SMTPMailer{from: from, logger: logger}
	if host == "" {
		return m, nil
	}

	opts := []mail.Option{mail.WithPort(port)}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: creating SMTP client: %w", err)
	}
	m.client = client

	return m, nil
}

// SendPasswordReset renders and sends the reset email.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, redirectTo string) error {
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ RedirectTo string }{redirectTo}); err != nil {
		return fmt.Errorf("notify: rendering reset mail: %w", err)
	}

	if m.client == nil {
		m.logger.Info("mail not configured, logging instead",
			slog.String("to", to),
			slog.String("subject", "Reset password"),
		)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("notify: setting mail sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notify: setting mail recipient: %w", err)
	}
	msg.Subject("Reset password")
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: sending reset mail: %w", err)
	}

	return nil
}
