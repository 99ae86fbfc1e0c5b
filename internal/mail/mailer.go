// Package mail sends transactional emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP settings.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// Mailer sends HTML mail via a single SMTP account.
type Mailer struct {
	cfg Config
}

// NewMailer creates a Mailer from the given SMTP settings.
func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendEmailVerification mails the account verification link.
func (m *Mailer) SendEmailVerification(ctx context.Context, email, link string) error {
	body := fmt.Sprintf(`<p>Welcome! Please verify your email address to activate your account.</p>
<p><a href=%q>Verify my email</a></p>
<p>This link expires in 24 hours. If you did not create an account, you can ignore this mail.</p>`, link)
	return m.send(ctx, email, "Verify your email", body)
}

// SendPasswordReset mails the password reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, link string) error {
	body := fmt.Sprintf(`<p>We received a request to reset your password.</p>
<p><a href=%q>Reset my password</a></p>
<p>This link expires in 1 hour. If you did not request a reset, you can ignore this mail.</p>`, link)
	return m.send(ctx, email, "Reset your password", body)
}

// SendPasswordResetSuccess confirms that the password was changed.
func (m *Mailer) SendPasswordResetSuccess(ctx context.Context, email string) error {
	body := `<p>Your password was changed successfully.</p>
<p>If this was not you, reset your password immediately.</p>`
	return m.send(ctx, email, "Your password was changed", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
