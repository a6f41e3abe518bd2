// Package notify delivers account emails. Delivery is best effort.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/rs/zerolog/log"
)

// Notifier sends the account emails: address verification and password reset.
type Notifier interface {
	SendVerification(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, code string) error
}

// Links holds the public addresses emailed links point at.
type Links struct {
	BaseURL     string // this service, which serves the verification endpoint
	FrontendURL string // the web app, which hosts the reset form. Empty falls back to BaseURL
}

// VerificationLink builds the link a user follows to confirm their address.
func (l Links) VerificationLink(code string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/api/auth/verify-email?code=" + url.QueryEscape(code)
}

// ResetLink builds the link to the page where a user chooses a new password.
func (l Links) ResetLink(code string) string {
	base := l.FrontendURL
	if base == "" {
		base = l.BaseURL
	}
	return strings.TrimRight(base, "/") + "/reset-password?code=" + url.QueryEscape(code)
}

// LogNotifier writes links to the log instead of sending mail.
type LogNotifier struct {
	Links
}

var _ Notifier = LogNotifier{}

func (n LogNotifier) SendVerification(_ context.Context, to, code string) error {
	log.Info().Str("to", to).Str("link", n.VerificationLink(code)).Msg("verification email (not sent)")
	return nil
}

func (n LogNotifier) SendPasswordReset(_ context.Context, to, code string) error {
	log.Info().Str("to", to).Str("link", n.ResetLink(code)).Msg("password reset email (not sent)")
	return nil
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends plain text mail through an authenticated SMTP relay.
type SMTPNotifier struct {
	host     string
	port     string
	account  string
	password string
	from     string
	links    Links
	sendMail sendMailFunc
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg config.SmtpConfig, links Links) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.GetSmtpHost(),
		port:     cfg.GetSmtpPort(),
		account:  cfg.GetSmtpAccount(),
		password: cfg.GetSmtpPassword(),
		from:     cfg.GetSmtpFrom(),
		links:    links,
		sendMail: smtp.SendMail,
	}
}

// New picks SMTP delivery when relay credentials are configured and logging otherwise.
func New(cfg config.SmtpConfig, links Links) Notifier {
	if cfg.GetSmtpHost() == "" || cfg.GetSmtpAccount() == "" {
		return LogNotifier{Links: links}
	}
	return NewSMTPNotifier(cfg, links)
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, to, code string) error {
	body := "Please confirm your email address by opening the link below.\r\n\r\n" +
		n.links.VerificationLink(code) + "\r\n"
	if err := n.send(ctx, to, "Verify your email address", body); err != nil {
		return fmt.Errorf("send verification to %s: %w", to, err)
	}
	return nil
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to, code string) error {
	body := "A password reset was requested for your account. Open the link below to choose a new password.\r\n" +
		"If you did not ask for this, ignore this email.\r\n\r\n" +
		n.links.ResetLink(code) + "\r\n"
	if err := n.send(ctx, to, "Reset your password", body); err != nil {
		return fmt.Errorf("send password reset to %s: %w", to, err)
	}
	return nil
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.account != "" {
		auth = smtp.PlainAuth("", n.account, n.password, n.host)
	}
	return n.sendMail(net.JoinHostPort(n.host, n.port), auth, n.from, []string{to}, n.message(to, subject, body))
}

func (n *SMTPNotifier) message(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
