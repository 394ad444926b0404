// Package mail sends notification emails. Delivery failures are logged and
// reported as false; they never abort the job that sends them.
package mail

//go:generate mockgen -source=mail.go -destination=../mocks/mail/mock_sender.go -package=mock_mail

import (
	"context"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message and reports whether it went out.
type Sender interface {
	Send(ctx context.Context, msg Message) bool
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
	From     string
}

// ── SMTP ──

type SMTPSender struct {
	client   mailer.Mailer
	from     netmail.Address
	attempts uint
	delay    time.Duration
}

// NewSMTPSender returns a Sender backed by the pocketbase SMTP client.
func NewSMTPSender(cfg Config) *SMTPSender {
	return newSMTPSender(&mailer.SMTPClient{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		TLS:      cfg.TLS,
	}, cfg.From)
}

func newSMTPSender(client mailer.Mailer, from string) *SMTPSender {
	addr, err := netmail.ParseAddress(from)
	if err != nil {
		addr = &netmail.Address{Address: from}
	}
	return &SMTPSender{client: client, from: *addr, attempts: 3, delay: time.Second}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) bool {
	to := make([]netmail.Address, 0, len(msg.To))
	for _, raw := range msg.To {
		addr, err := netmail.ParseAddress(raw)
		if err != nil {
			slog.Warn("Skipping invalid recipient", "to", raw, "error", err)
			continue
		}
		to = append(to, *addr)
	}
	if len(to) == 0 {
		slog.Warn("Email has no valid recipients", "subject", msg.Subject)
		return false
	}

	m := &mailer.Message{
		From:    s.from,
		To:      to,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	}
	err := retry.Do(
		func() error { return s.client.Send(m) },
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		slog.Warn("Email send failed", "to", strings.Join(msg.To, ","), "subject", msg.Subject, "error", err)
		return false
	}
	slog.Info("Email sent", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return true
}

// ── Log ──

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) bool {
	slog.Info("Email (not delivered)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"text_bytes", len(msg.Text),
		"html_bytes", len(msg.HTML),
	)
	return true
}

// NewSender picks the SMTP sender when a host is configured.
func NewSender(cfg Config) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}
