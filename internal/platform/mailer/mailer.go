// Package mailer delivers plain-text notification mail over SMTP. Delivery
// is best effort: the lifecycle engine never fails an operation because a
// mail could not be sent.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/jackedreacher/cvsair-uygunsuzluk-rapor/internal/platform/env"
)

type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	SendTimeout   time.Duration
	TemplatesPath string
}

func ConfigFromEnv() (Config, error) {
	port, err := env.Int("SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}
	sendTimeout, err := env.Duration("MAIL_SEND_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host:          env.String("SMTP_HOST", ""),
		Port:          port,
		Username:      env.String("SMTP_USER", ""),
		Password:      env.String("SMTP_PASS", ""),
		From:          env.String("SMTP_FROM", ""),
		SendTimeout:   sendTimeout,
		TemplatesPath: env.String("MAIL_TEMPLATES_PATH", ""),
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled reports whether an SMTP host is configured. With no host the
// mailer is a no-op.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("SMTP_PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.From) == "" {
		return errors.New("SMTP_FROM or SMTP_USER is required when SMTP_HOST is set")
	}
	if c.SendTimeout <= 0 {
		return errors.New("MAIL_SEND_TIMEOUT must be positive")
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

type SMTPSender struct {
	cfg Config
}

func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to string, subject string, body string) error {
	if s == nil || !s.cfg.Enabled() {
		return nil
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient is required")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	deadline := time.Now().Add(s.cfg.SendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write(formatMessage(s.cfg.From, to, subject, body)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

// formatMessage builds a minimal RFC 5322 message. The subject is Q-encoded
// because notification subjects carry Turkish characters.
func formatMessage(from string, to string, subject string, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
