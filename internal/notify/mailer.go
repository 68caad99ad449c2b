// Package notify emails plain-text run summaries over SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"crier/pkg/config"
)

type Mailer struct {
	cfg  config.SMTPSettings
	auth smtp.Auth
}

func NewMailer(cfg config.SMTPSettings) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{cfg: cfg, auth: auth}
}

// Send delivers one message to the configured recipient.
func (m *Mailer) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	payload := buildMessage(from, m.cfg.To, subject, body)

	if m.auth != nil {
		return smtp.SendMail(addr, m.auth, from, []string{m.cfg.To}, payload)
	}

	// No auth - connect directly
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer func() { _ = c.Close() }()

	if errMail := c.Mail(from); errMail != nil {
		return fmt.Errorf("mail from: %w", errMail)
	}
	if errRcpt := c.Rcpt(m.cfg.To); errRcpt != nil {
		return fmt.Errorf("rcpt to: %w", errRcpt)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err = w.Write(payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	msg := []string{
		fmt.Sprintf("From: %s", sanitizeHeader(from)),
		fmt.Sprintf("To: %s", sanitizeHeader(to)),
		fmt.Sprintf("Subject: %s", sanitizeHeader(subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}
	return []byte(strings.Join(msg, "\r\n"))
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
