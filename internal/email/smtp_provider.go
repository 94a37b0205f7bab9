package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"prolance_backend/internal/config"
)

// SMTPProvider sends plain-text mail over SMTP with PLAIN auth.
type SMTPProvider struct {
	host     string
	port     int
	from     string
	fromName string
	auth     smtp.Auth
}

func NewSMTPProvider(cfg *config.Config) *SMTPProvider {
	var auth smtp.Auth
	if cfg.Email.SMTPUsername != "" && cfg.Email.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.Email.SMTPUsername, cfg.Email.SMTPPassword, cfg.Email.SMTPHost)
	}

	return &SMTPProvider{
		host:     cfg.Email.SMTPHost,
		port:     cfg.Email.SMTPPort,
		from:     cfg.Email.FromEmail,
		fromName: cfg.Email.FromName,
		auth:     auth,
	}
}

func (p *SMTPProvider) Send(to, subject, body string) error {
	if p.host == "" || p.from == "" {
		return fmt.Errorf("smtp provider is not configured")
	}

	from := p.from
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.from)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	return smtp.SendMail(addr, p.auth, p.from, []string{to}, []byte(msg.String()))
}

// NewProvider picks the SMTP provider when email is enabled and a
// no-op provider otherwise.
func NewProvider(cfg *config.Config) Provider {
	if cfg.Email.Enabled {
		return NewSMTPProvider(cfg)
	}
	return NoopProvider{}
}
