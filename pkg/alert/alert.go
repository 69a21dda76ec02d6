// Package alert notifies operators of conditions that need human
// intervention: data-integrity violations and tripped circuit breakers.
package alert

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Alerter delivers an operator alert.
type Alerter interface {
	Alert(subject, message string) error
}

// Config holds SMTP delivery settings.
type Config struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// EmailAlerter delivers alerts over SMTP.
type EmailAlerter struct {
	cfg Config
}

// NewEmailAlerter creates an email alerter from config.
func NewEmailAlerter(cfg Config) *EmailAlerter {
	return &EmailAlerter{cfg: cfg}
}

// Alert sends the message. A disabled alerter is a silent no-op so callers
// never need to branch on configuration.
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	body := []byte(fmt.Sprintf("To: %s\r\nSubject: [aerolex] %s\r\n\r\n%s\r\n",
		strings.Join(a.cfg.To, ","), subject, message))
	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, a.cfg.From, a.cfg.To, body); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// NoOpAlerter discards alerts. Used when alerting is disabled.
type NoOpAlerter struct{}

func (n *NoOpAlerter) Alert(subject, message string) error { return nil }
