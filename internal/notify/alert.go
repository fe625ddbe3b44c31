package notify

import (
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"
)

// AlerterConfig holds the SMTP settings for operator alerts.
type AlerterConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       []string
}

// Alerter emails operators when the process goes down.
type Alerter struct {
	cfg    AlerterConfig
	logger *slog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewAlerter creates an email alerter. Without a host or recipients it only
// logs what it would have sent.
func NewAlerter(cfg AlerterConfig, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Enabled reports whether alerts are delivered by email.
func (a *Alerter) Enabled() bool {
	return a.cfg.SMTPHost != "" && len(a.cfg.To) > 0
}

// SendServerDown reports that the service stopped and why.
func (a *Alerter) SendServerDown(reason string, at time.Time) error {
	host := hostname()
	subject := "Server Down Alert"
	body := fmt.Sprintf(`Lead Sync Server Down
=====================

Host:    %s
Time:    %s
Reason:  %s

Leads are not being synced until the service is restarted.

---
Automated alert from the lead sync service.
`, host, at.Format(time.RFC3339), reason)

	return a.sendEmail(subject, body)
}

func (a *Alerter) sendEmail(subject, body string) error {
	if !a.Enabled() {
		a.logger.Warn("alert email not configured", "subject", subject)
		return nil
	}

	msg := buildMessage(a.cfg.From, a.cfg.To, subject, body)
	addr := net.JoinHostPort(a.cfg.SMTPHost, strconv.Itoa(a.cfg.SMTPPort))

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	}

	if err := a.send(addr, auth, a.cfg.From, a.cfg.To, msg); err != nil {
		a.logger.Error("alert email failed", "subject", subject, "error", err)
		return fmt.Errorf("send alert: %w", err)
	}
	a.logger.Info("alert email sent", "subject", subject, "to", strings.Join(a.cfg.To, ","))
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, strings.Join(to, ","), subject, body))
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
