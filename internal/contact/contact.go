// Package contact delivers messages from the public contact form by SMTP.
package contact

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("SMTP credentials not configured")

// Message is a contact form submission.
type Message struct {
	Name    string `form:"fullName" binding:"required,max=200"`
	Email   string `form:"email" binding:"required,email,max=320"`
	Message string `form:"message" binding:"required,max=5000"`
}

type Config struct {
	Host    string
	Port    string
	User    string
	Pass    string
	ToEmail string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg    Config
	send   sendFunc
	logger *log.Logger
}

// NewMailer returns a mailer. An empty ToEmail delivers to the SMTP user.
func NewMailer(cfg Config, logger *log.Logger) *Mailer {
	if cfg.ToEmail == "" {
		cfg.ToEmail = cfg.User
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (m *Mailer) Configured() bool {
	return m.cfg.User != "" && m.cfg.Pass != "" && m.cfg.Host != ""
}

func (m *Mailer) Send(msg Message) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	name := oneLine(msg.Name)
	email := oneLine(msg.Email)
	subject := fmt.Sprintf("Portfolio Contact: %s", name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, msg.Message)

	raw := []byte("To: " + m.cfg.ToEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.cfg.User + "\r\n" +
		"Reply-To: " + email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.ToEmail}, raw); err != nil {
		m.logger.Printf("Error sending email: %v", err)
		return fmt.Errorf("send contact email: %w", err)
	}

	m.logger.Printf("Email sent successfully from %s (%s)", name, email)
	return nil
}

// oneLine keeps header values on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
