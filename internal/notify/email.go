package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers mail over SMTP.
type EmailSender struct {
	config EmailConfig
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

// NewEmailSender creates an SMTP email sender.
func NewEmailSender(cfg EmailConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{config: cfg, send: smtp.SendMail, logger: logger}
}

// Send delivers one message. CC recipients receive a copy and appear in
// the headers.
func (e *EmailSender) Send(to []string, subject, body string, cc []string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	if len(cc) > 0 {
		fmt.Fprintf(&msg, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	recipients := append(append([]string{}, to...), cc...)

	if err := e.send(addr, auth, e.config.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	e.logger.Info("email sent", zap.Strings("to", to), zap.String("subject", subject))
	return nil
}
