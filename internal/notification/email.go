// File: internal/notification/email.go
package notification

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scoutgame/settlement-worker/pkg/utils"
)

// EmailConfig holds SMTP email sender configuration
type EmailConfig struct {
	SMTPHost  string   `json:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort  int      `json:"smtp_port" mapstructure:"smtp_port"`
	Username  string   `json:"username" mapstructure:"username"`
	Password  string   `json:"password" mapstructure:"password"`
	FromEmail string   `json:"from_email" mapstructure:"from_email"`
	FromName  string   `json:"from_name" mapstructure:"from_name"`
	To        []string `json:"to" mapstructure:"to"`
}

// EmailSender delivers plain-text notification emails over SMTP
type EmailSender struct {
	config *EmailConfig
	auth   smtp.Auth
	logger *logrus.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(config *EmailConfig) *EmailSender {
	if config.SMTPPort == 0 {
		config.SMTPPort = 587
	}
	if config.FromName == "" {
		config.FromName = "Settlement Worker"
	}
	sender := &EmailSender{
		config: config,
		logger: utils.GetLogger(),
	}
	if config.Username != "" && config.Password != "" {
		sender.auth = smtp.PlainAuth("", config.Username, config.Password, config.SMTPHost)
	}
	return sender
}

// SendEmail sends one plain-text email to the configured recipients
func (es *EmailSender) SendEmail(subject, body string) error {
	if es.config.SMTPHost == "" || len(es.config.To) == 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Email sender not configured", "")
	}

	message := es.buildMessage(subject, body)
	addr := fmt.Sprintf("%s:%d", es.config.SMTPHost, es.config.SMTPPort)

	start := time.Now()
	err := smtp.SendMail(addr, es.auth, es.config.FromEmail, es.config.To, message)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Failed to send email", err.Error())
	}

	es.logger.WithFields(logrus.Fields{
		"to":          strings.Join(es.config.To, ","),
		"subject":     subject,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Email sent")

	return nil
}

func (es *EmailSender) buildMessage(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", es.config.FromName, es.config.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(es.config.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
