package utils

import (
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"os"
	"strings"

	"mira-backend/logger"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// Team receives contact form notifications. Defaults to From.
	Team string
}

func GetEmailConfig() *EmailConfig {
	cfg := &EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		Team:     os.Getenv("CONTACT_EMAIL"),
	}
	if cfg.Team == "" {
		cfg.Team = cfg.From
	}
	return cfg
}

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

func SendEmail(to, subject, htmlBody string) error {
	config := GetEmailConfig()
	if config.Host == "" || config.Port == "" || config.From == "" {
		return fmt.Errorf("SMTP not configured")
	}

	if !IsSingleLine(to) {
		return fmt.Errorf("invalid recipient %q", to)
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		config.From, to, encodeHeader(subject))
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	addr := config.Host + ":" + config.Port
	return sendMail(addr, auth, config.From, []string{to}, msg)
}

// encodeHeader drops control characters from v, so it cannot start a new
// header line, and Q-encodes any non-ASCII text.
func encodeHeader(v string) string {
	v = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
	return mime.QEncoding.Encode("UTF-8", v)
}

// ContactEmail is what the contact form sends by mail.
type ContactEmail struct {
	FirstName string
	LastName  string
	Email     string
	Message   string
}

func contactNotificationBody(m ContactEmail) string {
	return fmt.Sprintf(`<h2>New contact message</h2>
<p><strong>From:</strong> %s %s &lt;%s&gt;</p>
<p>%s</p>`,
		html.EscapeString(m.FirstName), html.EscapeString(m.LastName), html.EscapeString(m.Email),
		strings.ReplaceAll(html.EscapeString(m.Message), "\n", "<br>"))
}

func contactConfirmationBody(m ContactEmail) string {
	return fmt.Sprintf(`<h2>Thanks for writing to us, %s!</h2>
<p>We received your message and will get back to you soon.</p>
<p>The Mira Team</p>`, html.EscapeString(m.FirstName))
}

// SendContactNotification mails the team in the background. Failures are
// only logged.
func SendContactNotification(m ContactEmail) {
	go func() {
		to := GetEmailConfig().Team
		subject := fmt.Sprintf("Contact form: %s %s", m.FirstName, m.LastName)
		if err := SendEmail(to, subject, contactNotificationBody(m)); err != nil {
			logger.L.Warn("failed to send contact notification", "error", err)
		}
	}()
}

// SendContactConfirmation mails the sender in the background.
func SendContactConfirmation(m ContactEmail) {
	go func() {
		if err := SendEmail(m.Email, "We received your message", contactConfirmationBody(m)); err != nil {
			logger.L.Warn("failed to send contact confirmation", "to", m.Email, "error", err)
		}
	}()
}
