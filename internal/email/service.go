// Package email sends account mail over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured reports whether outbound mail is possible. Without it new
// accounts are confirmed on creation.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) from() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	const boundary = "pam-boundary"
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.from())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", textBody)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

type ConfirmationData struct {
	OfficeName string
	UserName   string
	ConfirmURL string
}

// SendConfirmationEmail mails the link that confirms a new account.
func (s *Service) SendConfirmationEmail(to, userName, confirmURL string) error {
	data := ConfirmationData{
		OfficeName: "Padinha & Araujo",
		UserName:   userName,
		ConfirmURL: confirmURL,
	}
	html, err := renderTemplate(confirmationTemplate, data)
	if err != nil {
		return fmt.Errorf("render confirmation template: %w", err)
	}
	text := fmt.Sprintf("Hello %s,\n\nConfirm your account: %s\n", userName, confirmURL)
	return s.SendHTMLEmail([]string{to}, "Confirm your Padinha & Araujo account", text, html)
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.OfficeName}}</title></head>
<body style="font-family: Georgia, serif; color: #0f1f3a; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>{{.OfficeName}}</h1>
    <p>Hello, {{.UserName}}.</p>
    <p>Confirm your email address to start using the case dashboard.</p>
    <p><a href="{{.ConfirmURL}}" style="display: inline-block; padding: 12px 24px; background: #0f1f3a; color: #fff; text-decoration: none;">Confirm email</a></p>
    <p style="word-break: break-all;">{{.ConfirmURL}}</p>
</body>
</html>`))

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
