package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"account_service/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer renders and delivers account emails over SMTP.
type Mailer struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	templates *template.Template
}

func New(host string, port int, username, password, from string) (*Mailer, error) {
	const op = "mailer.New"

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Mailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      from,
		templates: templates,
	}, nil
}

// Send renders the template for the message purpose and delivers it.
func (m *Mailer) Send(msg models.Message) error {
	const op = "mailer.Send"

	subject, tmpl, err := lookup(msg.Purpose)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, tmpl, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	mail := gomail.NewMessage()
	mail.SetHeader("To", msg.Email)
	mail.SetHeader("From", m.from)
	mail.SetHeader("Subject", subject)
	mail.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := dialer.DialAndSend(mail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func lookup(purpose string) (subject, tmpl string, err error) {
	switch purpose {
	case models.PurposeVerification:
		return "Verify Your Account", "email_verification.html", nil
	case models.PurposePasswordReset:
		return "Password Reset Notification", "password_reset.html", nil
	default:
		return "", "", fmt.Errorf("unknown message purpose %q", purpose)
	}
}
