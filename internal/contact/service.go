package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"backend-travelbuddy/internal/config"
)

var (
	ErrInvalidMessage = errors.New("a valid email, title and comment are required")
	ErrNotConfigured  = errors.New("contact mail is not configured")
)

var sendMailFn = smtp.SendMail

type Message struct {
	Email   string `json:"email"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// Mailer forwards contact form messages to the site's own mailbox.
type Mailer struct {
	host     string
	port     string
	user     string
	password string
}

func NewMailer(cfg config.Config) *Mailer {
	return &Mailer{host: cfg.SMTPHost, port: cfg.SMTPPort, user: cfg.SMTPUser, password: cfg.SMTPPassword}
}

func (m *Mailer) Send(msg Message) error {
	if m.host == "" || m.user == "" || m.password == "" {
		return ErrNotConfigured
	}
	title := singleLine(msg.Title)
	comment := strings.TrimSpace(msg.Comment)
	if title == "" || comment == "" {
		return ErrInvalidMessage
	}
	sender, err := mail.ParseAddress(singleLine(msg.Email))
	if err != nil {
		return ErrInvalidMessage
	}

	body := strings.Join([]string{
		"From: " + m.user,
		"To: " + m.user,
		"Reply-To: " + sender.Address,
		"Subject: Contact Form: " + title,
		"Content-Type: text/plain; charset=UTF-8",
		"",
		"From: " + sender.Address,
		"Subject: " + title,
		"",
		"Message:",
		strings.ReplaceAll(comment, "\n", "\r\n"),
	}, "\r\n")

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	if err := sendMailFn(m.host+":"+m.port, auth, m.user, []string{m.user}, []byte(body)); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

// singleLine keeps header values on one line.
func singleLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}
