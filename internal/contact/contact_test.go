package contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"backend-travelbuddy/internal/config"

	"github.com/gofiber/fiber/v2"
)

type sentMail struct {
	addr string
	from string
	to   []string
	body string
}

func stubSendMail(t *testing.T, err error) *[]sentMail {
	t.Helper()
	var sent []sentMail
	prev := sendMailFn
	sendMailFn = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr, from, to, string(msg)})
		return err
	}
	t.Cleanup(func() { sendMailFn = prev })
	return &sent
}

func testMailer() *Mailer {
	return NewMailer(config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPUser: "team@travelbuddy.io", SMTPPassword: "pw"})
}

func TestSendForwardsToOwnMailbox(t *testing.T) {
	sent := stubSendMail(t, nil)

	err := testMailer().Send(Message{Email: "ana@trip.io", Title: "Hi\r\nBcc: x@evil.io", Comment: "line one\nline two"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(*sent))
	}
	got := (*sent)[0]
	if got.addr != "smtp.example.com:587" || got.from != "team@travelbuddy.io" || got.to[0] != "team@travelbuddy.io" {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if !strings.Contains(got.body, "Reply-To: ana@trip.io\r\n") || !strings.Contains(got.body, "Subject: Contact Form: Hi  Bcc: x@evil.io\r\n") {
		t.Fatalf("unexpected headers:\n%s", got.body)
	}
	if strings.Contains(got.body, "\r\nBcc:") {
		t.Fatalf("title must not add headers:\n%s", got.body)
	}
	if !strings.HasSuffix(got.body, "line one\r\nline two") {
		t.Fatalf("unexpected body:\n%s", got.body)
	}
}

func TestSendRejects(t *testing.T) {
	sent := stubSendMail(t, nil)
	tests := []struct {
		name   string
		mailer *Mailer
		msg    Message
		want   error
	}{
		{"not configured", NewMailer(config.Config{}), Message{Email: "a@b.io", Title: "t", Comment: "c"}, ErrNotConfigured},
		{"bad email", testMailer(), Message{Email: "nope", Title: "t", Comment: "c"}, ErrInvalidMessage},
		{"empty title", testMailer(), Message{Email: "a@b.io", Title: " ", Comment: "c"}, ErrInvalidMessage},
		{"empty comment", testMailer(), Message{Email: "a@b.io", Title: "t"}, ErrInvalidMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mailer.Send(tt.msg); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(*sent) != 0 {
		t.Fatalf("expected nothing sent, got %d", len(*sent))
	}
}

func TestContactHandler(t *testing.T) {
	errSMTP := errors.New("smtp down")
	tests := []struct {
		name    string
		mailer  *Mailer
		sendErr error
		body    string
		want    int
	}{
		{"sent", testMailer(), nil, `{"email":"a@b.io","title":"t","comment":"c"}`, http.StatusOK},
		{"invalid", testMailer(), nil, `{"email":"a@b.io"}`, http.StatusBadRequest},
		{"bad json", testMailer(), nil, `{`, http.StatusBadRequest},
		{"not configured", NewMailer(config.Config{}), nil, `{"email":"a@b.io","title":"t","comment":"c"}`, http.StatusServiceUnavailable},
		{"smtp failure", testMailer(), errSMTP, `{"email":"a@b.io","title":"t","comment":"c"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubSendMail(t, tt.sendErr)
			app := fiber.New()
			RegisterRoutes(app, tt.mailer)

			req := httptest.NewRequest(http.MethodPost, "/contact", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			if tt.want == http.StatusOK {
				var out map[string]string
				_ = json.NewDecoder(resp.Body).Decode(&out)
				if out["message"] != "Email sent successfully" {
					t.Fatalf("unexpected body %v", out)
				}
			}
		})
	}
}
