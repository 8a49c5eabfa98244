// Package notification delivers transactional email through the job queue.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"kobapay/internal/config"
	"kobapay/internal/queue"
)

// Sender delivers one email.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends over SMTP with gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.Config) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

// EmailPayload is the queue payload for JobEmailSend.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RegisterHandlers binds the email job to a sender.
func RegisterHandlers(registry *queue.Registry, sender Sender) {
	registry.Register(queue.JobEmailSend, func(_ context.Context, raw json.RawMessage) error {
		var payload EmailPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return err
		}
		if err := sender.Send(payload.To, payload.Subject, payload.Body); err != nil {
			logrus.WithField("to", payload.To).Errorf("send email: %v", err)
			return err
		}
		return nil
	})
}

// SignupOTPEmail builds the registration verification message.
func SignupOTPEmail(firstName, code string) (string, string) {
	subject := "Verify your email"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>",
		firstName, code)
	return subject, body
}

// PasswordResetOTPEmail builds the password reset message.
func PasswordResetOTPEmail(firstName, code string) (string, string) {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Use the code <strong>%s</strong> to reset your password. It expires in 10 minutes.</p>",
		firstName, code)
	return subject, body
}

// UserInviteEmail builds the admin-created-account message carrying the
// generated password.
func UserInviteEmail(firstName, email, password string) (string, string) {
	subject := "Your account has been created"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>An account has been created for you.</p><p>Email: %s<br>Password: <strong>%s</strong></p><p>Please log in and change your password.</p>",
		firstName, email, password)
	return subject, body
}
