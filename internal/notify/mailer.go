package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// Mailer delivers out-of-band codes. Delivery is fire-and-forget from the
// auth flow's point of view: failures are logged by the caller, never
// surfaced to the client.
type Mailer interface {
	SendLoginOTP(ctx context.Context, to, code string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) SendLoginOTP(_ context.Context, to, code string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your login verification code\r\n\r\n"+
			"Your one-time login code is %s. It expires shortly; do not share it.\r\n",
		m.From, to, code))
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// LogMailer is the offline/dev stand-in: it prints the code instead of
// sending anything.
type LogMailer struct{}

func (LogMailer) SendLoginOTP(_ context.Context, to, code string) error {
	log.Printf("notify: login OTP for %s: %s", to, code)
	return nil
}
