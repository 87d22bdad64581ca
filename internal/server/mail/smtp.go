package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender configures a sender for the given relay. Empty username
// disables authentication, which suits local catch-all servers.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) SendVerification(ctx context.Context, to, username, link string) error {
	subject := "Confirm your email"
	body := fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nIf you did not register, ignore this message.\n",
		username, link)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, username, link string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. Open the link below to confirm:\n\n%s\n\nIf you did not request a reset, ignore this message.\n",
		username, link)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("mail error: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail error: %w", err)
	}
	return nil
}
