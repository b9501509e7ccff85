package services

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends one message with a plain-text body and an HTML alternative.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) Mailer {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func otpEmail(fullName, code string, ttlMinutes int) (subject, htmlBody, textBody string) {
	subject = "Your CESDE verification code"
	htmlBody = fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>Your verification code is:</p>
		<p style="font-size:28px;letter-spacing:6px;"><strong>%s</strong></p>
		<p>The code expires in %d minutes.</p>
		<p>Do not share this code with anyone. CESDE staff will never ask for it.</p>
	`, fullName, code, ttlMinutes)
	textBody = fmt.Sprintf(
		"Hello %s,\n\nYour verification code is: %s\nThe code expires in %d minutes.\nDo not share this code with anyone.\n",
		fullName, code, ttlMinutes,
	)
	return subject, htmlBody, textBody
}
