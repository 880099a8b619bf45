package services

import (
	"gopkg.in/gomail.v2"

	"spendwise/internal/apperror"
)

type EmailService interface {
	SendEmail(to, subject, msg string) error
}

type emailService struct {
	from   string
	dialer *gomail.Dialer
}

func NewEmailService(host string, port int, username, password string) EmailService {
	return &emailService{
		from:   username,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

func (e *emailService) SendEmail(to, subject, msg string) error {
	if e.from == "" {
		return apperror.NewExternalServiceError("email delivery is not configured", nil)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", msg)

	if err := e.dialer.DialAndSend(m); err != nil {
		return apperror.NewExternalServiceError("failed to send email", err)
	}
	return nil
}
