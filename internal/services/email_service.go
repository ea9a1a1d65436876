package services

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, name string) error
	SendTaskAssignedEmail(email, name, taskTitle string, dueDate time.Time) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService returns nil when no SMTP host is configured; callers
// treat a nil service as "email disabled".
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	if smtpHost == "" {
		return nil
	}
	return &emailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Taskflow!")

	body := fmt.Sprintf(`
		<h2>Welcome to Taskflow, %s!</h2>
		<p>Your account has been successfully created.</p>
		<p>Best regards,<br>The Taskflow Team</p>
	`, name)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendTaskAssignedEmail(email, name, taskTitle string, dueDate time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "You have been assigned a task")

	body := fmt.Sprintf(`
		<h2>Hi %s,</h2>
		<p>You have been assigned to task: <b>%s</b></p>
		<p>Due date: %s</p>
		<p>Best regards,<br>The Taskflow Team</p>
	`, name, taskTitle, dueDate.Format("2006-01-02 15:04"))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send assignment email: %w", err)
	}
	return nil
}
