package email

import (
	"fmt"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

func (e *EmailService) SendVerificationEmail(to, token string) error {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}

	verificationLink := fmt.Sprintf("%s/auth/confirm/%s", domain, token)

	subject := "Confirm your email - HackerThink"
	body := fmt.Sprintf(`
Hi!

Thanks for signing up to HackerThink.

To confirm your email and activate your account, open the link below:

%s

If you did not sign up to HackerThink, ignore this email.

---
HackerThink
`, verificationLink)

	return e.send(to, subject, body)
}

// SendModerationEmail informs a user about a moderation action taken
// against their account (ban, unban).
func (e *EmailService) SendModerationEmail(to, note string) error {
	subject := "Moderation notice - HackerThink"
	body := fmt.Sprintf(`
Hi,

%s

If you believe this was a mistake, reply to this email.

---
HackerThink
`, note)

	return e.send(to, subject, body)
}

func (e *EmailService) send(to, subject, body string) error {
	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}
