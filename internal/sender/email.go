package sender

import (
	"gopkg.in/mail.v2"
)

// EmailClient sends plain-text notification mail over SMTP.
type EmailClient struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
}

func NewEmailClient(smtpHost string, smtpPort int, username, password, from string) *EmailClient {
	return &EmailClient{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
	}
}

func (c *EmailClient) Send(to, msg string) error {
	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Notification")
	m.SetBody("text/plain", msg)

	d := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)
	return d.DialAndSend(m)
}
