package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/aac/internal/domain/repository"
)

// SMTPSender envía mails via SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "ssl" | "none"
	InsecureSkipVerify bool
}

// NewSMTPSender crea un sender con TLS en modo auto (STARTTLS si corresponde).
func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

func (s *SMTPSender) SendResetKey(_ context.Context, account *repository.Account, _ string, link string) error {
	subject := "Password reset"
	text := fmt.Sprintf("Hi %s,\n\nUse the link below to reset your password. The link is valid once and expires shortly.\n\n%s\n", account.Username, link)
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Use the link below to reset your password. The link is valid once and expires shortly.</p><p><a href=%q>%s</a></p>`, account.Username, link, link)
	return s.send(account.Email, subject, html, text)
}

func (s *SMTPSender) SendConfirmationKey(_ context.Context, account *repository.Account, _ string, link string) error {
	subject := "Confirm your account"
	text := fmt.Sprintf("Hi %s,\n\nConfirm your account by opening the link below.\n\n%s\n", account.Username, link)
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your account by opening the link below.</p><p><a href=%q>%s</a></p>`, account.Username, link, link)
	return s.send(account.Email, subject, html, text)
}

func (s *SMTPSender) send(to, subject, htmlBody, textBody string) error {
	if to == "" {
		return fmt.Errorf("account has no email address")
	}
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // sólo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	}
	return d.DialAndSend(m)
}
