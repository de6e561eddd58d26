package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"hms/internal/config"
	"hms/internal/utils/logger"
)

// Mailer sends the platform's transactional mail. Handlers depend on the
// interface so tests can capture sends without a relay.
type Mailer interface {
	SendVerificationMail(to, hospitalName, tenantID, token string) error
	SendCredentialsMail(to, hospitalName, email, password string) error
	SendStatusChangeMail(to, hospitalName, status string) error
	SendPasswordResetMail(to, token string) error
	SendWelcomeMail(to, firstName, username, password string) error
}

type SMTPMailer struct {
	cfg config.SMTPConfig
	url config.ServerConfig
	log *logger.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, server config.ServerConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, url: server, log: logger.New("Mailer")}
}

func (m *SMTPMailer) SendVerificationMail(to, hospitalName, tenantID, token string) error {
	link := fmt.Sprintf("%s/api/v1/hospitals/verify/%s/%s", m.url.PublicURL, tenantID, token)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"Your hospital registration has been received. Verify your email within 24 hours to continue:\r\n\r\n%s\r\n\r\n"+
			"If you did not register, ignore this mail.\r\n",
		hospitalName, link)
	return m.send(to, "Verify your hospital registration", body)
}

func (m *SMTPMailer) SendCredentialsMail(to, hospitalName, email, password string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"Your hospital has been verified. Sign in with the administrator account below and change the password on first login:\r\n\r\n"+
			"Email: %s\r\nPassword: %s\r\n",
		hospitalName, email, password)
	return m.send(to, "Your administrator credentials", body)
}

func (m *SMTPMailer) SendStatusChangeMail(to, hospitalName, status string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour hospital's status has changed to %s.\r\n", hospitalName, status)
	return m.send(to, fmt.Sprintf("Hospital status: %s", status), body)
}

func (m *SMTPMailer) SendPasswordResetMail(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.url.FrontendURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for this account. The link below expires in 10 minutes:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, ignore this mail.\r\n", link)
	return m.send(to, "Password reset", body)
}

func (m *SMTPMailer) SendWelcomeMail(to, firstName, username, password string) error {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"An account has been created for you:\r\n\r\nUsername: %s\r\nPassword: %s\r\n\r\n"+
			"You will be asked to change the password on first login.\r\n",
		firstName, username, password)
	return m.send(to, "Welcome", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return m.log.Error(fmt.Sprintf("sending %q to %s", subject, to), err)
	}
	m.log.Info("sent %q to %s", subject, to)
	return nil
}
