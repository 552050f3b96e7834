// Package mailer delivers verification codes.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// LogMailer writes codes to the log instead of sending them. Development only.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationCode(_ context.Context, to, code string, ttl time.Duration) error {
	m.logger.Infow("verification code (mail delivery disabled)", "to", to, "code", code, "ttl", ttl)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	send   sendFunc
	logger *zap.SugaredLogger
	cfg    SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.SugaredLogger) *SMTPMailer {
	return &SMTPMailer{send: smtp.SendMail, logger: logger, cfg: cfg}
}

func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, to, "Your verification code", fmt.Sprintf(
		"Your verification code is %s.\r\nIt expires in %s.\r\n\r\nIf you did not sign up, ignore this message.\r\n",
		code, ttl.Round(time.Second),
	))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("error sending verification mail to %s: %w", to, err)
	}

	m.logger.Infow("verification mail sent", "to", to)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		from, to, subject, body,
	))
}
