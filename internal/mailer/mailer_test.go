package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPMailer_SendVerificationCode(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "bot",
		Password: "pw",
		From:     "noreply@example.com",
	}, zap.NewNop().Sugar())

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(msg), a
		return nil
	}

	require.NoError(t, m.SendVerificationCode(context.Background(), "a@b.com", "012345", 30*time.Second))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@b.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.Contains(t, gotMsg, "To: a@b.com\r\n")
	assert.Contains(t, gotMsg, "012345")
	assert.Contains(t, gotMsg, "30s")
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25"}, zap.NewNop().Sugar())
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.SendVerificationCode(context.Background(), "a@b.com", "012345", time.Minute)
	assert.ErrorContains(t, err, "connection refused")

	err = m.SendVerificationCode(context.Background(), "a@b.com\r\nBcc: x@y.z", "012345", time.Minute)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendVerificationCode(ctx, "a@b.com", "012345", time.Minute), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(zap.NewNop().Sugar()).SendVerificationCode(context.Background(), "a@b.com", "1", time.Second))
}
