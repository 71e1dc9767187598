package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSMTPMailer(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m := &smtpMailer{
		cfg: SMTPConfig{Host: "smtp.example.com", Port: 587, From: "blog@example.com"},
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			assert.Nil(t, a)
			return nil
		},
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Hi", Body: "line1\nline2"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: blog@example.com\r\n"))
	assert.Contains(t, gotMsg, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline1\r\nline2"))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, m.Send(context.Background(), Message{To: "ada@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{}), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLog(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Reset", Body: "link"}))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "outgoing mail", entry.Message)
	assert.Equal(t, "ada@example.com", entry.ContextMap()["to"])
}
