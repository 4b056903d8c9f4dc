package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	got    *mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.got = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func newTestMailer(s sender) *SendGridMailer {
	return &SendGridMailer{client: s, from: mail.NewEmail("UK Architects", "no-reply@x.com"), siteName: "UK Architects"}
}

func TestSendGridMailer_Send(t *testing.T) {
	fs := &fakeSender{status: 202}
	m := newTestMailer(fs)

	err := m.SendPasswordReset(context.Background(), "admin@x.com", "https://site/reset?token=abc")
	require.NoError(t, err)

	require.NotNil(t, fs.got)
	assert.Equal(t, "no-reply@x.com", fs.got.From.Address)
	require.Len(t, fs.got.Personalizations, 1)
	assert.Equal(t, "admin@x.com", fs.got.Personalizations[0].To[0].Address)
	require.NotEmpty(t, fs.got.Content)
	assert.True(t, strings.Contains(fs.got.Content[0].Value, "token=abc"))
}

func TestSendGridMailer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		sender *fakeSender
	}{
		{"transport error", &fakeSender{err: errors.New("dial tcp: timeout")}},
		{"rejected", &fakeSender{status: 401}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestMailer(tt.sender).SendPasswordReset(context.Background(), "a@x.com", "link")
			assert.Error(t, err)
		})
	}
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := &LogMailer{Log: zap.New(core)}

	require.NoError(t, m.SendPasswordReset(context.Background(), "a@x.com", "https://site/reset?token=abc"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://site/reset?token=abc", entries[0].ContextMap()["link"])
}
