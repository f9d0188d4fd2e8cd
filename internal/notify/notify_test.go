package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

var sample = models.Message{ID: 7, Name: "A", Email: "a@x.com", Subject: "S", Message: "M"}

func TestSubjectAndBody(t *testing.T) {
	require.Equal(t, "New Contact Message from A - S", Subject(sample))
	require.Equal(t, "Name: A\nEmail: a@x.com\nSubject: S\nMessage: M", Body(sample))
}

func TestSMTPNotifierBuild(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "owner@example.com", To: "owner@example.com"})
	require.NoError(t, err)

	msg, err := n.Build(sample)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	require.Contains(t, raw, "Subject: New Contact Message from A - S")
	require.Contains(t, raw, "Reply-To: <a@x.com>")
	require.True(t, strings.Contains(raw, "Message: M"), raw)
}

func TestSMTPNotifierSendError(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "owner@example.com", To: "owner@example.com"})
	require.NoError(t, err)
	n.send = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	err = n.NotifyContact(context.Background(), sample)
	require.ErrorContains(t, err, "connection refused")
}

func TestSMTPNotifierRejectsBadSender(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 2525, From: "not an address", To: "owner@example.com"})
	require.NoError(t, err)
	_, err = n.Build(sample)
	require.Error(t, err)
}

func TestFuncAndLogNotifier(t *testing.T) {
	var got models.Message
	f := Func(func(_ context.Context, m models.Message) error { got = m; return nil })
	require.NoError(t, f.NotifyContact(context.Background(), sample))
	require.Equal(t, sample, got)
	require.NoError(t, LogNotifier{}.NotifyContact(context.Background(), sample))
}
