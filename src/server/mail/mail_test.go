package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/tools/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	failures int
	sent     []*mailer.Message
	calls    int
}

func (f *fakeMailer) Send(m *mailer.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	f.sent = append(f.sent, m)
	return nil
}

func newTestSender(m mailer.Mailer) *SMTPSender {
	s := newSMTPSender(m, "Quiz Master <admin@123.com>")
	s.delay = time.Millisecond
	return s
}

func TestSMTPSender_Send(t *testing.T) {
	fake := &fakeMailer{}
	s := newTestSender(fake)

	ok := s.Send(context.Background(), Message{
		To:      []string{"ann@example.com", "not an address"},
		Subject: "Hello",
		Text:    "body",
	})
	require.True(t, ok)
	require.Len(t, fake.sent, 1)

	got := fake.sent[0]
	assert.Equal(t, "admin@123.com", got.From.Address)
	assert.Equal(t, "Quiz Master", got.From.Name)
	require.Len(t, got.To, 1)
	assert.Equal(t, "ann@example.com", got.To[0].Address)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "body", got.Text)
}

func TestSMTPSender_RetriesTransientFailures(t *testing.T) {
	fake := &fakeMailer{failures: 2}
	s := newTestSender(fake)

	assert.True(t, s.Send(context.Background(), Message{To: []string{"ann@example.com"}}))
	assert.Equal(t, 3, fake.calls)
}

func TestSMTPSender_GivesUp(t *testing.T) {
	fake := &fakeMailer{failures: 10}
	s := newTestSender(fake)

	assert.False(t, s.Send(context.Background(), Message{To: []string{"ann@example.com"}}))
	assert.Equal(t, 3, fake.calls)
}

func TestSMTPSender_NoRecipients(t *testing.T) {
	fake := &fakeMailer{}
	s := newTestSender(fake)

	assert.False(t, s.Send(context.Background(), Message{To: []string{"???"}}))
	assert.Zero(t, fake.calls)
}

func TestNewSender(t *testing.T) {
	assert.IsType(t, LogSender{}, NewSender(Config{}))
	assert.IsType(t, &SMTPSender{}, NewSender(Config{Host: "localhost", Port: 1025, From: "admin@123.com"}))
	assert.True(t, LogSender{}.Send(context.Background(), Message{To: []string{"x@example.com"}}))
}
