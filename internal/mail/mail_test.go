package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "user", "secret", "no-reply@example.com")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{To: "alice@example.com", Subject: "Reset", Body: "line1\nline2"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: Reset\r\n"))
	assert.True(t, strings.HasSuffix(string(gotMsg), "line1\r\nline2"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "", "", "me@example.com")
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	assert.Error(t, m.Send(context.Background(), Message{To: "x@example.com"}))
}

func TestMockMailer(t *testing.T) {
	m := &MockMailer{}
	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com"}))
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", last.To)

	m.ShouldFail = true
	assert.Error(t, m.Send(context.Background(), Message{}))
}
