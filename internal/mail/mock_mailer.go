package mail

import (
	"context"
	"errors"
	"sync"
)

// MockMailer records sent messages for tests.
type MockMailer struct {
	mu         sync.Mutex
	Sent       []Message
	ShouldFail bool
}

func (m *MockMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: send mail failed")
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Last returns the most recently sent message.
func (m *MockMailer) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return Message{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
