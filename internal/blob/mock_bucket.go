package blob

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockBucket keeps objects in memory and returns fake download links.
type MockBucket struct {
	mu         sync.Mutex
	Objects    map[string][]byte
	ShouldFail bool
}

func NewMockBucket() *MockBucket {
	return &MockBucket{Objects: make(map[string][]byte)}
}

func (m *MockBucket) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: put object failed")
	}
	m.Objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MockBucket) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Objects[key]; !ok {
		return "", errors.New("mock: no such key")
	}
	return "https://mock-bucket.local/" + key + "?expires=" + ttl.String(), nil
}

func (m *MockBucket) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	return data, ok
}
