package server

import (
	"context"
	"testing"
	"time"

	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/mail"
	"example.com/microblog/internal/store"
	"github.com/stretchr/testify/assert"
)

// TestServer_GracefulShutdown verifies that Run returns cleanly once its
// context is cancelled.
func TestServer_GracefulShutdown(t *testing.T) {
	// Use mock store and Kafka to avoid real dependencies
	mockStore := store.NewMock()
	mockKafka := &appkafka.MockKafka{}
	svc := newServices(mockStore, mockKafka, &mail.MockMailer{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, svc, Options{Addr: "127.0.0.1:0"})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
		mockStore.Close()
		assert.NoError(t, mockKafka.Close())
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shutdown gracefully within the expected time")
	}
}

func TestServer_ListenError(t *testing.T) {
	svc := newServices(store.NewMock(), &appkafka.MockKafka{}, &mail.MockMailer{})

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), svc, Options{Addr: "127.0.0.1:-1"})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not report the listen error")
	}
}
