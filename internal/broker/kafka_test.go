package appkafka

import (
	"context"
	"testing"

	"example.com/microblog/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndDecodeJob(t *testing.T) {
	mk := &MockKafka{}
	job := models.TaskJob{TaskID: "t-1", Name: "export_posts", AccountID: 7}

	require.NoError(t, PublishJob(context.Background(), mk, job))

	written := mk.Written()
	require.Len(t, written, 1)
	assert.Equal(t, []byte("t-1"), written[0].Key)

	got, err := DecodeJob(written[0])
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestDecodeJob_Malformed(t *testing.T) {
	_, err := DecodeJob(kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	_, err = DecodeJob(kafka.Message{Value: []byte(`{"task_id":"t"}`)})
	assert.Error(t, err)
}

func TestPublishJob_WriteFailure(t *testing.T) {
	err := PublishJob(context.Background(), &MockKafkaFail{}, models.TaskJob{TaskID: "t", Name: "n", AccountID: 1})
	assert.Error(t, err)
}

func TestMockKafka_ReadQueue(t *testing.T) {
	mk := &MockKafka{ReadMessages: []kafka.Message{{Value: []byte("a")}}}

	msg, err := mk.ReadMessage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), msg.Value)

	_, err = mk.ReadMessage(context.Background())
	assert.Error(t, err, "empty queue")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mk.ReadMessage(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
