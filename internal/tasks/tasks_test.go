package tasks

import (
	"context"
	"testing"
	"time"

	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/common"
	"example.com/microblog/internal/messaging"
	"example.com/microblog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(queue appkafka.KafkaWriter) (*Service, *store.MockStore) {
	st := store.NewMock()
	return NewService(st, queue, messaging.NewService(st, st)), st
}

func TestLaunchExport(t *testing.T) {
	ctx := context.Background()
	mk := &appkafka.MockKafka{}
	svc, _ := newService(mk)

	task, err := svc.LaunchExport(ctx, 1, "Exporting posts...")
	require.NoError(t, err)
	assert.Equal(t, NameExportPosts, task.Name)

	written := mk.Written()
	require.Len(t, written, 1)
	job, err := appkafka.DecodeJob(written[0])
	require.NoError(t, err)
	assert.Equal(t, task.ID, job.TaskID)
	assert.Equal(t, int64(1), job.AccountID)

	_, err = svc.LaunchExport(ctx, 1, "again")
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Len(t, mk.Written(), 1, "a rejected launch publishes nothing")

	running, err := svc.InProgress(ctx, 1)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, task.ID, running[0].ID)
}

func TestLaunchExport_PublishFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(&appkafka.MockKafkaFail{})

	_, err := svc.LaunchExport(ctx, 1, "")
	require.Error(t, err)

	running, err := svc.InProgress(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestSetProgress(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(&appkafka.MockKafka{})
	task, err := svc.LaunchExport(ctx, 1, "")
	require.NoError(t, err)

	require.NoError(t, svc.SetProgress(ctx, task, 40))
	got, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.False(t, got.Complete)

	ns, err := st.NotificationsSince(ctx, 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.JSONEq(t, `{"task_id":"`+task.ID+`","progress":40}`, string(ns[0].Payload))

	require.NoError(t, svc.SetProgress(ctx, task, 150))
	got, err = svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	assert.True(t, got.Complete)

	running, err := svc.InProgress(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, running)
}
