package store

import (
	"context"
	"testing"
	"time"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_MessagesPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, m.AddMessage(ctx, &models.Message{SenderID: 1, RecipientID: 2, Body: body}))
	}

	page, cursor, err := m.Messages(ctx, 2, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "three", page[0].Body, "newest first")
	require.NotEmpty(t, cursor)

	page, cursor, err = m.Messages(ctx, 2, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].Body)
	assert.Empty(t, cursor)

	_, _, err = m.Messages(ctx, 2, "bogus", 2)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMockStore_NotificationReplacesByName(t *testing.T) {
	ctx := context.Background()
	m := NewMock()
	t0 := time.Now()

	require.NoError(t, m.PutNotification(ctx, models.Notification{AccountID: 1, Name: "unread_message_count", Payload: []byte("1"), Timestamp: t0}))
	require.NoError(t, m.PutNotification(ctx, models.Notification{AccountID: 1, Name: "unread_message_count", Payload: []byte("2"), Timestamp: t0.Add(time.Second)}))

	got, err := m.NotificationsSince(ctx, 1, t0.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, "2", string(got[0].Payload))
}

func TestMockStore_RunningTaskConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	require.NoError(t, m.CreateTask(ctx, &models.Task{ID: "a", Name: "export_posts", AccountID: 1}, nil))
	err := m.CreateTask(ctx, &models.Task{ID: "b", Name: "export_posts", AccountID: 1}, nil)
	assert.ErrorIs(t, err, common.ErrConflict)

	require.NoError(t, m.UpdateTaskProgress(ctx, "a", 100, true))
	assert.NoError(t, m.CreateTask(ctx, &models.Task{ID: "c", Name: "export_posts", AccountID: 1}, nil))
}

func TestMockStoreFail(t *testing.T) {
	m := NewMockFail()
	_, err := m.GlobalPosts(context.Background(), 10, 0)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}
