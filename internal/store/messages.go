package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
	"github.com/gocql/gocql"
)

// --- Message operations ---

// AddMessage stores msg in the recipient's inbox partition and fills in its
// time-based id and creation time.
func (c *Cassandra) AddMessage(ctx context.Context, msg *models.Message) error {
	id := gocql.TimeUUID()
	if err := c.Session.Query(`
		INSERT INTO messages_by_recipient (recipient_id, message_id, sender_id, sender_name, body)
		VALUES (?, ?, ?, ?, ?)`,
		msg.RecipientID, id, msg.SenderID, msg.SenderName, msg.Body,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store/cassandra", "Failed to add message", err)
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	msg.ID = id.String()
	msg.Created = id.Time()
	logg.Debug("store/cassandra", "Message stored (IDs and content anonymized)")
	return nil
}

// Messages returns one page of the recipient's inbox, newest first. cursor
// is the opaque value returned with the previous page, empty for the first.
// The returned cursor is empty when there are no more pages.
func (c *Cassandra) Messages(ctx context.Context, recipientID int64, cursor string, limit int) ([]models.Message, string, error) {
	state, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	// Setting a page state (even nil) disables automatic paging, so the
	// iterator stops at the end of this page.
	iter := c.Session.Query(`
		SELECT message_id, sender_id, sender_name, body
		FROM messages_by_recipient WHERE recipient_id = ?`,
		recipientID,
	).WithContext(ctx).PageSize(limit).PageState(state).Iter()

	next := iter.PageState()
	scanner := iter.Scanner()

	res := []models.Message{}
	for scanner.Next() {
		var (
			id     gocql.UUID
			sender int64
			name   string
			body   string
		)
		if err := scanner.Scan(&id, &sender, &name, &body); err != nil {
			return nil, "", fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
		}
		res = append(res, models.Message{
			ID:          id.String(),
			SenderID:    sender,
			SenderName:  name,
			RecipientID: recipientID,
			Body:        body,
			Created:     id.Time(),
		})
	}
	if err := scanner.Err(); err != nil {
		logg.Error("store/cassandra", "Failed to read inbox", err)
		return nil, "", fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	return res, encodeCursor(next), nil
}

// encodeCursor turns a gocql page state into an opaque URL-safe cursor.
// An exhausted iterator yields the empty cursor.
func encodeCursor(state []byte) string {
	if len(state) == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(state)
}

func decodeCursor(cursor string) ([]byte, error) {
	if cursor == "" {
		return nil, nil
	}
	state, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(state) == 0 {
		return nil, fmt.Errorf("%w: malformed cursor", common.ErrValidation)
	}
	return state, nil
}

// CountMessagesSince counts inbox messages created after since.
func (c *Cassandra) CountMessagesSince(ctx context.Context, recipientID int64, since time.Time) (int, error) {
	var n int
	if err := c.Session.Query(`
		SELECT COUNT(*) FROM messages_by_recipient
		WHERE recipient_id = ? AND message_id > maxTimeuuid(?)`,
		recipientID, since,
	).WithContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return n, nil
}

// --- Notification operations ---

// PutNotification writes n, replacing any notification of the same name.
func (c *Cassandra) PutNotification(ctx context.Context, n models.Notification) error {
	if err := c.Session.Query(`
		INSERT INTO notifications_by_account (account_id, name, payload, updated_at)
		VALUES (?, ?, ?, ?)`,
		n.AccountID, n.Name, string(n.Payload), n.Timestamp,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store/cassandra", "Failed to store notification", err)
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return nil
}

// NotificationsSince returns the account's notifications updated after
// since, oldest first.
func (c *Cassandra) NotificationsSince(ctx context.Context, accountID int64, since time.Time) ([]models.Notification, error) {
	iter := c.Session.Query(
		`SELECT name, payload, updated_at FROM notifications_by_account WHERE account_id = ?`,
		accountID,
	).WithContext(ctx).Iter()

	var (
		name    string
		payload string
		updated time.Time
	)
	var all []models.Notification
	for iter.Scan(&name, &payload, &updated) {
		all = append(all, models.Notification{
			AccountID: accountID,
			Name:      name,
			Payload:   []byte(payload),
			Timestamp: updated,
		})
	}
	if err := iter.Close(); err != nil {
		logg.Error("store/cassandra", "Failed to get notifications", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}
	return notificationsAfter(all, since), nil
}

// notificationsAfter keeps the notifications updated after since, oldest
// first.
func notificationsAfter(all []models.Notification, since time.Time) []models.Notification {
	res := []models.Notification{}
	for _, n := range all {
		if n.Timestamp.After(since) {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	return res
}
