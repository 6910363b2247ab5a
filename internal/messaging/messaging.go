// Package messaging delivers private messages between accounts and keeps
// per-account notifications such as the unread message count.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/logger"
	"example.com/microblog/internal/models"
)

var logg = logger.New()

const (
	NotificationUnreadCount = "unread_message_count"

	maxBodyLen   = 140
	defaultLimit = 25
	maxLimit     = 100
)

type AccountStore interface {
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	MarkMessagesRead(ctx context.Context, id int64, at time.Time) error
}

type MessageStore interface {
	AddMessage(ctx context.Context, msg *models.Message) error
	Messages(ctx context.Context, recipientID int64, cursor string, limit int) ([]models.Message, string, error)
	CountMessagesSince(ctx context.Context, recipientID int64, since time.Time) (int, error)
	PutNotification(ctx context.Context, n models.Notification) error
	NotificationsSince(ctx context.Context, accountID int64, since time.Time) ([]models.Notification, error)
}

type Service struct {
	accounts AccountStore
	messages MessageStore
	now      func() time.Time
}

func NewService(accounts AccountStore, messages MessageStore) *Service {
	return &Service{accounts: accounts, messages: messages, now: time.Now}
}

// Send delivers body from sender to the account named recipientUsername and
// refreshes the recipient's unread count.
func (s *Service) Send(ctx context.Context, sender *models.Account, recipientUsername, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxBodyLen {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", common.ErrValidation, maxBodyLen)
	}

	recipient, err := s.accounts.AccountByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:    sender.ID,
		SenderName:  sender.Username,
		RecipientID: recipient.ID,
		Body:        body,
	}
	if err := s.messages.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	n, err := s.UnreadCount(ctx, recipient)
	if err == nil {
		err = s.Notify(ctx, recipient.ID, NotificationUnreadCount, n)
	}
	if err != nil {
		// The message is stored; a stale counter heals on the next send or read.
		logg.Error("messaging", "Failed to refresh unread count", err)
	}
	return msg, nil
}

// Inbox returns one page of account's messages, newest first. Reading the
// first page marks every message read.
func (s *Service) Inbox(ctx context.Context, account *models.Account, cursor string, limit int) ([]models.Message, string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if cursor == "" {
		if err := s.accounts.MarkMessagesRead(ctx, account.ID, s.now().UTC()); err != nil {
			return nil, "", err
		}
		if err := s.Notify(ctx, account.ID, NotificationUnreadCount, 0); err != nil {
			return nil, "", err
		}
	}
	return s.messages.Messages(ctx, account.ID, cursor, limit)
}

// UnreadCount counts messages received after the account last read its inbox.
func (s *Service) UnreadCount(ctx context.Context, account *models.Account) (int, error) {
	since := time.Unix(0, 0).UTC()
	if account.LastMessageReadTime != nil {
		since = *account.LastMessageReadTime
	}
	return s.messages.CountMessagesSince(ctx, account.ID, since)
}

// Notify sets the notification called name to payload, replacing any
// previous value.
func (s *Service) Notify(ctx context.Context, accountID int64, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: notification payload: %w", common.ErrValidation, err)
	}
	return s.messages.PutNotification(ctx, models.Notification{
		AccountID: accountID,
		Name:      name,
		Payload:   data,
		Timestamp: s.now().UTC(),
	})
}

// Notifications returns the notifications changed after since, oldest first.
func (s *Service) Notifications(ctx context.Context, accountID int64, since time.Time) ([]models.Notification, error) {
	return s.messages.NotificationsSince(ctx, accountID, since)
}
