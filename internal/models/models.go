package models

import (
	"encoding/json"
	"time"
)

type Account struct {
	ID                  int64      `json:"id" db:"id"`
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email,omitempty" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	AboutMe             string     `json:"about_me" db:"about_me"`
	LastSeen            time.Time  `json:"last_seen" db:"last_seen"`
	LastMessageReadTime *time.Time `json:"-" db:"last_message_read_time"`
	Created             time.Time  `json:"created" db:"created_at"`
}

type Post struct {
	ID       int64     `json:"id" db:"id"`
	AuthorID int64     `json:"author_id" db:"account_id"`
	Author   string    `json:"author" db:"username"`
	Body     string    `json:"body" db:"body"`
	Language string    `json:"language,omitempty" db:"language"`
	Created  time.Time `json:"created" db:"created_at"`
}

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	FollowerID int64 `json:"follower_id" db:"follower_id"`
	FollowedID int64 `json:"followed_id" db:"followed_id"`
}

type Message struct {
	ID          string    `json:"id"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender"`
	RecipientID int64     `json:"recipient_id"`
	Body        string    `json:"body"`
	Created     time.Time `json:"created"`
}

type Notification struct {
	AccountID int64           `json:"-"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

type Task struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	Progress    int       `json:"progress" db:"progress"`
	Complete    bool      `json:"complete" db:"complete"`
	Created     time.Time `json:"created" db:"created_at"`
}

// TaskJob is the payload published to the job queue for a Task.
type TaskJob struct {
	TaskID    string `json:"task_id"`
	Name      string `json:"name"`
	AccountID int64  `json:"account_id"`
}

// Page is one window of an offset-paginated, ordered listing.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Page     int  `json:"page"`
	PageSize int  `json:"per_page"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
}

// SearchResult is a Page plus the total number of matches.
type SearchResult struct {
	Page[Post]
	Total int `json:"total"`
}
