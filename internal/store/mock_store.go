package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
	"github.com/google/uuid"
)

var errMockFail = fmt.Errorf("%w: mock failure", common.ErrStoreUnavailable)

type edge struct{ follower, followed int64 }

// MockStore simulates both the Postgres and the Cassandra store in memory
// for testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	Accounts      map[int64]*models.Account
	Follows       map[edge]struct{}
	Posts         []models.Post
	Tasks         map[string]*models.Task
	Inboxes       map[int64][]models.Message // newest first
	Notifications map[int64]map[string]models.Notification

	// Now stamps created rows; tests may pin it.
	Now        func() time.Time
	ShouldFail bool // flag to simulate failures

	nextAccountID int64
	nextPostID    int64
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Accounts:      make(map[int64]*models.Account),
		Follows:       make(map[edge]struct{}),
		Tasks:         make(map[string]*models.Task),
		Inboxes:       make(map[int64][]models.Message),
		Notifications: make(map[int64]map[string]models.Notification),
		Now:           time.Now,
	}
}

// NewMockFail returns a mock whose every operation fails as an unavailable store.
func NewMockFail() *MockStore {
	m := NewMock()
	m.ShouldFail = true
	return m
}

func (m *MockStore) Close() {}

// --- accounts ---

func (m *MockStore) CreateAccount(_ context.Context, acc *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	for _, a := range m.Accounts {
		if a.Username == acc.Username || a.Email == acc.Email {
			return nil, fmt.Errorf("%w: accounts", common.ErrConflict)
		}
	}
	m.nextAccountID++
	now := m.Now()
	acc.ID = m.nextAccountID
	acc.LastSeen = now
	acc.Created = now
	cp := *acc
	m.Accounts[acc.ID] = &cp
	return acc, nil
}

func (m *MockStore) AccountByID(_ context.Context, id int64) (*models.Account, error) {
	return m.findAccount(func(a *models.Account) bool { return a.ID == id })
}

func (m *MockStore) AccountByUsername(_ context.Context, username string) (*models.Account, error) {
	return m.findAccount(func(a *models.Account) bool { return a.Username == username })
}

func (m *MockStore) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	return m.findAccount(func(a *models.Account) bool { return a.Email == email })
}

func (m *MockStore) findAccount(match func(*models.Account) bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	for _, a := range m.Accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MockStore) UpdateProfile(_ context.Context, id int64, username, aboutMe string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	for _, a := range m.Accounts {
		if a.ID != id && a.Username == username {
			return fmt.Errorf("%w: accounts_username_key", common.ErrConflict)
		}
	}
	return m.updateAccount(id, func(a *models.Account) {
		a.Username = username
		a.AboutMe = aboutMe
	})
}

func (m *MockStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	return m.updateAccount(id, func(a *models.Account) { a.PasswordHash = passwordHash })
}

func (m *MockStore) TouchLastSeen(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	return m.updateAccount(id, func(a *models.Account) { a.LastSeen = at })
}

func (m *MockStore) MarkMessagesRead(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	return m.updateAccount(id, func(a *models.Account) { a.LastMessageReadTime = &at })
}

// updateAccount must be called with mu held.
func (m *MockStore) updateAccount(id int64, fn func(*models.Account)) error {
	a, ok := m.Accounts[id]
	if !ok {
		return common.ErrNotFound
	}
	fn(a)
	return nil
}

// --- follows & feeds ---

func (m *MockStore) InsertFollow(_ context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockFail
	}
	if m.Accounts[followerID] == nil || m.Accounts[followedID] == nil {
		return false, common.ErrNotFound
	}
	e := edge{followerID, followedID}
	if _, ok := m.Follows[e]; ok {
		return false, nil
	}
	m.Follows[e] = struct{}{}
	return true, nil
}

func (m *MockStore) DeleteFollow(_ context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockFail
	}
	if m.Accounts[followedID] == nil {
		return false, common.ErrNotFound
	}
	e := edge{followerID, followedID}
	if _, ok := m.Follows[e]; !ok {
		return false, nil
	}
	delete(m.Follows, e)
	return true, nil
}

func (m *MockStore) FollowExists(_ context.Context, followerID, followedID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errMockFail
	}
	_, ok := m.Follows[edge{followerID, followedID}]
	return ok, nil
}

func (m *MockStore) CountFollowers(_ context.Context, accountID int64) (int, error) {
	return m.countEdges(func(e edge) bool { return e.followed == accountID })
}

func (m *MockStore) CountFollowing(_ context.Context, accountID int64) (int, error) {
	return m.countEdges(func(e edge) bool { return e.follower == accountID })
}

func (m *MockStore) countEdges(match func(edge) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, errMockFail
	}
	n := 0
	for e := range m.Follows {
		if match(e) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) FeedPosts(_ context.Context, accountID int64, limit, offset int) ([]models.Post, error) {
	return m.selectPosts(limit, offset, func(p models.Post) bool {
		if p.AuthorID == accountID {
			return true
		}
		_, ok := m.Follows[edge{accountID, p.AuthorID}]
		return ok
	})
}

func (m *MockStore) GlobalPosts(_ context.Context, limit, offset int) ([]models.Post, error) {
	return m.selectPosts(limit, offset, func(models.Post) bool { return true })
}

func (m *MockStore) AccountPosts(_ context.Context, accountID int64, limit, offset int) ([]models.Post, error) {
	return m.selectPosts(limit, offset, func(p models.Post) bool { return p.AuthorID == accountID })
}

// selectPosts filters posts under mu and returns the requested window of the
// (created desc, id desc) order.
func (m *MockStore) selectPosts(limit, offset int, match func(models.Post) bool) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	res := []models.Post{}
	for _, p := range m.Posts {
		if match(p) {
			res = append(res, m.withAuthor(p))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Created.Equal(res[j].Created) {
			return res[i].Created.After(res[j].Created)
		}
		return res[i].ID > res[j].ID
	})
	return window(res, limit, offset), nil
}

func (m *MockStore) withAuthor(p models.Post) models.Post {
	if a, ok := m.Accounts[p.AuthorID]; ok {
		p.Author = a.Username
	}
	return p
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// --- posts ---

func (m *MockStore) CreatePost(_ context.Context, post *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	if m.Accounts[post.AuthorID] == nil {
		return nil, fmt.Errorf("%w: posts_account_id_fkey", common.ErrNotFound)
	}
	m.nextPostID++
	post.ID = m.nextPostID
	post.Created = m.Now()
	m.Posts = append(m.Posts, *post)
	return post, nil
}

// SearchPosts matches posts containing every word of query, case
// insensitively, newest id first.
func (m *MockStore) SearchPosts(_ context.Context, query string, limit, offset int) ([]models.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, 0, errMockFail
	}
	words := strings.Fields(strings.ToLower(query))
	res := []models.Post{}
	for _, p := range m.Posts {
		if len(words) > 0 && containsAll(strings.ToLower(p.Body), words) {
			res = append(res, m.withAuthor(p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return window(res, limit, offset), len(res), nil
}

func containsAll(body string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(body, w) {
			return false
		}
	}
	return true
}

func (m *MockStore) CountAccountPosts(_ context.Context, accountID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, errMockFail
	}
	n := 0
	for _, p := range m.Posts {
		if p.AuthorID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) AccountPostsAfter(_ context.Context, accountID int64, afterCreated time.Time, afterID int64, limit int) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	res := []models.Post{}
	for _, p := range m.Posts {
		if p.AuthorID != accountID {
			continue
		}
		if p.Created.After(afterCreated) || (p.Created.Equal(afterCreated) && p.ID > afterID) {
			res = append(res, m.withAuthor(p))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Created.Equal(res[j].Created) {
			return res[i].Created.Before(res[j].Created)
		}
		return res[i].ID < res[j].ID
	})
	return window(res, limit, 0), nil
}

// --- tasks ---

func (m *MockStore) CreateTask(ctx context.Context, task *models.Task, onCreated func(ctx context.Context) error) error {
	m.mu.Lock()
	if m.ShouldFail {
		m.mu.Unlock()
		return errMockFail
	}
	for _, t := range m.Tasks {
		if t.AccountID == task.AccountID && t.Name == task.Name && !t.Complete {
			m.mu.Unlock()
			return fmt.Errorf("%w: tasks_running_idx", common.ErrConflict)
		}
	}
	task.Created = m.Now()
	cp := *task
	m.Tasks[task.ID] = &cp
	m.mu.Unlock()

	if onCreated == nil {
		return nil
	}
	if err := onCreated(ctx); err != nil {
		m.mu.Lock()
		delete(m.Tasks, task.ID)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MockStore) TaskByID(_ context.Context, id string) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	t, ok := m.Tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockStore) TasksInProgress(_ context.Context, accountID int64) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	res := []models.Task{}
	for _, t := range m.Tasks {
		if t.AccountID == accountID && !t.Complete {
			res = append(res, *t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.Before(res[j].Created) })
	return res, nil
}

func (m *MockStore) UpdateTaskProgress(_ context.Context, id string, progress int, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	t, ok := m.Tasks[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Progress = progress
	t.Complete = complete
	return nil
}

// --- messages & notifications ---

func (m *MockStore) AddMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	msg.ID = uuid.NewString()
	msg.Created = m.Now()
	m.Inboxes[msg.RecipientID] = append([]models.Message{*msg}, m.Inboxes[msg.RecipientID]...)
	return nil
}

// Messages pages through the inbox; the cursor is the offset of the next page.
func (m *MockStore) Messages(_ context.Context, recipientID int64, cursor string, limit int) ([]models.Message, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, "", errMockFail
	}
	offset := 0
	if cursor != "" {
		var err error
		if offset, err = strconv.Atoi(cursor); err != nil || offset < 0 {
			return nil, "", fmt.Errorf("%w: malformed cursor", common.ErrValidation)
		}
	}
	inbox := m.Inboxes[recipientID]
	page := append([]models.Message{}, window(inbox, limit, offset)...)
	if offset+len(page) >= len(inbox) {
		return page, "", nil
	}
	return page, strconv.Itoa(offset + len(page)), nil
}

func (m *MockStore) CountMessagesSince(_ context.Context, recipientID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, errMockFail
	}
	n := 0
	for _, msg := range m.Inboxes[recipientID] {
		if msg.Created.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) PutNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockFail
	}
	if m.Notifications[n.AccountID] == nil {
		m.Notifications[n.AccountID] = make(map[string]models.Notification)
	}
	m.Notifications[n.AccountID][n.Name] = n
	return nil
}

func (m *MockStore) NotificationsSince(_ context.Context, accountID int64, since time.Time) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockFail
	}
	res := []models.Notification{}
	for _, n := range m.Notifications[accountID] {
		if n.Timestamp.After(since) {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	return res, nil
}

