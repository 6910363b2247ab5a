// Package graph maintains the follow edge set between accounts and answers
// feed queries over it.
//
// A post belongs to an account's feed when the account wrote it or follows
// its author. Feeds are ordered newest first with ties broken by descending
// post id, which gives a total order that offset pagination can rely on.
package graph

import (
	"context"
	"errors"
	"fmt"
	"math"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Store is the persistence contract of the graph. Every method is one atomic
// unit of work against the backing store.
type Store interface {
	// InsertFollow adds the edge if absent and reports whether it was added.
	// It returns common.ErrNotFound when either account does not exist.
	InsertFollow(ctx context.Context, followerID, followedID int64) (bool, error)
	// DeleteFollow removes the edge if present and reports whether it was
	// removed. It returns common.ErrNotFound when followedID does not exist.
	DeleteFollow(ctx context.Context, followerID, followedID int64) (bool, error)
	FollowExists(ctx context.Context, followerID, followedID int64) (bool, error)
	CountFollowers(ctx context.Context, accountID int64) (int, error)
	CountFollowing(ctx context.Context, accountID int64) (int, error)

	// FeedPosts returns up to limit posts written by accountID or by accounts
	// it follows, skipping offset rows of the (created desc, id desc) order.
	FeedPosts(ctx context.Context, accountID int64, limit, offset int) ([]models.Post, error)
	GlobalPosts(ctx context.Context, limit, offset int) ([]models.Post, error)
	AccountPosts(ctx context.Context, accountID int64, limit, offset int) ([]models.Post, error)
}

type Service struct {
	store           Store
	defaultPageSize int
}

// NewService returns a Service over st. A non-positive defaultPageSize
// selects DefaultPageSize.
func NewService(st Store, defaultPageSize int) *Service {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > MaxPageSize {
		defaultPageSize = MaxPageSize
	}
	return &Service{store: st, defaultPageSize: defaultPageSize}
}

// Follow makes actor follow target. Following an already followed account
// succeeds without changes.
func (s *Service) Follow(ctx context.Context, actor, target int64) error {
	if actor == target {
		return fmt.Errorf("%w: cannot follow yourself", common.ErrInvalidOperation)
	}
	if _, err := s.store.InsertFollow(ctx, actor, target); err != nil {
		return storeError(err)
	}
	return nil
}

// Unfollow removes the edge from actor to target if it exists.
func (s *Service) Unfollow(ctx context.Context, actor, target int64) error {
	if actor == target {
		return fmt.Errorf("%w: cannot unfollow yourself", common.ErrInvalidOperation)
	}
	if _, err := s.store.DeleteFollow(ctx, actor, target); err != nil {
		return storeError(err)
	}
	return nil
}

func (s *Service) IsFollowing(ctx context.Context, actor, target int64) (bool, error) {
	ok, err := s.store.FollowExists(ctx, actor, target)
	if err != nil {
		return false, storeError(err)
	}
	return ok, nil
}

func (s *Service) FollowerCount(ctx context.Context, account int64) (int, error) {
	n, err := s.store.CountFollowers(ctx, account)
	if err != nil {
		return 0, storeError(err)
	}
	return n, nil
}

func (s *Service) FollowingCount(ctx context.Context, account int64) (int, error) {
	n, err := s.store.CountFollowing(ctx, account)
	if err != nil {
		return 0, storeError(err)
	}
	return n, nil
}

// Feed returns one page of the account's own posts and the posts of the
// accounts it follows.
func (s *Service) Feed(ctx context.Context, account int64, page, pageSize int) (models.Page[models.Post], error) {
	return s.paginate(page, pageSize, func(limit, offset int) ([]models.Post, error) {
		return s.store.FeedPosts(ctx, account, limit, offset)
	})
}

// GlobalFeed returns one page of all posts.
func (s *Service) GlobalFeed(ctx context.Context, page, pageSize int) (models.Page[models.Post], error) {
	return s.paginate(page, pageSize, func(limit, offset int) ([]models.Post, error) {
		return s.store.GlobalPosts(ctx, limit, offset)
	})
}

// AccountPosts returns one page of the posts written by account.
func (s *Service) AccountPosts(ctx context.Context, account int64, page, pageSize int) (models.Page[models.Post], error) {
	return s.paginate(page, pageSize, func(limit, offset int) ([]models.Post, error) {
		return s.store.AccountPosts(ctx, account, limit, offset)
	})
}

// Window clamps page and pageSize to their valid ranges.
func (s *Service) Window(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return ClampPage(page, pageSize), pageSize
}

// ClampPage caps page so that page*pageSize+1 fits in an int. Pages past the
// cap are empty for any store that fits in memory. pageSize must be positive.
func ClampPage(page, pageSize int) int {
	if limit := (math.MaxInt - 1) / pageSize; page > limit {
		return limit
	}
	return page
}

// paginate fetches one row past the window to learn whether a next page
// exists without a separate count query.
func (s *Service) paginate(page, pageSize int, fetch func(limit, offset int) ([]models.Post, error)) (models.Page[models.Post], error) {
	page, pageSize = s.Window(page, pageSize)

	rows, err := fetch(pageSize+1, (page-1)*pageSize)
	if err != nil {
		return models.Page[models.Post]{}, storeError(err)
	}

	res := models.Page[models.Post]{
		Items:    rows,
		Page:     page,
		PageSize: pageSize,
	}
	if len(rows) > pageSize {
		res.Items = rows[:pageSize]
		res.HasNext = true
	}
	if res.Items == nil {
		res.Items = []models.Post{}
	}
	res.HasPrev = page > 1 && len(res.Items) > 0
	return res, nil
}

// storeError passes sentinel errors through and marks everything else as an
// unavailable store, keeping the cause in the chain.
func storeError(err error) error {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
