package store

import (
	"context"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/dbx"
	"example.com/microblog/internal/models"
	"github.com/jmoiron/sqlx"
)

const postColumns = `p.id, p.account_id, a.username, p.body, p.language, p.created_at`

// --- Follow operations ---

// InsertFollow adds the edge follower -> followed unless it already exists.
func (p *Postgres) InsertFollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	var added bool
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := requireAccounts(ctx, tx, followerID, followedID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO follows (follower_id, followed_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			followerID, followedID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		added = n == 1
		return nil
	})
	if err != nil {
		logg.Error("store/postgres", "Failed to create follow relationship", err)
		return false, mapError(err)
	}

	logg.Debug("store/postgres", "Follow relationship stored (account IDs anonymized)")
	return added, nil
}

// DeleteFollow removes the edge follower -> followed if present.
func (p *Postgres) DeleteFollow(ctx context.Context, followerID, followedID int64) (bool, error) {
	var removed bool
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := requireAccounts(ctx, tx, followedID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
			followerID, followedID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n == 1
		return nil
	})
	if err != nil {
		logg.Error("store/postgres", "Failed to delete follow relationship", err)
		return false, mapError(err)
	}
	return removed, nil
}

func (p *Postgres) FollowExists(ctx context.Context, followerID, followedID int64) (bool, error) {
	var ok bool
	err := p.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID,
	)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (p *Postgres) CountFollowers(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE followed_id = $1`, accountID); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (p *Postgres) CountFollowing(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE follower_id = $1`, accountID); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// --- Feed queries ---

// FeedPosts selects the account's own posts and the posts of everyone it
// follows in one statement. The EXISTS semi-join yields each post at most
// once even when both conditions hold.
func (p *Postgres) FeedPosts(ctx context.Context, accountID int64, limit, offset int) ([]models.Post, error) {
	posts := []models.Post{}
	err := p.db.SelectContext(ctx, &posts, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.account_id = $1
		   OR EXISTS (
		       SELECT 1 FROM follows f
		       WHERE f.follower_id = $1 AND f.followed_id = p.account_id
		   )
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		logg.Error("store/postgres", "Failed to retrieve feed", err)
		return nil, mapError(err)
	}
	return posts, nil
}

func (p *Postgres) GlobalPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	posts := []models.Post{}
	err := p.db.SelectContext(ctx, &posts, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		logg.Error("store/postgres", "Failed to retrieve global feed", err)
		return nil, mapError(err)
	}
	return posts, nil
}

func (p *Postgres) AccountPosts(ctx context.Context, accountID int64, limit, offset int) ([]models.Post, error) {
	posts := []models.Post{}
	err := p.db.SelectContext(ctx, &posts, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.account_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return posts, nil
}

// requireAccounts fails with common.ErrNotFound unless every id exists.
func requireAccounts(ctx context.Context, tx dbx.DBTX, ids ...int64) error {
	want := map[int64]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}

	query, args, err := sqlx.In(`SELECT COUNT(*) FROM accounts WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(query), args...); err != nil {
		return err
	}
	if n != len(want) {
		return common.ErrNotFound
	}
	return nil
}
