package store

import (
	"context"
	"time"

	"example.com/microblog/internal/models"
)

// --- Post operations ---

// CreatePost stores post and fills in its id and creation time.
func (p *Postgres) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO posts (account_id, body, language)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		post.AuthorID, post.Body, post.Language,
	).Scan(&post.ID, &post.Created)
	if err != nil {
		logg.Error("store/postgres", "Failed to add post", err)
		return nil, mapError(err)
	}

	logg.Debug("store/postgres", "Post added (post content anonymized)")
	return post, nil
}

// SearchPosts runs a full-text match of query over post bodies, best match
// first, and also returns the total number of matches.
func (p *Postgres) SearchPosts(ctx context.Context, query string, limit, offset int) ([]models.Post, int, error) {
	var total int
	err := p.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM posts WHERE search_vector @@ plainto_tsquery('simple', $1)`,
		query,
	)
	if err != nil {
		return nil, 0, mapError(err)
	}
	if total == 0 {
		return []models.Post{}, 0, nil
	}

	posts := []models.Post{}
	err = p.db.SelectContext(ctx, &posts, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.search_vector @@ plainto_tsquery('simple', $1)
		ORDER BY ts_rank(p.search_vector, plainto_tsquery('simple', $1)) DESC, p.id DESC
		LIMIT $2 OFFSET $3`,
		query, limit, offset,
	)
	if err != nil {
		logg.Error("store/postgres", "Failed to search posts", err)
		return nil, 0, mapError(err)
	}
	return posts, total, nil
}

func (p *Postgres) CountAccountPosts(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE account_id = $1`, accountID); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// AccountPostsAfter returns up to limit posts of the account, oldest first,
// that come strictly after the (afterCreated, afterID) position.
func (p *Postgres) AccountPostsAfter(ctx context.Context, accountID int64, afterCreated time.Time, afterID int64, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	err := p.db.SelectContext(ctx, &posts, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.account_id = $1 AND (p.created_at, p.id) > ($2, $3)
		ORDER BY p.created_at ASC, p.id ASC
		LIMIT $4`,
		accountID, afterCreated, afterID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return posts, nil
}
