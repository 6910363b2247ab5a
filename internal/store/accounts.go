package store

import (
	"context"
	"time"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
)

const accountColumns = `id, username, email, password_hash, about_me, last_seen, last_message_read_time, created_at`

// --- Account operations ---

// CreateAccount inserts a new account. Duplicate usernames or emails yield
// common.ErrConflict.
func (p *Postgres) CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO accounts (username, email, password_hash, about_me)
		VALUES ($1, $2, $3, $4)
		RETURNING id, last_seen, created_at`,
		acc.Username, acc.Email, acc.PasswordHash, acc.AboutMe,
	).Scan(&acc.ID, &acc.LastSeen, &acc.Created)
	if err != nil {
		logg.Error("store/postgres", "Failed to create account", err)
		return nil, mapError(err)
	}

	logg.Info("store/postgres", "Account created (username anonymized)")
	return acc, nil
}

func (p *Postgres) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return p.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (p *Postgres) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return p.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (p *Postgres) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return p.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (p *Postgres) getAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	acc := &models.Account{}
	if err := p.db.GetContext(ctx, acc, query, arg); err != nil {
		return nil, mapError(err)
	}
	return acc, nil
}

func (p *Postgres) UpdateProfile(ctx context.Context, id int64, username, aboutMe string) error {
	return p.updateOne(ctx, `UPDATE accounts SET username = $2, about_me = $3 WHERE id = $1`, id, username, aboutMe)
}

func (p *Postgres) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return p.updateOne(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (p *Postgres) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	return p.updateOne(ctx, `UPDATE accounts SET last_seen = $2 WHERE id = $1`, id, at)
}

func (p *Postgres) MarkMessagesRead(ctx context.Context, id int64, at time.Time) error {
	return p.updateOne(ctx, `UPDATE accounts SET last_message_read_time = $2 WHERE id = $1`, id, at)
}

// updateOne runs an UPDATE that must hit exactly one account row.
func (p *Postgres) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
