package store

import (
	"context"

	"example.com/microblog/internal/dbx"
	"example.com/microblog/internal/models"
)

const taskColumns = `id, name, description, account_id, progress, complete, created_at`

// --- Task operations ---

// CreateTask inserts task and then calls onCreated inside the same
// transaction; an error from onCreated rolls the insert back. A second
// running task with the same name for the account yields common.ErrConflict.
func (p *Postgres) CreateTask(ctx context.Context, task *models.Task, onCreated func(ctx context.Context) error) error {
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO tasks (id, name, description, account_id)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at`,
			task.ID, task.Name, task.Description, task.AccountID,
		).Scan(&task.Created)
		if err != nil {
			return mapError(err)
		}
		if onCreated != nil {
			return onCreated(ctx)
		}
		return nil
	})
	if err != nil {
		logg.Error("store/postgres", "Failed to create task", err)
		return mapError(err)
	}
	return nil
}

func (p *Postgres) TaskByID(ctx context.Context, id string) (*models.Task, error) {
	task := &models.Task{}
	if err := p.db.GetContext(ctx, task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return task, nil
}

func (p *Postgres) TasksInProgress(ctx context.Context, accountID int64) ([]models.Task, error) {
	tasks := []models.Task{}
	err := p.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks WHERE account_id = $1 AND NOT complete ORDER BY created_at`,
		accountID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return tasks, nil
}

func (p *Postgres) UpdateTaskProgress(ctx context.Context, id string, progress int, complete bool) error {
	return p.updateOne(ctx, `UPDATE tasks SET progress = $2, complete = $3 WHERE id = $1`, id, progress, complete)
}
