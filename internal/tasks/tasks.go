// Package tasks tracks long-running background jobs per account and hands
// them to the job queue.
package tasks

import (
	"context"
	"errors"
	"fmt"

	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/common"
	"example.com/microblog/internal/logger"
	"example.com/microblog/internal/models"
	"github.com/google/uuid"
)

var logg = logger.New()

const (
	NameExportPosts = "export_posts"

	NotificationProgress = "task_progress"
)

type Store interface {
	CreateTask(ctx context.Context, task *models.Task, onCreated func(ctx context.Context) error) error
	TaskByID(ctx context.Context, id string) (*models.Task, error)
	TasksInProgress(ctx context.Context, accountID int64) ([]models.Task, error)
	UpdateTaskProgress(ctx context.Context, id string, progress int, complete bool) error
}

type Notifier interface {
	Notify(ctx context.Context, accountID int64, name string, payload any) error
}

type Service struct {
	store    Store
	queue    appkafka.KafkaWriter
	notifier Notifier
}

func NewService(st Store, queue appkafka.KafkaWriter, n Notifier) *Service {
	return &Service{store: st, queue: queue, notifier: n}
}

// LaunchExport starts an export of the account's posts. The task row and the
// queued job commit together; an export already running yields
// common.ErrConflict.
func (s *Service) LaunchExport(ctx context.Context, accountID int64, description string) (*models.Task, error) {
	return s.launch(ctx, accountID, NameExportPosts, description)
}

func (s *Service) launch(ctx context.Context, accountID int64, name, description string) (*models.Task, error) {
	task := &models.Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		AccountID:   accountID,
	}
	err := s.store.CreateTask(ctx, task, func(ctx context.Context) error {
		return appkafka.PublishJob(ctx, s.queue, models.TaskJob{
			TaskID:    task.ID,
			Name:      task.Name,
			AccountID: task.AccountID,
		})
	})
	if err != nil {
		if !errors.Is(err, common.ErrConflict) {
			logg.Error("tasks", "Failed to launch task "+name, err)
		}
		return nil, err
	}
	logg.Info("tasks", fmt.Sprintf("Launched task %s for account_id=%d", name, accountID))
	return task, nil
}

func (s *Service) InProgress(ctx context.Context, accountID int64) ([]models.Task, error) {
	return s.store.TasksInProgress(ctx, accountID)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.store.TaskByID(ctx, id)
}

// SetProgress records progress (0-100) and notifies the task owner.
// Reaching 100 completes the task.
func (s *Service) SetProgress(ctx context.Context, task *models.Task, progress int) error {
	progress = min(max(progress, 0), 100)
	complete := progress >= 100

	if err := s.store.UpdateTaskProgress(ctx, task.ID, progress, complete); err != nil {
		return err
	}
	task.Progress = progress
	task.Complete = complete

	return s.notifier.Notify(ctx, task.AccountID, NotificationProgress, map[string]any{
		"task_id":  task.ID,
		"progress": progress,
	})
}
