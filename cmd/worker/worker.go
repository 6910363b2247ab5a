package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"example.com/microblog/internal/blob"
	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/logger"
	"example.com/microblog/internal/mail"
	"example.com/microblog/internal/models"
	"example.com/microblog/internal/tasks"
	"github.com/segmentio/kafka-go"
)

var logg = logger.New()

const (
	defaultBatchSize = 100
	defaultURLTTL    = 24 * time.Hour
)

var errUnknownJob = errors.New("unknown job")

// PostSource reads the data an export needs.
type PostSource interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	CountAccountPosts(ctx context.Context, accountID int64) (int, error)
	AccountPostsAfter(ctx context.Context, accountID int64, afterCreated time.Time, afterID int64, limit int) ([]models.Post, error)
}

// TaskTracker reports task progress.
type TaskTracker interface {
	Get(ctx context.Context, id string) (*models.Task, error)
	SetProgress(ctx context.Context, task *models.Task, progress int) error
}

// Deps are the collaborators of export jobs.
type Deps struct {
	Posts     PostSource
	Tasks     TaskTracker
	Bucket    blob.Bucket
	Mailer    mail.Mailer
	URLTTL    time.Duration
	BatchSize int
}

// Worker consumes task jobs from Kafka and runs them concurrently.
type Worker struct {
	deps         Deps
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(deps Deps, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.URLTTL <= 0 {
		deps.URLTTL = defaultURLTTL
	}
	return &Worker{
		deps:         deps,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing. It returns once ctx
// is cancelled and every started job has finished.
func (w *Worker) Run(ctx context.Context) {
	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan kafka.Message, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- kafka.Message) {
	var retry int
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
			logg.Error("worker", "Kafka read error, backing off", err)
			if !waitWithContext(ctx, backoff) {
				return
			}
			retry++
			continue
		}
		retry = 0

		if len(msg.Value) == 0 {
			continue
		}

		select {
		case jobs <- msg:
			continue
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
			logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
		}
		select {
		case jobs <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// processLoop runs queued jobs until the queue is closed.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan kafka.Message) {
	for msg := range jobs {
		if err := w.handle(ctx, msg); err != nil {
			logg.Error("worker", "Job failed", err)
		}
	}
}

// handle decodes one queue message and runs the job it names.
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	job, err := appkafka.DecodeJob(msg)
	if err != nil {
		return err
	}

	switch job.Name {
	case tasks.NameExportPosts:
		return w.exportPosts(ctx, job)
	default:
		return fmt.Errorf("%w %q", errUnknownJob, job.Name)
	}
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down the Kafka reader.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}
	return nil
}
