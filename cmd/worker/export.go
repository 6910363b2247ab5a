package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/microblog/internal/i18n"
	"example.com/microblog/internal/mail"
	"example.com/microblog/internal/models"
)

type exportEntry struct {
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

type exportDocument struct {
	Posts []exportEntry `json:"posts"`
}

func exportKey(accountID int64, taskID string) string {
	return fmt.Sprintf("exports/%d/%s.json", accountID, taskID)
}

// exportPosts collects the account's posts oldest first, uploads them as a
// JSON document and mails a download link. The task always ends at 100%.
func (w *Worker) exportPosts(ctx context.Context, job models.TaskJob) (err error) {
	task, err := w.deps.Tasks.Get(ctx, job.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.Complete {
		logg.Info("worker", "Export task already complete, skipping redelivery")
		return nil
	}

	defer func() {
		if perr := w.deps.Tasks.SetProgress(context.WithoutCancel(ctx), task, 100); perr != nil {
			logg.Error("worker", "Failed to complete export task", perr)
		}
		if err != nil {
			err = fmt.Errorf("export posts: %w", err)
		}
	}()

	acc, err := w.deps.Posts.AccountByID(ctx, job.AccountID)
	if err != nil {
		return err
	}
	total, err := w.deps.Posts.CountAccountPosts(ctx, acc.ID)
	if err != nil {
		return err
	}

	doc := exportDocument{Posts: make([]exportEntry, 0, total)}
	var (
		afterCreated time.Time
		afterID      int64
	)
	for {
		batch, err := w.deps.Posts.AccountPostsAfter(ctx, acc.ID, afterCreated, afterID, w.deps.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			doc.Posts = append(doc.Posts, exportEntry{
				Body:      p.Body,
				Timestamp: p.Created.UTC().Format(time.RFC3339),
			})
		}
		last := batch[len(batch)-1]
		afterCreated, afterID = last.Created, last.ID

		if total > 0 {
			// 100 is reserved for the final update.
			progress := min(100*len(doc.Posts)/total, 99)
			if err := w.deps.Tasks.SetProgress(ctx, task, progress); err != nil {
				logg.Warn("worker", "Failed to report export progress: "+err.Error())
			}
		}
		if len(batch) < w.deps.BatchSize {
			break
		}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}

	key := exportKey(acc.ID, task.ID)
	if err := w.deps.Bucket.Put(ctx, key, data, "application/json"); err != nil {
		return err
	}
	link, err := w.deps.Bucket.PresignGet(ctx, key, w.deps.URLTTL)
	if err != nil {
		return err
	}

	if err := w.deps.Mailer.Send(ctx, mail.Message{
		To:      acc.Email,
		Subject: i18n.T(ctx, i18n.MsgExportMailSubject),
		Body:    i18n.T(ctx, i18n.MsgExportMailBody, acc.Username, link, w.deps.URLTTL.String()),
	}); err != nil {
		return err
	}

	logg.Info("worker", fmt.Sprintf("Exported %d posts for account_id=%d", len(doc.Posts), acc.ID))
	return nil
}
