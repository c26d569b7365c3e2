package publish

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
)

// OutcomeRecorder persists the terminal outcome of one publish attempt.
// Callers invoke it exactly once per attempt; it is not idempotent by itself.
type OutcomeRecorder interface {
	RecordSuccess(ctx context.Context, post *models.Post, res *Result, partialFailure string) error
	RecordFailure(ctx context.Context, post *models.Post, cause error) error
}

// Recorder writes the post status transition and the notification in a single
// transaction; a published post without its notification (or the reverse) is
// never observable.
type Recorder struct {
	db            *sql.DB
	posts         repository.PostRepository
	notifications repository.NotificationRepository
}

func NewRecorder(db *sql.DB, posts repository.PostRepository, notifications repository.NotificationRepository) *Recorder {
	return &Recorder{
		db:            db,
		posts:         posts,
		notifications: notifications,
	}
}

func (r *Recorder) RecordSuccess(ctx context.Context, post *models.Post, res *Result, partialFailure string) error {
	now := time.Now()

	meta := map[string]interface{}{
		"post_id":  post.ID,
		"platform": post.Platform,
		"post_url": res.ExternalURL,
	}
	if partialFailure != "" {
		meta["partial_failure"] = partialFailure
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if err := r.posts.MarkPublished(ctx, tx, post.ID, res.ExternalURL, now); err != nil {
		return err
	}

	_, err = r.notifications.Create(ctx, tx, &models.Notification{
		UserID:   post.UserID,
		Type:     models.NotificationPostPublished,
		Message:  fmt.Sprintf("Your post was published to %s", post.Platform),
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}

	post.Status = models.PostStatusPublished
	post.URL = res.ExternalURL
	post.PublishedAt = &now
	return nil
}

func (r *Recorder) RecordFailure(ctx context.Context, post *models.Post, cause error) error {
	meta := map[string]interface{}{
		"post_id":  post.ID,
		"platform": post.Platform,
		"error":    cause.Error(),
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if err := r.posts.MarkFailed(ctx, tx, post.ID); err != nil {
		return err
	}

	_, err = r.notifications.Create(ctx, tx, &models.Notification{
		UserID:   post.UserID,
		Type:     models.NotificationPostFailed,
		Message:  fmt.Sprintf("Publishing to %s failed", post.Platform),
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}

	post.Status = models.PostStatusFailed
	return nil
}
