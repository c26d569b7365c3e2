package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// Outcomes are recorded inside the pipeline; an error here is
	// infrastructure trouble, not a publish rejection, so asynq may retry.
	return j.pipeline.Publish(ctx, payload.PostID)
}

// PublishDue sweeps posts whose scheduled time has passed but whose queue
// task was lost, for example across a redis flush. Posts already in a
// terminal state are skipped by the pipeline, so overlap with enqueued
// tasks is harmless.
func (j *Queue) PublishDue() error {
	ctx := context.Background()

	posts, err := j.pr.ListDueScheduled(ctx, time.Now())
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10) // Concurrency limit

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(postID int64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.pipeline.Publish(ctx, postID); err != nil {
				log.Printf("Error publishing PostID %d: %v", postID, err)
			}
		}(post.ID)
	}

	wg.Wait()
	return nil
}
