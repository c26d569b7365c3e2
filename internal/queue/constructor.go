package queue

import (
	"github.com/ashwinm7/postdeck/internal/publish"
	"github.com/ashwinm7/postdeck/internal/repository"
)

type Queue struct {
	pr       repository.PostRepository
	pipeline *publish.Pipeline
}

func NewQueue(pr repository.PostRepository, pipeline *publish.Pipeline) *Queue {
	return &Queue{
		pr:       pr,
		pipeline: pipeline,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
