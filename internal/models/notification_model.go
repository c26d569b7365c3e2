package models

import "time"

// Notification is append-only; nothing mutates a row after insert except the
// read flag.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Message   string    `db:"message" json:"message"`
	Metadata  []byte    `db:"metadata" json:"metadata"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	NotificationPostPublished = "POST_PUBLISHED"
	NotificationPostFailed    = "POST_FAILED"
)
