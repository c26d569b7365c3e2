package models

import "time"

type Post struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	BrandID       int64      `db:"brand_id" json:"brand_id"`
	Platform      string     `db:"platform" json:"platform"`
	PageID        int64      `db:"social_account_page_id" json:"page_id"`
	Content       string     `db:"content" json:"content"`
	Status        string     `db:"status" json:"status"` // draft, scheduled, published, failed
	URL           string     `db:"url" json:"url"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	PublishedAt   *time.Time `db:"published_at" json:"published_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	FileName     string    `db:"file_name"`
	FileType     string    `db:"file_type"`
	FileSize     int64     `db:"file_size"`
	FileURL      string    `db:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url"`
	CreatedAt    time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	PlatformLinkedin = "linkedin"
	PlatformReddit   = "reddit"
)
