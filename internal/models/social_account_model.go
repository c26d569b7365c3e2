package models

import (
	"time"
)

type SocialAccount struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        string    `db:"platform" json:"platform"`
	AccountID       string    `db:"account_id" json:"account_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string    `db:"access_token" json:"-"`
	RefreshToken    string    `db:"refresh_token" json:"-"`
	TokenExpiresAt  time.Time `db:"token_expires_at" json:"token_expires_at"`
	AccountStatus   string    `db:"account_status" json:"account_status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SocialAccountPage is a sub-identity under a SocialAccount (a LinkedIn
// organization, a subreddit) holding its own credential. Expiry and refresh
// are evaluated per page, never inherited from the parent account.
type SocialAccountPage struct {
	ID             int64     `db:"id" json:"id"`
	AccountID      int64     `db:"social_account_id" json:"social_account_id"`
	Platform       string    `db:"platform" json:"platform"`
	PageID         string    `db:"page_id" json:"page_id"`
	PageKind       string    `db:"page_kind" json:"page_kind"` // organization, subreddit
	Name           string    `db:"name" json:"name"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PageKindOrganization = "organization"
	PageKindSubreddit    = "subreddit"
)
