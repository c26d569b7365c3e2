package publish

import (
	"context"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "IMAGE"
	MediaKindVideo MediaKind = "VIDEO"
)

// FailurePolicy decides what a failed media transfer does to the attempt.
type FailurePolicy int

const (
	// FailurePolicyHard fails the whole publish.
	FailurePolicyHard FailurePolicy = iota
	// FailurePolicyDegrade publishes text-only and surfaces the transfer
	// error as partial_failure in the outcome metadata.
	FailurePolicyDegrade
)

// Credentials is a materialized, decrypted credential bound to the identity
// the post is published as.
type Credentials struct {
	AccessToken    string
	AuthorIdentity string // platform-native subject: member id, org id, subreddit name
	AuthorUsername string // handle for platforms that address profiles by name
	AccountID      int64  // social account row backing the token
	PageID         int64  // nonzero when publishing as a page
}

// AssetReference is the platform-native handle to uploaded media. For
// platforms that cannot ingest bytes it carries the hosted URL instead of
// an ID.
type AssetReference struct {
	ID   string
	URL  string
	Kind MediaKind
}

type Result struct {
	ExternalID  string
	ExternalURL string
}

type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Adapter is the per-platform half of the publish pipeline. Account
// resolution, token materialization and outcome recording are shared; an
// adapter contributes media validation/transfer, the publish call, and the
// token refresh round-trip.
type Adapter interface {
	Platform() string
	MediaFailurePolicy() FailurePolicy
	ValidateMedia(asset *models.MediaAsset, kind MediaKind) error
	UploadMedia(ctx context.Context, asset *models.MediaAsset, kind MediaKind, creds *Credentials) (*AssetReference, error)
	Publish(ctx context.Context, post *models.Post, creds *Credentials, ref *AssetReference) (*Result, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// Registry maps platform keys to adapters. Adding a platform is a new
// adapter plus one registration, not an edit to shared conditionals.
type Registry map[string]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[a.Platform()] = a
	}
	return r
}

func (r Registry) Get(platform string) (Adapter, bool) {
	a, ok := r[platform]
	return a, ok
}
