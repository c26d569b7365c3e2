package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	pipeline *Pipeline
	recorder *fakeRecorder
	adapter  *fakeAdapter
	posts    *fakePostRepo
	accounts *fakeAccountRepo
	media    *fakePostMediaRepo
	assets   *fakeAssetRepo
}

func newPipelineFixture(adapter *fakeAdapter, post *models.Post) *pipelineFixture {
	recorder := &fakeRecorder{}
	accounts := &fakeAccountRepo{
		forBrand: &models.SocialAccount{
			ID:              21,
			Platform:        adapter.Platform(),
			AccountID:       "acct-21",
			AccountUsername: "someuser",
			AccessToken:     "enc:live-token",
			TokenExpiresAt:  time.Now().Add(time.Hour),
		},
	}
	pages := &fakePageRepo{}
	posts := &fakePostRepo{posts: map[int64]*models.Post{post.ID: post}}
	media := &fakePostMediaRepo{}
	assets := &fakeAssetRepo{}

	registry := NewRegistry(adapter)
	resolver := NewResolver(accounts, pages, recorder)
	tokens := NewTokenStore(accounts, pages, plaintextCryptor{})
	pipeline := NewPipeline(registry, resolver, tokens, recorder, posts, media, assets)

	return &pipelineFixture{
		pipeline: pipeline,
		recorder: recorder,
		adapter:  adapter,
		posts:    posts,
		accounts: accounts,
		media:    media,
		assets:   assets,
	}
}

func TestPublishTextOnly(t *testing.T) {
	post := &models.Post{ID: 1, UserID: 2, BrandID: 3, Platform: "linkedin", Content: "hello", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(&fakeAdapter{}, post)

	err := fx.pipeline.Publish(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.adapter.publishCalls)
	assert.Nil(t, fx.adapter.lastRef)
	assert.Equal(t, 1, fx.recorder.successes)
	assert.Zero(t, fx.recorder.failures)
	assert.Equal(t, "live-token", fx.adapter.lastCreds.AccessToken)
	assert.Equal(t, "acct-21", fx.adapter.lastCreds.AuthorIdentity)
	assert.Equal(t, "someuser", fx.adapter.lastCreds.AuthorUsername)
}

func TestPublishSkipsTerminalStates(t *testing.T) {
	for _, status := range []string{models.PostStatusPublished, models.PostStatusFailed} {
		t.Run(status, func(t *testing.T) {
			post := &models.Post{ID: 1, Platform: "linkedin", Status: status}
			fx := newPipelineFixture(&fakeAdapter{}, post)

			err := fx.pipeline.Publish(context.Background(), 1)
			require.NoError(t, err)
			assert.Zero(t, fx.adapter.publishCalls)
			assert.Zero(t, fx.recorder.successes)
			assert.Zero(t, fx.recorder.failures)
		})
	}
}

func TestPublishUnknownPlatform(t *testing.T) {
	post := &models.Post{ID: 1, Platform: "myspace", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(&fakeAdapter{}, post)

	err := fx.pipeline.Publish(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 1, fx.recorder.failures)
}

func TestPublishNoConnectedAccountRecordedOnce(t *testing.T) {
	post := &models.Post{ID: 1, Platform: "linkedin", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(&fakeAdapter{}, post)
	fx.accounts.forBrand = nil

	err := fx.pipeline.Publish(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	// The resolver records the failure; the pipeline must not record again.
	assert.Equal(t, 1, fx.recorder.failures)
}

func TestPublishWithMedia(t *testing.T) {
	post := &models.Post{ID: 1, Platform: "linkedin", Content: "pic", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(&fakeAdapter{}, post)
	fx.media.media = &models.PostMedia{PostID: 1, AssetID: 9}
	fx.assets.asset = &models.MediaAsset{ID: 9, FileType: "image/png", FileURL: "https://cdn.example.com/a.png"}

	err := fx.pipeline.Publish(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, fx.adapter.lastRef)
	assert.Equal(t, "fake-asset", fx.adapter.lastRef.ID)
	assert.Equal(t, MediaKindImage, fx.adapter.lastRef.Kind)
	assert.Empty(t, fx.recorder.lastPartial)
}

func TestPublishMediaValidationFails(t *testing.T) {
	adapter := &fakeAdapter{
		policy: FailurePolicyDegrade,
		validateFn: func(asset *models.MediaAsset, kind MediaKind) error {
			return &MediaValidationError{Reason: "wrong container"}
		},
	}
	post := &models.Post{ID: 1, Platform: "linkedin", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(adapter, post)
	fx.media.media = &models.PostMedia{PostID: 1, AssetID: 9}
	fx.assets.asset = &models.MediaAsset{ID: 9, FileType: "video/quicktime"}

	err := fx.pipeline.Publish(context.Background(), 1)
	// Validation failures are hard regardless of the degrade policy.
	var validationErr *MediaValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, adapter.publishCalls)
	assert.Equal(t, 1, fx.recorder.failures)
}

func TestPublishMediaTransferDegrades(t *testing.T) {
	adapter := &fakeAdapter{
		policy: FailurePolicyDegrade,
		uploadFn: func(ctx context.Context, asset *models.MediaAsset, kind MediaKind, creds *Credentials) (*AssetReference, error) {
			return nil, errors.New("upload url expired")
		},
	}
	post := &models.Post{ID: 1, Platform: "linkedin", Content: "pic", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(adapter, post)
	fx.media.media = &models.PostMedia{PostID: 1, AssetID: 9}
	fx.assets.asset = &models.MediaAsset{ID: 9, FileType: "image/png"}

	err := fx.pipeline.Publish(context.Background(), 1)
	require.NoError(t, err)

	// Published text-only, success recorded with the transfer error noted.
	assert.Equal(t, 1, adapter.publishCalls)
	assert.Nil(t, adapter.lastRef)
	assert.Equal(t, 1, fx.recorder.successes)
	assert.Contains(t, fx.recorder.lastPartial, "upload url expired")
}

func TestPublishMediaTransferHardFails(t *testing.T) {
	adapter := &fakeAdapter{
		policy: FailurePolicyHard,
		uploadFn: func(ctx context.Context, asset *models.MediaAsset, kind MediaKind, creds *Credentials) (*AssetReference, error) {
			return nil, errors.New("upload rejected")
		},
	}
	post := &models.Post{ID: 1, Platform: "linkedin", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(adapter, post)
	fx.media.media = &models.PostMedia{PostID: 1, AssetID: 9}
	fx.assets.asset = &models.MediaAsset{ID: 9, FileType: "image/png"}

	err := fx.pipeline.Publish(context.Background(), 1)
	var transferErr *MediaTransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Zero(t, adapter.publishCalls)
	assert.Equal(t, 1, fx.recorder.failures)
}

func TestPublishPlatformRejection(t *testing.T) {
	adapter := &fakeAdapter{
		publishFn: func(ctx context.Context, post *models.Post, creds *Credentials, ref *AssetReference) (*Result, error) {
			return nil, &PlatformError{Platform: "linkedin", StatusCode: 422, Detail: "duplicate"}
		},
	}
	post := &models.Post{ID: 1, Platform: "linkedin", Status: models.PostStatusScheduled}
	fx := newPipelineFixture(adapter, post)

	err := fx.pipeline.Publish(context.Background(), 1)
	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, 422, platformErr.StatusCode)
	assert.Equal(t, 1, fx.recorder.failures)
}
