package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
)

// Pipeline runs one publish attempt: resolve account → materialize token →
// transfer media → publish → record. The steps are strictly sequential for a
// single post; independent posts may run pipelines concurrently.
type Pipeline struct {
	registry  Registry
	resolver  *Resolver
	tokens    *TokenStore
	recorder  OutcomeRecorder
	posts     repository.PostRepository
	postMedia repository.PostMediaRepository
	assets    repository.MediaAssetRepository
}

func NewPipeline(
	registry Registry,
	resolver *Resolver,
	tokens *TokenStore,
	recorder OutcomeRecorder,
	posts repository.PostRepository,
	postMedia repository.PostMediaRepository,
	assets repository.MediaAssetRepository) *Pipeline {
	return &Pipeline{
		registry:  registry,
		resolver:  resolver,
		tokens:    tokens,
		recorder:  recorder,
		posts:     posts,
		postMedia: postMedia,
		assets:    assets,
	}
}

// Publish runs the full pipeline for one post. Every terminal error results
// in exactly one FAILED write and one notification; the post never ends an
// attempt in a non-terminal state.
func (p *Pipeline) Publish(ctx context.Context, postID int64) error {
	post, err := p.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d not found", postID)
	}

	// Status transitions are monotonic; a post already published or failed
	// is not re-attempted.
	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusFailed {
		slog.Info("skipping post in terminal state", "post_id", post.ID, "status", post.Status)
		return nil
	}

	adapter, ok := p.registry.Get(post.Platform)
	if !ok {
		err := fmt.Errorf("no adapter registered for platform %q", post.Platform)
		slog.Error(err.Error(), "post_id", post.ID)
		return p.recordFailure(ctx, post, err)
	}

	account, page, err := p.resolver.Resolve(ctx, post)
	if err != nil {
		// The resolver records ErrNoConnectedAccount itself.
		if errors.Is(err, ErrNoConnectedAccount) {
			return err
		}
		slog.Error("account resolution", "post_id", post.ID, "platform", post.Platform, "error", err)
		return p.recordFailure(ctx, post, err)
	}

	creds, err := p.materialize(ctx, adapter, account, page)
	if err != nil {
		slog.Error("token materialization", "post_id", post.ID, "platform", post.Platform, "error", err)
		return p.recordFailure(ctx, post, err)
	}

	ref, partialFailure, err := p.transferMedia(ctx, adapter, post, creds)
	if err != nil {
		slog.Error("media transfer", "post_id", post.ID, "platform", post.Platform, "error", err)
		return p.recordFailure(ctx, post, err)
	}

	res, err := adapter.Publish(ctx, post, creds, ref)
	if err != nil {
		slog.Error("publish rejected", "post_id", post.ID, "platform", post.Platform, "error", err)
		return p.recordFailure(ctx, post, err)
	}

	if err := p.recorder.RecordSuccess(ctx, post, res, partialFailure); err != nil {
		slog.Error("recording success", "post_id", post.ID, "error", err)
		return err
	}

	slog.Info("post published", "post_id", post.ID, "platform", post.Platform, "url", res.ExternalURL)
	return nil
}

func (p *Pipeline) materialize(ctx context.Context, adapter Adapter, account *models.SocialAccount, page *models.SocialAccountPage) (*Credentials, error) {
	if page != nil {
		token, err := p.tokens.MaterializePage(ctx, adapter, page)
		if err != nil {
			return nil, err
		}
		return &Credentials{
			AccessToken:    token,
			AuthorIdentity: page.PageID,
			AuthorUsername: page.Name,
			AccountID:      page.AccountID,
			PageID:         page.ID,
		}, nil
	}

	token, err := p.tokens.MaterializeAccount(ctx, adapter, account)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:    token,
		AuthorIdentity: account.AccountID,
		AuthorUsername: account.AccountUsername,
		AccountID:      account.ID,
	}, nil
}

// transferMedia uploads the post's primary attachment. Only the first media
// item is transferred; platforms in scope take one attachment per post, so
// additional items are ignored. Validation failures abort before any network
// call; a transfer failure after that is handled per the adapter's policy.
func (p *Pipeline) transferMedia(ctx context.Context, adapter Adapter, post *models.Post, creds *Credentials) (*AssetReference, string, error) {
	pm, err := p.postMedia.GetByPostID(ctx, post.ID)
	if err != nil {
		return nil, "", err
	}
	if pm == nil {
		return nil, "", nil
	}

	asset, err := p.assets.GetByID(ctx, pm.AssetID)
	if err != nil {
		return nil, "", err
	}
	if asset == nil {
		return nil, "", nil
	}

	kind := InferMediaKind(asset)

	if err := adapter.ValidateMedia(asset, kind); err != nil {
		return nil, "", err
	}

	ref, err := adapter.UploadMedia(ctx, asset, kind, creds)
	if err != nil {
		if adapter.MediaFailurePolicy() == FailurePolicyDegrade {
			slog.Info("media transfer failed, publishing text-only",
				"post_id", post.ID, "platform", post.Platform, "error", err)
			return nil, err.Error(), nil
		}
		return nil, "", &MediaTransferError{Err: err}
	}

	return ref, "", nil
}

func (p *Pipeline) recordFailure(ctx context.Context, post *models.Post, cause error) error {
	if err := p.recorder.RecordFailure(ctx, post, cause); err != nil {
		slog.Error("recording failure", "post_id", post.ID, "error", err)
	}
	return cause
}
