package publish

import (
	"context"
	"log/slog"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
)

// Resolver finds the connected account (or page) a post publishes through.
// On a miss it records the FAILED transition and notification itself before
// returning ErrNoConnectedAccount, so callers never duplicate that
// bookkeeping.
type Resolver struct {
	accounts repository.SocialAccountRepository
	pages    repository.SocialAccountPageRepository
	recorder OutcomeRecorder
}

func NewResolver(accounts repository.SocialAccountRepository, pages repository.SocialAccountPageRepository, recorder OutcomeRecorder) *Resolver {
	return &Resolver{
		accounts: accounts,
		pages:    pages,
		recorder: recorder,
	}
}

// Resolve returns either the account or the page the post targets, never
// both. Page-targeted posts must reference an active page linked (through
// its parent account) to the post's brand.
func (r *Resolver) Resolve(ctx context.Context, post *models.Post) (*models.SocialAccount, *models.SocialAccountPage, error) {
	if post.PageID != 0 {
		page, err := r.pages.GetActive(ctx, post.PageID, post.Platform)
		if err != nil {
			return nil, nil, err
		}
		if page == nil {
			return nil, nil, r.fail(ctx, post)
		}

		linked, err := r.pages.IsLinkedToBrand(ctx, page.ID, post.BrandID)
		if err != nil {
			return nil, nil, err
		}
		if !linked {
			return nil, nil, r.fail(ctx, post)
		}

		return nil, page, nil
	}

	account, err := r.accounts.FindForBrandUser(ctx, post.Platform, post.BrandID, post.UserID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, r.fail(ctx, post)
	}

	return account, nil, nil
}

func (r *Resolver) fail(ctx context.Context, post *models.Post) error {
	slog.Info("no connected account", "post_id", post.ID, "platform", post.Platform, "brand_id", post.BrandID)
	if err := r.recorder.RecordFailure(ctx, post, ErrNoConnectedAccount); err != nil {
		slog.Error("recording resolution failure", "post_id", post.ID, "error", err)
	}
	return ErrNoConnectedAccount
}
