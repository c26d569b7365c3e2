package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/publish"
	"github.com/ashwinm7/postdeck/internal/repository"
)

type TokenRefreshJob struct {
	sr       repository.SocialAccountRepository
	sp       repository.SocialAccountPageRepository
	tokens   *publish.TokenStore
	registry publish.Registry
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	sp repository.SocialAccountPageRepository,
	tokens *publish.TokenStore,
	registry publish.Registry) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:       sr,
		sp:       sp,
		tokens:   tokens,
		registry: registry,
	}
}

// RefreshTokens proactively refreshes credentials expiring within the next
// half hour so publishes rarely pay the refresh round trip. A publish racing
// this sweep is safe: both sides go through the token store's per-credential
// lock and conditional write.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, deadline)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	pages, err := c.sp.ListExpiring(ctx, deadline)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		adapter, ok := c.registry.Get(acc.Platform)
		if !ok {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount, adapter publish.Adapter) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.tokens.RefreshAccount(ctx, adapter, acc); err != nil {
				slog.Info("Unable to refresh account token", "platform", acc.Platform, "account_id", acc.ID, "error", err)
			}
		}(acc, adapter)
	}

	for _, page := range pages {
		adapter, ok := c.registry.Get(page.Platform)
		if !ok {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(page *models.SocialAccountPage, adapter publish.Adapter) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.tokens.RefreshPage(ctx, adapter, page); err != nil {
				slog.Info("Unable to refresh page token", "platform", page.Platform, "page_id", page.ID, "error", err)
			}
		}(page, adapter)
	}

	wg.Wait()
}
