package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
	"github.com/ashwinm7/postdeck/pkg/crypto"
)

// TokenStore materializes a live, decrypted access token for a credential
// holder. Tokens at rest stay encrypted; an expired token gets at most one
// refresh round-trip per materialization, and refresh is serialized per
// holder so concurrent publishers do not stomp each other's persisted
// refresh token. The conditional UPDATE in the repositories is the backstop
// across processes.
type TokenStore struct {
	accounts repository.SocialAccountRepository
	pages    repository.SocialAccountPageRepository
	cryptor  crypto.Cryptor

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTokenStore(accounts repository.SocialAccountRepository, pages repository.SocialAccountPageRepository, cryptor crypto.Cryptor) *TokenStore {
	return &TokenStore{
		accounts: accounts,
		pages:    pages,
		cryptor:  cryptor,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (t *TokenStore) lockFor(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

// MaterializeAccount returns the decrypted access token for an account,
// refreshing it first if expired. Failure to refresh is terminal for the
// attempt (ErrTokenExpired), not retryable within the same invocation.
func (t *TokenStore) MaterializeAccount(ctx context.Context, adapter Adapter, acc *models.SocialAccount) (string, error) {
	if !crypto.IsTokenExpired(acc.TokenExpiresAt) {
		return t.cryptor.Decrypt(acc.AccessToken)
	}

	lock := t.lockFor(fmt.Sprintf("account:%d", acc.ID))
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent publisher may have refreshed.
	fresh, err := t.accounts.GetByID(ctx, acc.ID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", ErrTokenExpired
	}
	*acc = *fresh

	if !crypto.IsTokenExpired(acc.TokenExpiresAt) {
		return t.cryptor.Decrypt(acc.AccessToken)
	}

	return t.refreshAccount(ctx, adapter, acc)
}

// RefreshAccount forces one refresh round-trip regardless of expiry. Used by
// the periodic sweep that renews tokens before they lapse.
func (t *TokenStore) RefreshAccount(ctx context.Context, adapter Adapter, acc *models.SocialAccount) error {
	lock := t.lockFor(fmt.Sprintf("account:%d", acc.ID))
	lock.Lock()
	defer lock.Unlock()

	_, err := t.refreshAccount(ctx, adapter, acc)
	return err
}

func (t *TokenStore) refreshAccount(ctx context.Context, adapter Adapter, acc *models.SocialAccount) (string, error) {
	if acc.RefreshToken == "" {
		return "", ErrTokenExpired
	}

	refreshToken, err := t.cryptor.Decrypt(acc.RefreshToken)
	if err != nil {
		return "", err
	}

	refreshed, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Info("token refresh failed", "account_id", acc.ID, "platform", acc.Platform, "error", err)
		return "", fmt.Errorf("refreshing %s token: %w", acc.Platform, ErrTokenExpired)
	}

	encryptedAccess, encryptedRefresh, err := t.encryptPair(refreshed)
	if err != nil {
		return "", err
	}

	err = t.accounts.SetToken(ctx, acc.ID, acc.AccessToken, &models.SocialAccount{
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		TokenExpiresAt: refreshed.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenConflict) {
			// Lost the race to another process; its token is the live one.
			current, err := t.accounts.GetByID(ctx, acc.ID)
			if err != nil {
				return "", err
			}
			if current == nil {
				return "", ErrTokenExpired
			}
			*acc = *current
			return t.cryptor.Decrypt(acc.AccessToken)
		}
		return "", err
	}

	acc.AccessToken = encryptedAccess
	if encryptedRefresh != "" {
		acc.RefreshToken = encryptedRefresh
	}
	acc.TokenExpiresAt = refreshed.ExpiresAt

	return refreshed.AccessToken, nil
}

// MaterializePage is MaterializeAccount for a page credential. Pages hold
// tokens independent of their parent account; expiry is evaluated per
// credential holder, never inherited.
func (t *TokenStore) MaterializePage(ctx context.Context, adapter Adapter, page *models.SocialAccountPage) (string, error) {
	if !crypto.IsTokenExpired(page.TokenExpiresAt) {
		return t.cryptor.Decrypt(page.AccessToken)
	}

	lock := t.lockFor(fmt.Sprintf("page:%d", page.ID))
	lock.Lock()
	defer lock.Unlock()

	fresh, err := t.pages.GetActive(ctx, page.ID, page.Platform)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", ErrTokenExpired
	}
	*page = *fresh

	if !crypto.IsTokenExpired(page.TokenExpiresAt) {
		return t.cryptor.Decrypt(page.AccessToken)
	}

	return t.refreshPage(ctx, adapter, page)
}

// RefreshPage forces one refresh round-trip for a page credential.
func (t *TokenStore) RefreshPage(ctx context.Context, adapter Adapter, page *models.SocialAccountPage) error {
	lock := t.lockFor(fmt.Sprintf("page:%d", page.ID))
	lock.Lock()
	defer lock.Unlock()

	_, err := t.refreshPage(ctx, adapter, page)
	return err
}

func (t *TokenStore) refreshPage(ctx context.Context, adapter Adapter, page *models.SocialAccountPage) (string, error) {
	if page.RefreshToken == "" {
		return "", ErrTokenExpired
	}

	refreshToken, err := t.cryptor.Decrypt(page.RefreshToken)
	if err != nil {
		return "", err
	}

	refreshed, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Info("page token refresh failed", "page_id", page.ID, "platform", page.Platform, "error", err)
		return "", fmt.Errorf("refreshing %s page token: %w", page.Platform, ErrTokenExpired)
	}

	encryptedAccess, encryptedRefresh, err := t.encryptPair(refreshed)
	if err != nil {
		return "", err
	}

	err = t.pages.SetToken(ctx, page.ID, page.AccessToken, &models.SocialAccountPage{
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		TokenExpiresAt: refreshed.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenConflict) {
			current, err := t.pages.GetActive(ctx, page.ID, page.Platform)
			if err != nil {
				return "", err
			}
			if current == nil {
				return "", ErrTokenExpired
			}
			*page = *current
			return t.cryptor.Decrypt(page.AccessToken)
		}
		return "", err
	}

	page.AccessToken = encryptedAccess
	if encryptedRefresh != "" {
		page.RefreshToken = encryptedRefresh
	}
	page.TokenExpiresAt = refreshed.ExpiresAt

	return refreshed.AccessToken, nil
}

func (t *TokenStore) encryptPair(refreshed *RefreshedToken) (access, refresh string, err error) {
	access, err = t.cryptor.Encrypt([]byte(refreshed.AccessToken))
	if err != nil {
		return "", "", err
	}

	if refreshed.RefreshToken != "" {
		refresh, err = t.cryptor.Encrypt([]byte(refreshed.RefreshToken))
		if err != nil {
			return "", "", err
		}
	}

	return access, refresh, nil
}
