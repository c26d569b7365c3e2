package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeAccountUnexpired(t *testing.T) {
	acc := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:live-token",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: acc}}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	token, err := store.MaterializeAccount(context.Background(), &fakeAdapter{}, acc)
	require.NoError(t, err)
	assert.Equal(t, "live-token", token)
	assert.Zero(t, accounts.setCalls)
}

func TestMaterializeAccountRefreshesExpired(t *testing.T) {
	acc := &models.SocialAccount{
		ID:             1,
		Platform:       models.PlatformLinkedin,
		AccessToken:    "enc:stale-token",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	stored := *acc
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: &stored}}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	var seenRefreshToken string
	adapter := &fakeAdapter{
		refreshFn: func(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
			seenRefreshToken = refreshToken
			return &RefreshedToken{
				AccessToken:  "fresh-token",
				RefreshToken: "next-refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
	}

	token, err := store.MaterializeAccount(context.Background(), adapter, acc)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "refresh-token", seenRefreshToken)
	assert.Equal(t, 1, accounts.setCalls)
	// Both ciphertexts rotate in storage.
	assert.Equal(t, "enc:fresh-token", stored.AccessToken)
	assert.Equal(t, "enc:next-refresh", stored.RefreshToken)
}

func TestMaterializeAccountSkipsRefreshAfterReRead(t *testing.T) {
	// The stored row was already refreshed by someone else; the re-read
	// under the lock must pick it up without another refresh round trip.
	stored := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:already-fresh",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: stored}}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	stale := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:stale-token",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}

	adapter := &fakeAdapter{
		refreshFn: func(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
			t.Fatal("refresh should not be called")
			return nil, nil
		},
	}

	token, err := store.MaterializeAccount(context.Background(), adapter, stale)
	require.NoError(t, err)
	assert.Equal(t, "already-fresh", token)
}

func TestMaterializeAccountConflictReadsWinner(t *testing.T) {
	stored := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:stale-token",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: stored}}
	accounts.setTokenFn = func(accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
		// Another process rotated the token between our read and write.
		stored.AccessToken = "enc:winner-token"
		stored.TokenExpiresAt = time.Now().Add(time.Hour)
		return repository.ErrTokenConflict
	}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	acc := *stored
	token, err := store.MaterializeAccount(context.Background(), &fakeAdapter{}, &acc)
	require.NoError(t, err)
	assert.Equal(t, "winner-token", token)
}

func TestMaterializeAccountNoRefreshToken(t *testing.T) {
	stored := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:stale-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: stored}}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	acc := *stored
	_, err := store.MaterializeAccount(context.Background(), &fakeAdapter{}, &acc)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMaterializeAccountRefreshFailure(t *testing.T) {
	stored := &models.SocialAccount{
		ID:             1,
		AccessToken:    "enc:stale-token",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	accounts := &fakeAccountRepo{byID: map[int64]*models.SocialAccount{1: stored}}
	store := NewTokenStore(accounts, &fakePageRepo{}, plaintextCryptor{})

	adapter := &fakeAdapter{
		refreshFn: func(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
			return nil, errors.New("invalid_grant")
		},
	}

	acc := *stored
	_, err := store.MaterializeAccount(context.Background(), adapter, &acc)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMaterializePageRefreshesExpired(t *testing.T) {
	page := &models.SocialAccountPage{
		ID:             5,
		Platform:       models.PlatformReddit,
		PageID:         "golang",
		AccessToken:    "enc:stale-token",
		RefreshToken:   "enc:refresh-token",
		TokenExpiresAt: time.Now().Add(-time.Minute),
	}
	stored := *page
	pages := &fakePageRepo{active: map[int64]*models.SocialAccountPage{5: &stored}}
	store := NewTokenStore(&fakeAccountRepo{}, pages, plaintextCryptor{})

	token, err := store.MaterializePage(context.Background(), &fakeAdapter{}, page)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.Equal(t, 1, pages.setCalls)
	assert.Equal(t, "enc:new-access", stored.AccessToken)
}
