package publish

import (
	"context"
	"testing"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAccount(t *testing.T) {
	account := &models.SocialAccount{ID: 7, Platform: models.PlatformLinkedin, AccountID: "urn-7"}
	accounts := &fakeAccountRepo{forBrand: account}
	recorder := &fakeRecorder{}
	resolver := NewResolver(accounts, &fakePageRepo{}, recorder)

	post := &models.Post{ID: 1, UserID: 2, BrandID: 3, Platform: models.PlatformLinkedin}

	gotAccount, gotPage, err := resolver.Resolve(context.Background(), post)
	require.NoError(t, err)
	assert.Nil(t, gotPage)
	assert.Equal(t, int64(7), gotAccount.ID)
	assert.Zero(t, recorder.failures)
}

func TestResolveAccountConnectedByTeammate(t *testing.T) {
	// Connected by user 9; users 2 and 9 share the brand, user 5 does not.
	account := &models.SocialAccount{ID: 7, UserID: 9, Platform: models.PlatformLinkedin, AccountID: "urn-7"}
	members := map[int64]bool{2: true, 9: true}
	accounts := &fakeAccountRepo{
		forBrandFn: func(platform string, brandID, userID int64) (*models.SocialAccount, error) {
			if platform != account.Platform || brandID != 3 {
				return nil, nil
			}
			if userID != account.UserID && !members[userID] {
				return nil, nil
			}
			return account, nil
		},
	}
	recorder := &fakeRecorder{}
	resolver := NewResolver(accounts, &fakePageRepo{}, recorder)

	teammate := &models.Post{ID: 1, UserID: 2, BrandID: 3, Platform: models.PlatformLinkedin}
	gotAccount, _, err := resolver.Resolve(context.Background(), teammate)
	require.NoError(t, err)
	assert.Equal(t, int64(7), gotAccount.ID)
	assert.Zero(t, recorder.failures)

	outsider := &models.Post{ID: 2, UserID: 5, BrandID: 3, Platform: models.PlatformLinkedin}
	_, _, err = resolver.Resolve(context.Background(), outsider)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	assert.Equal(t, 1, recorder.failures)
}

func TestResolveNoAccountRecordsFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	resolver := NewResolver(&fakeAccountRepo{}, &fakePageRepo{}, recorder)

	post := &models.Post{ID: 1, UserID: 2, BrandID: 3, Platform: models.PlatformReddit}

	_, _, err := resolver.Resolve(context.Background(), post)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	assert.Equal(t, 1, recorder.failures)
	assert.Equal(t, models.PostStatusFailed, post.Status)
}

func TestResolvePage(t *testing.T) {
	page := &models.SocialAccountPage{ID: 11, AccountID: 7, Platform: models.PlatformLinkedin, PageID: "9001", IsActive: true}
	pages := &fakePageRepo{active: map[int64]*models.SocialAccountPage{11: page}, linked: true}
	recorder := &fakeRecorder{}
	resolver := NewResolver(&fakeAccountRepo{}, pages, recorder)

	post := &models.Post{ID: 1, BrandID: 3, Platform: models.PlatformLinkedin, PageID: 11}

	gotAccount, gotPage, err := resolver.Resolve(context.Background(), post)
	require.NoError(t, err)
	assert.Nil(t, gotAccount)
	assert.Equal(t, "9001", gotPage.PageID)
}

func TestResolvePageNotLinkedToBrand(t *testing.T) {
	page := &models.SocialAccountPage{ID: 11, Platform: models.PlatformLinkedin, IsActive: true}
	pages := &fakePageRepo{active: map[int64]*models.SocialAccountPage{11: page}, linked: false}
	recorder := &fakeRecorder{}
	resolver := NewResolver(&fakeAccountRepo{}, pages, recorder)

	post := &models.Post{ID: 1, BrandID: 3, Platform: models.PlatformLinkedin, PageID: 11}

	_, _, err := resolver.Resolve(context.Background(), post)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	assert.Equal(t, 1, recorder.failures)
}

func TestResolvePageMissing(t *testing.T) {
	recorder := &fakeRecorder{}
	resolver := NewResolver(&fakeAccountRepo{}, &fakePageRepo{}, recorder)

	post := &models.Post{ID: 1, BrandID: 3, Platform: models.PlatformReddit, PageID: 42}

	_, _, err := resolver.Resolve(context.Background(), post)
	assert.ErrorIs(t, err, ErrNoConnectedAccount)
	assert.Equal(t, 1, recorder.failures)
}
