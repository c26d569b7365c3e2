package publish

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ashwinm7/postdeck/internal/models"
)

// plaintextCryptor reversibly tags values so tests can assert what was
// stored without real AES round trips.
type plaintextCryptor struct{}

func (plaintextCryptor) Encrypt(data []byte) (string, error) {
	return "enc:" + string(data), nil
}

func (plaintextCryptor) Decrypt(encrypted string) (string, error) {
	return strings.TrimPrefix(encrypted, "enc:"), nil
}

type fakeAccountRepo struct {
	byID       map[int64]*models.SocialAccount
	forBrand   *models.SocialAccount
	forBrandFn func(platform string, brandID, userID int64) (*models.SocialAccount, error)
	setTokenFn func(accountID int64, oldAccessToken string, sa *models.SocialAccount) error
	setCalls   int
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	if acc, ok := f.byID[id]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindForBrandUser(ctx context.Context, platform string, brandID, userID int64) (*models.SocialAccount, error) {
	if f.forBrandFn != nil {
		return f.forBrandFn(platform, brandID, userID)
	}
	return f.forBrand, nil
}

func (f *fakeAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakeAccountRepo) LinkBrand(ctx context.Context, tx *sql.Tx, accountID, brandID int64) error {
	return nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	f.setCalls++
	if f.setTokenFn != nil {
		return f.setTokenFn(accountID, oldAccessToken, sa)
	}
	if stored, ok := f.byID[accountID]; ok {
		stored.AccessToken = sa.AccessToken
		if sa.RefreshToken != "" {
			stored.RefreshToken = sa.RefreshToken
		}
		stored.TokenExpiresAt = sa.TokenExpiresAt
	}
	return nil
}

func (f *fakeAccountRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakePageRepo struct {
	active   map[int64]*models.SocialAccountPage
	linked   bool
	setCalls int
}

func (f *fakePageRepo) Create(ctx context.Context, tx *sql.Tx, page *models.SocialAccountPage) (int64, error) {
	return 0, nil
}

func (f *fakePageRepo) GetActive(ctx context.Context, id int64, platform string) (*models.SocialAccountPage, error) {
	if page, ok := f.active[id]; ok && page.Platform == platform {
		cp := *page
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePageRepo) IsLinkedToBrand(ctx context.Context, pageID, brandID int64) (bool, error) {
	return f.linked, nil
}

func (f *fakePageRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*models.SocialAccountPage, error) {
	return nil, nil
}

func (f *fakePageRepo) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccountPage, error) {
	return nil, nil
}

func (f *fakePageRepo) SetToken(ctx context.Context, pageID int64, oldAccessToken string, page *models.SocialAccountPage) error {
	f.setCalls++
	if stored, ok := f.active[pageID]; ok {
		stored.AccessToken = page.AccessToken
		if page.RefreshToken != "" {
			stored.RefreshToken = page.RefreshToken
		}
		stored.TokenExpiresAt = page.TokenExpiresAt
	}
	return nil
}

func (f *fakePageRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakePostRepo struct {
	posts map[int64]*models.Post
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if p, ok := f.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	return 0, nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListDueScheduled(ctx context.Context, before time.Time) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) UpdatePostStatus(ctx context.Context, status string, postID int64) error {
	return nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, tx *sql.Tx, postID int64, url string, publishedAt time.Time) error {
	return nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, tx *sql.Tx, postID int64) error {
	return nil
}

func (f *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return false, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

type fakePostMediaRepo struct {
	media *models.PostMedia
}

func (f *fakePostMediaRepo) Create(ctx context.Context, tx *sql.Tx, pm *models.PostMedia) error {
	return nil
}

func (f *fakePostMediaRepo) GetByPostID(ctx context.Context, postID int64) (*models.PostMedia, error) {
	return f.media, nil
}

func (f *fakePostMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	return nil, nil
}

func (f *fakePostMediaRepo) Remove(ctx context.Context, postID int64) error {
	return nil
}

type fakeAssetRepo struct {
	asset *models.MediaAsset
}

func (f *fakeAssetRepo) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (f *fakeAssetRepo) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return f.asset, nil
}

func (f *fakeAssetRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

// fakeRecorder captures outcome calls instead of touching a database.
type fakeRecorder struct {
	successes       int
	failures        int
	lastResult      *Result
	lastPartial     string
	lastFailureErr  error
	lastFailurePost *models.Post
}

func (f *fakeRecorder) RecordSuccess(ctx context.Context, post *models.Post, res *Result, partialFailure string) error {
	f.successes++
	f.lastResult = res
	f.lastPartial = partialFailure
	post.Status = models.PostStatusPublished
	return nil
}

func (f *fakeRecorder) RecordFailure(ctx context.Context, post *models.Post, cause error) error {
	f.failures++
	f.lastFailureErr = cause
	f.lastFailurePost = post
	post.Status = models.PostStatusFailed
	return nil
}

// fakeAdapter is configurable per test; zero value publishes successfully
// with no media handling.
type fakeAdapter struct {
	platform   string
	policy     FailurePolicy
	validateFn func(asset *models.MediaAsset, kind MediaKind) error
	uploadFn   func(ctx context.Context, asset *models.MediaAsset, kind MediaKind, creds *Credentials) (*AssetReference, error)
	publishFn  func(ctx context.Context, post *models.Post, creds *Credentials, ref *AssetReference) (*Result, error)
	refreshFn  func(ctx context.Context, refreshToken string) (*RefreshedToken, error)

	publishCalls int
	lastCreds    *Credentials
	lastRef      *AssetReference
}

func (f *fakeAdapter) Platform() string {
	if f.platform == "" {
		return "linkedin"
	}
	return f.platform
}

func (f *fakeAdapter) MediaFailurePolicy() FailurePolicy {
	return f.policy
}

func (f *fakeAdapter) ValidateMedia(asset *models.MediaAsset, kind MediaKind) error {
	if f.validateFn != nil {
		return f.validateFn(asset, kind)
	}
	return nil
}

func (f *fakeAdapter) UploadMedia(ctx context.Context, asset *models.MediaAsset, kind MediaKind, creds *Credentials) (*AssetReference, error) {
	if f.uploadFn != nil {
		return f.uploadFn(ctx, asset, kind, creds)
	}
	return &AssetReference{ID: "fake-asset", Kind: kind}, nil
}

func (f *fakeAdapter) Publish(ctx context.Context, post *models.Post, creds *Credentials, ref *AssetReference) (*Result, error) {
	f.publishCalls++
	f.lastCreds = creds
	f.lastRef = ref
	if f.publishFn != nil {
		return f.publishFn(ctx, post, creds, ref)
	}
	return &Result{ExternalID: "ext-1", ExternalURL: "https://example.com/ext-1"}, nil
}

func (f *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	if f.refreshFn != nil {
		return f.refreshFn(ctx, refreshToken)
	}
	return &RefreshedToken{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}
