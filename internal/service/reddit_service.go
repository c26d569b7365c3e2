package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/ashwinm7/postdeck/configs"
	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/publish"
	"github.com/ashwinm7/postdeck/internal/repository"
	"github.com/ashwinm7/postdeck/internal/transfer"
	"github.com/ashwinm7/postdeck/pkg/crypto"
)

const (
	redditAuthURL    = "https://www.reddit.com/api/v1/authorize"
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	redditAPIBaseURL = "https://oauth.reddit.com"

	redditTitleLimit = 300
)

type RedditService interface {
	publish.Adapter
	AuthURL(state string) string
	RedditCallback(ctx context.Context, code string, userID, brandID int64) error
	RevokeAccess(ctx context.Context, refreshToken string) error
}

type redditService struct {
	cfg     config.Config
	sa      repository.SocialAccountRepository
	sp      repository.SocialAccountPageRepository
	cryptor crypto.Cryptor

	client     *http.Client
	apiBaseURL string
	tokenURL   string
}

func NewRedditService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	sp repository.SocialAccountPageRepository,
	cryptor crypto.Cryptor) RedditService {
	return &redditService{
		cfg:        cfg,
		sa:         sa,
		sp:         sp,
		cryptor:    cryptor,
		client:     &http.Client{Timeout: 30 * time.Second},
		apiBaseURL: redditAPIBaseURL,
		tokenURL:   redditTokenURL,
	}
}

// AuthURL builds the consent page URL. duration=permanent is what gets a
// refresh token back from the exchange.
func (s *redditService) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.cfg.RedditClientID)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.RedditRedirectURI)
	params.Add("scope", "identity submit mysubreddits")
	params.Add("duration", "permanent")
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", redditAuthURL, params.Encode())
}

func (s *redditService) Platform() string {
	return models.PlatformReddit
}

// MediaFailurePolicy is hard: UploadMedia cannot fail after validation (it
// never touches the network), so a policy decision here would be dead code.
// Hard keeps any unexpected failure loud.
func (s *redditService) MediaFailurePolicy() publish.FailurePolicy {
	return publish.FailurePolicyHard
}

func (s *redditService) RedditCallback(ctx context.Context, code string, userID, brandID int64) error {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.exchangeCode(ctx, code)
	if err != nil {
		return err
	}

	userInfo, err := s.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := s.cryptor.Encrypt([]byte(token.AccessToken))
	if err != nil {
		return err
	}

	encryptedRefreshToken := ""
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = s.cryptor.Encrypt([]byte(token.RefreshToken))
		if err != nil {
			return err
		}
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformReddit,
		AccountID:       userInfo.ID,
		AccountName:     userInfo.Name,
		AccountUsername: userInfo.Name,
		ProfilePicture:  userInfo.IconImg,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  GetExpiresAt(token.ExpiresIn),
	}

	accountID, err := s.sa.Create(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	if err := s.sa.LinkBrand(ctx, nil, accountID, brandID); err != nil {
		return err
	}

	if err := s.syncSubreddits(ctx, accountID, token.AccessToken, encryptedAccessToken, encryptedRefreshToken, GetExpiresAt(token.ExpiresIn)); err != nil {
		slog.Info("subreddit sync failed", "account_id", accountID, "error", err)
	}

	return nil
}

func (s *redditService) exchangeCode(ctx context.Context, code string) (*transfer.RedditTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.cfg.RedditRedirectURI)

	return s.requestToken(ctx, data)
}

func (s *redditService) RefreshToken(ctx context.Context, refreshToken string) (*publish.RefreshedToken, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	tokenResponse, err := s.requestToken(ctx, data)
	if err != nil {
		return nil, err
	}

	return &publish.RefreshedToken{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    GetExpiresAt(tokenResponse.ExpiresIn),
	}, nil
}

// requestToken posts to reddit's token endpoint, which authenticates the app
// with basic auth rather than body credentials.
func (s *redditService) requestToken(ctx context.Context, data url.Values) (*transfer.RedditTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.RedditClientID, s.cfg.RedditClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reddit token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var tokenResponse transfer.RedditTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, errors.New("reddit token response missing access token")
	}

	return &tokenResponse, nil
}

func (s *redditService) RevokeAccess(ctx context.Context, refreshToken string) error {
	data := url.Values{}
	data.Set("token", refreshToken)
	data.Set("token_type_hint", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, "POST", "https://www.reddit.com/api/v1/revoke_token", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.RedditClientID, s.cfg.RedditClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("reddit revoke returned %d", resp.StatusCode)
	}

	return nil
}

func (s *redditService) fetchUserInfo(ctx context.Context, accessToken string) (*transfer.RedditUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBaseURL+"/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching reddit profile: %d", resp.StatusCode)
	}

	var userInfo transfer.RedditUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

// syncSubreddits stores the subreddits the user moderates as pages, sharing
// the account's credential.
func (s *redditService) syncSubreddits(ctx context.Context, accountID int64, accessToken, encryptedAccess, encryptedRefresh string, expiresAt time.Time) error {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBaseURL+"/subreddits/mine/moderator?limit=100", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status listing subreddits: %d", resp.StatusCode)
	}

	var listing transfer.RedditSubredditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return err
	}

	for _, child := range listing.Data.Children {
		// u_<name> profile "subreddits" duplicate the personal account path.
		if strings.HasPrefix(child.Data.DisplayName, "u_") {
			continue
		}
		_, err := s.sp.Create(ctx, nil, &models.SocialAccountPage{
			AccountID:      accountID,
			Platform:       models.PlatformReddit,
			PageID:         child.Data.DisplayName,
			PageKind:       models.PageKindSubreddit,
			Name:           child.Data.DisplayName,
			AccessToken:    encryptedAccess,
			RefreshToken:   encryptedRefresh,
			TokenExpiresAt: expiresAt,
			IsActive:       true,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// ValidateMedia only requires a hosted URL. Reddit's submit API cannot ingest
// raw bytes through this integration, so the asset is referenced by URL and
// the post becomes a link submission.
func (s *redditService) ValidateMedia(asset *models.MediaAsset, kind publish.MediaKind) error {
	if asset.FileURL == "" {
		return &publish.MediaValidationError{Reason: "media asset has no hosted url"}
	}
	return nil
}

// UploadMedia performs no transfer; it hands the hosted URL straight through.
func (s *redditService) UploadMedia(ctx context.Context, asset *models.MediaAsset, kind publish.MediaKind, creds *publish.Credentials) (*publish.AssetReference, error) {
	return &publish.AssetReference{URL: asset.FileURL, Kind: kind}, nil
}

func (s *redditService) Publish(ctx context.Context, post *models.Post, creds *publish.Credentials, ref *publish.AssetReference) (*publish.Result, error) {
	sr := creds.AuthorIdentity
	if creds.PageID == 0 {
		sr = "u_" + creds.AuthorUsername
	}

	data := url.Values{}
	data.Set("api_type", "json")
	data.Set("sr", sr)
	data.Set("title", publish.TitleOrPlaceholder(post.Content, redditTitleLimit))
	data.Set("resubmit", "true")
	data.Set("sendreplies", "true")

	switch {
	case ref != nil:
		data.Set("kind", "link")
		data.Set("url", ref.URL)
	default:
		if link := publish.ExtractLink(post.Content); link != "" {
			data.Set("kind", "link")
			data.Set("url", link)
		} else {
			data.Set("kind", "self")
			data.Set("text", post.Content)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiBaseURL+"/api/submit", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var submit transfer.RedditSubmitResponse
	if err := json.Unmarshal(body, &submit); err != nil {
		return nil, &publish.PlatformError{
			Platform:   models.PlatformReddit,
			StatusCode: resp.StatusCode,
			Detail:     string(body),
		}
	}

	if detail := normalizeRedditError(&submit); detail != "" || resp.StatusCode != http.StatusOK {
		if detail == "" {
			detail = string(body)
		}
		return nil, &publish.PlatformError{
			Platform:   models.PlatformReddit,
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	externalID := submit.JSON.Data.Name
	if externalID == "" {
		externalID = submit.JSON.Data.ID
	}
	if externalID == "" && submit.JSON.Data.URL == "" {
		return nil, &publish.PlatformError{
			Platform:   models.PlatformReddit,
			StatusCode: resp.StatusCode,
			Detail:     "submit response missing post id and url",
		}
	}

	// Some submit responses carry only the fullname. Build the comments
	// permalink from it so a published post always has a url.
	externalURL := submit.JSON.Data.URL
	if externalURL == "" {
		externalURL = "https://www.reddit.com/comments/" + strings.TrimPrefix(externalID, "t3_")
	}

	return &publish.Result{
		ExternalID:  externalID,
		ExternalURL: externalURL,
	}, nil
}

// normalizeRedditError flattens reddit's two error shapes into one string.
// The jquery style nests tuples like ["SUBREDDIT_NOTALLOWED", "you aren't
// allowed to post there", "sr"]; auth failures use a flat "error" field that
// is a number or a string depending on the failure.
func normalizeRedditError(submit *transfer.RedditSubmitResponse) string {
	if len(submit.JSON.Errors) > 0 {
		var parts []string
		for _, tuple := range submit.JSON.Errors {
			var fields []string
			for _, raw := range tuple {
				var s string
				if err := json.Unmarshal(raw, &s); err == nil {
					fields = append(fields, s)
				} else {
					fields = append(fields, string(raw))
				}
			}
			parts = append(parts, strings.Join(fields, ": "))
		}
		return strings.Join(parts, "; ")
	}

	if len(submit.Error) > 0 && string(submit.Error) != "null" {
		detail := strings.Trim(string(submit.Error), `"`)
		if submit.Message != "" {
			detail = detail + ": " + submit.Message
		}
		return detail
	}

	return ""
}
