package service

import (
	"bytes"
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
	"golang.org/x/oauth2"
)

const (
	linkedinAuthURL    = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL   = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinAPIBaseURL = "https://api.linkedin.com"

	linkedinCommentaryLimit = 3000
)

type LinkedinService interface {
	publish.Adapter
	AuthURL(state string) string
	LinkedinCallback(ctx context.Context, code string, userID, brandID int64) error
}

type linkedinService struct {
	cfg     config.Config
	sa      repository.SocialAccountRepository
	sp      repository.SocialAccountPageRepository
	cryptor crypto.Cryptor

	client       *http.Client
	uploadClient *http.Client
	apiBaseURL   string
	tokenURL     string
}

func NewLinkedinService(
	cfg config.Config,
	sa repository.SocialAccountRepository,
	sp repository.SocialAccountPageRepository,
	cryptor crypto.Cryptor) LinkedinService {
	return &linkedinService{
		cfg:          cfg,
		sa:           sa,
		sp:           sp,
		cryptor:      cryptor,
		client:       &http.Client{Timeout: 30 * time.Second},
		uploadClient: &http.Client{Timeout: 2 * time.Minute},
		apiBaseURL:   linkedinAPIBaseURL,
		tokenURL:     linkedinTokenURL,
	}
}

// AuthURL builds the consent page URL the user is redirected to when
// connecting an account.
func (s *linkedinService) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.cfg.LinkedinClientID)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
	params.Add("scope", "openid profile email w_member_social w_organization_social r_organization_admin")
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", linkedinAuthURL, params.Encode())
}

func (s *linkedinService) Platform() string {
	return models.PlatformLinkedin
}

// MediaFailurePolicy degrades to a text-only share when the upload fails
// after validation; the transfer error is surfaced as partial_failure in the
// outcome metadata instead of failing the whole publish.
func (s *linkedinService) MediaFailurePolicy() publish.FailurePolicy {
	return publish.FailurePolicyDegrade
}

func (s *linkedinService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedinClientID,
		ClientSecret: s.cfg.LinkedinClientSecret,
		RedirectURL:  s.cfg.LinkedinRedirectURI,
		Scopes:       []string{"openid", "profile", "email", "w_member_social", "w_organization_social", "r_organization_admin"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  linkedinAuthURL,
			TokenURL: s.tokenURL,
		},
	}
}

func (s *linkedinService) LinkedinCallback(ctx context.Context, code string, userID, brandID int64) (err error) {
	if code == "" {
		err = errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := s.oauthConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
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
		Platform:        models.PlatformLinkedin,
		AccountID:       userInfo.Sub,
		AccountName:     userInfo.Name,
		AccountUsername: userInfo.Username,
		ProfilePicture:  userInfo.Picture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  token.Expiry,
	}

	accountID, err := s.sa.Create(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	if err := s.sa.LinkBrand(ctx, nil, accountID, brandID); err != nil {
		return err
	}

	if err := s.syncOrganizations(ctx, accountID, token.AccessToken, encryptedAccessToken, encryptedRefreshToken, token.Expiry); err != nil {
		// Organization sync is best effort; the personal account is usable
		// without it.
		slog.Info("organization sync failed", "account_id", accountID, "error", err)
	}

	return nil
}

func (s *linkedinService) fetchUserInfo(ctx context.Context, accessToken string) (*transfer.LinkedinUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.apiBaseURL+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status fetching linkedin profile: %d", resp.StatusCode)
	}

	var userInfo transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}

// syncOrganizations stores the organizations the member administers as pages.
// Organization posting goes through the member token, so pages share the
// account's credential.
func (s *linkedinService) syncOrganizations(ctx context.Context, accountID int64, accessToken, encryptedAccess, encryptedRefresh string, expiresAt time.Time) error {
	reqURL := s.apiBaseURL + "/v2/organizationAcls?q=roleAssignee&role=ADMINISTRATOR&state=APPROVED"
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status listing organizations: %d", resp.StatusCode)
	}

	var acls transfer.LinkedinOrganizationAcls
	if err := json.NewDecoder(resp.Body).Decode(&acls); err != nil {
		return err
	}

	for _, element := range acls.Elements {
		orgID := strings.TrimPrefix(element.Organization, "urn:li:organization:")
		_, err := s.sp.Create(ctx, nil, &models.SocialAccountPage{
			AccountID:      accountID,
			Platform:       models.PlatformLinkedin,
			PageID:         orgID,
			PageKind:       models.PageKindOrganization,
			Name:           element.Organization,
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

func (s *linkedinService) RefreshToken(ctx context.Context, refreshToken string) (*publish.RefreshedToken, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", s.cfg.LinkedinClientID)
	data.Set("client_secret", s.cfg.LinkedinClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("linkedin token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var tokenResponse transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &publish.RefreshedToken{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    GetExpiresAt(tokenResponse.ExpiresIn),
	}, nil
}

// ValidateMedia enforces LinkedIn's container constraint before any network
// call: videos must be MP4.
func (s *linkedinService) ValidateMedia(asset *models.MediaAsset, kind publish.MediaKind) error {
	if kind != publish.MediaKindVideo {
		return nil
	}

	fileType := strings.ToLower(asset.FileType)
	if fileType == "video/mp4" || strings.HasSuffix(strings.ToLower(asset.FileName), ".mp4") {
		return nil
	}

	return &publish.MediaValidationError{
		Reason: fmt.Sprintf("linkedin requires MP4 video, got %q", asset.FileType),
	}
}

// UploadMedia runs LinkedIn's two-phase protocol: register the intended
// upload to get a one-time upload URL and an asset URN, then PUT the raw
// bytes. The URN, not the bytes, is what the publish call references.
func (s *linkedinService) UploadMedia(ctx context.Context, asset *models.MediaAsset, kind publish.MediaKind, creds *publish.Credentials) (*publish.AssetReference, error) {
	recipe := "urn:li:digitalmediaRecipe:feedshare-image"
	if kind == publish.MediaKindVideo {
		recipe = "urn:li:digitalmediaRecipe:feedshare-video"
	}

	registerRequest := transfer.LinkedinRegisterUploadRequest{
		RegisterUploadRequest: transfer.LinkedinRegisterUpload{
			Recipes: []string{recipe},
			Owner:   s.authorURN(creds),
			ServiceRelationships: []transfer.LinkedinServiceRelationship{
				{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
			},
		},
	}

	jsonData, err := json.Marshal(registerRequest)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiBaseURL+"/v2/assets?action=registerUpload", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, s.platformError(resp)
	}

	var registered transfer.LinkedinRegisterUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode register upload response: %w", err)
	}

	uploadURL := registered.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	assetURN := registered.Value.Asset
	if uploadURL == "" || assetURN == "" {
		return nil, errors.New("register upload response missing upload url or asset")
	}

	fileBytes, err := s.downloadAsset(ctx, asset.FileURL)
	if err != nil {
		return nil, err
	}

	if err := s.putBytes(ctx, uploadURL, creds.AccessToken, asset.FileType, fileBytes); err != nil {
		return nil, err
	}

	return &publish.AssetReference{ID: assetURN, Kind: kind}, nil
}

func (s *linkedinService) downloadAsset(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.uploadClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status downloading media: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *linkedinService) putBytes(ctx context.Context, uploadURL, accessToken, contentType string, fileBytes []byte) error {
	req, err := http.NewRequestWithContext(ctx, "PUT", uploadURL, bytes.NewReader(fileBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(fileBytes))

	resp, err := s.uploadClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("media upload returned %d: %s", resp.StatusCode, body)
	}

	return nil
}

func (s *linkedinService) Publish(ctx context.Context, post *models.Post, creds *publish.Credentials, ref *publish.AssetReference) (*publish.Result, error) {
	shareContent := transfer.LinkedinShareContent{
		ShareCommentary:    transfer.LinkedinText{Text: publish.TruncateTitle(post.Content, linkedinCommentaryLimit)},
		ShareMediaCategory: "NONE",
	}

	if ref != nil {
		shareContent.ShareMediaCategory = string(ref.Kind)
		shareContent.Media = []transfer.LinkedinShareMedia{
			{Status: "READY", Media: ref.ID},
		}
	} else if link := publish.ExtractLink(post.Content); link != "" {
		shareContent.ShareMediaCategory = "ARTICLE"
		shareContent.Media = []transfer.LinkedinShareMedia{
			{Status: "READY", OriginalURL: link},
		}
	}

	ugcPost := transfer.LinkedinUGCPost{
		Author:         s.authorURN(creds),
		LifecycleState: "PUBLISHED",
		SpecificContent: transfer.LinkedinSpecificContent{
			ShareContent: shareContent,
		},
		Visibility: transfer.LinkedinMemberVisibility{Visibility: "PUBLIC"},
	}

	jsonData, err := json.Marshal(ugcPost)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiBaseURL+"/v2/ugcPosts", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, s.platformError(resp)
	}

	externalID := resp.Header.Get("X-RestLi-Id")
	if externalID == "" {
		var result transfer.LinkedinUGCPostResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
			externalID = result.ID
		}
	}
	if externalID == "" {
		return nil, &publish.PlatformError{
			Platform:   models.PlatformLinkedin,
			StatusCode: resp.StatusCode,
			Detail:     "no post id returned",
		}
	}

	return &publish.Result{
		ExternalID:  externalID,
		ExternalURL: fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", externalID),
	}, nil
}

func (s *linkedinService) authorURN(creds *publish.Credentials) string {
	if creds.PageID != 0 {
		return "urn:li:organization:" + creds.AuthorIdentity
	}
	return "urn:li:person:" + creds.AuthorIdentity
}

// platformError normalizes a rejection. LinkedIn error bodies are usually
// {message, serviceErrorCode, status} but not always JSON; the raw payload is
// preserved either way.
func (s *linkedinService) platformError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	detail := string(body)
	var apiErr transfer.LinkedinErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		detail = apiErr.Message
	}

	return &publish.PlatformError{
		Platform:   models.PlatformLinkedin,
		StatusCode: resp.StatusCode,
		Detail:     detail,
	}
}
