package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	config "github.com/ashwinm7/postdeck/configs"
	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/ashwinm7/postdeck/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedditForTest(baseURL string) *redditService {
	return &redditService{
		cfg: config.Config{
			RedditClientID:     "client-id",
			RedditClientSecret: "client-secret",
			RedditRedirectURI:  "https://app.example.com/auth/reddit/callback",
			RedditUserAgent:    "web:postdeck:test",
		},
		client:     &http.Client{Timeout: 5 * time.Second},
		apiBaseURL: baseURL,
		tokenURL:   baseURL + "/api/v1/access_token",
	}
}

func redditSubmitOK(t *testing.T, capture *url.Values) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submit", r.URL.Path)
		assert.Equal(t, "Bearer live-token", r.Header.Get("Authorization"))
		assert.Equal(t, "web:postdeck:test", r.Header.Get("User-Agent"))

		require.NoError(t, r.ParseForm())
		*capture = r.PostForm

		w.Write([]byte(`{"json":{"errors":[],"data":{"url":"https://reddit.com/r/golang/comments/abc/x/","id":"abc","name":"t3_abc"}}}`))
	}
}

func TestRedditAuthURL(t *testing.T) {
	s := newRedditForTest("")

	parsed, err := url.Parse(s.AuthURL("state-abc"))
	require.NoError(t, err)

	assert.Equal(t, "www.reddit.com", parsed.Host)
	assert.Equal(t, "/api/v1/authorize", parsed.Path)
	assert.Equal(t, "client-id", parsed.Query().Get("client_id"))
	assert.Equal(t, "https://app.example.com/auth/reddit/callback", parsed.Query().Get("redirect_uri"))
	assert.Equal(t, "permanent", parsed.Query().Get("duration"))
	assert.Equal(t, "identity submit mysubreddits", parsed.Query().Get("scope"))
	assert.Equal(t, "state-abc", parsed.Query().Get("state"))
}

func TestRedditPublishSelfPost(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(redditSubmitOK(t, &form))
	defer server.Close()

	s := newRedditForTest(server.URL)
	post := &models.Post{ID: 1, Content: "just some thoughts"}
	creds := &publish.Credentials{AccessToken: "live-token", AuthorIdentity: "t2_xyz", AuthorUsername: "someuser"}

	res, err := s.Publish(context.Background(), post, creds, nil)
	require.NoError(t, err)

	assert.Equal(t, "json", form.Get("api_type"))
	assert.Equal(t, "u_someuser", form.Get("sr"))
	assert.Equal(t, "self", form.Get("kind"))
	assert.Equal(t, "just some thoughts", form.Get("title"))
	assert.Equal(t, "just some thoughts", form.Get("text"))
	assert.Equal(t, "t3_abc", res.ExternalID)
	assert.Equal(t, "https://reddit.com/r/golang/comments/abc/x/", res.ExternalURL)
}

func TestRedditPublishFullnameOnlyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"json":{"errors":[],"data":{"name":"t3_abc"}}}`))
	}))
	defer server.Close()

	s := newRedditForTest(server.URL)
	post := &models.Post{ID: 1, Content: "just some thoughts"}
	creds := &publish.Credentials{AccessToken: "live-token", AuthorUsername: "someuser"}

	res, err := s.Publish(context.Background(), post, creds, nil)
	require.NoError(t, err)
	assert.Equal(t, "t3_abc", res.ExternalID)
	assert.Equal(t, "https://www.reddit.com/comments/abc", res.ExternalURL)
}

func TestRedditPublishToSubreddit(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(redditSubmitOK(t, &form))
	defer server.Close()

	s := newRedditForTest(server.URL)
	post := &models.Post{ID: 1, Content: "community post", PageID: 5}
	creds := &publish.Credentials{AccessToken: "live-token", AuthorIdentity: "golang", AuthorUsername: "golang", PageID: 5}

	_, err := s.Publish(context.Background(), post, creds, nil)
	require.NoError(t, err)
	assert.Equal(t, "golang", form.Get("sr"))
}

func TestRedditPublishLinkFromContent(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(redditSubmitOK(t, &form))
	defer server.Close()

	s := newRedditForTest(server.URL)
	post := &models.Post{ID: 1, Content: "check out https://example.com/article"}
	creds := &publish.Credentials{AccessToken: "live-token", AuthorUsername: "someuser"}

	_, err := s.Publish(context.Background(), post, creds, nil)
	require.NoError(t, err)
	assert.Equal(t, "link", form.Get("kind"))
	assert.Equal(t, "https://example.com/article", form.Get("url"))
	assert.Empty(t, form.Get("text"))
}

func TestRedditPublishMediaBecomesLink(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(redditSubmitOK(t, &form))
	defer server.Close()

	s := newRedditForTest(server.URL)
	post := &models.Post{ID: 1, Content: "my photo"}
	creds := &publish.Credentials{AccessToken: "live-token", AuthorUsername: "someuser"}
	ref := &publish.AssetReference{URL: "https://cdn.example.com/photo.png", Kind: publish.MediaKindImage}

	_, err := s.Publish(context.Background(), post, creds, ref)
	require.NoError(t, err)
	assert.Equal(t, "link", form.Get("kind"))
	assert.Equal(t, "https://cdn.example.com/photo.png", form.Get("url"))
}

func TestRedditPublishTitleRules(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(redditSubmitOK(t, &form))
	defer server.Close()

	s := newRedditForTest(server.URL)
	creds := &publish.Credentials{AccessToken: "live-token", AuthorUsername: "someuser"}

	long := strings.Repeat("a", 400)
	_, err := s.Publish(context.Background(), &models.Post{ID: 1, Content: long}, creds, nil)
	require.NoError(t, err)
	assert.Len(t, form.Get("title"), 300)

	_, err = s.Publish(context.Background(), &models.Post{ID: 2, Content: ""}, creds, nil)
	require.NoError(t, err)
	assert.Equal(t, "(untitled post)", form.Get("title"))
}

func TestRedditPublishErrorNormalization(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{
			name:       "nested jquery errors",
			status:     http.StatusOK,
			body:       `{"json":{"errors":[["SUBREDDIT_NOTALLOWED","you aren't allowed to post there","sr"]]}}`,
			wantDetail: "SUBREDDIT_NOTALLOWED: you aren't allowed to post there: sr",
		},
		{
			name:       "flat numeric error",
			status:     http.StatusUnauthorized,
			body:       `{"error":401,"message":"Unauthorized"}`,
			wantDetail: "401: Unauthorized",
		},
		{
			name:       "flat string error",
			status:     http.StatusForbidden,
			body:       `{"error":"invalid_token"}`,
			wantDetail: "invalid_token",
		},
		{
			name:       "non-json body",
			status:     http.StatusServiceUnavailable,
			body:       `upstream unavailable`,
			wantDetail: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := newRedditForTest(server.URL)
			post := &models.Post{ID: 1, Content: "hello"}
			creds := &publish.Credentials{AccessToken: "live-token", AuthorUsername: "someuser"}

			_, err := s.Publish(context.Background(), post, creds, nil)
			var platformErr *publish.PlatformError
			require.True(t, errors.As(err, &platformErr))
			assert.Equal(t, models.PlatformReddit, platformErr.Platform)
			assert.Equal(t, tt.wantDetail, platformErr.Detail)
		})
	}
}

func TestRedditUploadMediaPassthrough(t *testing.T) {
	s := newRedditForTest("http://unused")
	asset := &models.MediaAsset{FileURL: "https://cdn.example.com/clip.mp4"}

	ref, err := s.UploadMedia(context.Background(), asset, publish.MediaKindVideo, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/clip.mp4", ref.URL)
	assert.Empty(t, ref.ID)
}

func TestRedditValidateMediaRequiresURL(t *testing.T) {
	s := newRedditForTest("http://unused")

	assert.NoError(t, s.ValidateMedia(&models.MediaAsset{FileURL: "https://cdn.example.com/a.png"}, publish.MediaKindImage))

	err := s.ValidateMedia(&models.MediaAsset{}, publish.MediaKindImage)
	var validationErr *publish.MediaValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestRedditRefreshTokenBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.Equal(t, "web:postdeck:test", r.Header.Get("User-Agent"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))

		w.Write([]byte(`{"access_token":"new-access","token_type":"bearer","expires_in":3600,"scope":"submit"}`))
	}))
	defer server.Close()

	s := newRedditForTest(server.URL)
	s.tokenURL = server.URL

	refreshed, err := s.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", refreshed.AccessToken)
	// Reddit does not rotate refresh tokens on every refresh.
	assert.Empty(t, refreshed.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), refreshed.ExpiresAt, 5*time.Second)
}

func TestRedditRefreshTokenMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	s := newRedditForTest(server.URL)
	s.tokenURL = server.URL

	_, err := s.RefreshToken(context.Background(), "revoked")
	require.Error(t, err)
}
