package transfer

import "encoding/json"

type RedditTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

type RedditUserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconImg string `json:"icon_img"`
}

// RedditSubmitResponse covers both error shapes reddit returns: the jquery
// style nested errors array under "json", and a flat top-level "error" field
// on auth failures. Error is a RawMessage because reddit emits it as either a
// number or a string depending on the failure.
type RedditSubmitResponse struct {
	JSON struct {
		Errors [][]json.RawMessage `json:"errors"`
		Data   struct {
			URL  string `json:"url"`
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	} `json:"json"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type RedditSubredditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string `json:"id"`
				DisplayName string `json:"display_name"`
				Title       string `json:"title"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
