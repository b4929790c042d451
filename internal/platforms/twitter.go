package platforms

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/pulsedash/backend/internal/models"
	"github.com/pulsedash/backend/internal/pkce"
)

const twitterAPI = "https://api.twitter.com"

// TwitterAdapter uses OAuth2 with PKCE plus Basic client authentication on
// the token endpoint, the confidential-client variant of the v2 flow.
type TwitterAdapter struct {
	cfg       Config
	client    *http.Client
	verifiers *pkce.Store
}

func NewTwitter(cfg Config, verifiers *pkce.Store, client *http.Client) *TwitterAdapter {
	return &TwitterAdapter{cfg: cfg, client: orDefaultClient(client), verifiers: verifiers}
}

func (a *TwitterAdapter) Platform() Platform { return Twitter }
func (a *TwitterAdapter) UsesPKCE() bool     { return true }

func (a *TwitterAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
	verifier, err := pkce.NewVerifier()
	if err != nil {
		return "", err
	}
	a.verifiers.Put(state, verifier)

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", a.cfg.Scope)
	q.Set("state", state)
	q.Set("code_challenge", pkce.ChallengeS256(verifier))
	q.Set("code_challenge_method", "S256")
	return "https://twitter.com/i/oauth2/authorize?" + q.Encode(), nil
}

func (a *TwitterAdapter) ExchangeCode(ctx context.Context, code, verifier string) (TokenResult, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("code_verifier", verifier)

	h := http.Header{}
	h.Set("Authorization", "Basic "+basicAuth(a.cfg.ClientID, a.cfg.ClientSecret))
	body, status, err := postFormJSON(ctx, a.client, twitterAPI+"/2/oauth2/token", form, h)
	return tokenFromResponse(Twitter, body, status, err)
}

func (a *TwitterAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	data, status, err := a.usersMe(ctx, accessToken)
	if err != nil {
		return Profile{}, fmt.Errorf("twitter profile: %w", err)
	}
	if status < 200 || status >= 300 || str(data, "id") == "" {
		return Profile{}, fmt.Errorf("twitter profile: status=%d", status)
	}
	return Profile{
		PlatformUserID: str(data, "id"),
		DisplayName:    str(data, "name"),
		Username:       str(data, "username"),
	}, nil
}

func (a *TwitterAdapter) SyncMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics {
	if account.AccessToken == "" {
		return models.AccountMetrics{}
	}
	data, status, err := a.usersMe(ctx, account.AccessToken)
	if err != nil || status < 200 || status >= 300 {
		log.Printf("[Twitter] metrics fetch failed account=%s status=%d err=%v", account.Username, status, err)
		return models.AccountMetrics{}
	}
	pm := obj(data, "public_metrics")
	return models.AccountMetrics{
		Connections: intFrom(pm["followers_count"]),
		Posts:       intFrom(pm["tweet_count"]),
	}
}

func (a *TwitterAdapter) usersMe(ctx context.Context, accessToken string) (map[string]any, int, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	q := url.Values{}
	q.Set("user.fields", "id,name,username,profile_image_url,public_metrics")
	body, status, err := getJSON(ctx, a.client, twitterAPI+"/2/users/me?"+q.Encode(), h)
	if err != nil {
		return nil, status, err
	}
	return obj(body, "data"), status, nil
}
