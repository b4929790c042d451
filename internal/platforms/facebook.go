package platforms

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/pulsedash/backend/internal/models"
)

const graphBase = "https://graph.facebook.com"

// FacebookAdapter drives the legacy Facebook Graph flow: the token exchange
// is a GET with query parameters, not a form POST.
type FacebookAdapter struct {
	cfg    Config
	client *http.Client
}

func NewFacebook(cfg Config, client *http.Client) *FacebookAdapter {
	return &FacebookAdapter{cfg: cfg, client: orDefaultClient(client)}
}

func (a *FacebookAdapter) Platform() Platform { return Facebook }

func (a *FacebookAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", a.cfg.Scope)
	q.Set("state", state)
	return "https://www.facebook.com/v18.0/dialog/oauth?" + q.Encode(), nil
}

func (a *FacebookAdapter) ExchangeCode(ctx context.Context, code, _ string) (TokenResult, error) {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("client_secret", a.cfg.ClientSecret)
	q.Set("code", code)
	q.Set("redirect_uri", a.cfg.RedirectURI)
	body, status, err := getJSON(ctx, a.client, graphBase+"/v18.0/oauth/access_token?"+q.Encode(), nil)
	return tokenFromResponse(Facebook, body, status, err)
}

func (a *FacebookAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	q := url.Values{}
	q.Set("fields", "id,name,email")
	q.Set("access_token", accessToken)
	body, status, err := getJSON(ctx, a.client, graphBase+"/me?"+q.Encode(), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("facebook profile: %w", err)
	}
	if status < 200 || status >= 300 {
		return Profile{}, fmt.Errorf("facebook profile: status=%d", status)
	}
	if str(body, "id") == "" {
		return Profile{}, fmt.Errorf("facebook profile: response missing id")
	}
	return Profile{
		PlatformUserID: str(body, "id"),
		DisplayName:    str(body, "name"),
		Username:       str(body, "name"),
	}, nil
}

// SyncMetrics returns the demo dataset. Real page metrics need app review;
// the dashboard still gets populated numbers in the meantime.
func (a *FacebookAdapter) SyncMetrics(_ context.Context, account models.SocialAccount) models.AccountMetrics {
	log.Printf("[Facebook] using demo metrics account=%s", account.Username)
	return models.AccountMetrics{
		EngagementScore:  85,
		Connections:      1250,
		Posts:            89,
		PendingResponses: 5,
		NewMessages:      12,
	}
}
