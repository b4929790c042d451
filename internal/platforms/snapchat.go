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

// SnapchatAdapter uses Login Kit with PKCE. The token exchange sends both
// the client secret and the code verifier; Snapchat accepts the combination
// for confidential clients.
type SnapchatAdapter struct {
	cfg       Config
	client    *http.Client
	verifiers *pkce.Store
}

func NewSnapchat(cfg Config, verifiers *pkce.Store, client *http.Client) *SnapchatAdapter {
	return &SnapchatAdapter{cfg: cfg, client: orDefaultClient(client), verifiers: verifiers}
}

func (a *SnapchatAdapter) Platform() Platform { return Snapchat }
func (a *SnapchatAdapter) UsesPKCE() bool     { return true }

func (a *SnapchatAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
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
	return "https://accounts.snapchat.com/accounts/oauth2/auth?" + q.Encode(), nil
}

func (a *SnapchatAdapter) ExchangeCode(ctx context.Context, code, verifier string) (TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code_verifier", verifier)
	body, status, err := postFormJSON(ctx, a.client, "https://accounts.snapchat.com/accounts/oauth2/token", form, nil)
	return tokenFromResponse(Snapchat, body, status, err)
}

func (a *SnapchatAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	body, status, err := getJSON(ctx, a.client, "https://kit.snapchat.com/v1/me", h)
	if err != nil {
		return Profile{}, fmt.Errorf("snapchat profile: %w", err)
	}
	if status < 200 || status >= 300 {
		return Profile{}, fmt.Errorf("snapchat profile: status=%d", status)
	}
	me := obj(obj(body, "data"), "me")
	if str(me, "externalId") == "" {
		return Profile{}, fmt.Errorf("snapchat profile: response missing externalId")
	}
	return Profile{
		PlatformUserID: str(me, "externalId"),
		DisplayName:    str(me, "displayName"),
		Username:       str(me, "displayName"),
	}, nil
}

// SyncMetrics returns the demo dataset; Login Kit exposes identity only,
// not friend or story analytics.
func (a *SnapchatAdapter) SyncMetrics(_ context.Context, account models.SocialAccount) models.AccountMetrics {
	log.Printf("[Snapchat] using demo metrics account=%s", account.Username)
	return models.AccountMetrics{
		EngagementScore:  78,
		Connections:      5200,
		Posts:            892,
		PendingResponses: 12,
		NewMessages:      34,
	}
}
