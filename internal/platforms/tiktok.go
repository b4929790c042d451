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

const tiktokAPI = "https://open.tiktokapis.com"

// TikTokAdapter talks to the Open API v2. TikTok names the app credential
// client_key rather than client_id, on the auth URL and the token exchange
// both.
type TikTokAdapter struct {
	cfg       Config
	client    *http.Client
	verifiers *pkce.Store
}

func NewTikTok(cfg Config, verifiers *pkce.Store, client *http.Client) *TikTokAdapter {
	return &TikTokAdapter{cfg: cfg, client: orDefaultClient(client), verifiers: verifiers}
}

func (a *TikTokAdapter) Platform() Platform { return TikTok }
func (a *TikTokAdapter) UsesPKCE() bool     { return true }

func (a *TikTokAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
	verifier, err := pkce.NewVerifier()
	if err != nil {
		return "", err
	}
	a.verifiers.Put(state, verifier)

	q := url.Values{}
	q.Set("client_key", a.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", a.cfg.Scope)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	q.Set("code_challenge", pkce.ChallengeS256(verifier))
	q.Set("code_challenge_method", "S256")
	return "https://www.tiktok.com/v2/auth/authorize/?" + q.Encode(), nil
}

func (a *TikTokAdapter) ExchangeCode(ctx context.Context, code, verifier string) (TokenResult, error) {
	form := url.Values{}
	form.Set("client_key", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("code_verifier", verifier)
	body, status, err := postFormJSON(ctx, a.client, tiktokAPI+"/v2/oauth/token/", form, nil)
	return tokenFromResponse(TikTok, body, status, err)
}

func (a *TikTokAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	user, status, err := a.userInfo(ctx, accessToken, "open_id,display_name")
	if err != nil {
		return Profile{}, fmt.Errorf("tiktok profile: %w", err)
	}
	if status < 200 || status >= 300 || str(user, "open_id") == "" {
		return Profile{}, fmt.Errorf("tiktok profile: status=%d", status)
	}
	return Profile{
		PlatformUserID: str(user, "open_id"),
		DisplayName:    str(user, "display_name"),
		Username:       str(user, "display_name"),
	}, nil
}

func (a *TikTokAdapter) SyncMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics {
	if account.AccessToken == "" {
		return models.AccountMetrics{}
	}
	user, status, err := a.userInfo(ctx, account.AccessToken, "open_id,follower_count,video_count,likes_count")
	if err != nil || status < 200 || status >= 300 {
		log.Printf("[TikTok] metrics fetch failed account=%s status=%d err=%v", account.Username, status, err)
		return models.AccountMetrics{}
	}
	return models.AccountMetrics{
		Connections: intFrom(user["follower_count"]),
		Posts:       intFrom(user["video_count"]),
		Likes:       int64Ptr(int64From(user["likes_count"])),
	}
}

func (a *TikTokAdapter) userInfo(ctx context.Context, accessToken, fields string) (map[string]any, int, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	q := url.Values{}
	q.Set("fields", fields)
	body, status, err := getJSON(ctx, a.client, tiktokAPI+"/v2/user/info/?"+q.Encode(), h)
	if err != nil {
		return nil, status, err
	}
	return obj(obj(body, "data"), "user"), status, nil
}
