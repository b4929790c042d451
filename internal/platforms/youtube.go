package platforms

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/pulsedash/backend/internal/models"
)

// YouTubeAdapter authenticates through Google OAuth and reads channel
// statistics from the Data API v3. Google returns statistics as strings.
type YouTubeAdapter struct {
	cfg    Config
	client *http.Client
}

func NewYouTube(cfg Config, client *http.Client) *YouTubeAdapter {
	return &YouTubeAdapter{cfg: cfg, client: orDefaultClient(client)}
}

func (a *YouTubeAdapter) Platform() Platform { return YouTube }

func (a *YouTubeAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", a.cfg.Scope)
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode(), nil
}

func (a *YouTubeAdapter) ExchangeCode(ctx context.Context, code, _ string) (TokenResult, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")
	body, status, err := postFormJSON(ctx, a.client, "https://oauth2.googleapis.com/token", form, nil)
	return tokenFromResponse(YouTube, body, status, err)
}

func (a *YouTubeAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	channel, status, err := a.channel(ctx, accessToken, "snippet")
	if err != nil {
		return Profile{}, fmt.Errorf("youtube channel: %w", err)
	}
	if status < 200 || status >= 300 || str(channel, "id") == "" {
		return Profile{}, fmt.Errorf("youtube channel: status=%d", status)
	}
	title := str(obj(channel, "snippet"), "title")
	return Profile{
		PlatformUserID: str(channel, "id"),
		DisplayName:    title,
		Username:       title,
	}, nil
}

func (a *YouTubeAdapter) SyncMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics {
	if account.AccessToken == "" {
		return models.AccountMetrics{}
	}
	channel, status, err := a.channel(ctx, account.AccessToken, "snippet,statistics")
	if err != nil || status < 200 || status >= 300 || channel == nil {
		log.Printf("[YouTube] metrics fetch failed account=%s status=%d err=%v", account.Username, status, err)
		return models.AccountMetrics{}
	}
	stats := obj(channel, "statistics")
	return models.AccountMetrics{
		Connections: intFrom(stats["subscriberCount"]),
		Posts:       intFrom(stats["videoCount"]),
		Views:       int64Ptr(int64From(stats["viewCount"])),
	}
}

func (a *YouTubeAdapter) channel(ctx context.Context, accessToken, part string) (map[string]any, int, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	q := url.Values{}
	q.Set("part", part)
	q.Set("mine", "true")
	body, status, err := getJSON(ctx, a.client, "https://www.googleapis.com/youtube/v3/channels?"+q.Encode(), h)
	if err != nil {
		return nil, status, err
	}
	items := list(body, "items")
	if len(items) == 0 {
		return nil, status, nil
	}
	first, _ := items[0].(map[string]any)
	return first, status, nil
}
