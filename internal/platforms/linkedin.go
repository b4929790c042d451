package platforms

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/pulsedash/backend/internal/models"
	"github.com/pulsedash/backend/internal/score"
)

const linkedinAPI = "https://api.linkedin.com"

// LinkedInAdapter handles both account flavors. Company pages get real
// follower statistics from the organization API; personal profiles are
// locked out of analytics by the API, so they run on user-supplied manual
// metrics.
type LinkedInAdapter struct {
	cfg    Config
	client *http.Client
}

func NewLinkedIn(cfg Config, client *http.Client) *LinkedInAdapter {
	return &LinkedInAdapter{cfg: cfg, client: orDefaultClient(client)}
}

func (a *LinkedInAdapter) Platform() Platform { return LinkedIn }

func (a *LinkedInAdapter) BuildAuthorizationURL(state, redirectURI string) (string, error) {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", a.cfg.Scope)
	q.Set("state", state)
	return "https://www.linkedin.com/oauth/v2/authorization?" + q.Encode(), nil
}

func (a *LinkedInAdapter) ExchangeCode(ctx context.Context, code, _ string) (TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURI)
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	body, status, err := postFormJSON(ctx, a.client, "https://www.linkedin.com/oauth/v2/accessToken", form, nil)
	return tokenFromResponse(LinkedIn, body, status, err)
}

// FetchProfile uses the OpenID Connect userinfo endpoint; the legacy /v2/me
// projections need extra scopes.
func (a *LinkedInAdapter) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	body, status, err := getJSON(ctx, a.client, linkedinAPI+"/v2/userinfo", h)
	if err != nil {
		return Profile{}, fmt.Errorf("linkedin profile: %w", err)
	}
	if status < 200 || status >= 300 || str(body, "sub") == "" {
		return Profile{}, fmt.Errorf("linkedin profile: status=%d", status)
	}
	name := str(body, "name")
	if name == "" {
		name = str(body, "email")
	}
	return Profile{
		PlatformUserID: str(body, "sub"),
		DisplayName:    name,
		Username:       name,
	}, nil
}

func (a *LinkedInAdapter) SyncMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics {
	if account.AccountType != nil && *account.AccountType == "company" {
		return a.syncCompanyMetrics(ctx, account)
	}
	return personalMetrics(account)
}

func (a *LinkedInAdapter) syncCompanyMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics {
	if account.AccessToken == "" || account.PlatformUserID == "" {
		log.Printf("[LinkedIn] missing token or organization id account=%s", account.Username)
		return models.AccountMetrics{}
	}

	followers, gained, err := a.organizationFollowerStats(ctx, account.PlatformUserID, account.AccessToken)
	if err != nil {
		log.Printf("[LinkedIn] follower stats failed account=%s err=%v", account.Username, err)
		return models.AccountMetrics{}
	}

	return models.AccountMetrics{
		EngagementScore: companyScore(followers, gained),
		Connections:     followers,
	}
}

func (a *LinkedInAdapter) organizationFollowerStats(ctx context.Context, organizationID, accessToken string) (followers, gained int, err error) {
	urn := "urn:li:organization:" + organizationID
	q := url.Values{}
	q.Set("q", "organizationalEntity")
	q.Set("organizationalEntity", urn)

	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	h.Set("X-Restli-Protocol-Version", "2.0.0")

	body, status, err := getJSON(ctx, a.client, linkedinAPI+"/v2/organizationalEntityFollowerStatistics?"+q.Encode(), h)
	if err != nil {
		return 0, 0, err
	}
	if status < 200 || status >= 300 {
		return 0, 0, fmt.Errorf("follower statistics: status=%d", status)
	}

	elements := list(body, "elements")
	if len(elements) == 0 {
		return 0, 0, nil
	}
	first, _ := elements[0].(map[string]any)
	followers = intFrom(obj(first, "followerCounts")["organicFollowerCount"])
	gained = intFrom(obj(first, "followerGains")["organicFollowerGain"])
	return followers, gained, nil
}

// companyScore awards up to 40 points for audience size and up to 60 for
// recent organic growth.
func companyScore(followers, gained int) int {
	s := 0
	switch {
	case followers > 10000:
		s += 40
	case followers > 5000:
		s += 35
	case followers > 1000:
		s += 30
	case followers > 500:
		s += 20
	case followers > 100:
		s += 10
	case followers > 0:
		s += 5
	}
	switch {
	case gained > 1000:
		s += 60
	case gained > 500:
		s += 50
	case gained > 100:
		s += 40
	case gained > 50:
		s += 30
	case gained > 10:
		s += 20
	case gained > 0:
		s += 10
	}
	if s > 100 {
		s = 100
	}
	return s
}

// personalMetrics builds metrics from what the user typed in, zeroes when
// nothing was supplied.
func personalMetrics(account models.SocialAccount) models.AccountMetrics {
	mm := account.ManualMetrics
	if len(mm) == 0 {
		return models.AccountMetrics{}
	}
	m := models.AccountMetrics{
		Connections:      mm["connections"],
		Posts:            mm["posts"],
		PendingResponses: mm["pendingResponses"],
		NewMessages:      mm["newMessages"],
	}
	m.EngagementScore = score.Engagement(m)
	return m
}
