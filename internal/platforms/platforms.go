// Package platforms holds the per-provider adapters behind one contract:
// build an authorization URL, exchange a code for tokens, fetch the remote
// profile, and pull engagement metrics. Not every platform implements every
// capability; demo-mode platforms only sync static metrics.
package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pulsedash/backend/internal/models"
)

type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	LinkedIn  Platform = "linkedin"
	Snapchat  Platform = "snapchat"
	TikTok    Platform = "tiktok"
	Twitter   Platform = "twitter"
	YouTube   Platform = "youtube"
)

// All lists every supported platform.
func All() []Platform {
	return []Platform{Facebook, Instagram, LinkedIn, Snapchat, TikTok, Twitter, YouTube}
}

// Parse resolves a platform name case-insensitively.
func Parse(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Config carries the OAuth app registration for one platform.
type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURI  string
}

// ConfigFromEnv reads the platform's app registration, e.g.:
// FACEBOOK_CLIENT_ID, FACEBOOK_CLIENT_SECRET, FACEBOOK_SCOPE,
// FACEBOOK_REDIRECT_URI.
func ConfigFromEnv(p Platform) Config {
	prefix := strings.ToUpper(string(p)) + "_"
	return Config{
		ClientID:     os.Getenv(prefix + "CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "CLIENT_SECRET"),
		Scope:        os.Getenv(prefix + "SCOPE"),
		RedirectURI:  os.Getenv(prefix + "REDIRECT_URI"),
	}
}

// TokenResult is the outcome of a successful code exchange.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds; 0 when the provider did not say
}

// Profile identifies the remote account after connect.
type Profile struct {
	PlatformUserID string
	DisplayName    string
	Username       string
}

// Adapter is the minimum every platform provides. SyncMetrics is best-effort:
// a missing token, a network failure, or a provider error all yield zeroed
// metrics, never an error, so a broken provider cannot break the caller.
type Adapter interface {
	Platform() Platform
	SyncMetrics(ctx context.Context, account models.SocialAccount) models.AccountMetrics
}

// AuthURLBuilder assembles the provider's authorization endpoint. Adapters
// that require PKCE persist the verifier keyed by state before returning.
type AuthURLBuilder interface {
	BuildAuthorizationURL(state, redirectURI string) (string, error)
}

// CodeExchanger performs the provider-specific token exchange. verifier is
// empty for platforms without PKCE.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, verifier string) (TokenResult, error)
}

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (Profile, error)
}

type pkceMarker interface {
	UsesPKCE() bool
}

// UsesPKCE reports whether the adapter's callback needs a stored verifier.
func UsesPKCE(a Adapter) bool {
	m, ok := a.(pkceMarker)
	return ok && m.UsesPKCE()
}

// ErrUnsupportedPlatform means a linked account names a platform no adapter
// was registered for. That is a data/config bug, never silently ignored.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Registry maps platforms to adapters. It is populated once at startup;
// adding a platform means registering an adapter here.
type Registry struct {
	adapters map[Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

func (r *Registry) Lookup(p Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}
	return a, nil
}

func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TokenExchangeError means the provider rejected the authorization code or
// the exchange request failed outright. The connect attempt is fatal; the
// user retries the OAuth flow from scratch.
type TokenExchangeError struct {
	Platform Platform
	Status   int
	Reason   string
}

func (e *TokenExchangeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s token exchange failed: status=%d %s", e.Platform, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s token exchange failed: %s", e.Platform, e.Reason)
}

const requestTimeout = 10 * time.Second

func orDefaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: requestTimeout}
}
