// Package handlers exposes the HTTP surface: account listing, OAuth connect
// and callback redirects, metrics sync, insights, and goal preferences.
package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/pulsedash/backend/internal/accounts"
	"github.com/pulsedash/backend/internal/auth"
	"github.com/pulsedash/backend/internal/dispatch"
	"github.com/pulsedash/backend/internal/insights"
	"github.com/pulsedash/backend/internal/models"
	"github.com/pulsedash/backend/internal/pkce"
	"github.com/pulsedash/backend/internal/platforms"
	"github.com/pulsedash/backend/internal/prefs"
	"github.com/pulsedash/backend/internal/score"
)

type Handler struct {
	accounts    *accounts.Registry
	adapters    *platforms.Registry
	dispatcher  *dispatch.Dispatcher
	verifiers   *pkce.Store
	cache       *insights.Cache
	generator   *insights.Generator
	prefs       *prefs.Service
	tokens      auth.TokenValidator
	frontendURL string
	logger      *log.Logger
}

type Config struct {
	Accounts    *accounts.Registry
	Adapters    *platforms.Registry
	Dispatcher  *dispatch.Dispatcher
	Verifiers   *pkce.Store
	Cache       *insights.Cache
	Generator   *insights.Generator
	Prefs       *prefs.Service
	Tokens      auth.TokenValidator
	FrontendURL string
	Logger      *log.Logger
}

func New(cfg Config) *Handler {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Handler{
		accounts:    cfg.Accounts,
		adapters:    cfg.Adapters,
		dispatcher:  cfg.Dispatcher,
		verifiers:   cfg.Verifiers,
		cache:       cfg.Cache,
		generator:   cfg.Generator,
		prefs:       cfg.Prefs,
		tokens:      cfg.Tokens,
		frontendURL: cfg.FrontendURL,
		logger:      cfg.Logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// userID authenticates the request or writes a 401.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return "", false
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return userID, true
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	list, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Printf("[Accounts] list failed userId=%s err=%v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// OverallScore summarizes the user's presence across every connected account.
// Accounts that have never synced, or whose last sync came back empty, are
// left out of the average.
func (h *Handler) OverallScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	list, err := h.accounts.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Printf("[Accounts] list failed userId=%s err=%v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	var metrics []models.AccountMetrics
	for _, acc := range list {
		if acc.Metrics != nil && *acc.Metrics != (models.AccountMetrics{}) {
			metrics = append(metrics, *acc.Metrics)
		}
	}
	overall := score.Overall(metrics)
	writeJSON(w, http.StatusOK, map[string]any{
		"overallScore": overall,
		"label":        score.Label(overall),
		"color":        score.Color(overall),
		"accounts":     len(list),
	})
}

// Connect starts the OAuth flow: 302 to the provider's authorization page.
// The session token rides along as the OAuth state so the callback can
// re-identify the user without a cookie.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, h.frontendURL+"/?error=missing_token", http.StatusFound)
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		http.Redirect(w, r, h.frontendURL+"/?error=invalid_token", http.StatusFound)
		return
	}

	name := pathVar(r, "platform")
	p, ok := platforms.Parse(name)
	if !ok {
		h.redirectError(w, r, name, "unsupported platform")
		return
	}
	adapter, err := h.adapters.Lookup(p)
	if err != nil {
		h.redirectError(w, r, string(p), "unsupported platform")
		return
	}
	builder, ok := adapter.(platforms.AuthURLBuilder)
	if !ok {
		h.redirectError(w, r, string(p), "connect not supported")
		return
	}

	authURL, err := builder.BuildAuthorizationURL(token, platforms.ConfigFromEnv(p).RedirectURI)
	if err != nil {
		h.logger.Printf("[Connect] auth url failed platform=%s err=%v", p, err)
		h.redirectError(w, r, string(p), "failed to start authorization")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback finishes the OAuth flow. Every failure redirects back to the
// front end with a {platform}_error marker; only success produces
// {platform}_connected=true.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "platform")
	p, ok := platforms.Parse(name)
	if !ok {
		h.redirectError(w, r, name, "unsupported platform")
		return
	}

	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		if d := q.Get("error_description"); d != "" {
			msg = d
		}
		h.redirectError(w, r, string(p), msg)
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.redirectError(w, r, string(p), "missing code or state")
		return
	}

	userID, err := h.tokens.ValidateToken(state)
	if err != nil {
		h.redirectError(w, r, string(p), "invalid_state")
		return
	}

	adapter, err := h.adapters.Lookup(p)
	if err != nil {
		h.redirectError(w, r, string(p), "unsupported platform")
		return
	}

	var verifier string
	if platforms.UsesPKCE(adapter) {
		verifier, ok = h.verifiers.Take(state)
		if !ok {
			h.redirectError(w, r, string(p), "invalid_state")
			return
		}
	}

	exchanger, ok := adapter.(platforms.CodeExchanger)
	if !ok {
		h.redirectError(w, r, string(p), "connect not supported")
		return
	}
	tok, err := exchanger.ExchangeCode(r.Context(), code, verifier)
	if err != nil {
		h.logger.Printf("[Callback] exchange failed platform=%s err=%v", p, err)
		h.redirectError(w, r, string(p), err.Error())
		return
	}

	fetcher, ok := adapter.(platforms.ProfileFetcher)
	if !ok {
		h.redirectError(w, r, string(p), "connect not supported")
		return
	}
	profile, err := fetcher.FetchProfile(r.Context(), tok.AccessToken)
	if err != nil {
		h.logger.Printf("[Callback] profile failed platform=%s err=%v", p, err)
		h.redirectError(w, r, string(p), err.Error())
		return
	}

	acc, err := h.accounts.Upsert(r.Context(), userID, p, profile, tok)
	if err != nil {
		h.logger.Printf("[Callback] upsert failed platform=%s userId=%s err=%v", p, userID, err)
		h.redirectError(w, r, string(p), "failed to save account")
		return
	}

	// First sync runs inline so the dashboard has numbers immediately.
	if _, err := h.dispatcher.Sync(r.Context(), acc); err != nil {
		h.logger.Printf("[Callback] initial sync failed accountId=%s err=%v", acc.ID, err)
	}

	h.logger.Printf("[Callback] connected platform=%s userId=%s accountId=%s", p, userID, acc.ID)
	http.Redirect(w, r, h.frontendURL+"/?"+string(p)+"_connected=true", http.StatusFound)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, platform, msg string) {
	http.Redirect(w, r, h.frontendURL+"/?"+platform+"_error="+url.QueryEscape(msg), http.StatusFound)
}

func (h *Handler) SyncAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID := pathVar(r, "accountId")
	acc, err := h.dispatcher.SyncOne(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.cache.Invalidate(userID, accountID)
	writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID := pathVar(r, "accountId")
	if err := h.accounts.Disconnect(r.Context(), accountID, userID); err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.cache.Invalidate(userID, accountID)
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
}

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID := pathVar(r, "accountId")
	acc, err := h.accounts.GetOwned(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}

	text, err := h.cache.Get(userID, accountID, func() (string, error) {
		goals, err := h.prefs.PlatformGoals(r.Context(), userID, acc.Platform)
		if err != nil {
			goals = prefs.DefaultGoals
		}
		return h.generator.Generate(r.Context(), *acc, goals), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate insight")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accountId": accountID, "insight": text})
}

func (h *Handler) RefreshInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.cache.Invalidate(userID, pathVar(r, "accountId"))
	h.GetInsights(w, r)
}

// SetManualMetrics stores user-entered numbers for a LinkedIn account and
// resyncs so the engagement score reflects them right away.
func (h *Handler) SetManualMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID := pathVar(r, "accountId")
	acc, err := h.accounts.GetOwned(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	if acc.Platform != string(platforms.LinkedIn) {
		writeError(w, http.StatusBadRequest, "manual metrics are only for linkedin accounts")
		return
	}

	var metrics map[string]int
	if err := decodeJSON(r, &metrics); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.accounts.SetManualMetrics(r.Context(), accountID, metrics); err != nil {
		h.writeAccountError(w, err)
		return
	}

	updated, err := h.dispatcher.SyncOne(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.cache.Invalidate(userID, accountID)
	writeJSON(w, http.StatusOK, updated)
}

// SetAccountType marks a LinkedIn account personal or company.
func (h *Handler) SetAccountType(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	accountID := pathVar(r, "accountId")
	acc, err := h.accounts.GetOwned(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	if acc.Platform != string(platforms.LinkedIn) {
		writeError(w, http.StatusBadRequest, "account type is only for linkedin accounts")
		return
	}

	var body struct {
		AccountType string `json:"accountType"`
	}
	if err := decodeJSON(r, &body); err != nil || (body.AccountType != "personal" && body.AccountType != "company") {
		writeError(w, http.StatusBadRequest, "accountType must be personal or company")
		return
	}
	if err := h.accounts.SetAccountType(r.Context(), accountID, body.AccountType); err != nil {
		h.writeAccountError(w, err)
		return
	}

	updated, err := h.dispatcher.SyncOne(r.Context(), accountID, userID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	all, err := h.prefs.AllPlatformGoals(r.Context(), userID)
	if err != nil {
		h.writePrefsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func (h *Handler) GetAvailableGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"goals": prefs.AvailableGoals})
}

func (h *Handler) SetPlatformGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	platform := pathVar(r, "platform")

	var body struct {
		Goals []string `json:"goals"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.prefs.SetPlatformGoals(r.Context(), userID, platform, body.Goals); err != nil {
		h.writePrefsError(w, err)
		return
	}
	// Goals feed the insight prompt, so cached insights are stale now.
	h.cache.InvalidateAll(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) SetAllGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var body map[string][]string
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.prefs.SetAllPlatformGoals(r.Context(), userID, body); err != nil {
		h.writePrefsError(w, err)
		return
	}
	h.cache.InvalidateAll(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) writeAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, accounts.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "account does not belong to user")
	case errors.Is(err, platforms.ErrUnsupportedPlatform):
		writeError(w, http.StatusBadRequest, "unsupported platform")
	default:
		h.logger.Printf("[Accounts] error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writePrefsError(w http.ResponseWriter, err error) {
	var ige *prefs.InvalidGoalError
	switch {
	case errors.As(err, &ige):
		writeError(w, http.StatusBadRequest, ige.Error())
	case errors.Is(err, prefs.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Printf("[Prefs] error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
