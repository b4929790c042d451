package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes on the router.
func RegisterRoutes(h *Handler, r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Social account lifecycle
	r.HandleFunc("/api/social-accounts", h.ListAccounts).Methods("GET")
	r.HandleFunc("/api/social-accounts/score", h.OverallScore).Methods("GET")
	r.HandleFunc("/api/social-accounts/connect/{platform}", h.Connect).Methods("GET")
	r.HandleFunc("/api/social-accounts/{platform}/callback", h.Callback).Methods("GET")
	r.HandleFunc("/api/social-accounts/{accountId}/sync", h.SyncAccount).Methods("POST")
	r.HandleFunc("/api/social-accounts/{accountId}", h.Disconnect).Methods("DELETE")

	// AI insights
	r.HandleFunc("/api/insights/{accountId}", h.GetInsights).Methods("GET")
	r.HandleFunc("/api/insights/{accountId}/refresh", h.RefreshInsights).Methods("POST")

	// LinkedIn-specific configuration
	r.HandleFunc("/api/linkedin/{accountId}/manual-metrics", h.SetManualMetrics).Methods("POST")
	r.HandleFunc("/api/linkedin/{accountId}/account-type", h.SetAccountType).Methods("POST")

	// Goal preferences
	r.HandleFunc("/api/preferences/goals/available", h.GetAvailableGoals).Methods("GET")
	r.HandleFunc("/api/preferences/goals", h.GetGoals).Methods("GET")
	r.HandleFunc("/api/preferences/goals", h.SetAllGoals).Methods("PUT")
	r.HandleFunc("/api/preferences/goals/{platform}", h.SetPlatformGoals).Methods("PUT")
}
