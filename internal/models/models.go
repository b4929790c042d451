package models

import "time"

type User struct {
	ID            string              `json:"id"`
	Email         string              `json:"email"`
	Name          string              `json:"name"`
	ImageURL      *string             `json:"imageUrl,omitempty"`
	PlatformGoals map[string][]string `json:"platformGoals,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// SocialAccount is a third-party account linked to a user. At most one row
// exists per (userId, platform); the registry enforces this by lookup before
// insert, not by a unique index.
type SocialAccount struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Platform       string          `json:"platform"`
	PlatformUserID string          `json:"platformUserId"`
	Username       string          `json:"username"`
	AccountName    *string         `json:"accountName,omitempty"`
	AccessToken    string          `json:"-"`
	RefreshToken   *string         `json:"-"`
	TokenExpiresAt *time.Time      `json:"tokenExpiresAt,omitempty"`
	AccountType    *string         `json:"accountType,omitempty"` // linkedin only: personal|company
	ManualMetrics  map[string]int  `json:"manualMetrics,omitempty"`
	Metrics        *AccountMetrics `json:"metrics,omitempty"`
	LastSynced     *time.Time      `json:"lastSynced,omitempty"`
	ConnectedAt    time.Time       `json:"connectedAt"`
}

// AccountMetrics is never nil after a sync; adapters return a zeroed value on
// failure instead of propagating errors.
type AccountMetrics struct {
	EngagementScore  int      `json:"engagementScore"`
	Connections      int      `json:"connections"`
	Posts            int      `json:"posts"`
	PendingResponses int      `json:"pendingResponses"`
	NewMessages      int      `json:"newMessages"`
	Likes            *int64   `json:"likes,omitempty"`
	Comments         *int64   `json:"comments,omitempty"`
	Shares           *int64   `json:"shares,omitempty"`
	Views            *int64   `json:"views,omitempty"`
	EngagementRate   *float64 `json:"engagementRate,omitempty"`
}
