// Package prefs stores per-platform goal preferences on the user row. Goals
// steer which metrics the insight prompt emphasizes.
package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// AvailableGoals is the closed set a user may pick from per platform.
var AvailableGoals = []string{
	"growth",        // growing followers/audience
	"engagement",    // increasing likes/comments/shares
	"traffic",       // driving website clicks/conversions
	"response",      // improving response time/customer service
	"content",       // tracking content performance
	"comprehensive", // all metrics
}

// DefaultGoals applies when a user never set preferences for a platform.
var DefaultGoals = []string{"comprehensive"}

var ErrUserNotFound = errors.New("user not found")

type InvalidGoalError struct {
	Goal string
}

func (e *InvalidGoalError) Error() string {
	return fmt.Sprintf("invalid goal: %s (available: %s)", e.Goal, strings.Join(AvailableGoals, ", "))
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// PlatformGoals returns the user's goals for one platform, or the default.
func (s *Service) PlatformGoals(ctx context.Context, userID, platform string) ([]string, error) {
	all, err := s.AllPlatformGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, ok := all[strings.ToLower(platform)]
	if !ok || len(goals) == 0 {
		return append([]string(nil), DefaultGoals...), nil
	}
	return goals, nil
}

// AllPlatformGoals returns a copy; callers may mutate freely.
func (s *Service) AllPlatformGoals(ctx context.Context, userID string) (map[string][]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT platform_goals FROM users WHERE id = $1`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load platform goals: %w", err)
	}

	out := map[string][]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode platform goals: %w", err)
		}
	}
	return out, nil
}

// SetPlatformGoals validates and stores goals for one platform, merging with
// the user's other platforms.
func (s *Service) SetPlatformGoals(ctx context.Context, userID, platform string, goals []string) error {
	if err := validateGoals(goals); err != nil {
		return err
	}

	all, err := s.AllPlatformGoals(ctx, userID)
	if err != nil {
		return err
	}
	all[strings.ToLower(platform)] = normalizeGoals(goals)
	return s.save(ctx, userID, all)
}

// SetAllPlatformGoals replaces the whole preference map.
func (s *Service) SetAllPlatformGoals(ctx context.Context, userID string, allGoals map[string][]string) error {
	normalized := make(map[string][]string, len(allGoals))
	for platform, goals := range allGoals {
		if err := validateGoals(goals); err != nil {
			return err
		}
		normalized[strings.ToLower(platform)] = normalizeGoals(goals)
	}
	return s.save(ctx, userID, normalized)
}

func (s *Service) save(ctx context.Context, userID string, all map[string][]string) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET platform_goals = $1 WHERE id = $2`, raw, userID)
	if err != nil {
		return fmt.Errorf("save platform goals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func validateGoals(goals []string) error {
	for _, g := range goals {
		if !isAvailable(g) {
			return &InvalidGoalError{Goal: g}
		}
	}
	return nil
}

func isAvailable(goal string) bool {
	goal = strings.ToLower(goal)
	for _, g := range AvailableGoals {
		if g == goal {
			return true
		}
	}
	return false
}

func normalizeGoals(goals []string) []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = strings.ToLower(g)
	}
	return out
}
