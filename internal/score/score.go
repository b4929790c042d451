// Package score turns raw account metrics into the 0-100 engagement score
// shown on the dashboard. Everything here is pure; the same metrics always
// produce the same score.
package score

import (
	"math"

	"github.com/pulsedash/backend/internal/models"
)

const (
	connectionsWeight = 0.3
	postsWeight       = 0.5
	responseWeight    = 0.2
)

// Engagement computes the engagement score for a single account.
// Connections saturate at 10,000 (connections/100 capped at 100), each post is
// worth 2 points up to 50 posts, and every pending response costs 2 points off
// a 100-point responsiveness baseline.
func Engagement(m models.AccountMetrics) int {
	connections := m.Connections
	posts := m.Posts
	pending := m.PendingResponses
	if connections < 0 {
		connections = 0
	}
	if posts < 0 {
		posts = 0
	}
	if pending < 0 {
		pending = 0
	}

	connectionScore := math.Min(float64(connections)/100.0, 100.0) * connectionsWeight
	postScore := math.Min(float64(posts)*2.0, 100.0) * postsWeight
	responseScore := math.Max(0, 100.0-float64(pending)*2.0) * responseWeight

	total := int(math.Round(connectionScore + postScore + responseScore))
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Overall averages the already-computed per-account scores. Empty input
// scores zero.
func Overall(list []models.AccountMetrics) int {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, m := range list {
		sum += m.EngagementScore
	}
	return int(math.Round(float64(sum) / float64(len(list))))
}

// Label maps a score to the dashboard status label.
func Label(score int) string {
	switch {
	case score >= 80:
		return "Crushing It"
	case score >= 60:
		return "Doing Well"
	case score >= 40:
		return "Needs Attention"
	default:
		return "Falling Behind"
	}
}

// Color maps a score to the UI color class.
func Color(score int) string {
	switch {
	case score >= 80:
		return "green"
	case score >= 60:
		return "blue"
	case score >= 40:
		return "yellow"
	default:
		return "red"
	}
}
