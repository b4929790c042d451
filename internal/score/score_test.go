package score

import (
	"testing"

	"github.com/pulsedash/backend/internal/models"
)

func TestEngagement_ReferenceScenario(t *testing.T) {
	// connectionScore = min(12.5,100)*0.3 = 3.75
	// postScore       = min(178,100)*0.5  = 50
	// responseScore   = max(0,90)*0.2     = 18
	m := models.AccountMetrics{Connections: 1250, Posts: 89, PendingResponses: 5}
	if got := Engagement(m); got != 72 {
		t.Fatalf("expected 72, got %d", got)
	}
}

func TestEngagement_Bounds(t *testing.T) {
	cases := []models.AccountMetrics{
		{},
		{Connections: 1_000_000, Posts: 10_000, PendingResponses: 0},
		{PendingResponses: 10_000},
		{Connections: -5, Posts: -5, PendingResponses: -5},
		{Connections: 1, Posts: 1, PendingResponses: 1},
	}
	for _, m := range cases {
		got := Engagement(m)
		if got < 0 || got > 100 {
			t.Fatalf("score out of range for %+v: %d", m, got)
		}
	}
}

func TestEngagement_Monotonic(t *testing.T) {
	base := models.AccountMetrics{Connections: 500, Posts: 10, PendingResponses: 10}
	s := Engagement(base)

	more := base
	more.Connections += 1000
	if Engagement(more) < s {
		t.Fatalf("score should not decrease when connections grow")
	}

	more = base
	more.Posts += 20
	if Engagement(more) < s {
		t.Fatalf("score should not decrease when posts grow")
	}

	more = base
	more.PendingResponses += 20
	if Engagement(more) > s {
		t.Fatalf("score should not increase when pending responses grow")
	}
}

func TestEngagement_ZeroMetricsScoresResponseBaseline(t *testing.T) {
	// No activity at all still earns the responsiveness baseline: 100*0.2.
	if got := Engagement(models.AccountMetrics{}); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}

func TestOverall(t *testing.T) {
	if Overall(nil) != 0 {
		t.Fatalf("empty list should score 0")
	}
	list := []models.AccountMetrics{
		{EngagementScore: 72},
		{EngagementScore: 20},
	}
	if got := Overall(list); got != 46 {
		t.Fatalf("expected 46, got %d", got)
	}
	if got := Overall([]models.AccountMetrics{{EngagementScore: 85}}); got != 85 {
		t.Fatalf("expected 85, got %d", got)
	}
}

func TestLabelAndColor(t *testing.T) {
	cases := []struct {
		score int
		label string
		color string
	}{
		{95, "Crushing It", "green"},
		{80, "Crushing It", "green"},
		{79, "Doing Well", "blue"},
		{60, "Doing Well", "blue"},
		{59, "Needs Attention", "yellow"},
		{40, "Needs Attention", "yellow"},
		{39, "Falling Behind", "red"},
		{0, "Falling Behind", "red"},
	}
	for _, c := range cases {
		if got := Label(c.score); got != c.label {
			t.Fatalf("Label(%d) = %q, want %q", c.score, got, c.label)
		}
		if got := Color(c.score); got != c.color {
			t.Fatalf("Color(%d) = %q, want %q", c.score, got, c.color)
		}
	}
}
