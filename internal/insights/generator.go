package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pulsedash/backend/internal/models"
)

const (
	defaultCompletionURL = "https://api.anthropic.com/v1/messages"
	completionModel      = "claude-3-5-sonnet-20240620"
	completionMaxTokens  = 150
)

// Generator writes one actionable recommendation per account. Without an
// API key, or when the completion call fails, it falls back to a
// deterministic placeholder keyed off the account's numbers, so the
// endpoint never errors for lack of an LLM.
type Generator struct {
	apiKey string
	apiURL string
	client *http.Client
	logger *log.Logger
}

func NewGenerator(logger *log.Logger) *Generator {
	url := os.Getenv("CLAUDE_API_URL")
	if url == "" {
		url = defaultCompletionURL
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Generator{
		apiKey: os.Getenv("CLAUDE_API_KEY"),
		apiURL: url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Generate returns insight text for the account given the user's goals for
// its platform.
func (g *Generator) Generate(ctx context.Context, account models.SocialAccount, goals []string) string {
	if g.apiKey == "" || g.apiKey == "placeholder" {
		g.logger.Printf("[Insights] completion API not configured, using placeholder accountId=%s", account.ID)
		return placeholderInsight(account)
	}

	text, err := g.complete(ctx, buildPrompt(account, goals))
	if err != nil {
		g.logger.Printf("[Insights] completion failed accountId=%s err=%v", account.ID, err)
		return placeholderInsight(account)
	}
	return text
}

func buildPrompt(account models.SocialAccount, goals []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a social media marketing expert. Analyze the following %s account metrics and provide a brief, actionable insight.\n\n", account.Platform)
	fmt.Fprintf(&b, "Account: @%s\n", account.Username)
	fmt.Fprintf(&b, "Platform: %s\n\n", account.Platform)
	b.WriteString("Current Metrics:\n")
	if account.Metrics != nil {
		fmt.Fprintf(&b, "- Followers: %d\n", account.Metrics.Connections)
		fmt.Fprintf(&b, "- Posts: %d\n", account.Metrics.Posts)
		fmt.Fprintf(&b, "- Pending Responses: %d\n", account.Metrics.PendingResponses)
		fmt.Fprintf(&b, "- Engagement Score: %d/100\n", account.Metrics.EngagementScore)
	}
	fmt.Fprintf(&b, "\nUser's Goals: %s\n\n", strings.Join(goals, ", "))
	b.WriteString("Provide ONE specific, actionable insight (2-3 sentences max) that helps achieve their goals. ")
	b.WriteString("Focus on what they should DO next. Be encouraging but practical. ")
	b.WriteString("Do not use emojis or markdown formatting.")
	return b.String()
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":      completionModel,
		"max_tokens": completionMaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion API: status=%d", resp.StatusCode)
	}

	var body struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if len(body.Content) == 0 || body.Content[0].Text == "" {
		return "", fmt.Errorf("completion API: empty content")
	}
	return body.Content[0].Text, nil
}

func placeholderInsight(account models.SocialAccount) string {
	score, pending := 0, 0
	if account.Metrics != nil {
		score = account.Metrics.EngagementScore
		pending = account.Metrics.PendingResponses
	}

	if pending > 0 {
		plural := ""
		if pending > 1 {
			plural = "s"
		}
		return fmt.Sprintf("You have %d pending response%s. Quick responses help maintain engagement. Try to reply within 24 hours for best results.", pending, plural)
	}

	switch {
	case score >= 80:
		return "Your engagement is excellent! Maintain consistency by posting regularly and interacting with your audience daily."
	case score >= 60:
		return "Good engagement! Try posting 2-3 times per week and respond to comments quickly to boost your score."
	case score >= 40:
		return "Your account needs attention. Focus on posting quality content consistently and engaging with your audience."
	default:
		return "Time to revitalize your presence! Start by posting valuable content this week and responding to all comments."
	}
}
