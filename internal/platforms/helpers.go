package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// getJSON issues a GET and decodes the body as a generic JSON object.
// A non-2xx status is not an error here; callers decide what it means.
func getJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return doJSON(client, req)
}

// postFormJSON issues an application/x-www-form-urlencoded POST and decodes
// the JSON response.
func postFormJSON(ctx context.Context, client *http.Client, rawURL string, form url.Values, header http.Header) (map[string]any, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return doJSON(client, req)
}

func doJSON(client *http.Client, req *http.Request) (map[string]any, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var out map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return out, resp.StatusCode, nil
}

// tokenFromResponse applies the shared failure taxonomy to a token exchange
// response: transport errors, non-2xx statuses, and bodies without an
// access_token all become TokenExchangeError.
func tokenFromResponse(p Platform, body map[string]any, status int, err error) (TokenResult, error) {
	if err != nil {
		return TokenResult{}, &TokenExchangeError{Platform: p, Reason: err.Error()}
	}
	if status < 200 || status >= 300 {
		return TokenResult{}, &TokenExchangeError{Platform: p, Status: status, Reason: truncate(str(body, "error_description"), 200)}
	}
	tok := str(body, "access_token")
	if tok == "" {
		return TokenResult{}, &TokenExchangeError{Platform: p, Status: status, Reason: "response missing access_token"}
	}
	return TokenResult{
		AccessToken:  tok,
		RefreshToken: str(body, "refresh_token"),
		ExpiresIn:    int64From(body["expires_in"]),
	}, nil
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func obj(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

func list(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	l, _ := m[key].([]any)
	return l
}

// int64From coerces JSON numbers and numeric strings. Some providers return
// statistics as strings.
func int64From(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i
	}
	return 0
}

func intFrom(v any) int {
	return int(int64From(v))
}

func int64Ptr(v int64) *int64 { return &v }

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
