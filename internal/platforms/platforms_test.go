package platforms

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		want Platform
		ok   bool
	}{
		"facebook":  {Facebook, true},
		"LinkedIn":  {LinkedIn, true},
		" TIKTOK ":  {TikTok, true},
		"youtube":   {YouTube, true},
		"myspace":   {"", false},
		"":          {"", false},
	}
	for in, tc := range cases {
		got, ok := Parse(in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Parse(%q) = %q,%v want %q,%v", in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(NewFacebook(Config{}, nil), NewTwitter(Config{}, nil, nil))

	if _, err := r.Lookup(Facebook); err != nil {
		t.Fatalf("Lookup(facebook): %v", err)
	}
	_, err := r.Lookup(Snapchat)
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}

	got := r.Platforms()
	if len(got) != 2 || got[0] != Facebook || got[1] != Twitter {
		t.Fatalf("Platforms() = %v", got)
	}
}

func TestUsesPKCE(t *testing.T) {
	if UsesPKCE(NewFacebook(Config{}, nil)) {
		t.Fatal("facebook should not use PKCE")
	}
	if !UsesPKCE(NewSnapchat(Config{}, nil, nil)) {
		t.Fatal("snapchat should use PKCE")
	}
	if !UsesPKCE(NewTwitter(Config{}, nil, nil)) {
		t.Fatal("twitter should use PKCE")
	}
	if !UsesPKCE(NewTikTok(Config{}, nil, nil)) {
		t.Fatal("tiktok should use PKCE")
	}
	if UsesPKCE(NewYouTube(Config{}, nil)) {
		t.Fatal("youtube should not use PKCE")
	}
}

func TestTokenFromResponse_Failures(t *testing.T) {
	_, err := tokenFromResponse(LinkedIn, map[string]any{"error_description": "bad code"}, 400, nil)
	var te *TokenExchangeError
	if !errors.As(err, &te) || te.Status != 400 {
		t.Fatalf("expected TokenExchangeError with status 400, got %v", err)
	}

	_, err = tokenFromResponse(LinkedIn, map[string]any{"scope": "r_liteprofile"}, 200, nil)
	if !errors.As(err, &te) {
		t.Fatalf("expected TokenExchangeError for missing access_token, got %v", err)
	}

	_, err = tokenFromResponse(LinkedIn, nil, 0, errors.New("dial tcp: timeout"))
	if !errors.As(err, &te) || te.Status != 0 {
		t.Fatalf("expected transport TokenExchangeError, got %v", err)
	}
}

func TestTokenFromResponse_Success(t *testing.T) {
	tok, err := tokenFromResponse(TikTok, map[string]any{
		"access_token":  "at",
		"refresh_token": "rt",
		"expires_in":    float64(86400),
	}, 200, nil)
	if err != nil {
		t.Fatalf("tokenFromResponse: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" || tok.ExpiresIn != 86400 {
		t.Fatalf("unexpected token result: %+v", tok)
	}
}

func TestInt64From(t *testing.T) {
	if int64From("12500") != 12500 {
		t.Fatal("string numbers should parse")
	}
	if int64From(float64(42)) != 42 {
		t.Fatal("json numbers should convert")
	}
	if int64From(nil) != 0 || int64From("n/a") != 0 {
		t.Fatal("junk should coerce to zero")
	}
}
