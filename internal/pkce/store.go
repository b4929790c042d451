// Package pkce implements the one-time code-verifier store used by the OAuth
// flows that require Proof Key for Code Exchange (RFC 7636), plus the helpers
// for generating verifiers and S256 challenges.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"
)

// DefaultTTL bounds how long a verifier waits for its callback. A user who
// abandons the provider's consent screen costs one entry for at most this long.
const DefaultTTL = 10 * time.Minute

type entry struct {
	verifier  string
	createdAt time.Time
}

// Store maps OAuth state values to code verifiers. Take is read-and-remove:
// no two callers can observe the same verifier for the same state.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a verifier keyed by state. State values are opaque; callers are
// responsible for generating them unguessably. Stale entries are swept here so
// abandoned flows cannot grow the map without bound.
func (s *Store) Put(state, verifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.createdAt) > s.ttl {
			delete(s.entries, k)
		}
	}
	s.entries[state] = entry{verifier: verifier, createdAt: now}
}

// Take removes and returns the verifier for state. Unknown, already-consumed,
// and expired states all report absent; callers must treat absent as fatal to
// the login attempt rather than proceeding without PKCE.
func (s *Store) Take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return "", false
	}
	delete(s.entries, state)
	if s.now().Sub(e.createdAt) > s.ttl {
		return "", false
	}
	return e.verifier, true
}

// Len reports the number of live entries (expired ones included until swept).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// NewVerifier returns a fresh code verifier: 32 random bytes, base64url
// encoded without padding.
func NewVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ChallengeS256 derives the code challenge: BASE64URL(SHA256(verifier)),
// no padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
