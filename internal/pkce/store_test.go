package pkce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTakeIsOneShot(t *testing.T) {
	s := NewStore(0)
	s.Put("state1", "verifier1")

	v, ok := s.Take("state1")
	if !ok || v != "verifier1" {
		t.Fatalf("first take: got %q ok=%v", v, ok)
	}
	if _, ok := s.Take("state1"); ok {
		t.Fatalf("second take should be absent")
	}
	if _, ok := s.Take("never-stored"); ok {
		t.Fatalf("unknown state should be absent")
	}
}

func TestTakeAtMostOnceUnderConcurrency(t *testing.T) {
	s := NewStore(0)
	s.Put("race", "v")

	var hits int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take("race"); ok {
				atomic.AddInt64(&hits, 1)
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Fatalf("verifier observed %d times, want exactly 1", hits)
	}
}

func TestExpiredEntriesAreAbsentAndSwept(t *testing.T) {
	s := NewStore(10 * time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	s.Put("old", "v-old")

	s.now = func() time.Time { return base.Add(11 * time.Minute) }
	if _, ok := s.Take("old"); ok {
		t.Fatalf("expired entry should be absent")
	}

	// A later Put sweeps anything stale left behind by abandoned flows.
	s.now = func() time.Time { return base }
	s.Put("a", "1")
	s.Put("b", "2")
	s.now = func() time.Time { return base.Add(11 * time.Minute) }
	s.Put("c", "3")
	if got := s.Len(); got != 1 {
		t.Fatalf("expected only the fresh entry after sweep, have %d", got)
	}
}

func TestChallengeS256_KnownVector(t *testing.T) {
	// Appendix B of RFC 7636.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := ChallengeS256(verifier); got != want {
		t.Fatalf("challenge = %q, want %q", got, want)
	}
}

func TestNewVerifier(t *testing.T) {
	v1, err := NewVerifier()
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	v2, _ := NewVerifier()
	if v1 == v2 {
		t.Fatalf("verifiers should not repeat")
	}
	// 32 bytes base64url without padding encodes to 43 chars.
	if len(v1) != 43 {
		t.Fatalf("verifier length %d, want 43", len(v1))
	}
}
