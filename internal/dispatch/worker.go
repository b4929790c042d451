package dispatch

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsedash/backend/internal/platforms"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimits keeps background sweeps inside each network's quota
// policy. Override per platform via env.
func DefaultRateLimits() map[platforms.Platform]RateLimitConfig {
	return map[platforms.Platform]RateLimitConfig{
		platforms.Facebook:  {RequestsPerSecond: 1, Burst: 2},
		platforms.Instagram: {RequestsPerSecond: 1, Burst: 2},
		platforms.LinkedIn:  {RequestsPerSecond: 1, Burst: 2},
		platforms.Snapchat:  {RequestsPerSecond: 1, Burst: 1},
		platforms.TikTok:    {RequestsPerSecond: 1, Burst: 2},
		platforms.Twitter:   {RequestsPerSecond: 1, Burst: 1},
		platforms.YouTube:   {RequestsPerSecond: 3, Burst: 3},
	}
}

// rateLimitFromEnv reads overrides, e.g.:
// METRICS_SYNC_TWITTER_RPS=0.5
// METRICS_SYNC_TWITTER_BURST=2
func rateLimitFromEnv(p platforms.Platform, def RateLimitConfig) RateLimitConfig {
	prefix := "METRICS_SYNC_" + strings.ToUpper(string(p)) + "_"
	if v := os.Getenv(prefix + "RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			def.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(prefix + "BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			def.Burst = n
		}
	}
	return def
}

func limiterFor(p platforms.Platform) *rate.Limiter {
	cfg := rateLimitFromEnv(p, DefaultRateLimits()[p])
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// RunWorker periodically re-syncs every linked account, one pass at startup
// and another each interval, until the context is canceled. Each platform
// gets its own limiter so a slow provider cannot starve the rest of a sweep.
func (d *Dispatcher) RunWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	d.logger.Printf("[SyncWorker] started interval=%s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	limiters := make(map[platforms.Platform]*rate.Limiter)
	for _, p := range platforms.All() {
		limiters[p] = limiterFor(p)
	}

	d.sweep(ctx, limiters)
	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("[SyncWorker] stopped err=%v", ctx.Err())
			return
		case <-ticker.C:
			d.sweep(ctx, limiters)
		}
	}
}

func (d *Dispatcher) sweep(ctx context.Context, limiters map[platforms.Platform]*rate.Limiter) {
	list, err := d.accounts.ListAll(ctx)
	if err != nil {
		d.logger.Printf("[SyncWorker] list accounts failed err=%v", err)
		return
	}

	synced := 0
	for i := range list {
		acc := list[i]
		p, ok := platforms.Parse(acc.Platform)
		if !ok {
			d.logger.Printf("[SyncWorker] skipping unknown platform=%s accountId=%s", acc.Platform, acc.ID)
			continue
		}
		if lim := limiters[p]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return
			}
		}
		if _, err := d.Sync(ctx, &acc); err != nil {
			d.logger.Printf("[SyncWorker] sync failed platform=%s accountId=%s err=%v", acc.Platform, acc.ID, err)
			continue
		}
		synced++
	}
	d.logger.Printf("[SyncWorker] sweep complete accounts=%d synced=%d", len(list), synced)
}
