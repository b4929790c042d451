// Package dispatch routes sync requests to the right platform adapter and
// persists the resulting metrics.
package dispatch

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pulsedash/backend/internal/accounts"
	"github.com/pulsedash/backend/internal/models"
	"github.com/pulsedash/backend/internal/platforms"
	"github.com/pulsedash/backend/internal/score"
)

type Dispatcher struct {
	accounts *accounts.Registry
	adapters *platforms.Registry
	logger   *log.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(reg *accounts.Registry, adapters *platforms.Registry, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Dispatcher{
		accounts: reg,
		adapters: adapters,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SyncOne refreshes metrics for one account on behalf of its owner. Adapter
// failures are not errors here; the account always comes back with metrics
// set and last_synced advanced.
func (d *Dispatcher) SyncOne(ctx context.Context, accountID, userID string) (*models.SocialAccount, error) {
	acc, err := d.accounts.GetOwned(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return d.sync(ctx, acc)
}

// Sync refreshes metrics without an ownership check; the background worker
// uses it.
func (d *Dispatcher) Sync(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
	return d.sync(ctx, acc)
}

func (d *Dispatcher) sync(ctx context.Context, acc *models.SocialAccount) (*models.SocialAccount, error) {
	p, ok := platforms.Parse(acc.Platform)
	if !ok {
		return nil, platforms.ErrUnsupportedPlatform
	}
	adapter, err := d.adapters.Lookup(p)
	if err != nil {
		return nil, err
	}

	unlock := d.lockAccount(acc.ID)
	defer unlock()

	start := d.now()
	m := adapter.SyncMetrics(ctx, *acc)
	// A fully zeroed result means the provider call failed; leave it zeroed
	// rather than awarding the responsiveness baseline.
	if m.EngagementScore == 0 && m != (models.AccountMetrics{}) {
		m.EngagementScore = score.Engagement(m)
	}

	if err := d.accounts.SaveSync(ctx, acc.ID, m, d.now()); err != nil {
		return nil, err
	}
	d.logger.Printf("[Sync] done platform=%s accountId=%s score=%d dur=%s",
		acc.Platform, acc.ID, m.EngagementScore, time.Since(start))

	return d.accounts.GetByID(ctx, acc.ID)
}

// lockAccount serializes syncs of a single account; different accounts
// proceed in parallel.
func (d *Dispatcher) lockAccount(accountID string) func() {
	d.mu.Lock()
	l, ok := d.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		d.locks[accountID] = l
	}
	d.mu.Unlock()
	l.Lock()
	return l.Unlock
}
