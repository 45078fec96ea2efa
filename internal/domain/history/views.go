package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dtcinsights/dtc-insights/pkg/metrics"
)

// Views keeps one Orchestrator per signed-in user so the dashboard can
// page, sort and export against the filters it last applied.
type Views struct {
	cfg     Config
	fetcher Fetcher
	metrics *metrics.History
	logger  *slog.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu    sync.Mutex
	views map[int64]*viewEntry
}

type viewEntry struct {
	orchestrator *Orchestrator
	lastSeen     time.Time
}

// NewViews builds the registry. Views idle for longer than idleTTL are
// dropped on the next lookup; zero keeps them forever.
func NewViews(cfg Config, fetcher Fetcher, m *metrics.History, idleTTL time.Duration, logger *slog.Logger) *Views {
	return &Views{
		cfg:     cfg,
		fetcher: fetcher,
		metrics: m,
		logger:  logger,
		idleTTL: idleTTL,
		now:     time.Now,
		views:   make(map[int64]*viewEntry),
	}
}

// For returns the user's orchestrator, creating it on first use.
func (v *Views) For(userID int64) *Orchestrator {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.evictIdle(now)
	entry, ok := v.views[userID]
	if !ok {
		entry = &viewEntry{orchestrator: v.New()}
		v.views[userID] = entry
	}
	entry.lastSeen = now
	return entry.orchestrator
}

// New returns a detached orchestrator for one-shot queries.
func (v *Views) New() *Orchestrator {
	return NewOrchestrator(v.cfg, v.fetcher, v.metrics, v.logger)
}

// Drop forgets the user's view, e.g. on logout.
func (v *Views) Drop(userID int64) {
	v.mu.Lock()
	delete(v.views, userID)
	v.mu.Unlock()
}

// Len reports how many views are held.
func (v *Views) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.views)
}

func (v *Views) evictIdle(now time.Time) {
	if v.idleTTL <= 0 {
		return
	}
	for id, entry := range v.views {
		if now.Sub(entry.lastSeen) > v.idleTTL {
			delete(v.views, id)
		}
	}
}
