package syncer

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one guarded sync trigger.
type Result struct {
	OK      bool   `json:"ok"`
	Seen    int    `json:"seen"`
	Stored  int    `json:"stored"`
	Changed bool   `json:"changed"`
	Reason  string `json:"reason,omitempty"`
}

// Guard serializes sync passes: concurrent triggers are skipped instead
// of queued, and triggers arriving within the cooldown window after a
// completed pass are no-ops. Both cases answer like a pass that found
// nothing new, without touching the network.
type Guard struct {
	runner   Runner
	cooldown time.Duration
	nowFn    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

func NewGuard(runner Runner, cooldown time.Duration) *Guard {
	return &Guard{
		runner:   runner,
		cooldown: cooldown,
		nowFn:    time.Now,
	}
}

func (g *Guard) Run(ctx context.Context) Result {
	if !g.mu.TryLock() {
		return Result{OK: true, Reason: "sync already running"}
	}
	defer g.mu.Unlock()

	if !g.lastRun.IsZero() && g.nowFn().Sub(g.lastRun) < g.cooldown {
		return Result{OK: true, Reason: "cooldown"}
	}

	seen, stored := g.runner.SyncOnce(ctx)
	g.lastRun = g.nowFn()

	return Result{OK: true, Seen: seen, Stored: stored, Changed: stored > 0}
}
