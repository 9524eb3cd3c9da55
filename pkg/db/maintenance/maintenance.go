// Package maintenance runs periodic database housekeeping: expired
// cache rows are swept so the file does not grow without bound between
// restarts.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"walkumentary/pkg/db"
	"walkumentary/pkg/store"
)

// DefaultInterval is how often the cache sweep runs.
const DefaultInterval = time.Hour

// LastPruneKey is the persistent state key recording when the last
// sweep completed, so operators can tell a stuck sweeper from an idle
// one across restarts.
const LastPruneKey = "maintenance.last_prune"

// Run prunes once immediately, then keeps sweeping on the interval
// until the context is cancelled.
func Run(ctx context.Context, d *db.DB, st store.StateStore, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	pruneOnce(ctx, d, st)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruneOnce(ctx, d, st)
			}
		}
	}()
}

func pruneOnce(ctx context.Context, d *db.DB, st store.StateStore) {
	now := time.Now().UTC()
	n, err := d.PruneCache(now)
	if err != nil {
		slog.Warn("Cache prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned expired cache entries", "rows", n)
	}
	if st != nil {
		if err := st.SetState(ctx, LastPruneKey, now.Format(time.RFC3339)); err != nil {
			slog.Warn("Failed to record prune timestamp", "error", err)
		}
	}
}
