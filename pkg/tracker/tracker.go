// Package tracker keeps in-memory usage counters per provider and
// mirrors every billable call into the usage store for cost reporting.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"walkumentary/pkg/model"
	"walkumentary/pkg/store"
)

// Tracker tracks usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats

	usage store.UsageStore
}

// ProviderStats holds metrics for a specific provider.
// Counter fields are accessed atomically.
type ProviderStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64

	// Cost is accumulated in micro-dollars to stay atomic-friendly.
	costMicro  int64
	unitsTotal int64
}

// CostUSD returns the accumulated cost in dollars.
func (p *ProviderStats) CostUSD() float64 {
	return float64(atomic.LoadInt64(&p.costMicro)) / 1e6
}

// Units returns the accumulated billable units (tokens or characters).
func (p *ProviderStats) Units() int64 {
	return atomic.LoadInt64(&p.unitsTotal)
}

// New creates a new Tracker. The usage store may be nil; counters then
// live in memory only.
func New(usage store.UsageStore) *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
		usage: usage,
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackUsage records a billable call: units at the provider's rate,
// persisted as one usage row.
func (t *Tracker) TrackUsage(ctx context.Context, provider, operation string, units int64, costPer1K float64, latency time.Duration) {
	cost := float64(units) / 1000.0 * costPer1K

	s := t.getStats(provider)
	atomic.AddInt64(&s.unitsTotal, units)
	atomic.AddInt64(&s.costMicro, int64(cost*1e6))

	if t.usage == nil {
		return
	}
	rec := &model.UsageRecord{
		Provider:  provider,
		Operation: operation,
		Units:     units,
		Cost:      cost,
		LatencyMS: latency.Milliseconds(),
		CreatedAt: time.Now(),
	}
	if err := t.usage.RecordUsage(ctx, rec); err != nil {
		slog.Warn("failed to persist usage record", "provider", provider, "error", err)
	}
}

// StatsView is an externally readable copy of one provider's counters.
type StatsView struct {
	CacheHits   int64   `json:"cache_hits"`
	CacheMisses int64   `json:"cache_misses"`
	APISuccess  int64   `json:"api_success"`
	APIFailures int64   `json:"api_failures"`
	Units       int64   `json:"units"`
	CostUSD     float64 `json:"cost_usd"`
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]StatsView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]StatsView)
	for k, v := range t.stats {
		result[k] = StatsView{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			Units:       v.Units(),
			CostUSD:     v.CostUSD(),
		}
	}
	return result
}

// Reset zeroes all counters but keeps the provider entries.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &ProviderStats{}
	}
}
