package tracker

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"walkumentary/pkg/model"
)

type memUsage struct {
	mu   sync.Mutex
	recs []*model.UsageRecord
}

func (m *memUsage) RecordUsage(_ context.Context, rec *model.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memUsage) UsageSince(_ context.Context, since time.Time) ([]*model.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs, nil
}

func TestTracker(t *testing.T) {
	tr := New(nil)
	provider := "test.provider"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	// Test Tracking
	tr.TrackCacheHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)

	stats = tr.Snapshot()
	pStats, ok := stats[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}

	if pStats.CacheHits != 1 {
		t.Errorf("Expected 1 CacheHit, got %d", pStats.CacheHits)
	}
	if pStats.CacheMisses != 1 {
		t.Errorf("Expected 1 CacheMiss, got %d", pStats.CacheMisses)
	}
	if pStats.APISuccess != 1 {
		t.Errorf("Expected 1 APISuccess, got %d", pStats.APISuccess)
	}
	if pStats.APIFailures != 1 {
		t.Errorf("Expected 1 APIFailure, got %d", pStats.APIFailures)
	}
}

func TestTrackUsageAccumulatesCost(t *testing.T) {
	usage := &memUsage{}
	tr := New(usage)
	ctx := context.Background()

	// 1000 tokens at $0.000765/1k = $0.000765
	tr.TrackUsage(ctx, "openai", "tour_content", 1000, 0.000765, 2*time.Second)
	// 4000 characters at $0.015/1k = $0.06
	tr.TrackUsage(ctx, "polly", "audio_synthesis", 4000, 0.015, 900*time.Millisecond)

	stats := tr.Snapshot()
	if got := stats["openai"].CostUSD; math.Abs(got-0.000765) > 1e-6 {
		t.Errorf("openai cost = %f, want 0.000765", got)
	}
	if got := stats["polly"].CostUSD; math.Abs(got-0.06) > 1e-6 {
		t.Errorf("polly cost = %f, want 0.06", got)
	}
	if stats["polly"].Units != 4000 {
		t.Errorf("polly units = %d, want 4000", stats["polly"].Units)
	}

	if len(usage.recs) != 2 {
		t.Fatalf("persisted %d records, want 2", len(usage.recs))
	}
	if usage.recs[1].LatencyMS != 900 {
		t.Errorf("latency = %d, want 900", usage.recs[1].LatencyMS)
	}
}

func TestResetKeepsProviders(t *testing.T) {
	tr := New(nil)
	tr.TrackAPISuccess("openai")

	tr.Reset()

	stats := tr.Snapshot()
	s, ok := stats["openai"]
	if !ok {
		t.Fatal("provider should still exist after reset")
	}
	if s.APISuccess != 0 {
		t.Errorf("APISuccess = %d, want 0", s.APISuccess)
	}
}

func TestTrackerConcurrency(t *testing.T) {
	tr := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackAPISuccess("p")
			tr.TrackCacheHit("p")
		}()
	}
	wg.Wait()

	stats := tr.Snapshot()
	if stats["p"].APISuccess != 50 || stats["p"].CacheHits != 50 {
		t.Errorf("lost updates: %+v", stats["p"])
	}
}
