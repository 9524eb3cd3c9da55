package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"walkumentary/pkg/config"
	"walkumentary/pkg/db"
	"walkumentary/pkg/store"
)

func newTestCache(t *testing.T) *Store {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "cache_test.db"))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	cfg := &config.CacheConfig{
		Hourly:  config.Duration(2 * time.Hour),
		Daily:   config.Duration(2 * config.Day),
		Monthly: config.Duration(35 * config.Day),
	}
	return New(store.NewSQLiteStore(d), cfg)
}

func TestHourlyClassBoundary(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	c.SetClock(func() time.Time { return clock })

	if err := c.Set(ctx, "stats:hour", []byte("42"), Hourly); err != nil {
		t.Fatal(err)
	}

	// 119 minutes later: still inside the 2h window.
	clock = base.Add(119 * time.Minute)
	if _, found := c.Get(ctx, "stats:hour"); !found {
		t.Error("expected hit at 119m")
	}

	// 121 minutes later: expired.
	clock = base.Add(121 * time.Minute)
	if _, found := c.Get(ctx, "stats:hour"); found {
		t.Error("expected miss at 121m")
	}
}

func TestMonthlyClassOutlivesDaily(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	c.SetClock(func() time.Time { return clock })

	if err := c.Set(ctx, "d", []byte("x"), Daily); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "m", []byte("y"), Monthly); err != nil {
		t.Fatal(err)
	}

	clock = base.Add(3 * 24 * time.Hour)
	if _, found := c.Get(ctx, "d"); found {
		t.Error("daily entry should be gone after 3 days")
	}
	if _, found := c.Get(ctx, "m"); !found {
		t.Error("monthly entry should survive 3 days")
	}
}

func TestInvalidate(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), Monthly); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get(ctx, "k"); found {
		t.Error("expected miss after invalidation")
	}
}

func TestJSONRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type point struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	in := point{Lat: 40.78, Lon: -73.96}

	if err := c.SetJSON(ctx, "geo:k", in, Monthly); err != nil {
		t.Fatal(err)
	}

	var out point
	if !c.GetJSON(ctx, "geo:k", &out) {
		t.Fatal("expected hit")
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	// Corrupt payloads read as misses.
	if err := c.Set(ctx, "geo:bad", []byte("{not json"), Monthly); err != nil {
		t.Fatal(err)
	}
	if c.GetJSON(ctx, "geo:bad", &out) {
		t.Error("expected miss for corrupt payload")
	}
}
