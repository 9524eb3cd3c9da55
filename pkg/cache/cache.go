// Package cache layers TTL classes on top of the persistent key-value
// store. Callers pick a class, not a duration: the classes are the
// contract, the durations behind them are configuration.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"walkumentary/pkg/config"
	"walkumentary/pkg/store"
)

// Class names a TTL bucket.
type Class string

const (
	Hourly  Class = "hourly"
	Daily   Class = "daily"
	Monthly Class = "monthly"
)

// Cacher defines the caching interface.
type Cacher interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, class Class) error
	Invalidate(ctx context.Context, key string) error
}

// Store implements Cacher on a store.CacheStore backend.
type Store struct {
	backend store.CacheStore
	ttls    map[Class]time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a cache with TTLs taken from configuration.
func New(backend store.CacheStore, cfg *config.CacheConfig) *Store {
	return &Store{
		backend: backend,
		ttls: map[Class]time.Duration{
			Hourly:  time.Duration(cfg.Hourly),
			Daily:   time.Duration(cfg.Daily),
			Monthly: time.Duration(cfg.Monthly),
		},
		now: time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	return s.backend.GetCache(ctx, key, s.now())
}

func (s *Store) Set(ctx context.Context, key string, val []byte, class Class) error {
	ttl, ok := s.ttls[class]
	if !ok {
		ttl = s.ttls[Daily]
	}
	return s.backend.SetCache(ctx, key, val, string(class), s.now().Add(ttl))
}

// Invalidate removes a key before its TTL runs out.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	return s.backend.DeleteCache(ctx, key)
}

// GetJSON unmarshals a cached value into out. A decode failure counts
// as a miss so a schema change never wedges a key until expiry.
func (s *Store) GetJSON(ctx context.Context, key string, out any) bool {
	data, found := s.Get(ctx, key)
	if !found {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// SetJSON marshals v and stores it under the given class.
func (s *Store) SetJSON(ctx context.Context, key string, v any, class Class) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data, class)
}
