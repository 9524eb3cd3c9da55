package tour

import (
	"context"
	"sync"

	"walkumentary/pkg/model"
	"walkumentary/pkg/store"
)

// keyedMutex provides per-key locking. Entries are reference counted
// and removed once nobody holds or waits on them, so the map stays
// proportional to in-flight submissions rather than all fingerprints
// ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.Mutex.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.Mutex.Unlock()
}

// DeduplicationResolver answers "is there already a tour for this
// fingerprint that a new submission should reuse".
type DeduplicationResolver struct {
	tours store.TourStore
}

// NewDeduplicationResolver creates a resolver over the tour store.
func NewDeduplicationResolver(tours store.TourStore) *DeduplicationResolver {
	return &DeduplicationResolver{tours: tours}
}

// Resolve returns the most recent non-error tour with the fingerprint,
// or nil when a fresh tour is needed. Tours still in flight count: the
// caller polls them to completion instead of generating twice.
func (r *DeduplicationResolver) Resolve(ctx context.Context, fingerprint string) (*model.Tour, error) {
	return r.tours.GetTourByFingerprint(ctx, fingerprint)
}
