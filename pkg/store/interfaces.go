package store

import (
	"context"
	"time"

	"walkumentary/pkg/model"
)

// TourStore handles tour persistence.
type TourStore interface {
	GetTour(ctx context.Context, id string) (*model.Tour, error)
	GetTourByFingerprint(ctx context.Context, fingerprint string) (*model.Tour, error)
	ListToursByUser(ctx context.Context, userID string, limit int) ([]*model.Tour, error)
	SaveTour(ctx context.Context, tour *model.Tour) error
	// UpdateTourStatus persists a status transition. It refuses to move
	// the row backwards: the stored status must rank below the new one.
	UpdateTourStatus(ctx context.Context, id string, status model.Status) (bool, error)
	SetTourError(ctx context.Context, id, cause, detail string) error
}

// CacheEntry is a cached value with its bookkeeping columns.
type CacheEntry struct {
	Key          string
	Value        []byte
	TTLClass     string
	ExpiresAt    time.Time
	HitCount     int64
	LastAccessed time.Time
	CreatedAt    time.Time
}

// CacheStore handles TTL-bounded key-value caching. Reads past the
// expiry behave as misses even before the pruner has run.
type CacheStore interface {
	GetCache(ctx context.Context, key string, now time.Time) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte, ttlClass string, expiresAt time.Time) error
	DeleteCache(ctx context.Context, key string) error
	GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error)
	ListCacheKeys(ctx context.Context, prefix string) ([]string, error)
}

// AudioStore handles synthesized audio blobs.
type AudioStore interface {
	GetAudio(ctx context.Context, tourID string) (data []byte, format string, err error)
	SaveAudio(ctx context.Context, tourID string, data []byte, format string) error
}

// UsageStore handles provider usage accounting.
type UsageStore interface {
	RecordUsage(ctx context.Context, rec *model.UsageRecord) error
	UsageSince(ctx context.Context, since time.Time) ([]*model.UsageRecord, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
