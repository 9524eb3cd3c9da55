package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"walkumentary/pkg/db"
	"walkumentary/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	TourStore
	CacheStore
	AudioStore
	UsageStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Tours ---

const tourColumns = `id, fingerprint, user_id, status, title, description, content,
	location_id, location_name, city, country, lat, lon,
	stops, total_walking_meters, estimated_walk_minutes,
	audio_url, audio_format, transcript,
	duration_minutes, interests, language, voice,
	provider, model, error_cause, error_detail, created_at, updated_at`

func (s *SQLiteStore) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = ?`, id)
	return scanTour(row)
}

func (s *SQLiteStore) GetTourByFingerprint(ctx context.Context, fingerprint string) (*model.Tour, error) {
	// Error rows never satisfy dedup; a retry must get a fresh tour.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours
		 WHERE fingerprint = ? AND status != 'error'
		 ORDER BY created_at DESC LIMIT 1`, fingerprint)
	return scanTour(row)
}

func (s *SQLiteStore) ListToursByUser(ctx context.Context, userID string, limit int) ([]*model.Tour, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (*model.Tour, error) {
	var t model.Tour
	var title, description, content sql.NullString
	var locationID, locationName sql.NullString
	var city, country sql.NullString
	var lat, lon sql.NullFloat64
	var stopsJSON, transcriptJSON sql.NullString
	var totalMeters, walkMinutes sql.NullFloat64
	var audioURL, audioFormat sql.NullString
	var interestsJSON, language, voice sql.NullString
	var provider, mdl, errCause, errDetail sql.NullString

	err := row.Scan(
		&t.ID, &t.Fingerprint, &t.UserID, &t.Status,
		&title, &description, &content,
		&locationID, &locationName, &city, &country, &lat, &lon,
		&stopsJSON, &totalMeters, &walkMinutes,
		&audioURL, &audioFormat, &transcriptJSON,
		&t.DurationMinutes, &interestsJSON, &language, &voice,
		&provider, &mdl, &errCause, &errDetail,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}

	t.Title = title.String
	t.Description = description.String
	t.Content = content.String
	t.LocationID = locationID.String
	t.LocationName = locationName.String
	t.City = city.String
	t.Country = country.String
	t.Latitude = lat.Float64
	t.Longitude = lon.Float64
	t.TotalWalkingMeters = totalMeters.Float64
	t.EstimatedWalkMinutes = walkMinutes.Float64
	t.AudioURL = audioURL.String
	t.AudioFormat = audioFormat.String
	t.Language = language.String
	t.Voice = voice.String
	t.Provider = provider.String
	t.Model = mdl.String
	t.ErrorCause = errCause.String
	t.ErrorDetail = errDetail.String

	if stopsJSON.Valid && stopsJSON.String != "" {
		_ = json.Unmarshal([]byte(stopsJSON.String), &t.Stops)
	}
	if transcriptJSON.Valid && transcriptJSON.String != "" {
		_ = json.Unmarshal([]byte(transcriptJSON.String), &t.Transcript)
	}
	if interestsJSON.Valid && interestsJSON.String != "" {
		_ = json.Unmarshal([]byte(interestsJSON.String), &t.Interests)
	}
	return &t, nil
}

func (s *SQLiteStore) SaveTour(ctx context.Context, t *model.Tour) error {
	stopsJSON, _ := json.Marshal(t.Stops)
	transcriptJSON, _ := json.Marshal(t.Transcript)
	interestsJSON, _ := json.Marshal(t.Interests)

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	t.UpdatedAt = time.Now()

	query := `INSERT OR REPLACE INTO tours (` + tourColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Fingerprint, t.UserID, t.Status,
		t.Title, t.Description, t.Content,
		t.LocationID, t.LocationName, t.City, t.Country, t.Latitude, t.Longitude,
		string(stopsJSON), t.TotalWalkingMeters, t.EstimatedWalkMinutes,
		t.AudioURL, t.AudioFormat, string(transcriptJSON),
		t.DurationMinutes, string(interestsJSON), t.Language, t.Voice,
		t.Provider, t.Model, t.ErrorCause, t.ErrorDetail,
		createdAt, t.UpdatedAt,
	)
	return err
}

func (s *SQLiteStore) UpdateTourStatus(ctx context.Context, id string, status model.Status) (bool, error) {
	var current model.Status
	err := s.db.QueryRowContext(ctx, "SELECT status FROM tours WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("tour %s not found", id)
	}
	if err != nil {
		return false, err
	}
	if !current.CanTransition(status) {
		return false, nil
	}

	// Guard against a concurrent writer racing past us.
	res, err := s.db.ExecContext(ctx,
		"UPDATE tours SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		status, time.Now(), id, current)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) SetTourError(ctx context.Context, id, cause, detail string) error {
	ok, err := s.UpdateTourStatus(ctx, id, model.StatusError)
	if err != nil {
		return err
	}
	if !ok {
		return nil // already terminal
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE tours SET error_cause = ?, error_detail = ?, updated_at = ? WHERE id = ?",
		cause, detail, time.Now(), id)
	return err
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string, now time.Time) ([]byte, bool) {
	var val []byte
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache_entries WHERE key = ?", key).Scan(&val, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}
	if !now.Before(expiresAt) {
		return nil, false // expired, pruner will collect it
	}

	_, _ = s.db.ExecContext(ctx,
		"UPDATE cache_entries SET hit_count = hit_count + 1, last_accessed = ? WHERE key = ?", now, key)

	// Transparent Decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
	}
	return val, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte, ttlClass string, expiresAt time.Time) error {
	// Transparent Compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT INTO cache_entries (key, value, ttl_class, expires_at, hit_count, last_accessed, created_at)
		VALUES (?, ?, ?, ?, 0, NULL, ?)
		ON CONFLICT(key) DO UPDATE SET
		value=excluded.value,
		ttl_class=excluded.ttl_class,
		expires_at=excluded.expires_at`
	_, err = s.db.ExecContext(ctx, query, key, val, ttlClass, expiresAt, time.Now())
	return err
}

func (s *SQLiteStore) DeleteCache(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
	return err
}

func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error) {
	var e CacheEntry
	var lastAccessed sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, ttl_class, expires_at, hit_count, last_accessed, created_at
		 FROM cache_entries WHERE key = ?`, key).Scan(
		&e.Key, &e.Value, &e.TTLClass, &e.ExpiresAt, &e.HitCount, &lastAccessed, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastAccessed.Valid {
		e.LastAccessed = lastAccessed.Time
	}
	return &e, nil
}

func (s *SQLiteStore) ListCacheKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM cache_entries WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- Audio ---

func (s *SQLiteStore) GetAudio(ctx context.Context, tourID string) ([]byte, string, error) {
	var data []byte
	var format string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, format FROM audio_blobs WHERE tour_id = ?", tourID).Scan(&data, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func (s *SQLiteStore) SaveAudio(ctx context.Context, tourID string, data []byte, format string) error {
	// Audio is already compressed (mp3/ogg), store as-is.
	query := `INSERT OR REPLACE INTO audio_blobs (tour_id, data, format, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, tourID, data, format, time.Now())
	return err
}

// --- Usage ---

func (s *SQLiteStore) RecordUsage(ctx context.Context, rec *model.UsageRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := `INSERT INTO usage_records (provider, operation, units, cost, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.Provider, rec.Operation, rec.Units, rec.Cost, rec.LatencyMS, createdAt)
	return err
}

func (s *SQLiteStore) UsageSince(ctx context.Context, since time.Time) ([]*model.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, operation, units, cost, latency_ms, created_at
		 FROM usage_records WHERE created_at >= ? ORDER BY created_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.UsageRecord
	for rows.Next() {
		var r model.UsageRecord
		var latency sql.NullInt64
		if err := rows.Scan(&r.Provider, &r.Operation, &r.Units, &r.Cost, &latency, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.LatencyMS = latency.Int64
		results = append(results, &r)
	}
	return results, rows.Err()
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	// Get Buffer
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	// Get Writer
	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	// Reset Writer to write to our buffer
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("State read failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
