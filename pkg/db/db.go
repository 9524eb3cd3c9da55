package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneCache removes cache entries whose expiry has passed.
func (d *DB) PruneCache(now time.Time) (int64, error) {
	// Format time compatible with SQLite DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS)
	deadline := now.UTC().Format("2006-01-02 15:04:05")
	res, err := d.Exec("DELETE FROM cache_entries WHERE expires_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tours (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT,
			description TEXT,
			content TEXT,
			location_id TEXT,
			location_name TEXT,
			city TEXT,
			country TEXT,
			lat REAL,
			lon REAL,
			stops TEXT,
			total_walking_meters REAL,
			estimated_walk_minutes REAL,
			audio_url TEXT,
			audio_format TEXT,
			transcript TEXT,
			duration_minutes INTEGER,
			interests TEXT,
			language TEXT,
			voice TEXT,
			provider TEXT,
			model TEXT,
			error_cause TEXT,
			error_detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tours_fingerprint ON tours(fingerprint);`,
		`CREATE INDEX IF NOT EXISTS idx_tours_user ON tours(user_id);`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB,
			ttl_class TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			hit_count INTEGER DEFAULT 0,
			last_accessed DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);`,
		`CREATE TABLE IF NOT EXISTS audio_blobs (
			tour_id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			format TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			operation TEXT NOT NULL,
			units INTEGER NOT NULL,
			cost REAL NOT NULL,
			latency_ms INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: Add audio_format if missing (pre-0.3 databases)
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('tours') WHERE name='audio_format'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE tours ADD COLUMN audio_format TEXT"); err != nil {
			return fmt.Errorf("failed to add audio_format column: %w", err)
		}
	}

	return nil
}
