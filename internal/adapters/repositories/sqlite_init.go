package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite cache schema.
func InitSchema(db *sql.DB) error {
	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon REAL NOT NULL,
        lat REAL NOT NULL
    );
	`

	createSegmentCacheQuery := `
	CREATE TABLE IF NOT EXISTS segment_cache (
        segment_key TEXT PRIMARY KEY,
        path TEXT NOT NULL,
        distance_meters REAL NOT NULL,
        duration_seconds REAL NOT NULL
    );
	`

	return execSchema(context.Background(), db, createGeocodeCacheQuery, createSegmentCacheQuery)
}

// Initialize the Postgres cache schema.
func InitPostgresSchema(ctx context.Context, db *sql.DB) error {
	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	createSegmentCacheQuery := `
	CREATE TABLE IF NOT EXISTS segment_cache (
        segment_key TEXT PRIMARY KEY,
        path TEXT NOT NULL,
        distance_meters DOUBLE PRECISION NOT NULL,
        duration_seconds DOUBLE PRECISION NOT NULL
    );
	`

	return execSchema(ctx, db, createGeocodeCacheQuery, createSegmentCacheQuery)
}

func execSchema(ctx context.Context, db *sql.DB, statements ...string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
