package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"strings"
)

// SQLGeocodeCache persists resolved positions keyed by normalized address.
// The same type serves SQLite and Postgres; Dialect picks the SQL flavor.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLGeocodeCache(db *sql.DB, dialect Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, Dialect: dialect}
}

// lookupQuery returns the batch SELECT and its arguments for keys.
func (s *SQLGeocodeCache) lookupQuery(keys []string) (string, []any) {
	if s.Dialect == DialectPostgres {
		return `SELECT address, lon, lat FROM geocode_cache WHERE address = ANY($1::text[])`, []any{keys}
	}

	// database/sql cannot expand a slice, so one "?" per key is generated.
	marks := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return `SELECT address, lon, lat FROM geocode_cache WHERE address IN (` + marks + `)`, args
}

func (s *SQLGeocodeCache) upsertQuery() string {
	if s.Dialect == DialectPostgres {
		return `
		INSERT INTO geocode_cache (address, lon, lat)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE
		SET lon = EXCLUDED.lon, lat = EXCLUDED.lat, updated_at = now()`
	}
	return `INSERT OR REPLACE INTO geocode_cache (address, lon, lat) VALUES (?, ?, ?)`
}

// GetMany returns the cached subset of keys. Missing keys are simply absent.
func (s *SQLGeocodeCache) GetMany(ctx context.Context, keys []string) (_ map[string]domain.GeoPoint, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode lookup: no database")
	}

	uniq := uniqueKeys(keys)
	hits := make(map[string]domain.GeoPoint, len(uniq))
	if len(uniq) == 0 {
		return hits, nil
	}

	q, args := s.lookupQuery(uniq)
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("geocode lookup %d keys: %w", len(uniq), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			p   domain.GeoPoint
		)
		if err := rows.Scan(&key, &p.Lon, &p.Lat); err != nil {
			return nil, fmt.Errorf("geocode lookup: scan: %w", err)
		}
		hits[key] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("geocode lookup: rows: %w", err)
	}

	return hits, nil
}

// PutMany writes every entry in one transaction; a blank key aborts the batch.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, entries map[string]domain.GeoPoint) error {
	if s.DB == nil {
		return errors.New("geocode store: no database")
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("geocode store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return fmt.Errorf("geocode store: prepare: %w", err)
	}
	defer stmt.Close()

	for key, p := range entries {
		if strings.TrimSpace(key) == "" {
			return errors.New("geocode store: blank address key")
		}
		if _, err := stmt.ExecContext(ctx, key, p.Lon, p.Lat); err != nil {
			return fmt.Errorf("geocode store %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("geocode store: commit: %w", err)
	}
	return nil
}
