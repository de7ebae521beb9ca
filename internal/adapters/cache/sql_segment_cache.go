package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
	"strings"
)

// Dialect selects placeholder and upsert syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLSegmentCache is a SQL-backed cache for routed segments keyed by SegmentKey.
// The path is stored as a JSON array of [lon, lat] pairs.
type SQLSegmentCache struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLSegmentCache(db *sql.DB, dialect Dialect) *SQLSegmentCache {
	return &SQLSegmentCache{DB: db, Dialect: dialect}
}

func (s *SQLSegmentCache) Get(ctx context.Context, key string) (_ ports.Segment, _ bool, err error) {
	defer obs.Time(ctx, "segment.cache.Get")(&err)

	if s.DB == nil {
		return ports.Segment{}, false, errors.New("segment cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return ports.Segment{}, false, errors.New("get segment cache: key must not be empty")
	}

	q := `
	SELECT path, distance_meters, duration_seconds
	FROM segment_cache
	WHERE segment_key = ?;
	`
	if s.Dialect == DialectPostgres {
		q = strings.Replace(q, "?", "$1", 1)
	}

	var (
		raw     string
		seg     ports.Segment
		encoded [][]float64
	)
	err = s.DB.QueryRowContext(ctx, q, key).Scan(&raw, &seg.DistanceMeters, &seg.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Segment{}, false, nil
	}
	if err != nil {
		return ports.Segment{}, false, fmt.Errorf("get segment cache: query segment_cache table: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return ports.Segment{}, false, fmt.Errorf("get segment cache: decode path: %w", err)
	}
	for _, c := range encoded {
		p, ok := domain.GeoPointFromList(c)
		if !ok {
			return ports.Segment{}, false, fmt.Errorf("get segment cache: invalid coordinate %v for %q", c, key)
		}
		seg.Path = append(seg.Path, p)
	}

	return seg, true, nil
}

func (s *SQLSegmentCache) Put(ctx context.Context, key string, seg ports.Segment) error {
	if s.DB == nil {
		return errors.New("segment cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert segment cache: key must not be empty")
	}

	encoded := make([][]float64, 0, len(seg.Path))
	for _, p := range seg.Path {
		encoded = append(encoded, p.CoordsToList())
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("insert segment cache: encode path: %w", err)
	}

	q := `
	INSERT OR REPLACE INTO segment_cache (segment_key, path, distance_meters, duration_seconds)
	VALUES (?, ?, ?, ?);
	`
	if s.Dialect == DialectPostgres {
		q = `
		INSERT INTO segment_cache (segment_key, path, distance_meters, duration_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (segment_key) DO UPDATE
		SET path = EXCLUDED.path,
			distance_meters = EXCLUDED.distance_meters,
			duration_seconds = EXCLUDED.duration_seconds;
		`
	}

	if _, err := s.DB.ExecContext(ctx, q, key, string(raw), seg.DistanceMeters, seg.DurationSeconds); err != nil {
		return fmt.Errorf("insert segment cache key=%q: %w", key, err)
	}

	return nil
}
