package ports

import (
	"context"
	"stop-route-service/internal/domain"
)

// Last emitted duration for one travel mode, tagged with the request fingerprint.
type DurationEntry struct {
	Fingerprint     uint64
	DurationSeconds float64
}

// Session-scoped store of last known route durations keyed by travel mode.
// A cache instance is passed in by the caller; the engine holds none of its own.
type DurationCache interface {
	Get(ctx context.Context, session string, mode domain.TravelMode) (DurationEntry, bool, error)
	Put(ctx context.Context, session string, mode domain.TravelMode, entry DurationEntry) error
}
