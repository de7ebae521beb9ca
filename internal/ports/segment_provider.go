package ports

import (
	"context"
	"stop-route-service/internal/domain"
)

// Path, distance and duration between two points.
type Segment struct {
	Path            []domain.GeoPoint
	DistanceMeters  float64
	DurationSeconds float64
}

// Contract for routing between exactly two points.
type SegmentProvider interface {
	// Return the best path from origin to destination, or an error wrapping
	// domain.ErrSegmentUnreachable when the provider reports no path.
	Segment(ctx context.Context, profile Profile, origin, destination domain.GeoPoint) (Segment, error)
}

// Persistent store of routed segments keyed by SegmentKey.
type SegmentCache interface {
	Get(ctx context.Context, key string) (Segment, bool, error)
	Put(ctx context.Context, key string, seg Segment) error
}
