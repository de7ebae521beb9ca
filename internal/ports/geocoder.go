package ports

import (
	"context"
	"stop-route-service/internal/domain"
)

// Contract for resolving a free-text address into coordinates.
type Geocoder interface {
	// Return the position of address, or an error wrapping domain.ErrAddressNotFound.
	Resolve(ctx context.Context, address string) (domain.GeoPoint, error)
}

// Persistent address -> coordinate store used in front of a Geocoder.
// Keys are expected to be normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.GeoPoint, error)
	PutMany(ctx context.Context, results map[string]domain.GeoPoint) error
}
