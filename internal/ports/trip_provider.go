package ports

import (
	"context"
	"stop-route-service/internal/domain"
)

// Profile is the provider routing profile. Only driving is ever requested;
// other travel modes are derived by duration compensation.
type Profile string

const ProfileDriving Profile = "driving"

// Input for a multi-stop trip optimization.
// Start is pinned first; End, when set, is pinned last and is not part of Legs.
type TripRequest struct {
	Profile Profile
	Start   domain.GeoPoint
	Legs    []domain.RouteLeg
	End     *domain.GeoPoint
}

// TripOutcome is either TripAccepted or TripRejected.
type TripOutcome interface {
	isTripOutcome()
}

// Provider result usable as-is.
// Order[i] is the index into TripRequest.Legs visited at position i.
type TripAccepted struct {
	Order           []int
	Path            []domain.GeoPoint
	DistanceMeters  float64
	DurationSeconds float64
}

// Provider result that must not be used. Reason wraps domain.ErrProviderRejected,
// domain.ErrOrderingMismatch, or a transport error.
type TripRejected struct {
	Reason error
}

func (TripAccepted) isTripOutcome() {}
func (TripRejected) isTripOutcome() {}

// Contract for the external multi-stop trip optimizer.
type TripProvider interface {
	// Trip never returns an error; every failure is a TripRejected.
	Trip(ctx context.Context, req TripRequest) TripOutcome
}
