package services

import (
	"context"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/ports"
)

type fakeGeocoder struct {
	points map[string]domain.GeoPoint
	calls  []string
}

func (g *fakeGeocoder) Resolve(ctx context.Context, address string) (domain.GeoPoint, error) {
	g.calls = append(g.calls, address)
	p, ok := g.points[address]
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: %w", address, domain.ErrAddressNotFound)
	}
	return p, nil
}

type fakeTrip struct {
	respond func(req ports.TripRequest) ports.TripOutcome
	calls   []ports.TripRequest
}

func (f *fakeTrip) Trip(ctx context.Context, req ports.TripRequest) ports.TripOutcome {
	f.calls = append(f.calls, req)
	if f.respond == nil {
		return ports.TripRejected{Reason: errors.New("unavailable")}
	}
	return f.respond(req)
}

// acceptInOrder builds a provider response visiting legs in the given order with a
// straight path through every point.
func acceptInOrder(order []int, distance, duration float64) func(ports.TripRequest) ports.TripOutcome {
	return func(req ports.TripRequest) ports.TripOutcome {
		path := []domain.GeoPoint{req.Start}
		for _, i := range order {
			if i >= 0 && i < len(req.Legs) {
				path = append(path, req.Legs[i].Destination)
			}
		}
		if req.End != nil {
			path = append(path, *req.End)
		}
		return ports.TripAccepted{
			Order:           order,
			Path:            path,
			DistanceMeters:  distance,
			DurationSeconds: duration,
		}
	}
}

type segmentCall struct {
	profile  ports.Profile
	from, to domain.GeoPoint
}

type fakeSegments struct {
	unreachable map[domain.GeoPoint]bool
	failWith    error
	calls       []segmentCall
}

// Segment returns a three-point path with a midpoint, 1.2x the great-circle
// distance, at 10 m/s.
func (f *fakeSegments) Segment(ctx context.Context, profile ports.Profile, from, to domain.GeoPoint) (ports.Segment, error) {
	f.calls = append(f.calls, segmentCall{profile: profile, from: from, to: to})
	if f.failWith != nil {
		return ports.Segment{}, f.failWith
	}
	if f.unreachable[to] {
		return ports.Segment{}, fmt.Errorf("route: %w", domain.ErrSegmentUnreachable)
	}

	mid := domain.GeoPoint{Lon: (from.Lon + to.Lon) / 2, Lat: (from.Lat + to.Lat) / 2}
	d := domain.Haversine(from, to) * 1.2
	return ports.Segment{
		Path:            []domain.GeoPoint{from, mid, to},
		DistanceMeters:  d,
		DurationSeconds: d / 10,
	}, nil
}
