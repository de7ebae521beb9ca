package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
)

type tripResponse struct {
	envelope
	Trips []struct {
		Geometry geometry `json:"geometry"`
		Distance float64  `json:"distance"`
		Duration float64  `json:"duration"`
		Legs     []leg    `json:"legs"`
	} `json:"trips"`
	Waypoints []struct {
		WaypointIndex int       `json:"waypoint_index"`
		TripsIndex    int       `json:"trips_index"`
		Location      []float64 `json:"location"`
	} `json:"waypoints"`
}

// Trip asks /trip/v1/{profile} for a visiting order of req.Legs.
//
// The start is always the source. With an end point the trip is open and ends
// there. Without one OSRM only solves round trips, so the closing leg back to
// the start is removed from the metrics and the geometry.
func (c *Client) Trip(ctx context.Context, req ports.TripRequest) ports.TripOutcome {
	accepted, err := c.trip(ctx, req)
	if err != nil {
		return ports.TripRejected{Reason: err}
	}
	return accepted
}

func (c *Client) trip(ctx context.Context, req ports.TripRequest) (_ ports.TripAccepted, err error) {
	defer obs.Time(ctx, "osrm.Trip")(&err)

	n := len(req.Legs)
	points := make([]domain.GeoPoint, 0, n+2)
	points = append(points, req.Start)
	for _, l := range req.Legs {
		points = append(points, l.Destination)
	}
	if req.End != nil {
		points = append(points, *req.End)
	}

	profile := req.Profile
	if profile == "" {
		profile = ports.ProfileDriving
	}
	endpoint := fmt.Sprintf("%s/trip/v1/%s/%s", c.baseURL, profile, coordinateList(points))

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		r, err := c.http.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := r.URL.Query()
		q.Set("source", "first")
		if req.End != nil {
			q.Set("destination", "last")
			q.Set("roundtrip", "false")
		} else {
			q.Set("roundtrip", "true")
		}
		q.Set("geometries", "geojson")
		q.Set("overview", "full")
		q.Set("steps", "false")
		r.URL.RawQuery = q.Encode()
		return r, nil
	})
	if err != nil {
		if code, ok := errorCode(err); ok {
			return ports.TripAccepted{}, fmt.Errorf("osrm trip: code %s: %w", code, domain.ErrProviderRejected)
		}
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: %w", err)
	}
	defer resp.Body.Close()

	var decoded tripResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.TripAccepted{}, fmt.Errorf("decode trip response: %v: %w", err, domain.ErrProviderRejected)
	}

	if decoded.Code != "Ok" {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: code %s %s: %w",
			decoded.Code, decoded.Message, domain.ErrProviderRejected)
	}
	if len(decoded.Trips) != 1 {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: %d trips: %w", len(decoded.Trips), domain.ErrProviderRejected)
	}
	if len(decoded.Waypoints) != len(points) {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: %d waypoints for %d points: %w",
			len(decoded.Waypoints), len(points), domain.ErrOrderingMismatch)
	}

	positions := make([]int, len(decoded.Waypoints))
	for i, w := range decoded.Waypoints {
		positions[i] = w.WaypointIndex
	}
	order, err := visitOrder(positions, n, req.End != nil)
	if err != nil {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: %w", err)
	}

	trip := decoded.Trips[0]
	path, err := decodePath(trip.Geometry)
	if err != nil {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: %v: %w", err, domain.ErrProviderRejected)
	}
	if len(path) == 0 {
		return ports.TripAccepted{}, fmt.Errorf("osrm trip: missing geometry: %w", domain.ErrProviderRejected)
	}

	accepted := ports.TripAccepted{
		Order:           order,
		Path:            path,
		DistanceMeters:  trip.Distance,
		DurationSeconds: trip.Duration,
	}

	if req.End == nil && n > 0 {
		last := decoded.Waypoints[1+order[n-1]]
		lastPos, ok := domain.GeoPointFromList(last.Location)
		if !ok {
			lastPos = req.Legs[order[n-1]].Destination
		}
		accepted = dropClosingLeg(accepted, trip.Legs, lastPos)
	}

	return accepted, nil
}

// visitOrder turns OSRM's per-input positions into Order, where Order[k] is the
// index into the request legs visited k-th. The start must stay at position 0
// and the end, when present, at position n+1.
func visitOrder(positions []int, n int, hasEnd bool) ([]int, error) {
	if positions[0] != 0 {
		return nil, fmt.Errorf("start moved to position %d: %w", positions[0], domain.ErrOrderingMismatch)
	}
	if hasEnd && positions[n+1] != n+1 {
		return nil, fmt.Errorf("end moved to position %d: %w", positions[n+1], domain.ErrOrderingMismatch)
	}

	order := make([]int, n)
	seen := make([]bool, n)
	for i, pos := range positions[1 : 1+n] {
		if pos < 1 || pos > n || seen[pos-1] {
			return nil, fmt.Errorf("position %d is not a permutation slot: %w", pos, domain.ErrOrderingMismatch)
		}
		seen[pos-1] = true
		order[pos-1] = i
	}
	return order, nil
}

// dropClosingLeg removes the return to the start from a round trip.
func dropClosingLeg(a ports.TripAccepted, legs []leg, lastStop domain.GeoPoint) ports.TripAccepted {
	if len(legs) > 0 {
		closing := legs[len(legs)-1]
		a.DistanceMeters -= closing.Distance
		a.DurationSeconds -= closing.Duration
	}
	if a.DistanceMeters < 0 {
		a.DistanceMeters = 0
	}
	if a.DurationSeconds < 0 {
		a.DurationSeconds = 0
	}

	if len(a.Path) > 0 {
		cut := 0
		best := domain.Haversine(a.Path[0], lastStop)
		for i := 1; i < len(a.Path); i++ {
			if d := domain.Haversine(a.Path[i], lastStop); d <= best {
				best = d
				cut = i
			}
		}
		a.Path = a.Path[:cut+1]
	}
	return a
}
