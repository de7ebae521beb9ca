package services

import (
	"context"
	"errors"
	"math/rand"
	"stop-route-service/internal/adapters/cache"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/ports"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(lon, lat float64) *domain.GeoPoint {
	return &domain.GeoPoint{Lon: lon, Lat: lat}
}

func origin() CurrentLocation {
	return CurrentLocation{Position: domain.GeoPoint{Lon: 0, Lat: 0}, Label: "Home"}
}

func assertNumbering(t *testing.T, route *domain.RouteArtifact, activeStops int) {
	t.Helper()
	require.Len(t, route.Waypoints, activeStops+1)
	for i, w := range route.Waypoints {
		assert.Equal(t, i, w.DisplayNumber)
	}
	assert.GreaterOrEqual(t, route.DistanceMeters, 0.0)
	assert.GreaterOrEqual(t, route.DurationSeconds, 0.0)
}

func waypointIDs(route *domain.RouteArtifact) []string {
	out := make([]string, 0, len(route.Waypoints)-1)
	for _, w := range route.Waypoints[1:] {
		out = append(out, w.StopID)
	}
	return out
}

func TestComputeRouteAcceptsProviderOrder(t *testing.T) {
	trips := &fakeTrip{respond: acceptInOrder([]int{1, 0}, 5000, 600)}
	segments := &fakeSegments{}
	a := NewRouteAssembler(&fakeGeocoder{}, trips, segments)

	stops := []domain.Stop{
		{ID: "a", Address: "A st", Name: "Alpha", Position: pt(0, 1)},
		{ID: "b", Address: "B st", Position: pt(0, 2)},
		{ID: "e", Address: "E st", Name: "Finish", Position: pt(0, 3), IsEndPoint: true},
	}

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: stops,
		Mode:  domain.TravelModeDriving,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyProvider, route.Strategy)
	assert.Equal(t, []string{"b", "a", "e"}, waypointIDs(route))
	assertNumbering(t, route, 3)

	assert.Equal(t, "Home", route.Waypoints[0].Label)
	assert.Equal(t, "Alpha", route.Waypoints[2].Label)
	assert.Equal(t, "Finish", route.Waypoints[3].Label)
	assert.Equal(t, 5000.0, route.DistanceMeters)
	assert.Equal(t, 600.0, route.DurationSeconds)
	assert.Empty(t, segments.calls)

	require.Len(t, trips.calls, 1)
	call := trips.calls[0]
	assert.Equal(t, ports.ProfileDriving, call.Profile)
	require.NotNil(t, call.End)
	assert.Equal(t, domain.GeoPoint{Lon: 0, Lat: 3}, *call.End)
	assert.Len(t, call.Legs, 2, "end stop must not be sent as an intermediate leg")
}

func TestComputeRouteFallsBackOnOrderingMismatch(t *testing.T) {
	trips := &fakeTrip{respond: acceptInOrder([]int{0}, 1, 1)}
	segments := &fakeSegments{}
	a := NewRouteAssembler(nil, trips, segments)

	stops := []domain.Stop{
		{ID: "a", Address: "A", Position: pt(0, 2)},
		{ID: "b", Address: "B", Position: pt(0, 1)},
		{ID: "c", Address: "C", Position: pt(0, 3)},
	}

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops})
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyHeuristic, route.Strategy)
	assert.Contains(t, route.FallbackReason, domain.ErrOrderingMismatch.Error())
	got := waypointIDs(route)
	assert.Equal(t, "b", got[0])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
	assertNumbering(t, route, 3)

	require.Len(t, segments.calls, 3)
	for _, c := range segments.calls {
		assert.Equal(t, ports.ProfileDriving, c.profile)
	}
	// Shared leg endpoints are not repeated: 3 legs x 3 points - 2 joins.
	assert.Len(t, route.Path, 7)
	assert.Equal(t, domain.GeoPoint{Lon: 0, Lat: 0}, route.Path[0])
	assert.Equal(t, route.Waypoints[3].Position, route.Path[len(route.Path)-1])
}

func TestComputeRouteFallsBackOnNonPermutationOrder(t *testing.T) {
	trips := &fakeTrip{respond: acceptInOrder([]int{0, 0}, 1, 1)}
	a := NewRouteAssembler(nil, trips, &fakeSegments{})

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "b", Address: "B", Position: pt(0, 2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyHeuristic, route.Strategy)
	assert.ElementsMatch(t, []string{"a", "b"}, waypointIDs(route))
}

func TestComputeRouteFallsBackOnTransportFailure(t *testing.T) {
	trips := &fakeTrip{respond: func(ports.TripRequest) ports.TripOutcome {
		return ports.TripRejected{Reason: errors.New("dial tcp: connection refused")}
	}}
	a := NewRouteAssembler(nil, trips, &fakeSegments{})

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "end", Address: "E", Position: pt(0, 0.5), IsEndPoint: true},
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "b", Address: "B", Position: pt(0, 2)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyHeuristic, route.Strategy)
	assert.Equal(t, "end", route.Waypoints[len(route.Waypoints)-1].StopID)
	assert.Contains(t, route.FallbackReason, "connection refused")
	assertNumbering(t, route, 3)
}

func TestComputeRouteUnresolvedAddressMakesNoProviderCalls(t *testing.T) {
	geocoder := &fakeGeocoder{}
	trips := &fakeTrip{}
	segments := &fakeSegments{}
	a := NewRouteAssembler(geocoder, trips, segments)

	_, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "Nowhere 1"},
			{ID: "b", Address: "Nowhere 2"},
		},
	})
	require.Error(t, err)

	var unresolved *domain.UnresolvedAddressError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, "a", unresolved.StopID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	assert.Equal(t, []string{"Nowhere 1"}, geocoder.calls, "geocoding must stop at the first failure")
	assert.Empty(t, trips.calls)
	assert.Empty(t, segments.calls)
}

func TestComputeRouteGeocodesMissingPositionsInOrder(t *testing.T) {
	geocoder := &fakeGeocoder{points: map[string]domain.GeoPoint{
		"first":  {Lon: 0, Lat: 1},
		"second": {Lon: 0, Lat: 2},
	}}
	trips := &fakeTrip{respond: acceptInOrder([]int{0, 1, 2}, 10, 10)}
	a := NewRouteAssembler(geocoder, trips, &fakeSegments{})

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "1", Address: "first"},
			{ID: "known", Address: "has coords", Position: pt(0, 1.5)},
			{ID: "2", Address: "second"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, geocoder.calls)
	assert.Equal(t, domain.GeoPoint{Lon: 0, Lat: 2}, route.Waypoints[3].Position)
}

func TestComputeRouteInputErrors(t *testing.T) {
	cases := []struct {
		name  string
		stops []domain.Stop
		want  error
	}{
		{
			name:  "no stops",
			stops: nil,
			want:  domain.ErrNoDestinations,
		},
		{
			name: "only visited or blank",
			stops: []domain.Stop{
				{ID: "a", Address: "A", Visited: true},
				{ID: "b", Address: "   "},
			},
			want: domain.ErrNoDestinations,
		},
		{
			name: "two end points",
			stops: []domain.Stop{
				{ID: "a", Address: "A", IsEndPoint: true},
				{ID: "b", Address: "B", IsEndPoint: true},
			},
			want: domain.ErrMultipleEndpoints,
		},
		{
			name: "duplicate id",
			stops: []domain.Stop{
				{ID: "a", Address: "A"},
				{ID: "a", Address: "B"},
			},
			want: domain.ErrDuplicateStopID,
		},
		{
			name:  "missing id",
			stops: []domain.Stop{{Address: "A"}},
			want:  domain.ErrMissingStopID,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			geocoder := &fakeGeocoder{}
			trips := &fakeTrip{}
			segments := &fakeSegments{}
			a := NewRouteAssembler(geocoder, trips, segments)

			_, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: tc.stops})
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, geocoder.calls)
			assert.Empty(t, trips.calls)
			assert.Empty(t, segments.calls)
		})
	}
}

func TestComputeRouteRejectsBadModeAndStart(t *testing.T) {
	a := NewRouteAssembler(nil, nil, nil)
	stops := []domain.Stop{{ID: "a", Address: "A", Position: pt(0, 1)}}

	_, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops, Mode: "flying"})
	assert.ErrorIs(t, err, domain.ErrInvalidTravelMode)

	bad := CurrentLocation{Position: domain.GeoPoint{Lon: 0, Lat: 120}}
	_, err = a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: bad, Stops: stops})
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)
}

func TestComputeRouteExcludesVisitedStops(t *testing.T) {
	trips := &fakeTrip{respond: acceptInOrder([]int{0, 1}, 100, 100)}
	a := NewRouteAssembler(nil, trips, &fakeSegments{})

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "done", Address: "D", Position: pt(0, 5), Visited: true},
			{ID: "b", Address: "B", Position: pt(0, 2)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, waypointIDs(route))
	assert.Len(t, trips.calls[0].Legs, 2)
	assertNumbering(t, route, 2)
}

func TestComputeRouteSingleStopIsDirect(t *testing.T) {
	trips := &fakeTrip{}
	segments := &fakeSegments{}
	a := NewRouteAssembler(nil, trips, segments)

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{{ID: "only", Address: "Only", Position: pt(0.01, 0.01), IsEndPoint: true}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyDirect, route.Strategy)
	assert.Empty(t, trips.calls)
	require.Len(t, segments.calls, 1)
	assert.Len(t, route.Path, 3)
	assertNumbering(t, route, 1)
}

func TestComputeRouteSubstitutesUnreachableLeg(t *testing.T) {
	unreachable := domain.GeoPoint{Lon: 0, Lat: 2}
	segments := &fakeSegments{unreachable: map[domain.GeoPoint]bool{unreachable: true}}
	a := NewRouteAssembler(nil, &fakeTrip{}, segments)

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "b", Address: "B", Position: &unreachable},
		},
	})
	require.NoError(t, err)

	a1 := domain.GeoPoint{Lon: 0, Lat: 1}
	first := domain.Haversine(domain.GeoPoint{}, a1) * 1.2
	straight := domain.Haversine(a1, unreachable)

	assert.InDelta(t, first+straight, route.DistanceMeters, 1e-6)
	assert.InDelta(t, first/10+straight/FallbackSpeedMetersPerSecond, route.DurationSeconds, 1e-6)
	assert.Equal(t, []domain.GeoPoint{{}, {Lon: 0, Lat: 0.5}, a1, unreachable}, route.Path)
}

func TestComputeRouteSurvivesEverySegmentFailing(t *testing.T) {
	segments := &fakeSegments{failWith: errors.New("i/o timeout")}
	a := NewRouteAssembler(nil, &fakeTrip{}, segments)

	route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "b", Address: "B", Position: pt(0, 2)},
		},
	})
	require.NoError(t, err)

	want := domain.Haversine(domain.GeoPoint{}, domain.GeoPoint{Lon: 0, Lat: 2})
	assert.InDelta(t, want, route.DistanceMeters, 1e-6)
	assert.InDelta(t, want/FallbackSpeedMetersPerSecond, route.DurationSeconds, 1e-6)
	assert.Len(t, route.Path, 3)
}

func TestComputeRouteCompensatesDurationOnce(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Address: "A", Position: pt(0, 1)},
		{ID: "b", Address: "B", Position: pt(0, 2)},
	}

	cases := map[domain.TravelMode]float64{
		domain.TravelModeDriving: 600,
		domain.TravelModeCycling: 900,
		domain.TravelModeWalking: 1800,
	}

	for mode, want := range cases {
		t.Run(string(mode), func(t *testing.T) {
			trips := &fakeTrip{respond: acceptInOrder([]int{0, 1}, 8000, 600)}
			a := NewRouteAssembler(nil, trips, &fakeSegments{})

			route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops, Mode: mode})
			require.NoError(t, err)
			assert.Equal(t, want, route.DurationSeconds)
			assert.Equal(t, 8000.0, route.DistanceMeters)
			assert.Equal(t, mode, route.Mode)
		})
	}
}

func TestComputeRouteCompensatesFallbackAggregateNotLegs(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Address: "A", Position: pt(0, 1)},
		{ID: "b", Address: "B", Position: pt(0, 2)},
	}

	drive, err := NewRouteAssembler(nil, &fakeTrip{}, &fakeSegments{}).
		ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops})
	require.NoError(t, err)

	walk, err := NewRouteAssembler(nil, &fakeTrip{}, &fakeSegments{}).
		ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops, Mode: domain.TravelModeWalking})
	require.NoError(t, err)

	assert.InDelta(t, drive.DurationSeconds*3, walk.DurationSeconds, 1e-9)
	assert.NotEqual(t, drive.DurationSeconds, walk.DurationSeconds)
	assert.NotEqual(t, drive.DurationSeconds*1.5, walk.DurationSeconds)
}

func TestComputeRouteRemembersDurationsPerSession(t *testing.T) {
	durations := cache.NewMemoryDurationCache()
	stops := []domain.Stop{
		{ID: "a", Address: "A", Position: pt(0, 1)},
		{ID: "b", Address: "B", Position: pt(0, 2)},
	}
	newAssembler := func() *RouteAssembler {
		return NewRouteAssembler(nil, &fakeTrip{respond: acceptInOrder([]int{0, 1}, 100, 600)}, nil)
	}

	req := ComputeRouteRequest{Start: origin(), Stops: stops, Session: "s1", Durations: durations}

	req.Mode = domain.TravelModeDriving
	drive, err := newAssembler().ComputeRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, drive.KnownDurations)

	req.Mode = domain.TravelModeWalking
	walk, err := newAssembler().ComputeRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, map[domain.TravelMode]float64{domain.TravelModeDriving: 600}, walk.KnownDurations)

	// Different inputs in the same session do not reuse stale durations.
	req.Stops = stops[:1]
	req.Mode = domain.TravelModeCycling
	other, err := newAssembler().ComputeRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, other.KnownDurations)

	// Another session sees nothing.
	req.Stops = stops
	req.Session = "s2"
	fresh, err := newAssembler().ComputeRoute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, fresh.KnownDurations)
}

func TestComputeRouteStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trips := &fakeTrip{respond: func(ports.TripRequest) ports.TripOutcome {
		return ports.TripRejected{Reason: context.Canceled}
	}}
	segments := &fakeSegments{}
	a := NewRouteAssembler(nil, trips, segments)

	_, err := a.ComputeRoute(ctx, ComputeRouteRequest{
		Start: origin(),
		Stops: []domain.Stop{
			{ID: "a", Address: "A", Position: pt(0, 1)},
			{ID: "b", Address: "B", Position: pt(0, 2)},
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, segments.calls)
}

func TestComputeRouteNumberingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(8)
		stops := make([]domain.Stop, 0, n)
		active := 0
		endIdx := -1
		if rng.Intn(2) == 0 {
			endIdx = rng.Intn(n)
		}
		for i := 0; i < n; i++ {
			s := domain.Stop{
				ID:       strconv.Itoa(i),
				Address:  "addr",
				Position: pt(rng.Float64()*0.2, rng.Float64()*0.2),
			}
			if i == endIdx {
				s.IsEndPoint = true
			} else if rng.Intn(4) == 0 {
				s.Visited = true
			}
			if !s.Visited {
				active++
			}
			stops = append(stops, s)
		}

		// Providers alternate between accepting in input order and failing.
		accept := trial%2 == 0
		trips := &fakeTrip{respond: func(req ports.TripRequest) ports.TripOutcome {
			if !accept {
				return ports.TripRejected{Reason: domain.ErrProviderRejected}
			}
			order := make([]int, len(req.Legs))
			for i := range order {
				order[i] = i
			}
			return acceptInOrder(order, 1, 1)(req)
		}}
		a := NewRouteAssembler(nil, trips, &fakeSegments{})

		route, err := a.ComputeRoute(context.Background(), ComputeRouteRequest{Start: origin(), Stops: stops})
		require.NoError(t, err)
		assertNumbering(t, route, active)

		if endIdx >= 0 {
			assert.Equal(t, strconv.Itoa(endIdx), route.Waypoints[len(route.Waypoints)-1].StopID)
		}
		for _, w := range route.Waypoints[1:] {
			assert.False(t, stops[mustAtoi(t, w.StopID)].Visited, "visited stop %s emitted", w.StopID)
		}
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
