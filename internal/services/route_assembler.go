package services

import (
	"context"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
	"strings"

	"github.com/go-kit/log/level"
)

const defaultStartLabel = "Current location"

// CurrentLocation is the caller's position; it is always waypoint 0.
type CurrentLocation struct {
	Position domain.GeoPoint
	Label    string
}

type ComputeRouteRequest struct {
	Start CurrentLocation
	Stops []domain.Stop
	Mode  domain.TravelMode

	// Optional session-scoped duration cache. Both must be set for it to be used.
	Session   string
	Durations ports.DurationCache
}

// RouteAssembler computes the visiting order and travel path for a set of stops.
//
// It prefers the trip provider's optimized order and falls back to Fallback
// (cheapest insertion by default) plus per-leg segment stitching whenever the
// provider result is unusable. All network calls within one invocation are
// sequential. A RouteAssembler holds no per-invocation state and is safe for
// concurrent use.
type RouteAssembler struct {
	Geocoder ports.Geocoder
	Trips    ports.TripProvider
	Segments ports.SegmentProvider
	Fallback Orderer
}

func NewRouteAssembler(
	geocoder ports.Geocoder,
	trips ports.TripProvider,
	segments ports.SegmentProvider,
) *RouteAssembler {
	return &RouteAssembler{
		Geocoder: geocoder,
		Trips:    trips,
		Segments: segments,
		Fallback: CheapestInsertionOrderer,
	}
}

// ComputeRoute returns a complete route or a single terminal error.
//
// Terminal errors are input errors (domain.ErrNoDestinations,
// domain.ErrMultipleEndpoints, ...), *domain.UnresolvedAddressError, and context
// cancellation. Provider failures are recovered.
func (a *RouteAssembler) ComputeRoute(
	ctx context.Context,
	req ComputeRouteRequest,
) (_ *domain.RouteArtifact, err error) {
	defer obs.Time(ctx, "route.ComputeRoute")(&err)

	mode := req.Mode
	if mode == "" {
		mode = domain.TravelModeDriving
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("compute route: %q: %w", mode, domain.ErrInvalidTravelMode)
	}
	if !req.Start.Position.Valid() {
		return nil, fmt.Errorf("compute route: start location: %w", domain.ErrInvalidLocation)
	}

	active, end, err := partitionStops(req.Stops)
	if err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	legs, err := a.resolve(ctx, active)
	if err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	var (
		intermediates []domain.RouteLeg
		endLeg        *domain.RouteLeg
	)
	for i := range legs {
		if end != nil && legs[i].Stop.ID == end.ID {
			endLeg = &legs[i]
			continue
		}
		intermediates = append(intermediates, legs[i])
	}

	start := req.Start.Position
	var plan routePlan

	if len(legs) == 1 {
		plan, err = a.direct(ctx, start, legs)
	} else {
		plan, err = a.optimize(ctx, start, intermediates, endLeg)
	}
	if err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	if len(plan.ordered) != len(active) {
		return nil, fmt.Errorf(
			"compute route: ordered %d of %d stops",
			len(plan.ordered), len(active),
		)
	}

	artifact := &domain.RouteArtifact{
		Mode:            mode,
		Strategy:        plan.strategy,
		FallbackReason:  plan.fallbackReason,
		Waypoints:       numberWaypoints(req.Start, plan.ordered),
		Path:            plan.path,
		DistanceMeters:  nonNegative(plan.distanceMeters),
		DurationSeconds: nonNegative(plan.drivingSeconds) * mode.DurationFactor(),
	}

	a.rememberDuration(ctx, req, artifact)

	_ = level.Info(obs.For(ctx)).Log(
		"msg", "route computed",
		"strategy", artifact.Strategy,
		"mode", artifact.Mode,
		"stops", len(plan.ordered),
		"distance_m", int(artifact.DistanceMeters),
		"duration_s", int(artifact.DurationSeconds),
	)

	return artifact, nil
}

// routePlan is the uncompensated result of either the provider or the fallback path.
type routePlan struct {
	strategy       domain.Strategy
	fallbackReason string
	ordered        []domain.RouteLeg
	path           []domain.GeoPoint
	distanceMeters float64
	drivingSeconds float64
}

// partitionStops drops visited and blank stops and finds the single end stop.
func partitionStops(stops []domain.Stop) ([]domain.Stop, *domain.Stop, error) {
	active := make([]domain.Stop, 0, len(stops))
	for _, s := range stops {
		if s.Active() {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, nil, domain.ErrNoDestinations
	}

	var end *domain.Stop
	seen := make(map[string]struct{}, len(active))
	for i, s := range active {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, nil, fmt.Errorf("stop at index %d: %w", i, domain.ErrMissingStopID)
		}
		if _, ok := seen[id]; ok {
			return nil, nil, fmt.Errorf("stop %q: %w", s.ID, domain.ErrDuplicateStopID)
		}
		seen[id] = struct{}{}

		if s.IsEndPoint {
			if end != nil {
				return nil, nil, fmt.Errorf("stops %q and %q: %w", end.ID, s.ID, domain.ErrMultipleEndpoints)
			}
			end = &active[i]
		}
	}

	return active, end, nil
}

// resolve geocodes stops without a position, one at a time in input order.
// The first failure aborts; no partial result is returned.
func (a *RouteAssembler) resolve(ctx context.Context, stops []domain.Stop) ([]domain.RouteLeg, error) {
	legs := make([]domain.RouteLeg, 0, len(stops))

	for _, s := range stops {
		if s.Position != nil {
			if !s.Position.Valid() {
				return nil, &domain.UnresolvedAddressError{StopID: s.ID, Address: s.Address, Err: domain.ErrInvalidLocation}
			}
			legs = append(legs, domain.RouteLeg{Destination: *s.Position, Stop: s})
			continue
		}

		if a.Geocoder == nil {
			return nil, &domain.UnresolvedAddressError{StopID: s.ID, Address: s.Address, Err: errors.New("no geocoder configured")}
		}

		p, err := a.Geocoder.Resolve(ctx, s.Address)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &domain.UnresolvedAddressError{StopID: s.ID, Address: s.Address, Err: err}
		}
		if !p.Valid() {
			return nil, &domain.UnresolvedAddressError{StopID: s.ID, Address: s.Address, Err: domain.ErrInvalidLocation}
		}

		legs = append(legs, domain.RouteLeg{Destination: p, Stop: s})
	}

	return legs, nil
}

// direct routes a single destination without ordering.
func (a *RouteAssembler) direct(ctx context.Context, start domain.GeoPoint, legs []domain.RouteLeg) (routePlan, error) {
	s, err := stitchLegs(ctx, a.Segments, start, legs)
	if err != nil {
		return routePlan{}, err
	}

	return routePlan{
		strategy:       domain.StrategyDirect,
		ordered:        legs,
		path:           s.path,
		distanceMeters: s.distanceMeters,
		drivingSeconds: s.durationSeconds,
	}, nil
}

// optimize asks the trip provider for an order and falls back to the heuristic
// when the provider result cannot be used.
func (a *RouteAssembler) optimize(
	ctx context.Context,
	start domain.GeoPoint,
	intermediates []domain.RouteLeg,
	endLeg *domain.RouteLeg,
) (routePlan, error) {
	var reason error

	if a.Trips == nil {
		reason = errors.New("no trip provider configured")
	} else {
		req := ports.TripRequest{
			Profile: ports.ProfileDriving,
			Start:   start,
			Legs:    intermediates,
		}
		if endLeg != nil {
			endPoint := endLeg.Destination
			req.End = &endPoint
		}

		switch o := a.Trips.Trip(ctx, req).(type) {
		case ports.TripAccepted:
			plan, err := acceptTrip(o, intermediates, endLeg)
			if err == nil {
				return plan, nil
			}
			reason = err
		case ports.TripRejected:
			reason = o.Reason
		default:
			reason = fmt.Errorf("%w: unexpected outcome %T", domain.ErrProviderRejected, o)
		}
	}

	if err := ctx.Err(); err != nil {
		return routePlan{}, err
	}

	_ = level.Warn(obs.For(ctx)).Log("msg", "trip provider result discarded, using heuristic", "reason", reason)

	return a.fallback(ctx, start, intermediates, endLeg, reason)
}

// acceptTrip maps the provider order back onto legs and appends the end leg.
func acceptTrip(o ports.TripAccepted, intermediates []domain.RouteLeg, endLeg *domain.RouteLeg) (routePlan, error) {
	if len(o.Path) == 0 {
		return routePlan{}, fmt.Errorf("%w: empty geometry", domain.ErrProviderRejected)
	}
	if o.DistanceMeters < 0 || o.DurationSeconds < 0 {
		return routePlan{}, fmt.Errorf("%w: negative distance or duration", domain.ErrProviderRejected)
	}
	if len(o.Order) != len(intermediates) {
		return routePlan{}, fmt.Errorf(
			"%w: got %d positions for %d stops",
			domain.ErrOrderingMismatch, len(o.Order), len(intermediates),
		)
	}

	seen := make([]bool, len(intermediates))
	ordered := make([]domain.RouteLeg, 0, len(intermediates)+1)
	for _, idx := range o.Order {
		if idx < 0 || idx >= len(intermediates) || seen[idx] {
			return routePlan{}, fmt.Errorf("%w: order %v is not a permutation", domain.ErrOrderingMismatch, o.Order)
		}
		seen[idx] = true
		ordered = append(ordered, intermediates[idx])
	}
	if endLeg != nil {
		ordered = append(ordered, *endLeg)
	}

	return routePlan{
		strategy:       domain.StrategyProvider,
		ordered:        ordered,
		path:           o.Path,
		distanceMeters: o.DistanceMeters,
		drivingSeconds: o.DurationSeconds,
	}, nil
}

func (a *RouteAssembler) fallback(
	ctx context.Context,
	start domain.GeoPoint,
	intermediates []domain.RouteLeg,
	endLeg *domain.RouteLeg,
	reason error,
) (routePlan, error) {
	orderer := a.Fallback
	if orderer == nil {
		orderer = CheapestInsertionOrderer
	}

	legs := intermediates
	endID := ""
	if endLeg != nil {
		legs = append(append(make([]domain.RouteLeg, 0, len(intermediates)+1), intermediates...), *endLeg)
		endID = endLeg.Stop.ID
	}

	ordered, err := orderer.Order(start, legs, endID)
	if err != nil {
		return routePlan{}, fmt.Errorf("fallback order: %w", err)
	}

	s, err := stitchLegs(ctx, a.Segments, start, ordered)
	if err != nil {
		return routePlan{}, err
	}

	plan := routePlan{
		strategy:       domain.StrategyHeuristic,
		ordered:        ordered,
		path:           s.path,
		distanceMeters: s.distanceMeters,
		drivingSeconds: s.durationSeconds,
	}
	if reason != nil {
		plan.fallbackReason = reason.Error()
	}
	return plan, nil
}

// numberWaypoints labels the start as 0 and each ordered leg consecutively.
func numberWaypoints(start CurrentLocation, ordered []domain.RouteLeg) []domain.Waypoint {
	label := strings.TrimSpace(start.Label)
	if label == "" {
		label = defaultStartLabel
	}

	out := make([]domain.Waypoint, 0, len(ordered)+1)
	out = append(out, domain.Waypoint{
		Label:         label,
		Position:      start.Position,
		DisplayNumber: 0,
	})

	for i, l := range ordered {
		out = append(out, domain.Waypoint{
			StopID:        l.Stop.ID,
			Label:         l.Stop.Label(),
			Address:       strings.TrimSpace(l.Stop.Address),
			Position:      l.Destination,
			DisplayNumber: i + 1,
		})
	}

	return out
}

// rememberDuration stores this route's duration in the session cache and fills
// KnownDurations with other modes computed for the same inputs.
// Cache failures are logged and never fail the route.
func (a *RouteAssembler) rememberDuration(ctx context.Context, req ComputeRouteRequest, artifact *domain.RouteArtifact) {
	if req.Durations == nil || strings.TrimSpace(req.Session) == "" {
		return
	}

	logger := obs.For(ctx)
	fp := domain.Fingerprint(req.Start.Position, req.Stops)

	entry := ports.DurationEntry{Fingerprint: fp, DurationSeconds: artifact.DurationSeconds}
	if err := req.Durations.Put(ctx, req.Session, artifact.Mode, entry); err != nil {
		_ = level.Warn(logger).Log("msg", "duration cache write failed", "err", err)
	}

	known := make(map[domain.TravelMode]float64, len(domain.TravelModes))
	for _, m := range domain.TravelModes {
		if m == artifact.Mode {
			continue
		}
		e, ok, err := req.Durations.Get(ctx, req.Session, m)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "duration cache read failed", "mode", m, "err", err)
			continue
		}
		if ok && e.Fingerprint == fp {
			known[m] = e.DurationSeconds
		}
	}
	artifact.KnownDurations = known
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
