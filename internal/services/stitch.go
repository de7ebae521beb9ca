package services

import (
	"context"
	"errors"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"

	"github.com/go-kit/log/level"
)

// FallbackSpeedMetersPerSecond estimates duration for legs the segment provider cannot route.
const FallbackSpeedMetersPerSecond = 13.0

// straightLine is the placeholder segment for an unreachable leg.
func straightLine(origin, destination domain.GeoPoint) ports.Segment {
	d := domain.Haversine(origin, destination)
	return ports.Segment{
		Path:            []domain.GeoPoint{origin, destination},
		DistanceMeters:  d,
		DurationSeconds: d / FallbackSpeedMetersPerSecond,
	}
}

// appendPath concatenates next onto path, dropping next's first point when it
// repeats the current last point.
func appendPath(path, next []domain.GeoPoint) []domain.GeoPoint {
	if len(path) > 0 && len(next) > 0 && path[len(path)-1] == next[0] {
		next = next[1:]
	}
	return append(path, next...)
}

type stitched struct {
	path            []domain.GeoPoint
	distanceMeters  float64
	durationSeconds float64
	placeholders    int
}

// stitchLegs routes start -> ordered[0] -> ... -> ordered[n-1] one leg at a time.
// A leg the provider cannot route is replaced by a straight line; only context
// cancellation aborts.
func stitchLegs(
	ctx context.Context,
	segments ports.SegmentProvider,
	start domain.GeoPoint,
	ordered []domain.RouteLeg,
) (stitched, error) {
	var out stitched
	prev := start

	for _, l := range ordered {
		if err := ctx.Err(); err != nil {
			return stitched{}, err
		}

		seg, err := routeSegment(ctx, segments, prev, l.Destination)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stitched{}, ctxErr
			}
			_ = level.Warn(obs.For(ctx)).Log(
				"msg", "segment unavailable, using straight line",
				"stop_id", l.Stop.ID,
				"unreachable", errors.Is(err, domain.ErrSegmentUnreachable),
				"err", err,
			)
			seg = straightLine(prev, l.Destination)
			out.placeholders++
		}

		out.path = appendPath(out.path, seg.Path)
		out.distanceMeters += seg.DistanceMeters
		out.durationSeconds += seg.DurationSeconds
		prev = l.Destination
	}

	return out, nil
}

func routeSegment(
	ctx context.Context,
	segments ports.SegmentProvider,
	origin, destination domain.GeoPoint,
) (ports.Segment, error) {
	if segments == nil {
		return ports.Segment{}, errors.New("no segment provider configured")
	}

	seg, err := segments.Segment(ctx, ports.ProfileDriving, origin, destination)
	if err != nil {
		return ports.Segment{}, err
	}
	if len(seg.Path) == 0 || seg.DistanceMeters < 0 || seg.DurationSeconds < 0 {
		return ports.Segment{}, domain.ErrSegmentUnreachable
	}
	return seg, nil
}
