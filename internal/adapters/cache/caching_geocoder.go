package cache

import (
	"context"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"
)

// CachingGeocoder resolves addresses through a persistent cache first.
//
// Lookups are keyed by NormalizeAddress. Identical lookups in flight at the same
// time share one upstream call, which runs without the callers' cancellation and
// is bounded by the upstream client's timeout. Cache failures are logged and fall through to
// the upstream geocoder.
type CachingGeocoder struct {
	next  ports.Geocoder
	cache ports.GeocodeCache
	group singleflight.Group
}

func NewCachingGeocoder(next ports.Geocoder, cache ports.GeocodeCache) *CachingGeocoder {
	return &CachingGeocoder{next: next, cache: cache}
}

func (g *CachingGeocoder) Resolve(ctx context.Context, address string) (domain.GeoPoint, error) {
	key := NormalizeAddress(address)
	if key == "" {
		return domain.GeoPoint{}, fmt.Errorf("resolve: empty address: %w", domain.ErrAddressNotFound)
	}

	// The shared lookup must not die with whichever caller started it; each
	// caller stops waiting on its own context instead.
	ch := g.group.DoChan(key, func() (any, error) {
		return g.resolve(context.WithoutCancel(ctx), key, address)
	})

	select {
	case <-ctx.Done():
		return domain.GeoPoint{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.GeoPoint{}, res.Err
		}
		return res.Val.(domain.GeoPoint), nil
	}
}

func (g *CachingGeocoder) resolve(ctx context.Context, key, address string) (domain.GeoPoint, error) {
	logger := obs.For(ctx)

	if g.cache != nil {
		hits, err := g.cache.GetMany(ctx, []string{key})
		if err != nil {
			_ = level.Warn(logger).Log("msg", "geocode cache read failed", "err", err)
		} else if p, ok := hits[key]; ok {
			return p, nil
		}
	}

	if g.next == nil {
		return domain.GeoPoint{}, errors.New("resolve: no upstream geocoder")
	}

	p, err := g.next.Resolve(ctx, address)
	if err != nil {
		return domain.GeoPoint{}, err
	}

	if g.cache != nil {
		if err := g.cache.PutMany(ctx, map[string]domain.GeoPoint{key: p}); err != nil {
			_ = level.Warn(logger).Log("msg", "geocode cache write failed", "err", err)
		}
	}

	return p, nil
}
