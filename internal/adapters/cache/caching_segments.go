package cache

import (
	"context"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"

	"github.com/go-kit/log/level"
)

// CachingSegmentProvider serves segments from a persistent cache and routes
// misses through the wrapped provider. Failures are never cached.
type CachingSegmentProvider struct {
	next  ports.SegmentProvider
	cache ports.SegmentCache
}

func NewCachingSegmentProvider(next ports.SegmentProvider, cache ports.SegmentCache) *CachingSegmentProvider {
	return &CachingSegmentProvider{next: next, cache: cache}
}

func (c *CachingSegmentProvider) Segment(
	ctx context.Context,
	profile ports.Profile,
	origin, destination domain.GeoPoint,
) (ports.Segment, error) {
	key := SegmentKey(profile, origin, destination)
	logger := obs.For(ctx)

	if c.cache != nil {
		seg, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			_ = level.Warn(logger).Log("msg", "segment cache read failed", "key", key, "err", err)
		} else if ok {
			return seg, nil
		}
	}

	seg, err := c.next.Segment(ctx, profile, origin, destination)
	if err != nil {
		return ports.Segment{}, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, seg); err != nil {
			_ = level.Warn(logger).Log("msg", "segment cache write failed", "key", key, "err", err)
		}
	}

	return seg, nil
}
