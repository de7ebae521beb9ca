package cache

import (
	"context"
	"errors"
	"fmt"
	"stop-route-service/internal/domain"
	"stop-route-service/internal/platform/obs"
	"stop-route-service/internal/ports"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDurationCache stores last known durations in a Redis hash per session:
// key "route:durations:<session>", field "<mode>", value "<fingerprint hex>:<seconds>".
// The hash expires TTL after its last write.
type RedisDurationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDurationCache(client *redis.Client, ttl time.Duration) *RedisDurationCache {
	return &RedisDurationCache{client: client, ttl: ttl}
}

func durationsKey(session string) string {
	return "route:durations:" + session
}

func (r *RedisDurationCache) Get(ctx context.Context, session string, mode domain.TravelMode) (_ ports.DurationEntry, _ bool, err error) {
	defer obs.Time(ctx, "durations.redis.Get")(&err)

	raw, err := r.client.HGet(ctx, durationsKey(session), string(mode)).Result()
	if errors.Is(err, redis.Nil) {
		return ports.DurationEntry{}, false, nil
	}
	if err != nil {
		return ports.DurationEntry{}, false, fmt.Errorf("get durations session=%q mode=%s: %w", session, mode, err)
	}

	entry, err := decodeDurationEntry(raw)
	if err != nil {
		return ports.DurationEntry{}, false, fmt.Errorf("get durations session=%q mode=%s: %w", session, mode, err)
	}
	return entry, true, nil
}

func (r *RedisDurationCache) Put(ctx context.Context, session string, mode domain.TravelMode, entry ports.DurationEntry) error {
	key := durationsKey(session)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, string(mode), encodeDurationEntry(entry))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put durations session=%q mode=%s: %w", session, mode, err)
	}
	return nil
}

func encodeDurationEntry(e ports.DurationEntry) string {
	return strconv.FormatUint(e.Fingerprint, 16) + ":" + strconv.FormatFloat(e.DurationSeconds, 'g', -1, 64)
}

func decodeDurationEntry(raw string) (ports.DurationEntry, error) {
	fpRaw, secsRaw, ok := strings.Cut(raw, ":")
	if !ok {
		return ports.DurationEntry{}, fmt.Errorf("malformed entry %q", raw)
	}
	fp, err := strconv.ParseUint(fpRaw, 16, 64)
	if err != nil {
		return ports.DurationEntry{}, fmt.Errorf("decode fingerprint: %w", err)
	}
	secs, err := strconv.ParseFloat(secsRaw, 64)
	if err != nil {
		return ports.DurationEntry{}, fmt.Errorf("decode duration: %w", err)
	}
	return ports.DurationEntry{Fingerprint: fp, DurationSeconds: secs}, nil
}
