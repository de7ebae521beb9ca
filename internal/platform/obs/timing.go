package obs

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey).(string)
	return reqID
}

// WithRequestID returns a child context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// For returns the process logger bound to the request id in ctx.
func For(ctx context.Context) log.Logger {
	return log.With(Logger(), "req_id", RequestID(ctx))
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	l := For(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			_ = level.Warn(l).Log("op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		_ = level.Debug(l).Log("op", name, "dur_ms", dur.Milliseconds())
	}
}
