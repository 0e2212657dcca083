package ports

import (
	"context"
	"time"
)

// Clock provides the current time and sleeping, so queue polling can be
// driven by a fake in tests.
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter throttles publishers of the HTTP queue bridge.
type RateLimiter interface {
	// Allow reports whether one more message may be published to the queue
	// identified by key. rate is messages per second, burst the max burst size.
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}
