package clock

import (
	"context"
	"time"

	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

var _ ports.Clock = (*RealClock)(nil)

// RealClock implements ports.Clock using the system clock.
type RealClock struct{}

func New() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time { return time.Now() }

// SleepContext waits for d. A non-positive d returns at once unless ctx is
// already done.
func (c *RealClock) SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Remaining returns the time left until deadline, never negative.
func Remaining(c ports.Clock, deadline time.Time) time.Duration {
	if left := deadline.Sub(c.Now()); left > 0 {
		return left
	}
	return 0
}
