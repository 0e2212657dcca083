package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/agenix/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/agenix/internal/testutil"
)

func newThrottle(t *testing.T) (*ratelimit.QueueThrottle, *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := ratelimit.NewQueueThrottle(clock, time.Minute)
	t.Cleanup(s.Stop)
	return s, clock
}

func TestQueueThrottle_AllowWithinBurst(t *testing.T) {
	s, _ := newThrottle(t)
	ctx := context.Background()

	for i := range 3 {
		if !s.Allow(ctx, "orders", 1, 3) {
			t.Errorf("publish %d should be allowed within burst", i+1)
		}
	}
	if s.Allow(ctx, "orders", 1, 3) {
		t.Error("publish over burst should be denied")
	}
}

func TestQueueThrottle_Refill(t *testing.T) {
	s, clock := newThrottle(t)
	ctx := context.Background()

	if !s.Allow(ctx, "orders", 2, 1) {
		t.Fatal("first publish should be allowed")
	}
	if s.Allow(ctx, "orders", 2, 1) {
		t.Fatal("second publish should be denied")
	}
	clock.Advance(500 * time.Millisecond)
	if !s.Allow(ctx, "orders", 2, 1) {
		t.Error("expected a token after 500ms at 2/s")
	}
}

func TestQueueThrottle_PerQueueIsolation(t *testing.T) {
	s, _ := newThrottle(t)
	ctx := context.Background()

	s.Allow(ctx, "a", 1, 1)
	if s.Allow(ctx, "a", 1, 1) {
		t.Error("queue a should be exhausted")
	}
	if !s.Allow(ctx, "b", 1, 1) {
		t.Error("queue b should be allowed")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", s.Len())
	}
}

func TestQueueThrottle_Unlimited(t *testing.T) {
	s, _ := newThrottle(t)
	for range 100 {
		if !s.Allow(context.Background(), "q", 0, 0) {
			t.Fatal("zero rate must not throttle")
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected no buckets, got %d", s.Len())
	}
}

func TestQueueThrottle_Evict(t *testing.T) {
	s, clock := newThrottle(t)
	ctx := context.Background()

	s.Allow(ctx, "old", 1, 1)
	clock.Advance(30 * time.Second)
	s.Allow(ctx, "fresh", 1, 1)
	clock.Advance(45 * time.Second)
	s.Evict()

	if s.Len() != 1 {
		t.Errorf("expected 1 bucket after eviction, got %d", s.Len())
	}
}

func TestQueueThrottle_UpdatedLimits(t *testing.T) {
	s, clock := newThrottle(t)
	ctx := context.Background()

	s.Allow(ctx, "q", 1, 1)
	if s.Allow(ctx, "q", 1, 1) {
		t.Fatal("expected bucket to be empty")
	}

	if s.Allow(ctx, "q", 10, 5) {
		t.Fatal("raising the limits must not refill the bucket")
	}

	// At 10/s, 200ms refills two tokens; at 1/s it would refill none.
	clock.Advance(200 * time.Millisecond)
	if !s.Allow(ctx, "q", 10, 5) {
		t.Error("expected token after raising the rate")
	}
	if s.Len() != 1 {
		t.Errorf("expected the bucket to be reused, got %d", s.Len())
	}
}

func TestQueueThrottle_Concurrent(t *testing.T) {
	s, _ := newThrottle(t)
	ctx := context.Background()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Allow(ctx, "concurrent", 100, 100)
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("expected 1 bucket, got %d", s.Len())
	}
}
