// Package ratelimit throttles publishers of the HTTP queue bridge with one
// token bucket per queue.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*QueueThrottle)(nil)

// DefaultIdleTTL is how long an unused queue bucket is kept.
const DefaultIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastUsed time.Time
}

// QueueThrottle holds a token bucket per queue name. Buckets are created on
// first publish and dropped once idle for longer than the TTL.
type QueueThrottle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	clock   ports.Clock
	stop    chan struct{}
	once    sync.Once
}

// NewQueueThrottle creates a throttle reading time from clock.
func NewQueueThrottle(clock ports.Clock, ttl time.Duration) *QueueThrottle {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &QueueThrottle{
		buckets: make(map[string]*bucket),
		ttl:     ttl,
		clock:   clock,
		stop:    make(chan struct{}),
	}
}

// StartEviction runs Evict every TTL interval until Stop is called.
func (s *QueueThrottle) StartEviction() {
	go func() {
		ticker := time.NewTicker(s.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Evict()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the eviction goroutine.
func (s *QueueThrottle) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Allow takes one token from the queue's bucket. A non-positive rate
// disables throttling for the call.
func (s *QueueThrottle) Allow(_ context.Context, queue string, r float64, burst int) bool {
	if r <= 0 {
		return true
	}
	if burst < 1 {
		burst = 1
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[queue]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r), burst), rate: r, burst: burst}
		s.buckets[queue] = b
	} else if b.rate != r || b.burst != burst {
		// Settings reloaded with new limits.
		b.limiter.SetLimitAt(now, rate.Limit(r))
		b.limiter.SetBurstAt(now, burst)
		b.rate = r
		b.burst = burst
	}

	b.lastUsed = now
	return b.limiter.AllowN(now, 1)
}

// Evict drops buckets idle for longer than the TTL.
func (s *QueueThrottle) Evict() {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for queue, b := range s.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(s.buckets, queue)
		}
	}
}

// Len returns the number of live buckets.
func (s *QueueThrottle) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
