// Package queue provides in-memory message queues and the direct endpoint
// that sends to and receives from them.
package queue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

// DefaultPollingInterval spaces out receive attempts.
const DefaultPollingInterval = 500 * time.Millisecond

// MessageQueue is a FIFO of messages. Receivers take the oldest message
// their selector accepts.
type MessageQueue struct {
	name     string
	clock    ports.Clock
	logger   ports.Logger
	interval time.Duration

	mu   sync.Mutex
	msgs []message.Message
}

// Option configures a MessageQueue.
type Option func(*MessageQueue)

func WithClock(c ports.Clock) Option {
	return func(q *MessageQueue) { q.clock = c }
}

func WithLogger(l ports.Logger) Option {
	return func(q *MessageQueue) { q.logger = l }
}

// WithPollingInterval sets the pause between receive attempts. Non-positive
// values keep the default.
func WithPollingInterval(d time.Duration) Option {
	return func(q *MessageQueue) {
		if d > 0 {
			q.interval = d
		}
	}
}

func New(name string, opts ...Option) *MessageQueue {
	q := &MessageQueue{
		name:     name,
		clock:    clock.New(),
		logger:   noopLogger{},
		interval: DefaultPollingInterval,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *MessageQueue) Name() string { return q.name }

// Send appends msg.
func (q *MessageQueue) Send(msg message.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
}

// Receive removes and returns the oldest message accepted by sel, or nil.
func (q *MessageQueue) Receive(sel selector.Selector) message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.msgs {
		if sel.Accept(m) {
			q.msgs = append(q.msgs[:i], q.msgs[i+1:]...)
			return m
		}
	}
	return nil
}

// ReceiveWithin polls until a message accepted by sel arrives or timeout
// elapses. Attempts are paced one per polling interval and the last one
// happens at the deadline. A nil message with a nil error means timeout.
func (q *MessageQueue) ReceiveWithin(ctx context.Context, sel selector.Selector, timeout time.Duration) (message.Message, error) {
	deadline := q.clock.Now().Add(timeout)
	pacer := rate.NewLimiter(rate.Every(q.interval), 1)

	for {
		now := q.clock.Now()
		if delay := pacer.ReserveN(now, 1).DelayFrom(now); delay > 0 {
			left := clock.Remaining(q.clock, deadline)
			if err := q.clock.SleepContext(ctx, min(delay, left)); err != nil {
				return nil, err
			}
		}

		if m := q.Receive(sel); m != nil {
			return m, nil
		}
		if clock.Remaining(q.clock, deadline) == 0 {
			return nil, nil
		}
		q.logger.Debug("no message available, retrying", "queue", q.name, "interval", q.interval)
	}
}

// Purge removes every message accepted by sel and returns how many were
// dropped.
func (q *MessageQueue) Purge(sel selector.Selector) int {
	return len(q.PurgeMessages(sel))
}

// PurgeMessages removes and returns every message accepted by sel.
func (q *MessageQueue) PurgeMessages(sel selector.Selector) []message.Message {
	q.mu.Lock()
	var purged []message.Message
	kept := q.msgs[:0]
	for _, m := range q.msgs {
		if sel.Accept(m) {
			purged = append(purged, m)
			continue
		}
		kept = append(kept, m)
	}
	clear(q.msgs[len(kept):])
	q.msgs = kept
	q.mu.Unlock()

	for _, m := range purged {
		q.logger.Debug("purged message", "queue", q.name, "message_id", m.ID())
	}
	if len(purged) > 0 {
		q.logger.Info("purged queue", "queue", q.name, "count", len(purged))
	}
	return purged
}

func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Snapshot returns the pending messages, oldest first, without removing them.
func (q *MessageQueue) Snapshot() []message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]message.Message(nil), q.msgs...)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
