package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
	"github.com/sophialabs/agenix/internal/domain/validation"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Logger = (*RecordingLogger)(nil)

// LogEntry is one call recorded by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger keeps every log call.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }
func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }

// Entries returns a copy of the recorded calls.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Contains reports whether any message contains substr.
func (l *RecordingLogger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

// Count returns how many entries were logged at level.
func (l *RecordingLogger) Count(level string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

var _ ports.Clock = (*FakeClock)(nil)

// FakeClock is a manual clock. SleepContext advances it instead of
// blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns the durations passed to SleepContext.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

var _ validation.Validator = (*StubValidator)(nil)

// StubValidator claims the listed types and returns Err on validation.
type StubValidator struct {
	Types []message.Type
	Err   error
	Calls int
}

func (v *StubValidator) SupportsMessageType(t message.Type, _ message.Message) bool {
	for _, s := range v.Types {
		if s.Is(t) {
			return true
		}
	}
	return false
}

func (v *StubValidator) ValidateMessage(message.Message, message.Message, *testcontext.Context, []validation.Context) error {
	v.Calls++
	return v.Err
}

var _ pathexpr.Evaluator = (*StubEvaluator)(nil)

// StubEvaluator answers from a fixed expression to value map.
type StubEvaluator struct {
	EvaluatorKind pathexpr.Kind
	Values        map[string]any
}

func (e *StubEvaluator) Kind() pathexpr.Kind { return e.EvaluatorKind }

func (e *StubEvaluator) Evaluate(_ string, expr string) (any, bool, error) {
	v, ok := e.Values[expr]
	return v, ok, nil
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

// StubRenderer substitutes {{ name }} placeholders from the variables.
type StubRenderer struct {
	Err error
}

func (r *StubRenderer) Render(source string, vars map[string]any) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	out := source
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{ "+k+" }}", fmt.Sprint(v))
	}
	return out, nil
}
