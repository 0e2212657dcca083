// Package action implements the test actions that exchange and validate
// messages, and the builders that assemble them.
package action

import (
	"context"
	"time"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Action is one step of a test case.
type Action interface {
	Name() string
	Execute(ctx context.Context, tctx *testcontext.Context) error
}

// Endpoint is a message source and sink. Receive returns a nil message
// when nothing matching arrived within timeout.
type Endpoint interface {
	Name() string
	Send(ctx context.Context, msg message.Message) error
	Receive(ctx context.Context, sel selector.Selector, timeout time.Duration) (message.Message, error)
}

// Purger is implemented by endpoints that can drop pending messages.
type Purger interface {
	Purge(sel selector.Selector) int
}

// TemplateRenderer renders a payload template with the test variables.
type TemplateRenderer interface {
	Render(source string, vars map[string]any) (string, error)
}

// Sleeper pauses execution.
type Sleeper interface {
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger receives echo output and action progress.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Func adapts a function to Action.
type Func struct {
	Label string
	Fn    func(ctx context.Context, tctx *testcontext.Context) error
}

func (f Func) Name() string { return f.Label }

func (f Func) Execute(ctx context.Context, tctx *testcontext.Context) error {
	return f.Fn(ctx, tctx)
}
