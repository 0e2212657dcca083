package action

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sophialabs/agenix/internal/domain/expression"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/selector"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// CreateVariablesAction resolves and stores variables in name order.
type CreateVariablesAction struct {
	Variables map[string]any
}

func (a *CreateVariablesAction) Name() string { return "create-variables" }

func (a *CreateVariablesAction) Execute(_ context.Context, tctx *testcontext.Context) error {
	names := make([]string, 0, len(a.Variables))
	for k := range a.Variables {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		value := a.Variables[name]
		if s, ok := value.(string); ok {
			resolved, err := tctx.ResolveDynamicValue(s)
			if err != nil {
				return fmt.Errorf("create variable %s: %w", name, err)
			}
			value = resolved
		}
		tctx.SetVariable(name, value)
	}
	return nil
}

// EchoAction logs a resolved message.
type EchoAction struct {
	Message string
	Logger  Logger
}

func (a *EchoAction) Name() string { return "echo" }

func (a *EchoAction) Execute(_ context.Context, tctx *testcontext.Context) error {
	text, err := tctx.ResolveDynamicContent(a.Message)
	if err != nil {
		return err
	}
	a.Logger.Info(tctx.Mask(text))
	return nil
}

// SleepAction pauses the test. It returns early when ctx is cancelled.
type SleepAction struct {
	Duration time.Duration
	Sleeper  Sleeper
}

func (a *SleepAction) Name() string { return "sleep" }

func (a *SleepAction) Execute(ctx context.Context, _ *testcontext.Context) error {
	return a.Sleeper.SleepContext(ctx, a.Duration)
}

// ConditionalAction runs its nested actions when the resolved condition
// evaluates to true.
type ConditionalAction struct {
	Condition string
	Actions   []Action
}

func (a *ConditionalAction) Name() string { return "conditional" }

func (a *ConditionalAction) Execute(ctx context.Context, tctx *testcontext.Context) error {
	condition, err := tctx.ResolveDynamicContent(a.Condition)
	if err != nil {
		return err
	}
	ok, err := expression.EvaluateBoolean(condition)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for _, nested := range a.Actions {
		if err := nested.Execute(ctx, tctx); err != nil {
			return err
		}
	}
	return nil
}

// PurgeAction drops pending messages from an endpoint.
type PurgeAction struct {
	Endpoint Endpoint
	Selector selector.Selector
	// SelectorMap is resolved against the test context when Selector is nil.
	SelectorMap map[string]string
	Evaluators  *pathexpr.Registry
	Logger      Logger
}

func (a *PurgeAction) Name() string { return "purge" }

func (a *PurgeAction) Execute(_ context.Context, tctx *testcontext.Context) error {
	p, ok := a.Endpoint.(Purger)
	if !ok {
		return failure.System(failure.ErrUnknownEndpoint, "endpoint '%s' does not support purging", a.Endpoint.Name())
	}
	sel := a.Selector
	if sel == nil {
		var err error
		if sel, err = mapSelector(tctx, a.SelectorMap, a.Evaluators); err != nil {
			return err
		}
	}
	n := p.Purge(sel)
	if a.Logger != nil {
		a.Logger.Debug("purged endpoint", "endpoint", a.Endpoint.Name(), "count", n)
	}
	return nil
}
