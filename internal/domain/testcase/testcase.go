// Package testcase holds test case definitions, the sequential runner and
// the results it produces.
package testcase

import (
	"context"
	"fmt"
	"time"

	"github.com/sophialabs/agenix/internal/domain/action"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Status is the outcome of a test case.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusSkipped Status = "SKIP"
)

// TestCase is a compiled, runnable test.
type TestCase struct {
	Name        string
	Description string
	Variables   map[string]any
	Actions     []action.Action
}

// Result records the outcome of one run.
type Result struct {
	Name         string
	Status       Status
	Cause        error `json:"-"`
	ErrorMessage string
	// FailedAction is the name of the action that aborted the run.
	FailedAction string
	Duration     time.Duration
}

// Failed reports whether the run did not succeed.
func (r Result) Failed() bool { return r.Status == StatusFailure }

// Logger receives runner progress.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Runner executes test cases. Each run gets a fresh context from
// NewContext, so variables never leak between tests.
type Runner struct {
	NewContext func() *testcontext.Context
	Logger     Logger
	Now        func() time.Time
}

// Run executes the actions of tc in order. The first failing action aborts
// the test; a cancelled ctx aborts it before the next action starts.
func (r *Runner) Run(ctx context.Context, tc *TestCase) Result {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	result := Result{Name: tc.Name, Status: StatusSuccess}

	tctx := r.newContext()
	failed, err := r.execute(ctx, tctx, tc)
	result.Duration = now().Sub(start)

	if err != nil {
		result.Status = StatusFailure
		result.Cause = err
		result.ErrorMessage = tctx.Mask(err.Error())
		result.FailedAction = failed
		if r.Logger != nil {
			r.Logger.Error("test failed", "test", tc.Name, "action", failed, "error", result.ErrorMessage,
				"validation", failure.IsValidation(err))
		}
		return result
	}
	if r.Logger != nil {
		r.Logger.Info("test passed", "test", tc.Name, "duration", result.Duration)
	}
	return result
}

func (r *Runner) execute(ctx context.Context, tctx *testcontext.Context, tc *TestCase) (string, error) {
	// String variables are resolved in name order, so one may refer to a
	// variable sorted before it or call a function.
	vars := &action.CreateVariablesAction{Variables: tc.Variables}
	if err := vars.Execute(ctx, tctx); err != nil {
		return "variables", err
	}
	for i, a := range tc.Actions {
		if err := ctx.Err(); err != nil {
			return a.Name(), fmt.Errorf("test %s aborted before action %d: %w", tc.Name, i, err)
		}
		if err := a.Execute(ctx, tctx); err != nil {
			return a.Name(), err
		}
	}
	return "", nil
}

func (r *Runner) newContext() *testcontext.Context {
	if r.NewContext != nil {
		return r.NewContext()
	}
	return testcontext.New()
}

// Summary counts results by status.
type Summary struct {
	Total   int
	Success int
	Failure int
	Skipped int
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusFailure:
			s.Failure++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// FirstFailure returns the cause of the first failed result, or nil.
func FirstFailure(results []Result) error {
	for _, r := range results {
		if r.Failed() {
			return fmt.Errorf("test %s: %w", r.Name, r.Cause)
		}
	}
	return nil
}

// Skipped builds the result of a test that was not run.
func Skipped(name, reason string) Result {
	return Result{Name: name, Status: StatusSkipped, ErrorMessage: reason}
}
