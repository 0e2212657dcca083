// Package functions provides the core function library callable from test
// content as prefix:Name(args), e.g. agenix:Concat('a', ${b}).
package functions

import (
	"time"

	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// DefaultPrefix is the call prefix of the core library.
const DefaultPrefix = "agenix:"

type options struct {
	now func() time.Time
}

// Option configures the core library.
type Option func(*options)

// WithClock sets the time source of date functions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewCoreLibrary returns the core function library registered under prefix.
func NewCoreLibrary(prefix string, opts ...Option) *testcontext.FunctionLibrary {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	lib := testcontext.NewFunctionLibrary("core", prefix)
	for _, fn := range stringFunctions() {
		lib.Register(fn)
	}
	for _, fn := range numericFunctions() {
		lib.Register(fn)
	}
	for _, fn := range randomFunctions() {
		lib.Register(fn)
	}
	for _, fn := range encodingFunctions() {
		lib.Register(fn)
	}
	for _, fn := range dateFunctions(o.now) {
		lib.Register(fn)
	}
	return lib
}

func fixed(name string, n int, exec func(ctx *testcontext.Context, args []string) (string, error)) testcontext.Function {
	return testcontext.Function{Name: name, MinArgs: n, MaxArgs: n, Exec: exec}
}

func ranged(name string, lo, hi int, exec func(ctx *testcontext.Context, args []string) (string, error)) testcontext.Function {
	return testcontext.Function{Name: name, MinArgs: lo, MaxArgs: hi, Exec: exec}
}
