package testcontext

import (
	"strconv"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
)

// Unbounded is used as Function.MaxArgs for variadic functions.
const Unbounded = -1

// Function is a named callable usable as prefix:Name(args) in test content.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	Exec    func(ctx *Context, args []string) (string, error)
}

// FunctionLibrary groups functions under a call prefix such as "agenix:".
type FunctionLibrary struct {
	Name      string
	Prefix    string
	functions map[string]Function
}

// NewFunctionLibrary creates a library. Function names are case-insensitive.
func NewFunctionLibrary(name, prefix string, fns ...Function) *FunctionLibrary {
	lib := &FunctionLibrary{Name: name, Prefix: prefix, functions: make(map[string]Function)}
	for _, fn := range fns {
		lib.Register(fn)
	}
	return lib
}

// Register adds or replaces a function.
func (l *FunctionLibrary) Register(fn Function) {
	l.functions[strings.ToLower(fn.Name)] = fn
}

// Function looks up a function by name.
func (l *FunctionLibrary) Function(name string) (Function, error) {
	fn, ok := l.functions[strings.ToLower(name)]
	if !ok {
		return Function{}, failure.System(failure.ErrNoSuchFunction,
			"can not find function '%s' in library '%s' (%s)", name, l.Name, l.Prefix)
	}
	return fn, nil
}

// Call checks arity and runs fn.
func (fn Function) Call(ctx *Context, args []string) (string, error) {
	if len(args) < fn.MinArgs || (fn.MaxArgs != Unbounded && len(args) > fn.MaxArgs) {
		return "", failure.System(failure.ErrInvalidFunctionUsage,
			"function '%s' expects %s but got %d", fn.Name, arity(fn.MinArgs, fn.MaxArgs), len(args))
	}
	return fn.Exec(ctx, args)
}

func arity(lo, hi int) string {
	switch {
	case hi == Unbounded:
		return "at least " + strconv.Itoa(lo) + " parameter(s)"
	case lo == hi:
		return strconv.Itoa(lo) + " parameter(s)"
	default:
		return strconv.Itoa(lo) + " to " + strconv.Itoa(hi) + " parameters"
	}
}

// Matcher validates a received value against a control expression. value is
// nil when the received element is absent, otherwise the value as string.
type Matcher struct {
	Name string
	// RawParams hands the text between the parentheses over as a single
	// unparsed parameter.
	RawParams bool
	Validate  func(ctx *Context, field string, value any, params []string) error
}

// MatcherLibrary groups validation matchers under a prefix. The default
// library has the empty prefix.
type MatcherLibrary struct {
	Name     string
	Prefix   string
	matchers map[string]Matcher
}

// NewMatcherLibrary creates a library. Matcher names are case-insensitive.
func NewMatcherLibrary(name, prefix string, ms ...Matcher) *MatcherLibrary {
	lib := &MatcherLibrary{Name: name, Prefix: prefix, matchers: make(map[string]Matcher)}
	for _, m := range ms {
		lib.Register(m)
	}
	return lib
}

// Register adds or replaces a matcher.
func (l *MatcherLibrary) Register(m Matcher) {
	l.matchers[strings.ToLower(m.Name)] = m
}

// Matcher looks up a matcher by name.
func (l *MatcherLibrary) Matcher(name string) (Matcher, error) {
	m, ok := l.matchers[strings.ToLower(name)]
	if !ok {
		return Matcher{}, failure.System(failure.ErrNoSuchMatcher,
			"can not find validation matcher '%s' in library '%s'", name, l.Name)
	}
	return m, nil
}
