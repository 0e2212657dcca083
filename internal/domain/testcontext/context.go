// Package testcontext holds the per test-case execution state: the variable
// scope, the object reference resolver, the registered function and
// validation matcher libraries, the type converter and the log masker.
//
// A Context is created once per test case and is not safe for concurrent
// mutation; independent test cases each get their own Context.
package testcontext

import (
	"maps"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/failure"
)

// Context is the variable scope and collaborator hub of one test case.
type Context struct {
	variables  map[string]any
	references map[string]any
	functions  []*FunctionLibrary
	matchers   []*MatcherLibrary
	converter  *convert.Engine
	mask       func(string) string
}

// Option configures a Context.
type Option func(*Context)

// WithFunctionLibrary registers a function library.
func WithFunctionLibrary(lib *FunctionLibrary) Option {
	return func(c *Context) { c.functions = append(c.functions, lib) }
}

// WithMatcherLibrary registers a validation matcher library.
func WithMatcherLibrary(lib *MatcherLibrary) Option {
	return func(c *Context) { c.matchers = append(c.matchers, lib) }
}

// WithConverter sets the type conversion engine.
func WithConverter(e *convert.Engine) Option {
	return func(c *Context) { c.converter = e }
}

// WithMasker sets the function used to mask sensitive content in logs.
func WithMasker(mask func(string) string) Option {
	return func(c *Context) { c.mask = mask }
}

// WithReference binds an object under name in the reference resolver.
func WithReference(name string, obj any) Option {
	return func(c *Context) { c.references[name] = obj }
}

// WithVariables seeds the variable scope.
func WithVariables(vars map[string]any) Option {
	return func(c *Context) { maps.Copy(c.variables, vars) }
}

// New creates a Context.
func New(opts ...Option) *Context {
	c := &Context{
		variables:  make(map[string]any),
		references: make(map[string]any),
		converter:  convert.New(),
		mask:       func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVariable stores a variable. The last write wins.
func (c *Context) SetVariable(name string, value any) {
	c.variables[name] = value
}

// Variable returns the raw variable value or ErrVariableNotFound.
func (c *Context) Variable(name string) (any, error) {
	v, ok := c.variables[name]
	if !ok {
		return nil, failure.System(failure.ErrVariableNotFound, "unknown variable '%s'", name)
	}
	return v, nil
}

// VariableString returns the variable rendered as string.
func (c *Context) VariableString(name string) (string, error) {
	v, err := c.Variable(name)
	if err != nil {
		return "", err
	}
	return c.converter.ToString(v), nil
}

// HasVariable reports whether name is set.
func (c *Context) HasVariable(name string) bool {
	_, ok := c.variables[name]
	return ok
}

// Variables returns a copy of the variable scope.
func (c *Context) Variables() map[string]any {
	return maps.Clone(c.variables)
}

// Bind registers obj under name in the reference resolver.
func (c *Context) Bind(name string, obj any) {
	c.references[name] = obj
}

// Reference resolves an object by name.
func (c *Context) Reference(name string) (any, bool) {
	v, ok := c.references[name]
	return v, ok
}

// ReferenceAs resolves an object by name and asserts its type.
func ReferenceAs[T any](c *Context, name string) (T, bool) {
	var zero T
	v, ok := c.references[name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Converter returns the type conversion engine.
func (c *Context) Converter() *convert.Engine { return c.converter }

// Mask applies the log masking modifier to s.
func (c *Context) Mask(s string) string { return c.mask(s) }

// FunctionLibraries returns the registered function libraries.
func (c *Context) FunctionLibraries() []*FunctionLibrary {
	return append([]*FunctionLibrary(nil), c.functions...)
}

// FunctionLibrary returns the library registered for prefix.
func (c *Context) FunctionLibrary(prefix string) (*FunctionLibrary, error) {
	for _, lib := range c.functions {
		if lib.Prefix == prefix {
			return lib, nil
		}
	}
	return nil, failure.System(failure.ErrNoSuchFunctionLibrary,
		"can not find function library for prefix '%s'", prefix)
}

// MatcherLibrary returns the validation matcher library registered for prefix.
// The empty prefix selects the default library.
func (c *Context) MatcherLibrary(prefix string) (*MatcherLibrary, error) {
	for _, lib := range c.matchers {
		if strings.EqualFold(lib.Prefix, prefix) {
			return lib, nil
		}
	}
	return nil, failure.System(failure.ErrNoSuchMatcherLibrary,
		"can not find validation matcher library for prefix '%s'", prefix)
}
