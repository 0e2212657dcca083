package validation

import (
	"maps"
	"slices"
)

// Context carries the configuration of one validator family. A receive
// action may hold several contexts; each validator picks the kind it
// understands.
type Context interface {
	Kind() string
}

// Find returns the first context of type T in contexts.
func Find[T Context](contexts []Context) (T, bool) {
	for _, c := range contexts {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// FindAll returns every context of type T in contexts.
func FindAll[T Context](contexts []Context) []T {
	var out []T
	for _, c := range contexts {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// HeaderContext configures header validation.
type HeaderContext struct {
	ignoreCase     bool
	validators     []HeaderValueValidator
	validatorNames []string
}

func (HeaderContext) Kind() string { return "header" }

// IgnoreCase reports whether header names are matched case-insensitively.
func (c HeaderContext) IgnoreCase() bool { return c.ignoreCase }

// Validators returns the header value validators attached to the context.
func (c HeaderContext) Validators() []HeaderValueValidator { return slices.Clone(c.validators) }

// ValidatorNames returns the names of header value validators that are
// resolved through the test context references.
func (c HeaderContext) ValidatorNames() []string { return slices.Clone(c.validatorNames) }

// HeaderContextBuilder builds a HeaderContext.
type HeaderContextBuilder struct {
	ctx HeaderContext
}

// NewHeaderContext starts a header context with case-sensitive names.
func NewHeaderContext() *HeaderContextBuilder {
	return &HeaderContextBuilder{}
}

func (b *HeaderContextBuilder) IgnoreCase(v bool) *HeaderContextBuilder {
	b.ctx.ignoreCase = v
	return b
}

func (b *HeaderContextBuilder) Validator(v ...HeaderValueValidator) *HeaderContextBuilder {
	b.ctx.validators = append(b.ctx.validators, v...)
	return b
}

func (b *HeaderContextBuilder) ValidatorName(names ...string) *HeaderContextBuilder {
	b.ctx.validatorNames = append(b.ctx.validatorNames, names...)
	return b
}

func (b *HeaderContextBuilder) Build() HeaderContext {
	return HeaderContext{
		ignoreCase:     b.ctx.ignoreCase,
		validators:     slices.Clone(b.ctx.validators),
		validatorNames: slices.Clone(b.ctx.validatorNames),
	}
}

// PathExpressionContext maps JSONPath or XPath expressions to expected values.
type PathExpressionContext struct {
	expressions map[string]any
}

func (PathExpressionContext) Kind() string { return "pathExpression" }

// Expressions returns a copy of the expression map.
func (c PathExpressionContext) Expressions() map[string]any {
	return maps.Clone(c.expressions)
}

// PathExpressionContextBuilder builds a PathExpressionContext.
type PathExpressionContextBuilder struct {
	expressions map[string]any
}

func NewPathExpressionContext() *PathExpressionContextBuilder {
	return &PathExpressionContextBuilder{expressions: make(map[string]any)}
}

// Expression adds one expression. The expected value may be a literal, a
// ${variable} reference or a matcher expression.
func (b *PathExpressionContextBuilder) Expression(expr string, expected any) *PathExpressionContextBuilder {
	b.expressions[expr] = expected
	return b
}

func (b *PathExpressionContextBuilder) Expressions(exprs map[string]any) *PathExpressionContextBuilder {
	maps.Copy(b.expressions, exprs)
	return b
}

func (b *PathExpressionContextBuilder) Build() PathExpressionContext {
	return PathExpressionContext{expressions: maps.Clone(b.expressions)}
}

// JSONContext configures structural JSON validation.
type JSONContext struct {
	strict bool
	ignore []string
}

func (JSONContext) Kind() string { return "json" }

// Strict reports whether element counts must match exactly.
func (c JSONContext) Strict() bool { return c.strict }

// IgnoreExpressions returns the JSONPath expressions of skipped elements.
func (c JSONContext) IgnoreExpressions() []string { return slices.Clone(c.ignore) }

type JSONContextBuilder struct {
	ctx JSONContext
}

// NewJSONContext starts a strict JSON context.
func NewJSONContext() *JSONContextBuilder {
	return &JSONContextBuilder{ctx: JSONContext{strict: true}}
}

func (b *JSONContextBuilder) Strict(v bool) *JSONContextBuilder {
	b.ctx.strict = v
	return b
}

func (b *JSONContextBuilder) Ignore(exprs ...string) *JSONContextBuilder {
	b.ctx.ignore = append(b.ctx.ignore, exprs...)
	return b
}

func (b *JSONContextBuilder) Build() JSONContext {
	return JSONContext{strict: b.ctx.strict, ignore: slices.Clone(b.ctx.ignore)}
}

// XMLContext configures structural XML validation.
type XMLContext struct {
	ignore []string
}

func (XMLContext) Kind() string { return "xml" }

// IgnoreExpressions returns the XPath expressions of skipped nodes.
func (c XMLContext) IgnoreExpressions() []string { return slices.Clone(c.ignore) }

type XMLContextBuilder struct {
	ignore []string
}

func NewXMLContext() *XMLContextBuilder {
	return &XMLContextBuilder{}
}

func (b *XMLContextBuilder) Ignore(exprs ...string) *XMLContextBuilder {
	b.ignore = append(b.ignore, exprs...)
	return b
}

func (b *XMLContextBuilder) Build() XMLContext {
	return XMLContext{ignore: slices.Clone(b.ignore)}
}

// EmptyContext requests validation of an empty payload.
type EmptyContext struct{}

func (EmptyContext) Kind() string { return "empty" }
