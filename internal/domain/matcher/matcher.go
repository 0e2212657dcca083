// Package matcher resolves validation matcher expressions such as
// @Ignore@, @Contains('foo')@ or @AssertThat(GreaterThan(3))@ that replace a
// literal expected value in control messages.
package matcher

import (
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Delimiter opens and closes a matcher expression.
const Delimiter = "@"

// IsExpression reports whether s is a validation matcher expression.
func IsExpression(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 2 && strings.HasPrefix(s, Delimiter) && strings.HasSuffix(s, Delimiter)
}

// Resolve evaluates the matcher expression expr against value. value is
// nil when the received element is absent. A matcher mismatch returns a
// *failure.ValidationError; unknown matchers and libraries return a
// *failure.SystemError.
func Resolve(ctx *testcontext.Context, field string, value any, expr string) error {
	body := strings.TrimSpace(expr)
	body = strings.TrimSuffix(strings.TrimPrefix(body, Delimiter), Delimiter)
	body = strings.TrimSpace(body)

	prefix := ""
	open := strings.IndexByte(body, '(')
	if colon := strings.IndexByte(body, ':'); colon >= 0 && (open < 0 || colon < open) {
		prefix = body[:colon+1]
		body = body[colon+1:]
		open -= colon + 1
	}

	lib, err := ctx.MatcherLibrary(prefix)
	if err != nil {
		return err
	}

	name, rawParams := body, ""
	if open >= 0 {
		if !strings.HasSuffix(body, ")") {
			return failure.System(failure.ErrInvalidExpression,
				"matcher expression '%s' is not closed", expr)
		}
		name, rawParams = body[:open], body[open+1:len(body)-1]
	}

	m, err := lib.Matcher(strings.TrimSpace(name))
	if err != nil {
		return err
	}

	var params []string
	if m.RawParams {
		if strings.TrimSpace(rawParams) != "" {
			params = []string{strings.TrimSpace(rawParams)}
		}
	} else {
		params = ParseControlValues(rawParams)
	}
	for i, p := range params {
		resolved, err := ctx.ResolveDynamicContent(p)
		if err != nil {
			return err
		}
		params[i] = resolved
	}

	var actual any
	if value != nil {
		actual = ctx.Converter().ToString(value)
	}
	return m.Validate(ctx, field, actual, params)
}

// ParseControlValues splits a matcher parameter list such as "'a', 'b,c'"
// into its unquoted values.
func ParseControlValues(s string) []string {
	tokens := testcontext.SplitArguments(s)
	for i, tok := range tokens {
		tokens[i] = testcontext.Unquote(tok)
	}
	return tokens
}
