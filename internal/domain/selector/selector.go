// Package selector picks messages out of a queue. Selectors come in three
// forms: the textual "key = 'value' AND key2 = 'value2'" syntax, key/value
// maps and expr-lang expressions over the message.
package selector

import (
	"sort"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// PayloadKey selects on the whole payload text.
const PayloadKey = "payload"

const (
	andSeparator = " AND "
	// escapedEquals stands in for '=' inside [...] while a selector string
	// is split.
	escapedEquals = "@equals@"
)

// Selector decides whether a message is accepted.
type Selector interface {
	Accept(msg message.Message) bool
}

// Func adapts a function to Selector.
type Func func(msg message.Message) bool

func (f Func) Accept(msg message.Message) bool { return f(msg) }

// All accepts every message.
func All() Selector {
	return Func(func(message.Message) bool { return true })
}

// Parse splits a selector string into its key/value pairs. Values are
// single-quoted; '=' inside XPath predicates such as [@id='1'] does not
// separate key and value.
func Parse(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	for _, part := range strings.Split(escapeBrackets(s), andSeparator) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, failure.System(failure.ErrInvalidExpression,
				"invalid message selector '%s', expected key = 'value'", s)
		}
		key = unescape(strings.TrimSpace(key))
		value = unescape(testcontext.Unquote(strings.TrimSpace(value)))
		if key == "" {
			return nil, failure.System(failure.ErrInvalidExpression, "empty key in message selector '%s'", s)
		}
		out[key] = value
	}
	return out, nil
}

// Build renders m in selector string syntax with keys in sorted order.
func Build(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = '" + m[k] + "'"
	}
	return strings.Join(parts, andSeparator)
}

func escapeBrackets(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case r == '=' && depth > 0:
			b.WriteString(escapedEquals)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	return strings.ReplaceAll(s, escapedEquals, "=")
}

// FromMap builds a selector that accepts a message when every entry
// matches. Keys are "payload", "xpath:<expr>", "jsonPath:<expr>" or a
// header name; values are literals or matcher expressions.
func FromMap(tctx *testcontext.Context, m map[string]string, evaluators *pathexpr.Registry) Selector {
	entries := make(map[string]string, len(m))
	for k, v := range m {
		entries[k] = v
	}
	return &delegating{tctx: tctx, entries: entries, evaluators: evaluators}
}

// FromString parses s and builds a map selector from it.
func FromString(tctx *testcontext.Context, s string, evaluators *pathexpr.Registry) (Selector, error) {
	m, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return FromMap(tctx, m, evaluators), nil
}

type delegating struct {
	tctx       *testcontext.Context
	entries    map[string]string
	evaluators *pathexpr.Registry
}

func (d *delegating) Accept(msg message.Message) bool {
	for key, want := range d.entries {
		actual, ok := d.lookup(key, msg)
		if !ok || !d.matches(key, actual, want) {
			return false
		}
	}
	return true
}

func (d *delegating) lookup(key string, msg message.Message) (string, bool) {
	conv := d.tctx.Converter()
	switch {
	case key == PayloadKey:
		return strings.TrimSpace(message.PayloadString(msg, conv)), true
	case strings.HasPrefix(key, string(pathexpr.XPath)+":"), strings.HasPrefix(key, string(pathexpr.JSONPath)+":"):
		v, found, err := d.evaluators.Evaluate(d.tctx, message.PayloadString(msg, conv), key)
		if err != nil || !found {
			return "", false
		}
		return conv.ToString(v), true
	}
	v, ok := msg.Header(key)
	if !ok {
		return "", false
	}
	return conv.ToString(v), true
}

func (d *delegating) matches(key, actual, want string) bool {
	if matcher.IsExpression(want) {
		return matcher.Resolve(d.tctx, key, actual, want) == nil
	}
	return actual == want
}
