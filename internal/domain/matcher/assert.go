package matcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// assertion is a parsed AssertThat condition. value is nil or a string.
type assertion struct {
	desc  string
	match func(value any) bool
}

// assertThat evaluates conditions such as GreaterThan(3), Not(EqualTo('x'))
// or AllOf(StartsWith('a'), EndsWith('z')).
func assertThat(_ *testcontext.Context, field string, value any, params []string) error {
	if len(params) == 0 {
		return failure.System(failure.ErrInvalidExpression, "AssertThat requires a condition")
	}
	a, err := parseAssertion(params[0])
	if err != nil {
		return err
	}
	if !a.match(value) {
		return &failure.ValidationError{
			Path:     field,
			Expected: a.desc,
			Actual:   value,
			Message:  fmt.Sprintf("AssertThat failed for field '%s'", field),
		}
	}
	return nil
}

func parseAssertion(expr string) (assertion, error) {
	expr = strings.TrimSpace(expr)
	name, rawArgs := expr, ""
	if open := strings.IndexByte(expr, '('); open >= 0 {
		if !strings.HasSuffix(expr, ")") {
			return assertion{}, failure.System(failure.ErrInvalidExpression, "condition '%s' is not closed", expr)
		}
		name, rawArgs = expr[:open], expr[open+1:len(expr)-1]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	args := testcontext.SplitArguments(rawArgs)

	switch name {
	case "not", "allof", "anyof", "is":
		if len(args) == 0 {
			return assertion{}, failure.System(failure.ErrInvalidExpression, "condition '%s' requires arguments", expr)
		}
		if name == "is" && !strings.Contains(args[0], "(") {
			return equalTo(testcontext.Unquote(args[0])), nil
		}
		nested := make([]assertion, len(args))
		for i, arg := range args {
			a, err := parseAssertion(arg)
			if err != nil {
				return assertion{}, err
			}
			nested[i] = a
		}
		return combine(name, expr, nested), nil
	}

	var arg string
	if len(args) > 0 {
		arg = testcontext.Unquote(args[0])
	}

	switch name {
	case "equalto":
		return equalTo(arg), nil
	case "equaltoignoringcase":
		return str(expr, func(s string) bool { return strings.EqualFold(s, arg) }), nil
	case "containsstring":
		return str(expr, func(s string) bool { return strings.Contains(s, arg) }), nil
	case "startswith":
		return str(expr, func(s string) bool { return strings.HasPrefix(s, arg) }), nil
	case "endswith":
		return str(expr, func(s string) bool { return strings.HasSuffix(s, arg) }), nil
	case "matchespattern":
		re, err := regexp.Compile("^(?:" + arg + ")$")
		if err != nil {
			return assertion{}, failure.Wrap(failure.ErrInvalidExpression, err, "invalid pattern in '%s'", expr)
		}
		return str(expr, re.MatchString), nil
	case "isemptystring", "emptystring":
		return str(expr, func(s string) bool { return s == "" }), nil
	case "isemptyornullstring", "emptyornullstring":
		return assertion{desc: expr, match: func(v any) bool { return v == nil || v.(string) == "" }}, nil
	case "nullvalue", "null", "isnull":
		return assertion{desc: expr, match: func(v any) bool { return v == nil }}, nil
	case "notnullvalue", "notnull":
		return assertion{desc: expr, match: func(v any) bool { return v != nil }}, nil
	case "hassize", "haslength":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return assertion{}, failure.System(failure.ErrInvalidExpression, "invalid size in '%s'", expr)
		}
		return str(expr, func(s string) bool { return len([]rune(s)) == n }), nil
	case "greaterthan", "greaterthanorequalto", "lessthan", "lessthanorequalto":
		limit, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return assertion{}, failure.System(failure.ErrInvalidExpression, "invalid number in '%s'", expr)
		}
		return numericAssertion(name, expr, limit), nil
	}
	return assertion{}, failure.System(failure.ErrInvalidExpression, "unsupported condition '%s'", expr)
}

func equalTo(want string) assertion {
	return assertion{
		desc:  fmt.Sprintf("equal to '%s'", want),
		match: func(v any) bool { return v != nil && v.(string) == want },
	}
}

func str(desc string, ok func(string) bool) assertion {
	return assertion{desc: desc, match: func(v any) bool { return v != nil && ok(v.(string)) }}
}

func numericAssertion(name, desc string, limit float64) assertion {
	return assertion{desc: desc, match: func(v any) bool {
		if v == nil {
			return false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v.(string)), 64)
		if err != nil {
			return false
		}
		switch name {
		case "greaterthan":
			return n > limit
		case "greaterthanorequalto":
			return n >= limit
		case "lessthan":
			return n < limit
		default:
			return n <= limit
		}
	}}
}

func combine(name, desc string, nested []assertion) assertion {
	return assertion{desc: desc, match: func(v any) bool {
		switch name {
		case "not":
			return !nested[0].match(v)
		case "anyof":
			for _, a := range nested {
				if a.match(v) {
					return true
				}
			}
			return false
		default:
			for _, a := range nested {
				if !a.match(v) {
					return false
				}
			}
			return true
		}
	}}
}
