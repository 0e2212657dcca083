package matcher

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/functions"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// NewCoreLibrary returns the default matcher library with the empty prefix.
func NewCoreLibrary() *testcontext.MatcherLibrary {
	return testcontext.NewMatcherLibrary("core", "",
		testcontext.Matcher{Name: "Ignore", Validate: func(*testcontext.Context, string, any, []string) error { return nil }},
		compare("Contains", 1, strings.Contains, "does not contain"),
		compare("ContainsIgnoreCase", 1, func(v, p string) bool {
			return strings.Contains(strings.ToLower(v), strings.ToLower(p))
		}, "does not contain (ignoring case)"),
		compare("StartsWith", 1, strings.HasPrefix, "does not start with"),
		compare("EndsWith", 1, strings.HasSuffix, "does not end with"),
		compare("EqualsIgnoreCase", 1, strings.EqualFold, "is not equal (ignoring case) to"),
		compare("Trim", 1, func(v, p string) bool {
			return strings.TrimSpace(v) == strings.TrimSpace(p)
		}, "is not equal after trimming to"),
		compare("TrimAllWhitespaces", 1, func(v, p string) bool {
			return stripSpace(v) == stripSpace(p)
		}, "is not equal without whitespace to"),
		compare("IgnoreNewLine", 1, func(v, p string) bool {
			return stripNewLines(v) == stripNewLines(p)
		}, "is not equal ignoring new lines to"),
		testcontext.Matcher{Name: "Matches", Validate: matches},
		testcontext.Matcher{Name: "IsNumber", Validate: isNumber},
		numeric("GreaterThan", func(v, p float64) bool { return v > p }, "greater than"),
		numeric("LowerThan", func(v, p float64) bool { return v < p }, "lower than"),
		testcontext.Matcher{Name: "Between", Validate: between},
		testcontext.Matcher{Name: "StringLength", Validate: stringLength},
		testcontext.Matcher{Name: "Empty", Validate: func(_ *testcontext.Context, field string, value any, _ []string) error {
			if value != nil && value.(string) != "" {
				return failure.Validation(field, "value of '%s' is not empty: '%v'", field, value)
			}
			return nil
		}},
		testcontext.Matcher{Name: "NotEmpty", Validate: func(_ *testcontext.Context, field string, value any, _ []string) error {
			if value == nil || value.(string) == "" {
				return failure.Validation(field, "value of '%s' is empty", field)
			}
			return nil
		}},
		testcontext.Matcher{Name: "Null", Validate: func(_ *testcontext.Context, field string, value any, _ []string) error {
			if value != nil && value.(string) != "null" {
				return failure.Validation(field, "value of '%s' is not null: '%v'", field, value)
			}
			return nil
		}},
		testcontext.Matcher{Name: "NotNull", Validate: func(_ *testcontext.Context, field string, value any, _ []string) error {
			if value == nil || value.(string) == "null" {
				return failure.Validation(field, "value of '%s' is null", field)
			}
			return nil
		}},
		testcontext.Matcher{Name: "IsUUID", Validate: func(_ *testcontext.Context, field string, value any, _ []string) error {
			s, err := required(field, value)
			if err != nil {
				return err
			}
			if _, err := uuid.Parse(s); err != nil {
				return failure.Validation(field, "value of '%s' is not a UUID: '%s'", field, s)
			}
			return nil
		}},
		testcontext.Matcher{Name: "DatePattern", Validate: datePattern},
		testcontext.Matcher{Name: "Variable", Validate: createVariable},
		testcontext.Matcher{Name: "AssertThat", RawParams: true, Validate: assertThat},
	)
}

func compare(name string, n int, ok func(value, param string) bool, verb string) testcontext.Matcher {
	return testcontext.Matcher{Name: name, Validate: func(_ *testcontext.Context, field string, value any, params []string) error {
		if err := paramCount(name, params, n); err != nil {
			return err
		}
		s, err := required(field, value)
		if err != nil {
			return err
		}
		if !ok(s, params[0]) {
			return failure.Validation(field, "%s: value '%s' %s '%s'", name, s, verb, params[0])
		}
		return nil
	}}
}

func numeric(name string, ok func(value, param float64) bool, verb string) testcontext.Matcher {
	return testcontext.Matcher{Name: name, Validate: func(_ *testcontext.Context, field string, value any, params []string) error {
		if err := paramCount(name, params, 1); err != nil {
			return err
		}
		limit, err := strconv.ParseFloat(params[0], 64)
		if err != nil {
			return failure.System(failure.ErrInvalidExpression, "%s: invalid control value '%s'", name, params[0])
		}
		v, err := number(field, value)
		if err != nil {
			return err
		}
		if !ok(v, limit) {
			return failure.Validation(field, "%s: value '%v' is not %s '%s'", name, value, verb, params[0])
		}
		return nil
	}}
}

func matches(_ *testcontext.Context, field string, value any, params []string) error {
	if err := paramCount("Matches", params, 1); err != nil {
		return err
	}
	re, err := regexp.Compile("^(?:" + params[0] + ")$")
	if err != nil {
		return failure.Wrap(failure.ErrInvalidExpression, err, "Matches: invalid regular expression '%s'", params[0])
	}
	s, err := required(field, value)
	if err != nil {
		return err
	}
	if !re.MatchString(s) {
		return failure.Validation(field, "Matches: value '%s' does not match pattern '%s'", s, params[0])
	}
	return nil
}

func isNumber(_ *testcontext.Context, field string, value any, _ []string) error {
	_, err := number(field, value)
	return err
}

func between(_ *testcontext.Context, field string, value any, params []string) error {
	if err := paramCount("Between", params, 2); err != nil {
		return err
	}
	lo, err1 := strconv.ParseFloat(params[0], 64)
	hi, err2 := strconv.ParseFloat(params[1], 64)
	if err1 != nil || err2 != nil {
		return failure.System(failure.ErrInvalidExpression, "Between: invalid range '%s'-'%s'", params[0], params[1])
	}
	v, err := number(field, value)
	if err != nil {
		return err
	}
	if v < lo || v > hi {
		return failure.Validation(field, "Between: value '%v' is not within ['%s', '%s']", value, params[0], params[1])
	}
	return nil
}

func stringLength(_ *testcontext.Context, field string, value any, params []string) error {
	if err := paramCount("StringLength", params, 1); err != nil {
		return err
	}
	want, err := strconv.Atoi(params[0])
	if err != nil {
		return failure.System(failure.ErrInvalidExpression, "StringLength: invalid length '%s'", params[0])
	}
	s, err := required(field, value)
	if err != nil {
		return err
	}
	if got := len([]rune(s)); got != want {
		return failure.Validation(field, "StringLength: value '%s' has length %d, expected %d", s, got, want)
	}
	return nil
}

func datePattern(_ *testcontext.Context, field string, value any, params []string) error {
	if err := paramCount("DatePattern", params, 1); err != nil {
		return err
	}
	s, err := required(field, value)
	if err != nil {
		return err
	}
	if _, err := time.Parse(functions.DateLayout(params[0]), s); err != nil {
		return failure.Validation(field, "DatePattern: value '%s' does not match date pattern '%s'", s, params[0])
	}
	return nil
}

// createVariable stores the received value as a test variable named by the
// first parameter, or by the field name when no parameter is given.
func createVariable(ctx *testcontext.Context, field string, value any, params []string) error {
	name := field
	if len(params) > 0 && params[0] != "" {
		name = params[0]
	}
	ctx.SetVariable(name, value)
	return nil
}

func paramCount(name string, params []string, n int) error {
	if len(params) < n {
		return failure.System(failure.ErrInvalidExpression,
			"matcher '%s' requires %d control parameter(s), got %d", name, n, len(params))
	}
	return nil
}

func required(field string, value any) (string, error) {
	if value == nil {
		return "", failure.Validation(field, "received value of '%s' is null", field)
	}
	return value.(string), nil
}

func number(field string, value any) (float64, error) {
	s, err := required(field, value)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, failure.Validation(field, "value '%s' of '%s' is not a number", s, field)
	}
	return v, nil
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func stripNewLines(s string) string {
	return strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
}
