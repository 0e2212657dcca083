package validation_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
	"github.com/sophialabs/agenix/internal/domain/validation"
)

func newContext() *testcontext.Context {
	return testcontext.New(testcontext.WithMatcherLibrary(matcher.NewCoreLibrary()))
}

func TestHeaderValidator_CaseSensitivity(t *testing.T) {
	control := message.New("", message.WithHeaders(map[string]any{"Operation": "sayHello"}))
	received := message.New("", message.WithHeaders(map[string]any{"operation": "sayHello"}))
	v := &validation.HeaderValidator{}

	ignoreCase := validation.NewHeaderContext().IgnoreCase(true).Build()
	if err := v.ValidateMessage(received, control, newContext(), []validation.Context{ignoreCase}); err != nil {
		t.Fatalf("unexpected error with ignore case: %v", err)
	}

	caseSensitive := validation.NewHeaderContext().IgnoreCase(false).Build()
	err := v.ValidateMessage(received, control, newContext(), []validation.Context{caseSensitive})
	if err == nil {
		t.Fatal("expected header validation to fail")
	}
	if !failure.IsValidation(err) || !strings.Contains(err.Error(), "header element 'Operation' is missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHeaderValidator(t *testing.T) {
	tests := []struct {
		name     string
		control  map[string]any
		received map[string]any
		wantErr  bool
	}{
		{"equal", map[string]any{"a": "1"}, map[string]any{"a": "1"}, false},
		{"typed received", map[string]any{"count": "42"}, map[string]any{"count": 42}, false},
		{"mismatch", map[string]any{"a": "1"}, map[string]any{"a": "2"}, true},
		{"matcher", map[string]any{"id": "@StartsWith('ord-')@"}, map[string]any{"id": "ord-7"}, false},
		{"ignore", map[string]any{"id": "@Ignore@"}, map[string]any{"id": "x"}, false},
		{"resolved placeholder text", map[string]any{"note": "${missing}"}, map[string]any{"note": "${missing}"}, false},
		{"resolved function text", map[string]any{"note": "agenix:UpperCase('x')"}, map[string]any{"note": "agenix:UpperCase('x')"}, false},
		{"placeholder not resolved again", map[string]any{"user": "${user}"}, map[string]any{"user": "Agenix"}, true},
		{"extra received headers", map[string]any{"a": "1"}, map[string]any{"a": "1", "b": "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tctx := newContext()
			tctx.SetVariable("user", "Agenix")
			control := message.New("", message.WithHeaders(tt.control))
			received := message.New("", message.WithHeaders(tt.received))

			err := (&validation.HeaderValidator{}).ValidateMessage(received, control, tctx, nil)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestHeaderValidator_SkipsInternalHeaders(t *testing.T) {
	control := message.New("")
	received := message.New("")
	if err := (&validation.HeaderValidator{}).ValidateMessage(received, control, newContext(), nil); err != nil {
		t.Fatalf("internal id/timestamp headers must be skipped: %v", err)
	}
}

type acceptAll struct{ calls *int }

func (acceptAll) SupportsHeader(string, any) bool { return true }

func (a acceptAll) ValidateHeader(string, any, any, *testcontext.Context, validation.HeaderContext) error {
	*a.calls++
	return nil
}

func TestHeaderValidator_SubValidatorResolution(t *testing.T) {
	control := message.New("", message.WithHeaders(map[string]any{"a": "1"}))
	received := message.New("", message.WithHeaders(map[string]any{"a": "2"}))

	t.Run("context instance", func(t *testing.T) {
		calls := 0
		hctx := validation.NewHeaderContext().Validator(acceptAll{&calls}).Build()
		err := (&validation.HeaderValidator{}).ValidateMessage(received, control, newContext(), []validation.Context{hctx})
		if err != nil || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("context name via reference", func(t *testing.T) {
		calls := 0
		tctx := newContext()
		tctx.Bind("lenient", validation.HeaderValueValidator(acceptAll{&calls}))
		hctx := validation.NewHeaderContext().ValidatorName("lenient").Build()
		err := (&validation.HeaderValidator{}).ValidateMessage(received, control, tctx, []validation.Context{hctx})
		if err != nil || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("registry", func(t *testing.T) {
		calls := 0
		tctx := newContext()
		reg := validation.NewRegistry()
		reg.RegisterHeaderValidator("lenient", acceptAll{&calls})
		reg.Bind(tctx)
		err := (&validation.HeaderValidator{}).ValidateMessage(received, control, tctx, nil)
		if err != nil || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("default equality", func(t *testing.T) {
		err := (&validation.HeaderValidator{}).ValidateMessage(received, control, newContext(), nil)
		if !failure.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestValidateValues(t *testing.T) {
	tests := []struct {
		name     string
		received any
		control  any
		wantErr  bool
	}{
		{"both nil", nil, nil, false},
		{"received without control", "x", nil, true},
		{"missing with empty control", nil, "", false},
		{"missing with ignore", nil, "@Ignore@", false},
		{"missing with null assertion", nil, "@AssertThat(NullValue())@", false},
		{"missing with value", nil, "v", true},
		{"missing with non-string control", nil, 5, true},
		{"string equal", "v", "v", false},
		{"number as string", 42, "42", false},
		{"converted int", "42", 42, false},
		{"converted int mismatch", "43", 42, true},
		{"not convertible", "abc", 42, true},
		{"bool", "true", true, false},
		{"string list", "[a, b]", []string{"a", "b"}, false},
		{"string list mismatch", []string{"a", "c"}, []string{"a", "b"}, true},
		{"bytes", []byte("hi"), []byte("hi"), false},
		{"bytes mismatch", []byte("hi"), []byte("ho"), true},
		{"map", map[string]string{"k": "v"}, map[string]string{"k": "v"}, false},
		{"matcher", "12", "@GreaterThan(10)@", false},
		{"matcher fails", "2", "@GreaterThan(10)@", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateValues(newContext(), "path", tt.received, tt.control)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateValues_ValueMatcher(t *testing.T) {
	tctx := newContext()
	reg := validation.NewRegistry()
	reg.RegisterValueMatcher(validation.NumericToleranceMatcher{Tolerance: 0.5})
	reg.Bind(tctx)

	if err := validation.ValidateValues(tctx, "amount", "10.3", 10.0); err != nil {
		t.Fatalf("expected tolerance match: %v", err)
	}
	if err := validation.ValidateValues(tctx, "amount", "11", 10.0); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !(validation.NumericToleranceMatcher{}).Supports(reflect.TypeFor[int]()) {
		t.Error("expected ints to be supported")
	}
}

func TestJSONValidator(t *testing.T) {
	tests := []struct {
		name     string
		control  string
		received string
		ctx      []validation.Context
		wantErr  bool
	}{
		{"equal", `{"a":1,"b":["x","y"]}`, `{"b":["x","y"],"a":1}`, nil, false},
		{"value mismatch", `{"a":1}`, `{"a":2}`, nil, true},
		{"matcher", `{"id":"@Ignore@","n":"@GreaterThan(3)@"}`, `{"id":"abc","n":5}`, nil, false},
		{"missing entry", `{"a":1,"b":2}`, `{"a":1,"c":2}`, nil, true},
		{"strict extra entry", `{"a":1}`, `{"a":1,"b":2}`, nil, true},
		{"lenient extra entry", `{"a":1}`, `{"a":1,"b":2}`,
			[]validation.Context{validation.NewJSONContext().Strict(false).Build()}, false},
		{"lenient array order", `{"a":[2,1]}`, `{"a":[1,2,3]}`,
			[]validation.Context{validation.NewJSONContext().Strict(false).Build()}, false},
		{"strict array size", `{"a":[1]}`, `{"a":[1,2]}`, nil, true},
		{"ignore expression", `{"a":{"ts":"1"},"b":1}`, `{"a":{"ts":"2"},"b":1}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.a.ts").Build()}, false},
		{"ignore wildcard", `{"items":[{"id":1},{"id":2}]}`, `{"items":[{"id":9},{"id":8}]}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.items[*].id").Build()}, false},
		{"ignore filter", `{"items":[{"kind":"ts","value":"1"},{"kind":"id","value":"7"}]}`,
			`{"items":[{"kind":"ts","value":"2"},{"kind":"id","value":"7"}]}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.items[?(@.kind == 'ts')].value").Build()}, false},
		{"ignore filter keeps others", `{"items":[{"kind":"ts","value":"1"},{"kind":"id","value":"7"}]}`,
			`{"items":[{"kind":"ts","value":"1"},{"kind":"id","value":"8"}]}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.items[?(@.kind == 'ts')].value").Build()}, true},
		{"ignore filter on own value", `{"items":[{"kind":"ts","value":"1"}]}`, `{"items":[{"kind":"ts","value":"2"}]}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.items[?(@.value == '1')].value").Build()}, false},
		{"ignore filtered object", `{"items":[{"kind":"ts","at":1},{"kind":"id","at":2}]}`,
			`{"items":[{"kind":"ts","at":5},{"kind":"id","at":2}]}`,
			[]validation.Context{validation.NewJSONContext().Ignore(`$.items[?(@.kind == "ts")]`).Build()}, false},
		{"ignore descendant", `{"a":{"ts":"1","b":{"ts":"2"}}}`, `{"a":{"ts":"x","b":{"ts":"y"}}}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$..ts").Build()}, false},
		{"ignore missing path", `{"a":1}`, `{"a":2}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.nope").Build()}, true},
		{"invalid ignore expression", `{"a":1}`, `{"a":1}`,
			[]validation.Context{validation.NewJSONContext().Ignore("$.a[").Build()}, true},
		{"null", `{"a":null}`, `{"a":null}`, nil, false},
		{"null mismatch", `{"a":null}`, `{"a":"x"}`, nil, true},
		{"invalid received", `{"a":1}`, `not json`, nil, true},
		{"empty control", ``, `{"a":1}`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.JSONValidator{}.ValidateMessage(message.New(tt.received), message.New(tt.control), newContext(), tt.ctx)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestXMLValidator(t *testing.T) {
	tests := []struct {
		name     string
		control  string
		received string
		ctx      []validation.Context
		wantErr  bool
	}{
		{"equal", `<Hello><User>Agenix</User></Hello>`, `<Hello>
  <User>Agenix</User>
</Hello>`, nil, false},
		{"text mismatch", `<Hello><User>Agenix</User></Hello>`, `<Hello><User>Other</User></Hello>`, nil, true},
		{"element name", `<Hello><User/></Hello>`, `<Hello><Name/></Hello>`, nil, true},
		{"ignore placeholder", `<Hello><Id>@Ignore@</Id></Hello>`, `<Hello><Id>123</Id></Hello>`, nil, false},
		{"attribute matcher", `<a id="@StartsWith('x')@"/>`, `<a id="x1"/>`, nil, false},
		{"attribute mismatch", `<a id="1"/>`, `<a id="2"/>`, nil, true},
		{"missing attribute", `<a id="1"/>`, `<a name="1"/>`, nil, true},
		{"namespace declarations skipped", `<a xmlns="urn:x"><b>1</b></a>`, `<a xmlns="urn:x" ><b>1</b></a>`, nil, false},
		{"namespace mismatch", `<a xmlns="urn:x"/>`, `<a xmlns="urn:y"/>`, nil, true},
		{"child count", `<a><b/></a>`, `<a><b/><b/></a>`, nil, true},
		{"ignore xpath", `<a><ts>1</ts><v>2</v></a>`, `<a><ts>9</ts><v>2</v></a>`,
			[]validation.Context{validation.NewXMLContext().Ignore("/a/ts").Build()}, false},
		{"ignore attribute xpath", `<a ts="1"/>`, `<a ts="2"/>`,
			[]validation.Context{validation.NewXMLContext().Ignore("/a/@ts").Build()}, false},
		{"invalid received", `<a/>`, `<a>`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.XMLValidator{}.ValidateMessage(message.New(tt.received), message.New(tt.control), newContext(), tt.ctx)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTextEqualsValidator(t *testing.T) {
	v := validation.TextEqualsValidator{}
	if err := v.ValidateMessage(message.New("a\r\nb \n"), message.New(" a\nb"), newContext(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.ValidateMessage(message.New("a"), message.New("b"), newContext(), nil); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEmptyMessageValidator(t *testing.T) {
	v := validation.EmptyMessageValidator{}
	if err := v.ValidateMessage(message.New(""), message.New(""), newContext(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.ValidateMessage(message.New("x"), message.New(""), newContext(), nil); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type mapEvaluator struct {
	kind   pathexpr.Kind
	values map[string]any
}

func (m mapEvaluator) Kind() pathexpr.Kind { return m.kind }

func (m mapEvaluator) Evaluate(_, expr string) (any, bool, error) {
	v, ok := m.values[expr]
	return v, ok, nil
}

func TestPathExpressionValidator(t *testing.T) {
	evaluators := pathexpr.NewRegistry(mapEvaluator{
		kind:   pathexpr.JSONPath,
		values: map[string]any{"$.user": "Agenix", "$.age": float64(7)},
	})
	v := &validation.PathExpressionValidator{Evaluators: evaluators}

	tctx := newContext()
	tctx.SetVariable("user", "Agenix")

	ok := validation.NewPathExpressionContext().
		Expression("$.user", "${user}").
		Expression("$.age", "@GreaterThan(5)@").
		Expression("$.missing", "@Ignore@").
		Build()
	if err := v.ValidateMessage(message.New("{}"), nil, tctx, []validation.Context{ok}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := validation.NewPathExpressionContext().Expression("$.user", "Other").Build()
	if err := v.ValidateMessage(message.New("{}"), nil, tctx, []validation.Context{bad}); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	xpath := validation.NewPathExpressionContext().Expression("/a/b", "1").Build()
	err := v.ValidateMessage(message.New("<a/>"), nil, tctx, []validation.Context{xpath})
	if !errors.Is(err, failure.ErrMissingModule) {
		t.Fatalf("expected ErrMissingModule, got %v", err)
	}
}

func TestPathExpressionValidator_NoContext(t *testing.T) {
	v := &validation.PathExpressionValidator{}
	if err := v.ValidateMessage(message.New("{}"), nil, newContext(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContextBuildersAreImmutable(t *testing.T) {
	b := validation.NewPathExpressionContext().Expression("$.a", 1)
	built := b.Build()
	b.Expression("$.b", 2)
	if len(built.Expressions()) != 1 {
		t.Fatalf("built context changed after builder mutation: %v", built.Expressions())
	}
	exprs := built.Expressions()
	exprs["$.c"] = 3
	if len(built.Expressions()) != 1 {
		t.Fatal("context exposed its internal map")
	}
}
