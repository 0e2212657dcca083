package testcontext_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

func newTestContext(vars map[string]any) *testcontext.Context {
	lib := testcontext.NewFunctionLibrary("core", "agenix:",
		testcontext.Function{
			Name: "Concat", MinArgs: 1, MaxArgs: testcontext.Unbounded,
			Exec: func(_ *testcontext.Context, args []string) (string, error) {
				return strings.Join(args, ""), nil
			},
		},
		testcontext.Function{
			Name: "UpperCase", MinArgs: 1, MaxArgs: 1,
			Exec: func(_ *testcontext.Context, args []string) (string, error) {
				return strings.ToUpper(args[0]), nil
			},
		},
		testcontext.Function{
			Name: "Count", MinArgs: 0, MaxArgs: testcontext.Unbounded,
			Exec: func(_ *testcontext.Context, args []string) (string, error) {
				return strings.Repeat("|", len(args)), nil
			},
		},
	)
	return testcontext.New(
		testcontext.WithFunctionLibrary(lib),
		testcontext.WithVariables(vars),
	)
}

func TestResolve_Variables(t *testing.T) {
	ctx := newTestContext(map[string]any{"user": "Agenix", "n": 42})

	got, err := ctx.ResolveDynamicContent("<Hello><User>${user}</User><N>${n}</N></Hello>")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "<Hello><User>Agenix</User><N>42</N></Hello>" {
		t.Errorf("unexpected result: %s", got)
	}
}

func TestResolve_FixedPointConcat(t *testing.T) {
	ctx := newTestContext(map[string]any{"a": "Hello", "b": "World"})
	got, err := ctx.ResolveDynamicContent("agenix:Concat(${a}, ' ', ${b})")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", got)
	}
}

func TestResolve_NestedFunctions(t *testing.T) {
	ctx := newTestContext(nil)
	got, err := ctx.ResolveDynamicContent("agenix:UpperCase(agenix:Concat('hel','lo'))")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "HELLO" {
		t.Errorf("expected HELLO, got %q", got)
	}
}

func TestResolve_CommasInsideNestedCallsDoNotSplit(t *testing.T) {
	ctx := newTestContext(nil)
	got, err := ctx.ResolveDynamicContent("agenix:Count(agenix:Concat('a','b'), 'x,y', z)")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "|||" {
		t.Errorf("expected three arguments, got %q", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := newTestContext(map[string]any{"x": "1"})
	for _, s := range []string{"plain text", "<a>1</a>", "", "{\"a\": [1, 2]}"} {
		got, err := ctx.ResolveDynamicContent(s)
		if err != nil {
			t.Fatalf("resolve %q failed: %v", s, err)
		}
		if got != s {
			t.Errorf("expected %q unchanged, got %q", s, got)
		}
	}
}

func TestResolve_VariableChains(t *testing.T) {
	ctx := newTestContext(map[string]any{"greeting": "Hi ${name}", "name": "Bob", "key": "name"})

	got, err := ctx.ResolveDynamicContent("${greeting}!")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "Hi Bob!" {
		t.Errorf("unexpected result %q", got)
	}

	got, err = ctx.ResolveDynamicContent("${${key}}")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "Bob" {
		t.Errorf("expected nested variable name to resolve, got %q", got)
	}
}

func TestResolve_Errors(t *testing.T) {
	ctx := newTestContext(nil)

	tests := []struct {
		name  string
		input string
		kind  error
	}{
		{"unknown variable", "${missing}", failure.ErrVariableNotFound},
		{"unknown function", "agenix:DoesNotExist()", failure.ErrNoSuchFunction},
		{"arity", "agenix:UpperCase('a', 'b')", failure.ErrInvalidFunctionUsage},
		{"missing parenthesis", "agenix:UpperCase", failure.ErrInvalidFunctionUsage},
		{"unclosed call", "agenix:UpperCase('a'", failure.ErrInvalidFunctionUsage},
		{"unclosed variable", "${open", failure.ErrInvalidExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctx.ResolveDynamicContent(tt.input)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
		})
	}
}

func TestResolveFunction(t *testing.T) {
	ctx := newTestContext(map[string]any{"x": "a"})

	got, err := ctx.ResolveFunction("agenix:UpperCase(${x})")
	if err != nil {
		t.Fatalf("ResolveFunction failed: %v", err)
	}
	if got != "A" {
		t.Errorf("expected A, got %q", got)
	}

	if _, err := ctx.ResolveFunction("other:Foo()"); !errors.Is(err, failure.ErrNoSuchFunctionLibrary) {
		t.Errorf("expected ErrNoSuchFunctionLibrary, got %v", err)
	}
	if _, err := ctx.ResolveFunction("agenix:Missing()"); !errors.Is(err, failure.ErrNoSuchFunction) {
		t.Errorf("expected ErrNoSuchFunction, got %v", err)
	}
	if _, err := ctx.ResolveFunction("no call"); !errors.Is(err, failure.ErrInvalidFunctionUsage) {
		t.Errorf("expected ErrInvalidFunctionUsage, got %v", err)
	}
}

func TestResolveDynamicValue_KeepsType(t *testing.T) {
	ctx := newTestContext(map[string]any{"count": 3, "list": []string{"a"}})

	v, err := ctx.ResolveDynamicValue("${count}")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if v != 3 {
		t.Errorf("expected raw int, got %v (%T)", v, v)
	}

	v, err = ctx.ResolveDynamicValue("count=${count}")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if v != "count=3" {
		t.Errorf("expected string, got %v", v)
	}
}

func TestResolveMap(t *testing.T) {
	ctx := newTestContext(map[string]any{"op": "sayHello", "h": "operation"})
	got, err := ctx.ResolveMap(map[string]any{"${h}": "${op}", "static": 1})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := map[string]any{"operation": "sayHello", "static": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"'a', 'b'", []string{"'a'", "'b'"}},
		{"'a,b', c", []string{"'a,b'", "c"}},
		{"f(x, y), z", []string{"f(x, y)", "z"}},
		{" ' ' ", []string{"' '"}},
	}
	for _, tt := range tests {
		got := testcontext.SplitArguments(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArguments(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
