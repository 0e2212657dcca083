package testcontext_test

import (
	"errors"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

func TestVariables_LastWriteWins(t *testing.T) {
	ctx := testcontext.New()
	ctx.SetVariable("a", 1)
	ctx.SetVariable("a", "two")

	v, err := ctx.Variable("a")
	if err != nil {
		t.Fatalf("Variable failed: %v", err)
	}
	if v != "two" {
		t.Errorf("expected last write, got %v", v)
	}

	vars := ctx.Variables()
	vars["a"] = "mutated"
	if v, _ := ctx.Variable("a"); v != "two" {
		t.Error("Variables must return a copy")
	}
}

func TestVariable_NotFound(t *testing.T) {
	ctx := testcontext.New()
	if ctx.HasVariable("x") {
		t.Error("expected no variable")
	}
	if _, err := ctx.Variable("x"); !errors.Is(err, failure.ErrVariableNotFound) {
		t.Errorf("expected ErrVariableNotFound, got %v", err)
	}
}

func TestReferences(t *testing.T) {
	type service struct{ name string }
	ctx := testcontext.New(testcontext.WithReference("svc", &service{name: "a"}))

	svc, ok := testcontext.ReferenceAs[*service](ctx, "svc")
	if !ok || svc.name != "a" {
		t.Fatalf("expected typed reference, got %v %v", svc, ok)
	}
	if _, ok := testcontext.ReferenceAs[string](ctx, "svc"); ok {
		t.Error("expected type mismatch to fail")
	}
	ctx.Bind("other", 1)
	if v, ok := ctx.Reference("other"); !ok || v != 1 {
		t.Errorf("expected bound reference, got %v", v)
	}
}

func TestMatcherLibrary_Lookup(t *testing.T) {
	lib := testcontext.NewMatcherLibrary("core", "", testcontext.Matcher{Name: "Ignore"})
	ctx := testcontext.New(testcontext.WithMatcherLibrary(lib))

	got, err := ctx.MatcherLibrary("")
	if err != nil {
		t.Fatalf("MatcherLibrary failed: %v", err)
	}
	if _, err := got.Matcher("ignore"); err != nil {
		t.Errorf("expected case-insensitive matcher lookup, got %v", err)
	}
	if _, err := got.Matcher("Nope"); !errors.Is(err, failure.ErrNoSuchMatcher) {
		t.Errorf("expected ErrNoSuchMatcher, got %v", err)
	}
	if _, err := ctx.MatcherLibrary("xml:"); !errors.Is(err, failure.ErrNoSuchMatcherLibrary) {
		t.Errorf("expected ErrNoSuchMatcherLibrary, got %v", err)
	}
}
