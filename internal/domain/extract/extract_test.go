package extract_test

import (
	"errors"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/extract"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

type mapEvaluator map[string]any

func (mapEvaluator) Kind() pathexpr.Kind { return pathexpr.JSONPath }

func (m mapEvaluator) Evaluate(_, expr string) (any, bool, error) {
	v, ok := m[expr]
	return v, ok, nil
}

func TestHeaderExtractor(t *testing.T) {
	msg := message.New("", message.WithHeaders(map[string]any{"Correlation": "c-1"}))

	tctx := testcontext.New()
	e := &extract.HeaderExtractor{Headers: map[string]string{"correlation": "cid"}, IgnoreCase: true}
	if err := e.ExtractVariables(msg, tctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := tctx.VariableString("cid"); got != "c-1" {
		t.Errorf("cid = %q, want c-1", got)
	}

	strict := &extract.HeaderExtractor{Headers: map[string]string{"correlation": "cid"}}
	if err := strict.ExtractVariables(msg, tctx); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPathExtractor(t *testing.T) {
	reg := pathexpr.NewRegistry(mapEvaluator{"$.order.id": "o-7"})
	tctx := testcontext.New()

	e := &extract.PathExtractor{Expressions: map[string]string{"$.order.id": "orderId"}, Evaluators: reg}
	if err := e.ExtractVariables(message.New(`{"order":{"id":"o-7"}}`), tctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := tctx.VariableString("orderId"); got != "o-7" {
		t.Errorf("orderId = %q, want o-7", got)
	}

	missing := &extract.PathExtractor{Expressions: map[string]string{"$.nope": "x"}, Evaluators: reg}
	if err := missing.ExtractVariables(message.New(`{}`), tctx); !failure.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	xpath := &extract.PathExtractor{Expressions: map[string]string{"/a": "x"}, Evaluators: reg}
	if err := xpath.ExtractVariables(message.New(`<a/>`), tctx); !errors.Is(err, failure.ErrMissingModule) {
		t.Fatalf("expected ErrMissingModule, got %v", err)
	}
}

func TestPayloadExtractor(t *testing.T) {
	tctx := testcontext.New()
	e := &extract.PayloadExtractor{Variable: "body"}
	if err := e.ExtractVariables(message.New([]byte("hello")), tctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := tctx.VariableString("body"); got != "hello" {
		t.Errorf("body = %q, want hello", got)
	}
}
