// Package extract copies values out of received messages into test
// variables.
package extract

import (
	"sort"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Extractor stores values of a received message as variables.
type Extractor interface {
	ExtractVariables(msg message.Message, tctx *testcontext.Context) error
}

// Func adapts a function to Extractor.
type Func func(msg message.Message, tctx *testcontext.Context) error

func (f Func) ExtractVariables(msg message.Message, tctx *testcontext.Context) error {
	return f(msg, tctx)
}

// HeaderExtractor maps header names to variable names.
type HeaderExtractor struct {
	Headers    map[string]string
	IgnoreCase bool
}

var _ Extractor = (*HeaderExtractor)(nil)

func (e *HeaderExtractor) ExtractVariables(msg message.Message, tctx *testcontext.Context) error {
	for _, header := range sortedKeys(e.Headers) {
		name, err := tctx.ResolveDynamicContent(header)
		if err != nil {
			return err
		}
		_, v, ok := message.FindHeader(msg, name, e.IgnoreCase)
		if !ok {
			return failure.Validation(name, "failed to extract variable, header element '%s' is missing", name)
		}
		tctx.SetVariable(e.Headers[header], v)
	}
	return nil
}

// PathExtractor maps JSONPath or XPath expressions on the payload to
// variable names.
type PathExtractor struct {
	Expressions map[string]string
	Evaluators  *pathexpr.Registry
}

var _ Extractor = (*PathExtractor)(nil)

func (e *PathExtractor) ExtractVariables(msg message.Message, tctx *testcontext.Context) error {
	if len(e.Expressions) == 0 {
		return nil
	}
	payload := message.PayloadString(msg, tctx.Converter())

	for _, raw := range sortedKeys(e.Expressions) {
		expr, err := tctx.ResolveDynamicContent(raw)
		if err != nil {
			return err
		}
		evaluator, err := e.Evaluators.Lookup(tctx, pathexpr.KindOf(expr))
		if err != nil {
			return err
		}
		v, found, err := evaluator.Evaluate(payload, pathexpr.Strip(expr))
		if err != nil {
			return err
		}
		if !found {
			return failure.Validation(expr, "failed to extract variable, no result for expression '%s'", expr)
		}
		tctx.SetVariable(e.Expressions[raw], v)
	}
	return nil
}

// PayloadExtractor stores the whole payload as text.
type PayloadExtractor struct {
	Variable string
}

var _ Extractor = (*PayloadExtractor)(nil)

func (e *PayloadExtractor) ExtractVariables(msg message.Message, tctx *testcontext.Context) error {
	tctx.SetVariable(e.Variable, message.PayloadString(msg, tctx.Converter()))
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
