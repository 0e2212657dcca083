package validation

import (
	"sort"

	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// PathExpressionValidator validates JSONPath and XPath expressions from
// PathExpressionContexts against the received payload. It does nothing when
// no such context is attached.
type PathExpressionValidator struct {
	Evaluators *pathexpr.Registry
}

var _ Validator = (*PathExpressionValidator)(nil)

func (*PathExpressionValidator) SupportsMessageType(t message.Type, msg message.Message) bool {
	if t.Is(message.JSON) {
		return hasPayloadOf(msg, message.JSON)
	}
	return (t.Is(message.XML) || t.Is(message.XHTML)) && hasPayloadOf(msg, message.XML)
}

func (v *PathExpressionValidator) ValidateMessage(received, _ message.Message, tctx *testcontext.Context, contexts []Context) error {
	pctxs := FindAll[PathExpressionContext](contexts)
	if len(pctxs) == 0 {
		return nil
	}
	payload := message.PayloadString(received, tctx.Converter())

	for _, pctx := range pctxs {
		for _, kind := range []pathexpr.Kind{pathexpr.JSONPath, pathexpr.XPath} {
			exprs := pathexpr.Partition(pctx.Expressions())[kind]
			if len(exprs) == 0 {
				continue
			}
			evaluator, err := v.Evaluators.Lookup(tctx, kind)
			if err != nil {
				return err
			}
			if err := validateExpressions(tctx, evaluator, payload, exprs); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateExpressions(tctx *testcontext.Context, evaluator pathexpr.Evaluator, payload string, exprs map[string]any) error {
	keys := make([]string, 0, len(exprs))
	for k := range exprs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		expr, err := tctx.ResolveDynamicContent(raw)
		if err != nil {
			return err
		}
		expected := exprs[raw]
		if s, ok := expected.(string); ok {
			if expected, err = tctx.ResolveDynamicContent(s); err != nil {
				return err
			}
		}

		actual, found, err := evaluator.Evaluate(payload, pathexpr.Strip(expr))
		if err != nil {
			return err
		}
		if !found {
			actual = nil
		}
		if err := ValidateValues(tctx, expr, actual, expected); err != nil {
			return err
		}
	}
	return nil
}
