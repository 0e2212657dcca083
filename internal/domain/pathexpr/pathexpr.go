// Package pathexpr classifies JSONPath and XPath expressions and dispatches
// them to registered evaluators.
package pathexpr

import (
	"strings"
	"sync"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Kind is the syntax family of a path expression.
type Kind string

const (
	JSONPath Kind = "jsonPath"
	XPath    Kind = "xpath"
)

// ReferencePrefix prefixes the reference names under which evaluators may be
// bound in a test context, e.g. "pathexpr:jsonPath".
const ReferencePrefix = "pathexpr:"

// Evaluator evaluates expressions of one kind against a payload. found is
// false when the expression selects nothing.
type Evaluator interface {
	Kind() Kind
	Evaluate(payload, expr string) (value any, found bool, err error)
}

// KindOf classifies expr. An explicit "jsonPath:" or "xpath:" prefix wins;
// otherwise expressions starting with "$" are JSONPath and everything else
// is XPath.
func KindOf(expr string) Kind {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, string(JSONPath)+":"):
		return JSONPath
	case strings.HasPrefix(expr, string(XPath)+":"):
		return XPath
	case strings.HasPrefix(expr, "$"):
		return JSONPath
	}
	return XPath
}

// IsJSONPath reports whether expr is a JSONPath expression.
func IsJSONPath(expr string) bool { return KindOf(expr) == JSONPath }

// Strip removes an explicit kind prefix from expr.
func Strip(expr string) string {
	expr = strings.TrimSpace(expr)
	for _, k := range []Kind{JSONPath, XPath} {
		if rest, ok := strings.CutPrefix(expr, string(k)+":"); ok {
			return rest
		}
	}
	return expr
}

// Partition groups expression/value pairs by kind.
func Partition(exprs map[string]any) map[Kind]map[string]any {
	out := make(map[Kind]map[string]any)
	for expr, v := range exprs {
		k := KindOf(expr)
		if out[k] == nil {
			out[k] = make(map[string]any)
		}
		out[k][expr] = v
	}
	return out
}

// Registry holds the evaluators available to validators and extractors.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[Kind]Evaluator
}

// NewRegistry creates a registry with the given evaluators.
func NewRegistry(evaluators ...Evaluator) *Registry {
	r := &Registry{evaluators: make(map[Kind]Evaluator)}
	for _, e := range evaluators {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the evaluator for its kind.
func (r *Registry) Register(e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[e.Kind()] = e
}

// Lookup returns the evaluator for kind. When the registry has none it
// falls back to an Evaluator bound in ctx under ReferencePrefix+kind. A nil
// registry only consults ctx.
func (r *Registry) Lookup(ctx *testcontext.Context, kind Kind) (Evaluator, error) {
	if r != nil {
		r.mu.RLock()
		e, ok := r.evaluators[kind]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}
	}
	if ctx != nil {
		if e, ok := testcontext.ReferenceAs[Evaluator](ctx, ReferencePrefix+string(kind)); ok {
			return e, nil
		}
	}
	return nil, failure.System(failure.ErrMissingModule,
		"no %s evaluator registered, add the %s module to the test setup", kind, kind)
}

// Evaluate classifies expr, looks up its evaluator and evaluates it.
func (r *Registry) Evaluate(ctx *testcontext.Context, payload, expr string) (any, bool, error) {
	e, err := r.Lookup(ctx, KindOf(expr))
	if err != nil {
		return nil, false, err
	}
	return e.Evaluate(payload, Strip(expr))
}
