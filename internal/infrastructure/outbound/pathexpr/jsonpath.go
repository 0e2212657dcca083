package pathexpr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PaesslerAG/gval"

	"github.com/sophialabs/agenix/internal/domain/failure"
	domain "github.com/sophialabs/agenix/internal/domain/pathexpr"
)

var _ domain.Evaluator = (*JSONPathEvaluator)(nil)

// JSONPathEvaluator evaluates JSONPath expressions, with the full gval
// operator set available in filters. An expression may end
// with one of the functions size(), keySet(), values(), toString() or
// exists(), applied to the selected value.
type JSONPathEvaluator struct {
	programs *compileCache[gval.Evaluable]
}

func NewJSONPathEvaluator(cacheSize int) *JSONPathEvaluator {
	return &JSONPathEvaluator{
		programs: newCompileCache[gval.Evaluable](cacheSize),
	}
}

func (e *JSONPathEvaluator) Kind() domain.Kind { return domain.JSONPath }

func (e *JSONPathEvaluator) Evaluate(payload, expr string) (any, bool, error) {
	path, fn := splitFunction(domain.Strip(expr))

	program, err := e.programs.get(path, domain.CompileJSONPath)
	if err != nil {
		return nil, false, failure.Wrap(failure.ErrInvalidExpression, err, "invalid JSONPath expression '%s'", expr)
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, false, failure.Validation(expr, "payload is not valid JSON: %v", err)
	}

	value, evalErr := program(context.Background(), doc)
	found := evalErr == nil
	if fn != "" {
		return applyFunction(fn, value, found)
	}
	if !found {
		return nil, false, nil
	}
	return jsonValue(value), true, nil
}

var jsonFunctions = []string{"size", "keySet", "values", "toString", "exists"}

func splitFunction(expr string) (path, fn string) {
	for _, f := range jsonFunctions {
		if p, ok := strings.CutSuffix(expr, "."+f+"()"); ok {
			return p, f
		}
	}
	return expr, ""
}

func applyFunction(fn string, value any, found bool) (any, bool, error) {
	if fn == "exists" {
		return found, true, nil
	}
	if !found {
		return nil, false, nil
	}
	switch fn {
	case "size":
		switch v := value.(type) {
		case []any:
			return len(v), true, nil
		case map[string]any:
			return len(v), true, nil
		default:
			return 1, true, nil
		}
	case "keySet":
		m, ok := value.(map[string]any)
		if !ok {
			return []string{}, true, nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, true, nil
	case "values":
		m, ok := value.(map[string]any)
		if !ok {
			return []any{}, true, nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i] = jsonValue(m[k])
		}
		return values, true, nil
	case "toString":
		return jsonText(value), true, nil
	}
	return nil, false, fmt.Errorf("unsupported JSONPath function %s()", fn)
}

// jsonValue keeps scalars and renders objects and arrays as compact JSON.
func jsonValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		return jsonText(v)
	}
	return v
}

func jsonText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
