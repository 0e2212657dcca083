package validation

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/pathexpr"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// JSONValidator compares JSON payloads structurally. Control values may be
// matcher expressions; elements selected by ignore expressions are skipped.
// Without a JSONContext validation is strict.
type JSONValidator struct{}

var _ Validator = JSONValidator{}

func (JSONValidator) SupportsMessageType(t message.Type, msg message.Message) bool {
	return t.Is(message.JSON) && hasPayloadOf(msg, message.JSON)
}

func (JSONValidator) ValidateMessage(received, control message.Message, tctx *testcontext.Context, contexts []Context) error {
	if control == nil {
		return nil
	}
	controlText := strings.TrimSpace(message.PayloadString(control, tctx.Converter()))
	if controlText == "" {
		return nil
	}

	jctx, ok := Find[JSONContext](contexts)
	if !ok {
		jctx = NewJSONContext().Build()
	}

	var expected any
	if err := json.Unmarshal([]byte(controlText), &expected); err != nil {
		return failure.Wrap(failure.ErrInvalidExpression, err, "control message is not valid JSON")
	}
	receivedText := message.PayloadString(received, tctx.Converter())
	var actual any
	if err := json.Unmarshal([]byte(receivedText), &actual); err != nil {
		return &failure.ValidationError{
			Path:    "$",
			Message: "received message is not valid JSON",
			Err:     err,
		}
	}

	ignored, err := ignoredJSONPaths(expected, jctx.IgnoreExpressions())
	if err != nil {
		return err
	}
	w := &jsonWalker{tctx: tctx, strict: jctx.Strict(), ignored: ignored}
	return w.compare(nil, expected, actual)
}

type jsonWalker struct {
	tctx    *testcontext.Context
	strict  bool
	ignored map[string]bool
}

func (w *jsonWalker) compare(path []string, control, received any) error {
	display := jsonPathString(path)
	if w.ignored[display] {
		return nil
	}

	if s, ok := control.(string); ok && matcher.IsExpression(s) {
		var actual any
		if received != nil {
			actual = jsonText(received)
		}
		return matcher.Resolve(w.tctx, display, actual, s)
	}

	switch c := control.(type) {
	case map[string]any:
		r, ok := received.(map[string]any)
		if !ok {
			return failure.Mismatch(display, "JSON object", jsonText(received))
		}
		if w.strict && len(c) != len(r) {
			return &failure.ValidationError{
				Path:     display,
				Expected: len(c),
				Actual:   len(r),
				Message:  "number of JSON entries not equal for element '" + display + "'",
			}
		}
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rv, ok := r[k]
			if !ok {
				return failure.Validation(display, "missing JSON entry '%s' in element '%s'", k, display)
			}
			if err := w.compare(child(path, k), c[k], rv); err != nil {
				return err
			}
		}
		return nil

	case []any:
		r, ok := received.([]any)
		if !ok {
			return failure.Mismatch(display, "JSON array", jsonText(received))
		}
		if w.strict {
			if len(c) != len(r) {
				return &failure.ValidationError{
					Path:     display,
					Expected: len(c),
					Actual:   len(r),
					Message:  "number of JSON array elements not equal for element '" + display + "'",
				}
			}
			for i := range c {
				if err := w.compare(child(path, strconv.Itoa(i)), c[i], r[i]); err != nil {
					return err
				}
			}
			return nil
		}
		for i := range c {
			if !w.containsMatch(child(path, strconv.Itoa(i)), c[i], r) {
				return failure.Validation(display, "no matching element for array item %d of '%s'", i, display)
			}
		}
		return nil

	case nil:
		if received != nil {
			return failure.Mismatch(display, nil, jsonText(received))
		}
		return nil
	}

	if received == nil {
		return failure.Mismatch(display, jsonText(control), nil)
	}
	switch received.(type) {
	case map[string]any, []any:
		return failure.Mismatch(display, jsonText(control), jsonText(received))
	}
	if jsonText(control) != jsonText(received) {
		return failure.Mismatch(display, jsonText(control), jsonText(received))
	}
	return nil
}

func (w *jsonWalker) containsMatch(path []string, control any, candidates []any) bool {
	for _, r := range candidates {
		if w.compare(path, control, r) == nil {
			return true
		}
	}
	return false
}

func child(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

// jsonText renders a decoded JSON value as text: strings unquoted, numbers
// in shortest form, containers as compact JSON.
func jsonText(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func jsonPathString(path []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range path {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		b.WriteString("." + seg)
	}
	return b.String()
}

// ignoreMarker temporarily replaces a scalar of the control document to
// find out whether an ignore expression selects it.
type ignoreMarker struct{ _ byte }

type jsonNode struct {
	path  string
	value any
	set   func(any)
}

// ignoredJSONPaths evaluates each JSONPath ignore expression against the
// control document and returns the paths of the elements it selects.
// Objects and arrays are recognised by identity. A scalar is selected when
// replacing it with a marker puts the marker into the result, or takes the
// scalar's own value out of it (its value took part in a filter).
func ignoredJSONPaths(doc any, exprs []string) (map[string]bool, error) {
	ignored := make(map[string]bool)
	if len(exprs) == 0 {
		return ignored, nil
	}

	var nodes []jsonNode
	collectJSONNodes(nil, doc, nil, &nodes)

	ctx := context.Background()
	for _, expr := range exprs {
		eval, err := pathexpr.CompileJSONPath(pathexpr.Strip(expr))
		if err != nil {
			return nil, failure.Wrap(failure.ErrInvalidExpression, err, "invalid ignore expression '%s'", expr)
		}
		selected := func() []any {
			v, err := eval(ctx, doc)
			if err != nil {
				return nil
			}
			out := []any{v}
			if list, ok := v.([]any); ok {
				out = append(out, list...)
			}
			return out
		}

		base := selected()
		marker := &ignoreMarker{}
		for _, n := range nodes {
			if isJSONContainer(n.value) {
				if containsIdentical(base, n.value) {
					ignored[n.path] = true
				}
				continue
			}
			if n.set == nil {
				continue
			}
			n.set(marker)
			marked := selected()
			n.set(n.value)
			if containsIdentical(marked, marker) || countScalar(marked, n.value) < countScalar(base, n.value) {
				ignored[n.path] = true
			}
		}
	}
	return ignored, nil
}

func collectJSONNodes(path []string, v any, set func(any), out *[]jsonNode) {
	*out = append(*out, jsonNode{path: jsonPathString(path), value: v, set: set})
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			collectJSONNodes(child(path, k), e, func(nv any) { t[k] = nv }, out)
		}
	case []any:
		for i, e := range t {
			collectJSONNodes(child(path, strconv.Itoa(i)), e, func(nv any) { t[i] = nv }, out)
		}
	}
}

// isJSONContainer reports whether v has an identity of its own. Empty
// arrays share their backing pointer and are treated like scalars.
func isJSONContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return true
	case []any:
		return len(t) > 0
	}
	return false
}

func containsIdentical(results []any, v any) bool {
	if m, ok := v.(*ignoreMarker); ok {
		for _, r := range results {
			if r == any(m) {
				return true
			}
		}
		return false
	}
	want := reflect.ValueOf(v).Pointer()
	for _, r := range results {
		if !isJSONContainer(r) || reflect.TypeOf(r) != reflect.TypeOf(v) {
			continue
		}
		if reflect.ValueOf(r).Pointer() == want {
			return true
		}
	}
	return false
}

func countScalar(results []any, v any) int {
	n := 0
	for _, r := range results {
		switch r.(type) {
		case string, float64, bool, nil:
			if r == v {
				n++
			}
		}
	}
	return n
}
