package validation

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/matcher"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// ValueMatcher overrides value comparison for control values of the types
// it supports.
type ValueMatcher interface {
	Supports(controlType reflect.Type) bool
	Validate(received, control any, tctx *testcontext.Context) (bool, error)
}

// NumericToleranceMatcher accepts numeric values that differ from the
// control value by at most Tolerance.
type NumericToleranceMatcher struct {
	Tolerance float64
}

var _ ValueMatcher = NumericToleranceMatcher{}

func (NumericToleranceMatcher) Supports(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (m NumericToleranceMatcher) Validate(received, control any, tctx *testcontext.Context) (bool, error) {
	r, err := tctx.Converter().Convert(received, reflect.TypeFor[float64]())
	if err != nil {
		return false, nil
	}
	c, err := tctx.Converter().Convert(control, reflect.TypeFor[float64]())
	if err != nil {
		return false, err
	}
	return math.Abs(r.(float64)-c.(float64)) <= m.Tolerance, nil
}

// Equaler is implemented by values that define their own equality.
type Equaler interface {
	Equal(other any) bool
}

// ValidateValues compares a received value with a control value at path.
//
// A received value with no control value always fails. A missing received
// value passes only when the control value is empty or a matcher expression
// that accepts null. Otherwise registered value matchers are consulted,
// matcher expressions are resolved, and the received value is converted to
// the control value's type before comparing.
func ValidateValues(tctx *testcontext.Context, path string, received, control any) error {
	if received == nil {
		return validateMissing(tctx, path, control)
	}
	if control == nil {
		return failure.Mismatch(path, nil, received)
	}

	for _, vm := range RegistryFrom(tctx).ValueMatchers() {
		if !vm.Supports(reflect.TypeOf(control)) {
			continue
		}
		ok, err := vm.Validate(received, control, tctx)
		if err != nil {
			return err
		}
		if !ok {
			return failure.Mismatch(path, control, received)
		}
		return nil
	}

	if expected, ok := control.(string); ok {
		if matcher.IsExpression(expected) {
			return matcher.Resolve(tctx, path, received, expected)
		}
		actual := tctx.Converter().ToString(received)
		if actual != expected {
			return failure.Mismatch(path, expected, actual)
		}
		return nil
	}

	converted, err := tctx.Converter().Convert(received, reflect.TypeOf(control))
	if err != nil {
		return &failure.ValidationError{
			Path:     path,
			Expected: control,
			Actual:   received,
			Message:  fmt.Sprintf("received value of '%s' does not convert to %T", path, control),
			Err:      err,
		}
	}
	if !equal(tctx, converted, control) {
		return failure.Mismatch(path, render(tctx, control), render(tctx, converted))
	}
	return nil
}

func validateMissing(tctx *testcontext.Context, path string, control any) error {
	switch c := control.(type) {
	case nil:
		return nil
	case string:
		if matcher.IsExpression(c) {
			return matcher.Resolve(tctx, path, nil, c)
		}
		if strings.TrimSpace(c) != "" {
			return failure.Mismatch(path, c, nil)
		}
		return nil
	default:
		return failure.Mismatch(path, control, nil)
	}
}

// equal compares values of the same type. Lists compare by their delimited
// string form, byte slices by their base64 form, types implementing Equaler
// by their own rule, comparable values with == and everything else
// structurally.
func equal(tctx *testcontext.Context, a, b any) bool {
	if eq, ok := b.(Equaler); ok {
		return eq.Equal(a)
	}
	if ab, ok := a.([]byte); ok {
		bb, _ := b.([]byte)
		return base64.StdEncoding.EncodeToString(ab) == base64.StdEncoding.EncodeToString(bb)
	}
	kind := reflect.TypeOf(b).Kind()
	if kind == reflect.Slice || kind == reflect.Array {
		return tctx.Converter().ToString(a) == tctx.Converter().ToString(b)
	}
	if reflect.TypeOf(b).Comparable() && kind != reflect.Struct && kind != reflect.Pointer && kind != reflect.Interface {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func render(tctx *testcontext.Context, v any) any {
	if b, ok := v.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b)
	}
	kind := reflect.TypeOf(v).Kind()
	if kind == reflect.Slice || kind == reflect.Array {
		return tctx.Converter().ToString(v)
	}
	return v
}
