// Package convert implements the layered type conversion engine used to
// compare loosely typed message content against strongly typed expectations.
//
// Conversion falls through a fixed chain: assignable values pass unchanged,
// then before hooks, structural conversions (maps and lists encoded as
// bracketed strings), binary conversions (string, []byte, io.Reader, Base64),
// string rendering, primitive parsing and finally after hooks. Conversion to
// string never fails; any other target type fails with ErrConversion when no
// rule applies.
package convert

import (
	"bytes"
	"encoding/base64"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/sophialabs/agenix/internal/domain/failure"
)

// Base64 marks a string as base64 encoded binary content. Converting []byte
// to Base64 and back is lossless.
type Base64 string

// Hook is an extension point in the conversion chain. It returns ok=false
// when it does not handle the requested conversion.
type Hook func(value any, to reflect.Type) (out any, ok bool, err error)

var (
	stringType      = reflect.TypeFor[string]()
	bytesType       = reflect.TypeFor[[]byte]()
	readerType      = reflect.TypeFor[io.Reader]()
	base64Type      = reflect.TypeFor[Base64]()
	stringSliceType = reflect.TypeFor[[]string]()
	anySliceType    = reflect.TypeFor[[]any]()
	stringMapType   = reflect.TypeFor[map[string]string]()
	anyMapType      = reflect.TypeFor[map[string]any]()
)

// Engine converts values between representations.
type Engine struct {
	charset *charset
	before  []Hook
	after   []Hook
}

// Option configures an Engine.
type Option func(*Engine)

// WithCharset sets the text encoding used for string/byte conversions.
// Unknown names fall back to UTF-8.
func WithCharset(name string) Option {
	return func(e *Engine) { e.charset = lookupCharset(name) }
}

// WithBefore registers a hook that runs before the built-in rules.
func WithBefore(h Hook) Option {
	return func(e *Engine) { e.before = append(e.before, h) }
}

// WithAfter registers a hook that runs after the built-in rules failed.
func WithAfter(h Hook) Option {
	return func(e *Engine) { e.after = append(e.after, h) }
}

// New creates an Engine. The default charset is UTF-8.
func New(opts ...Option) *Engine {
	e := &Engine{charset: lookupCharset("UTF-8")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Charset returns the canonical name of the configured text encoding.
func (e *Engine) Charset() string { return e.charset.name }

// To converts v to T using e.
func To[T any](e *Engine, v any) (T, error) {
	var zero T
	out, err := e.Convert(v, reflect.TypeFor[T]())
	if err != nil || out == nil {
		return zero, err
	}
	return out.(T), nil
}

// Convert converts target to the requested type. A nil target converts to nil.
func (e *Engine) Convert(target any, to reflect.Type) (any, error) {
	if to == nil {
		return nil, failure.System(failure.ErrConversion, "no target type given for '%T'", target)
	}
	if target == nil {
		return nil, nil
	}
	if reflect.TypeOf(target).AssignableTo(to) {
		return target, nil
	}

	for _, h := range e.before {
		out, ok, err := h(target, to)
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
	}

	if out, ok := e.convertStructural(target, to); ok {
		return out, nil
	}

	if out, ok, err := e.convertBinary(target, to); ok || err != nil {
		return out, err
	}

	if to == stringType {
		return e.ToString(target), nil
	}

	out, err := e.convertPrimitive(target, to)
	if err == nil {
		return out, nil
	}

	for _, h := range e.after {
		hout, ok, herr := h(target, to)
		if herr != nil {
			return nil, herr
		}
		if ok {
			return hout, nil
		}
	}

	return nil, failure.Wrap(failure.ErrConversion, err,
		"unable to convert '%T' to required type '%s'", target, to)
}

func (e *Engine) convertStructural(target any, to reflect.Type) (any, bool) {
	switch to {
	case stringMapType, anyMapType:
		entries := e.toStringMap(target)
		if to == stringMapType {
			return entries, true
		}
		out := make(map[string]any, len(entries))
		for k, v := range entries {
			out[k] = v
		}
		return out, true
	case stringSliceType, anySliceType:
		items := e.toStringSlice(target)
		if to == stringSliceType {
			return items, true
		}
		out := make([]any, len(items))
		for i, v := range items {
			out[i] = v
		}
		return out, true
	}
	return nil, false
}

func (e *Engine) toStringMap(target any) map[string]string {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Map {
		out := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[e.ToString(iter.Key().Interface())] = e.ToString(iter.Value().Interface())
		}
		return out
	}
	return ParseMap(e.ToString(target))
}

func (e *Engine) toStringSlice(target any) []string {
	rv := reflect.ValueOf(target)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type() != bytesType {
		out := make([]string, rv.Len())
		for i := range rv.Len() {
			out[i] = e.ToString(rv.Index(i).Interface())
		}
		return out
	}
	return ParseList(e.ToString(target))
}

func (e *Engine) convertBinary(target any, to reflect.Type) (any, bool, error) {
	switch to {
	case bytesType:
		b, err := e.toBytes(target)
		return b, true, err
	case readerType:
		b, err := e.toBytes(target)
		if err != nil {
			return nil, true, err
		}
		return io.Reader(bytes.NewReader(b)), true, nil
	case base64Type:
		b, err := e.toBytes(target)
		if err != nil {
			return nil, true, err
		}
		return Base64(base64.StdEncoding.EncodeToString(b)), true, nil
	}
	return nil, false, nil
}

func (e *Engine) toBytes(target any) ([]byte, error) {
	switch v := target.(type) {
	case []byte:
		return v, nil
	case Base64:
		b, err := base64.StdEncoding.DecodeString(string(v))
		if err != nil {
			return nil, failure.Wrap(failure.ErrConversion, err, "invalid base64 content")
		}
		return b, nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConversion, err, "failed to read stream")
		}
		return b, nil
	default:
		return e.charset.encode(e.ToString(target)), nil
	}
}

// ToString renders v as a string. It never fails: arrays render as
// "[a, b, c]", maps as "{k=v, k2=v2}" with sorted keys, byte slices are
// decoded with the configured charset.
func (e *Engine) ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return e.charset.decode(t)
	case Base64:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case error:
		return t.Error()
	case interface{ String() string }:
		return t.String()
	case io.Reader:
		b, err := io.ReadAll(t)
		if err != nil {
			return ""
		}
		return e.charset.decode(b)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			parts[i] = e.ToString(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		return FormatMap(e.toStringMap(v))
	case reflect.Pointer:
		if rv.IsNil() {
			return ""
		}
		return e.ToString(rv.Elem().Interface())
	}
	return fallbackString(v)
}

func (e *Engine) convertPrimitive(target any, to reflect.Type) (any, error) {
	s := strings.TrimSpace(e.ToString(target))
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(to).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(b).Convert(to).Interface(), nil
	case reflect.String:
		return reflect.ValueOf(e.ToString(target)).Convert(to).Interface(), nil
	}
	return nil, failure.System(failure.ErrConversion, "no conversion rule for '%s'", to)
}
