// Package message provides the message model exchanged between test actions
// and endpoints: a payload, string-keyed headers, auxiliary header data and a
// lazily inferred content type.
package message

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/agenix/internal/domain/convert"
)

// Reserved and internal header names. Headers carrying HeaderPrefix are
// internal and skipped by header validation.
const (
	HeaderPrefix    = "agenix_"
	HeaderID        = HeaderPrefix + "message_id"
	HeaderTimestamp = HeaderPrefix + "message_timestamp"
)

// Message is the unit exchanged by endpoints and validated by receive actions.
type Message interface {
	ID() string
	Name() string
	SetName(name string)
	Timestamp() time.Time

	Payload() any
	SetPayload(payload any)

	// Type returns the explicit type if one was set, otherwise the type
	// inferred from the payload shape.
	Type() Type
	SetType(t Type)

	Header(name string) (any, bool)
	Headers() map[string]any
	SetHeader(name string, value any) error
	RemoveHeader(name string) error

	HeaderData() []string
	AddHeaderData(data string)
}

var _ Message = (*DefaultMessage)(nil)

// DefaultMessage is the standard in-memory Message.
type DefaultMessage struct {
	id         string
	name       string
	timestamp  time.Time
	payload    any
	msgType    Type
	headers    map[string]any
	headerData []string
}

// Option configures a DefaultMessage at construction.
type Option func(*DefaultMessage)

// WithID overrides the generated message id.
func WithID(id string) Option {
	return func(m *DefaultMessage) { m.id = id }
}

// WithTimestamp overrides the construction timestamp.
func WithTimestamp(ts time.Time) Option {
	return func(m *DefaultMessage) { m.timestamp = ts }
}

// WithHeaders copies headers into the message. Reserved headers are ignored.
func WithHeaders(headers map[string]any) Option {
	return func(m *DefaultMessage) {
		for k, v := range headers {
			if !IsReserved(k) {
				m.headers[k] = v
			}
		}
	}
}

// WithType sets an explicit message type.
func WithType(t Type) Option {
	return func(m *DefaultMessage) { m.msgType = t }
}

// WithName sets the message name.
func WithName(name string) Option {
	return func(m *DefaultMessage) { m.name = name }
}

// New creates a message with a generated id and the current timestamp.
func New(payload any, opts ...Option) *DefaultMessage {
	m := &DefaultMessage{
		payload: payload,
		headers: make(map[string]any),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.timestamp.IsZero() {
		m.timestamp = time.Now()
	}
	m.headers[HeaderID] = m.id
	m.headers[HeaderTimestamp] = m.timestamp.UnixMilli()
	return m
}

// Copy returns a deep copy of m that keeps its identity.
func Copy(m Message) *DefaultMessage {
	out := New(m.Payload(),
		WithID(m.ID()),
		WithTimestamp(m.Timestamp()),
		WithHeaders(m.Headers()),
		WithName(m.Name()),
	)
	if dm, ok := m.(*DefaultMessage); ok {
		out.msgType = dm.msgType
	} else {
		out.msgType = m.Type()
	}
	out.headerData = append([]string(nil), m.HeaderData()...)
	return out
}

func (m *DefaultMessage) ID() string           { return m.id }
func (m *DefaultMessage) Name() string         { return m.name }
func (m *DefaultMessage) SetName(name string)  { m.name = name }
func (m *DefaultMessage) Timestamp() time.Time { return m.timestamp }
func (m *DefaultMessage) Payload() any         { return m.payload }
func (m *DefaultMessage) SetPayload(p any)     { m.payload = p }
func (m *DefaultMessage) SetType(t Type)       { m.msgType = t }

func (m *DefaultMessage) Type() Type {
	if m.msgType != "" && m.msgType != Unspecified {
		return m.msgType
	}
	return InferType(m.payload)
}

// Header returns the header value stored under name.
func (m *DefaultMessage) Header(name string) (any, bool) {
	v, ok := m.headers[name]
	return v, ok
}

// Headers returns a copy of all headers including reserved ones.
func (m *DefaultMessage) Headers() map[string]any {
	return maps.Clone(m.headers)
}

// SetHeader stores a header. Reserved headers cannot be overwritten; use
// ForceHeader for that.
func (m *DefaultMessage) SetHeader(name string, value any) error {
	if IsReserved(name) {
		return fmt.Errorf("header %q is reserved and can only be set at construction", name)
	}
	m.headers[name] = value
	return nil
}

// ForceHeader stores a header even when it is reserved.
func (m *DefaultMessage) ForceHeader(name string, value any) {
	m.headers[name] = value
}

// RemoveHeader deletes a header. Reserved headers cannot be removed.
func (m *DefaultMessage) RemoveHeader(name string) error {
	if IsReserved(name) {
		return fmt.Errorf("header %q is reserved and cannot be removed", name)
	}
	delete(m.headers, name)
	return nil
}

func (m *DefaultMessage) HeaderData() []string {
	return append([]string(nil), m.headerData...)
}

func (m *DefaultMessage) AddHeaderData(data string) {
	m.headerData = append(m.headerData, data)
}

// IsReserved reports whether name is one of the identity headers.
func IsReserved(name string) bool {
	return name == HeaderID || name == HeaderTimestamp
}

// IsInternal reports whether name is an agenix internal header.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, HeaderPrefix)
}

// UserHeaders returns all headers of m that are not internal.
func UserHeaders(m Message) map[string]any {
	out := make(map[string]any)
	for k, v := range m.Headers() {
		if !IsInternal(k) {
			out[k] = v
		}
	}
	return out
}

// FindHeader looks a header up by name, optionally ignoring case. It returns
// the stored header name along with the value.
func FindHeader(m Message, name string, ignoreCase bool) (string, any, bool) {
	if v, ok := m.Header(name); ok {
		return name, v, true
	}
	if !ignoreCase {
		return "", nil, false
	}
	for k, v := range m.Headers() {
		if strings.EqualFold(k, name) {
			return k, v, true
		}
	}
	return "", nil, false
}

// PayloadString renders the payload of m as text using e.
func PayloadString(m Message, e *convert.Engine) string {
	return e.ToString(m.Payload())
}
