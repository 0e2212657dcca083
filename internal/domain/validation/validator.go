// Package validation compares received messages against control messages.
//
// A Registry resolves which Validators apply to a message type. Validators
// read their configuration from validation Contexts attached to the receive
// action and report the first mismatch as a *failure.ValidationError.
package validation

import (
	"strings"

	"github.com/sophialabs/agenix/internal/domain/convert"
	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// Validator validates a received message against a control message.
type Validator interface {
	SupportsMessageType(t message.Type, msg message.Message) bool
	ValidateMessage(received, control message.Message, tctx *testcontext.Context, contexts []Context) error
}

// EmptyMessageValidator checks that the received payload is empty when the
// control payload is.
type EmptyMessageValidator struct{}

var _ Validator = EmptyMessageValidator{}

func (EmptyMessageValidator) SupportsMessageType(message.Type, message.Message) bool { return true }

func (EmptyMessageValidator) ValidateMessage(received, control message.Message, tctx *testcontext.Context, _ []Context) error {
	if control == nil || control.Payload() == nil {
		return nil
	}
	if strings.TrimSpace(message.PayloadString(control, tctx.Converter())) != "" {
		return failure.Validation("payload", "empty message validation failed, control message is not empty")
	}
	if actual := message.PayloadString(received, tctx.Converter()); strings.TrimSpace(actual) != "" {
		return &failure.ValidationError{
			Path:     "payload",
			Expected: "",
			Actual:   tctx.Mask(actual),
			Message:  "empty message validation failed, received message is not empty",
		}
	}
	return nil
}

// TextEqualsValidator compares payloads as text after trimming and
// normalizing line endings.
type TextEqualsValidator struct{}

var _ Validator = TextEqualsValidator{}

func (TextEqualsValidator) SupportsMessageType(message.Type, message.Message) bool { return true }

func (TextEqualsValidator) ValidateMessage(received, control message.Message, tctx *testcontext.Context, _ []Context) error {
	if control == nil {
		return nil
	}
	expected := normalizeText(message.PayloadString(control, tctx.Converter()))
	if expected == "" {
		return nil
	}
	actual := normalizeText(message.PayloadString(received, tctx.Converter()))
	if actual != expected {
		return &failure.ValidationError{
			Path:     "payload",
			Expected: tctx.Mask(expected),
			Actual:   tctx.Mask(actual),
			Message:  "message payload is not equal",
		}
	}
	return nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// hasPayloadOf reports whether the payload of msg looks like t. A nil
// message matches any type.
func hasPayloadOf(msg message.Message, t message.Type) bool {
	return msg == nil || message.Sniff(payloadText(msg)) == t
}

func payloadText(m message.Message) string {
	switch p := m.Payload().(type) {
	case nil:
		return ""
	case string:
		return p
	default:
		return convert.New().ToString(p)
	}
}
