package validation

import (
	"sort"

	"github.com/sophialabs/agenix/internal/domain/failure"
	"github.com/sophialabs/agenix/internal/domain/message"
	"github.com/sophialabs/agenix/internal/domain/testcontext"
)

// HeaderValueValidator validates a single header value.
type HeaderValueValidator interface {
	SupportsHeader(name string, control any) bool
	ValidateHeader(name string, received, control any, tctx *testcontext.Context, hctx HeaderContext) error
}

// DefaultHeaderValueValidator compares header values with ValidateValues.
type DefaultHeaderValueValidator struct{}

var _ HeaderValueValidator = DefaultHeaderValueValidator{}

func (DefaultHeaderValueValidator) SupportsHeader(string, any) bool { return true }

func (DefaultHeaderValueValidator) ValidateHeader(name string, received, control any, tctx *testcontext.Context, _ HeaderContext) error {
	return ValidateValues(tctx, name, received, control)
}

// HeaderValidator validates every non-internal control header against the
// received message. It is the registry's default header validator.
type HeaderValidator struct {
	// IgnoreCase applies when no HeaderContext is attached.
	IgnoreCase bool
}

var _ Validator = (*HeaderValidator)(nil)

func (*HeaderValidator) SupportsMessageType(message.Type, message.Message) bool { return true }

func (v *HeaderValidator) ValidateMessage(received, control message.Message, tctx *testcontext.Context, contexts []Context) error {
	if control == nil {
		return nil
	}
	hctx, ok := Find[HeaderContext](contexts)
	if !ok {
		hctx = NewHeaderContext().IgnoreCase(v.IgnoreCase).Build()
	}

	headers := control.Headers()
	names := make([]string, 0, len(headers))
	for name := range headers {
		if !message.IsInternal(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		expected := headers[name]
		_, actual, found := message.FindHeader(received, name, hctx.IgnoreCase())
		if !found {
			return failure.Validation(name, "header element '%s' is missing in received message", name)
		}

		if err := v.valueValidator(name, expected, tctx, hctx).ValidateHeader(name, actual, expected, tctx, hctx); err != nil {
			return err
		}
	}
	return nil
}

// valueValidator picks the validator of one header: a validator attached to
// the context, then one named by the context and resolved through the test
// context references, then the registry's header validators and finally
// DefaultHeaderValueValidator.
func (v *HeaderValidator) valueValidator(name string, control any, tctx *testcontext.Context, hctx HeaderContext) HeaderValueValidator {
	for _, hv := range hctx.Validators() {
		if hv.SupportsHeader(name, control) {
			return hv
		}
	}

	reg := RegistryFrom(tctx)
	for _, ref := range hctx.ValidatorNames() {
		if hv, ok := testcontext.ReferenceAs[HeaderValueValidator](tctx, ref); ok && hv.SupportsHeader(name, control) {
			return hv
		}
		if hv, ok := reg.HeaderValidator(ref); ok && hv.SupportsHeader(name, control) {
			return hv
		}
	}

	for _, hv := range reg.HeaderValidators() {
		if hv.SupportsHeader(name, control) {
			return hv
		}
	}
	return DefaultHeaderValueValidator{}
}
