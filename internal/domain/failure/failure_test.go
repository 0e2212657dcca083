package failure_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sophialabs/agenix/internal/domain/failure"
)

func TestSystemError_IsKind(t *testing.T) {
	err := failure.System(failure.ErrNoSuchFunction, "function 'Foo' in library 'core'")
	wrapped := fmt.Errorf("resolve: %w", err)

	if !errors.Is(wrapped, failure.ErrNoSuchFunction) {
		t.Error("expected wrapped error to match ErrNoSuchFunction")
	}
	if errors.Is(wrapped, failure.ErrNoSuchFunctionLibrary) {
		t.Error("did not expect match with ErrNoSuchFunctionLibrary")
	}
	if !failure.IsSystem(wrapped) {
		t.Error("expected IsSystem to be true")
	}
	if failure.IsValidation(wrapped) {
		t.Error("expected IsValidation to be false")
	}
}

func TestSystemError_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := failure.Wrap(failure.ErrConversion, cause, "string to int")
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	err := failure.Mismatch("$.user", "Agenix", nil)
	msg := err.Error()
	for _, want := range []string{"$.user", "Agenix", "null"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if !failure.IsValidation(fmt.Errorf("step: %w", err)) {
		t.Error("expected IsValidation through wrapping")
	}
}
