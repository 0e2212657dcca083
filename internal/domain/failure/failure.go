// Package failure defines the error taxonomy shared by all agenix components.
//
// Two classes of failures exist. A ValidationError means received content
// did not match the control content and fails the running test. A
// SystemError means the test setup is broken (unknown function, missing
// validator, unsupported expression) and is surfaced immediately.
// Transient absence of a message is not an error at the queue level; the
// receiving action escalates it with ErrMessageTimeout.
package failure

import (
	"errors"
	"fmt"
)

// Lookup and configuration sentinels. SystemError values unwrap to one of these.
var (
	ErrVariableNotFound      = errors.New("variable not found")
	ErrNoSuchFunctionLibrary = errors.New("no such function library")
	ErrNoSuchFunction        = errors.New("no such function")
	ErrInvalidFunctionUsage  = errors.New("invalid function usage")
	ErrNoSuchMatcherLibrary  = errors.New("no such validation matcher library")
	ErrNoSuchMatcher         = errors.New("no such validation matcher")
	ErrNoValidatorFound      = errors.New("no message validator found")
	ErrMissingModule         = errors.New("missing module")
	ErrConversion            = errors.New("type conversion failed")
	ErrInvalidExpression     = errors.New("invalid expression")
	ErrMessageTimeout        = errors.New("message receive timed out")
	ErrUnknownEndpoint       = errors.New("unknown endpoint")
)

// SystemError reports a setup defect. Kind is one of the sentinels above.
type SystemError struct {
	Kind    error
	Message string
	Err     error
}

// System creates a SystemError of the given kind.
func System(kind error, format string, args ...any) *SystemError {
	return &SystemError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a SystemError of the given kind.
func Wrap(kind error, err error, format string, args ...any) *SystemError {
	return &SystemError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *SystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is the kind of this error.
func (e *SystemError) Is(target error) bool {
	return e.Kind == target
}

func (e *SystemError) Unwrap() error { return e.Err }

// ValidationError reports a mismatch between received and control content.
type ValidationError struct {
	Path     string
	Expected any
	Actual   any
	Message  string
	Err      error
}

// Mismatch creates a ValidationError for a value mismatch at path.
func Mismatch(path string, expected, actual any) *ValidationError {
	return &ValidationError{
		Path:     path,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf("values not equal for element '%s'", path),
	}
}

// Validation creates a ValidationError with a free-form message.
func Validation(path string, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	msg := "validation failed: " + e.Message
	if e.Expected != nil || e.Actual != nil {
		msg += fmt.Sprintf(", expected '%v' but was '%v'", printable(e.Expected), printable(e.Actual))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSystem reports whether err carries a SystemError.
func IsSystem(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

func printable(v any) any {
	if v == nil {
		return "null"
	}
	return v
}
