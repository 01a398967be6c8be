package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the flowio library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Stream lifecycle errors. These are stable values: callers are expected to
// match them with errors.Is, independent of any transport error they wrap.
var (
	// ErrDestroyed is reported by every operation on a destroyed stream.
	ErrDestroyed = errors.New("stream already destroyed")

	// ErrWriteAfterEnd is reported to the writer of a chunk submitted after End.
	ErrWriteAfterEnd = errors.New("write after end")

	// ErrWriteAfterDestroy is reported to the writer of a chunk submitted after
	// Destroy. It matches ErrDestroyed as well.
	ErrWriteAfterDestroy = fmt.Errorf("write after destroy: %w", ErrDestroyed)

	// ErrPushAfterEOF is returned when a producer pushes after signaling EOF.
	ErrPushAfterEOF = errors.New("push after end of data")

	// ErrAborted fails pending writes of a stream destroyed without a reason.
	ErrAborted = errors.New("stream aborted")

	// ErrAlreadyEnded is reported to a second End on a finished writable.
	ErrAlreadyEnded = errors.New("stream already ended")

	// ErrInvalidTransition is returned when a state change is not allowed
	// from the current state, e.g. resuming an ended readable.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidChunk is returned for chunks that do not match the stream mode.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrUnknownEncoding is returned for encodings that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// ValidationError describes an invalid configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint sets a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError records which module operation failed and why.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError wrapping cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches free-form detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsDestroyed reports whether err signals an operation on a destroyed stream.
func IsDestroyed(err error) bool {
	return errors.Is(err, ErrDestroyed)
}
