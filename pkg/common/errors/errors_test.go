package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrClosed, ErrTimeout, ErrInvalidConfiguration,
		ErrDestroyed, ErrWriteAfterEnd, ErrPushAfterEOF, ErrAborted,
		ErrAlreadyEnded, ErrInvalidTransition, ErrInvalidChunk, ErrUnknownEncoding,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestWriteAfterDestroyMatchesDestroyed(t *testing.T) {
	if !errors.Is(ErrWriteAfterDestroy, ErrDestroyed) {
		t.Fatal("ErrWriteAfterDestroy should match ErrDestroyed")
	}
	if errors.Is(ErrDestroyed, ErrWriteAfterDestroy) {
		t.Fatal("ErrDestroyed should not match ErrWriteAfterDestroy")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err:  NewValidationError("readable", "HighWaterMark", -1, "must be non-negative"),
			want: "readable: invalid HighWaterMark=-1 (must be non-negative)",
		},
		{
			name: "with hint",
			err: NewValidationError("writable", "DefaultEncoding", "ebcdic", "unknown encoding").
				WithHint("use utf8 or latin1"),
			want: "writable: invalid DefaultEncoding=ebcdic (unknown encoding) - use utf8 or latin1",
		},
		{
			name: "empty value",
			err:  NewValidationError("redisstream", "Key", "", "stream key is required"),
			want: "redisstream: invalid Key= (stream key is required)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrInvalidConfiguration) {
				t.Error("ValidationError should match ErrInvalidConfiguration")
			}
		})
	}
}

func TestOperationError(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "without context",
			err:  NewOperationError("writable", "Write", ErrWriteAfterEnd),
			want: "writable.Write failed: write after end",
		},
		{
			name: "with context",
			err:  NewOperationError("readable", "Resume", ErrInvalidTransition).WithContext("ended -> flowing"),
			want: "readable.Resume failed: invalid state transition (ended -> flowing)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, tt.err.Cause) {
				t.Error("OperationError should wrap its cause")
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout", ErrTimeout, true},
		{"wrapped timeout", NewOperationError("redisstream", "XREAD", ErrTimeout), true},
		{"closed", ErrClosed, false},
		{"destroyed", ErrDestroyed, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	verr := NewValidationError("config", "log.level", "loud", "unsupported value")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", verr, true},
		{"wrapped", fmt.Errorf("load: %w", verr), true},
		{"operation error", NewOperationError("config", "Parse", errors.New("bad yaml")), false},
		{"sentinel only", ErrInvalidConfiguration, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDestroyed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"destroyed", ErrDestroyed, true},
		{"write after destroy", ErrWriteAfterDestroy, true},
		{"wrapped", NewOperationError("writable", "Write", ErrWriteAfterDestroy), true},
		{"write after end", ErrWriteAfterEnd, false},
		{"transport error", errors.New("connection reset"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDestroyed(tt.err); got != tt.want {
				t.Errorf("IsDestroyed() = %v, want %v", got, tt.want)
			}
		})
	}
}
