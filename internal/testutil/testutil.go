package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestTimeout is the default timeout for tests
const TestTimeout = 5 * time.Second

// pollInterval is how often the Eventually helpers re-check their condition
const pollInterval = 5 * time.Millisecond

// WithTimeout creates a context with the default test timeout
func WithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// AssertNotEqual fails the test if got == want
func AssertNotEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got == want {
		t.Fatalf("got %v, want anything else", got)
	}
}

// Eventually polls cond every tick until it returns true or timeout elapses
func Eventually(t *testing.T, cond func() bool, timeout, tick time.Duration) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		if cond() {
			return
		}
		select {
		case <-deadline.C:
			t.Fatalf("condition not met within %s", timeout)
		case <-ticker.C:
		}
	}
}

// WaitForInt32 waits until *addr equals want
func WaitForInt32(t *testing.T, addr *int32, want int32, timeout time.Duration) {
	t.Helper()
	Eventually(t, func() bool { return atomic.LoadInt32(addr) == want }, timeout, pollInterval)
}

// WaitClosed fails the test if ch is not closed within TestTimeout
func WaitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(TestTimeout):
		t.Fatal("timed out waiting for channel to close")
	}
}

// AssertOpen fails the test if ch is already closed
func AssertOpen(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("channel closed unexpectedly")
	default:
	}
}
