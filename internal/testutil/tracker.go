package testutil

import (
	"sync"
	"testing"
)

// CallbackTracker records how often a callback ran and the last value it saw.
// Stream tests use it to check exactly-once completion and notification.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
	value interface{}
}

// NewCallbackTracker creates an empty tracker.
func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

// Mark records one call, optionally with a value.
func (ct *CallbackTracker) Mark(value ...interface{}) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.count++
	if len(value) > 0 {
		ct.value = value[0]
	}
}

// ErrFunc returns a func(error) that marks the tracker with the error.
func (ct *CallbackTracker) ErrFunc() func(error) {
	return func(err error) { ct.Mark(err) }
}

// Func returns a func() that marks the tracker.
func (ct *CallbackTracker) Func() func() {
	return func() { ct.Mark() }
}

// Called reports whether Mark ran at least once.
func (ct *CallbackTracker) Called() bool {
	return ct.CallCount() > 0
}

// CallCount returns the number of Mark calls.
func (ct *CallbackTracker) CallCount() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.count
}

// Value returns the last recorded value.
func (ct *CallbackTracker) Value() interface{} {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.value
}

// Err returns the last recorded value as an error.
func (ct *CallbackTracker) Err() error {
	err, _ := ct.Value().(error)
	return err
}

// Reset clears the tracker.
func (ct *CallbackTracker) Reset() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.count = 0
	ct.value = nil
}

// AssertCalled fails the test if the tracker was never marked.
func (ct *CallbackTracker) AssertCalled(t *testing.T) {
	t.Helper()
	if !ct.Called() {
		t.Fatal("callback was not called")
	}
}

// AssertNotCalled fails the test if the tracker was marked.
func (ct *CallbackTracker) AssertNotCalled(t *testing.T) {
	t.Helper()
	if n := ct.CallCount(); n != 0 {
		t.Fatalf("callback called %d times, want 0", n)
	}
}

// AssertCallCount fails the test unless the tracker was marked exactly n times.
func (ct *CallbackTracker) AssertCallCount(t *testing.T, n int) {
	t.Helper()
	if got := ct.CallCount(); got != n {
		t.Fatalf("callback called %d times, want %d", got, n)
	}
}
