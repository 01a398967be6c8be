package testutil

import (
	"bytes"
	"sync"
	"time"
)

// MockWriter is a test writer that can simulate various write conditions
// including delays, errors, and write counting.
type MockWriter struct {
	buf         *bytes.Buffer
	mu          sync.Mutex
	writeDelay  time.Duration
	errorOnNth  int
	writeCount  int
	shouldError bool
	err         error
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		buf: &bytes.Buffer{},
	}
}

// Write implements io.Writer interface with configurable behavior.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	mw.writeCount++

	if mw.writeDelay > 0 {
		time.Sleep(mw.writeDelay)
	}

	if mw.shouldError {
		return 0, mw.err
	}

	if mw.errorOnNth > 0 && mw.writeCount == mw.errorOnNth {
		return 0, ErrSimulated
	}

	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// WriteCount returns the number of Write calls.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.writeCount
}

// SetWriteDelay configures a delay for each write operation.
func (mw *MockWriter) SetWriteDelay(delay time.Duration) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.writeDelay = delay
}

// SetErrorOnNth configures the writer to error on the nth write.
func (mw *MockWriter) SetErrorOnNth(n int) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.errorOnNth = n
}

// SetAlwaysError configures the writer to always return the given error.
func (mw *MockWriter) SetAlwaysError(err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.shouldError = true
	mw.err = err
}
