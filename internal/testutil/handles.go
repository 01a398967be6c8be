package testutil

import (
	"bytes"
	"errors"
	"sync"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// ErrSimulated is returned by mocks configured to fail.
var ErrSimulated = errors.New("simulated error")

// MockHandle is a transport handle for stream tests. By default every write
// completes synchronously and successfully. Completions can be held and
// released by the test to control exactly when the transport finishes.
type MockHandle struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	calls      []string
	batches    [][]chunk.Chunk
	pending    []func(error)
	hold       bool
	async      bool
	err        error
	errorOnNth int
	callCount  int
}

// NewMockHandle creates a MockHandle that completes immediately.
func NewMockHandle() *MockHandle {
	return &MockHandle{}
}

// WriteBuffer records p and completes according to the mock's settings.
func (m *MockHandle) WriteBuffer(p []byte, done func(error)) {
	m.record("writeBuffer", p, done)
}

func (m *MockHandle) record(call string, p []byte, done func(error)) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, call)
	err := m.err
	if m.errorOnNth > 0 && m.callCount == m.errorOnNth {
		err = ErrSimulated
	}
	if err == nil {
		m.buf.Write(p)
	}
	m.complete(done, err)
}

// complete must be called with mu held; it releases the lock.
func (m *MockHandle) complete(done func(error), err error) {
	if m.hold {
		m.pending = append(m.pending, func(error) { done(err) })
		m.mu.Unlock()
		return
	}
	async := m.async
	m.mu.Unlock()
	if async {
		go done(err)
		return
	}
	done(err)
}

// SetHold makes completions queue up until Release or ReleaseOne.
func (m *MockHandle) SetHold(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = hold
}

// SetAsync makes completions fire on a new goroutine.
func (m *MockHandle) SetAsync(async bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.async = async
}

// SetAlwaysError makes every call fail with err.
func (m *MockHandle) SetAlwaysError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetErrorOnNth makes the nth call fail with ErrSimulated.
func (m *MockHandle) SetErrorOnNth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorOnNth = n
}

// ReleaseOne completes the oldest held call. It reports whether one was held.
func (m *MockHandle) ReleaseOne() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	done := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	done(nil)
	return true
}

// Release completes held calls in order until none are left, including
// calls issued while releasing. It returns how many completed.
func (m *MockHandle) Release() int {
	n := 0
	for m.ReleaseOne() {
		n++
	}
	return n
}

// Pending returns the number of held completions.
func (m *MockHandle) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// String returns everything written successfully.
func (m *MockHandle) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Calls returns the dispatch methods invoked, in order.
func (m *MockHandle) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns the number of transport calls.
func (m *MockHandle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Batches returns the chunk lists passed to Writev.
func (m *MockHandle) Batches() [][]chunk.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]chunk.Chunk(nil), m.batches...)
}

// MockVectoredHandle adds Writev to MockHandle.
type MockVectoredHandle struct {
	*MockHandle
}

// NewMockVectoredHandle creates a handle that accepts vectored writes.
func NewMockVectoredHandle() *MockVectoredHandle {
	return &MockVectoredHandle{MockHandle: NewMockHandle()}
}

// Writev records the batch and completes once for all of it.
func (m *MockVectoredHandle) Writev(chunks []chunk.Chunk, done func(error)) {
	var all []byte
	for _, c := range chunks {
		if c.IsString() {
			all = append(all, c.Str...)
			continue
		}
		all = append(all, c.Data...)
	}
	m.mu.Lock()
	m.batches = append(m.batches, chunks)
	m.mu.Unlock()
	m.record("writev", all, done)
}

// MockStringHandle adds the per-encoding string methods to MockHandle.
type MockStringHandle struct {
	*MockHandle
}

// NewMockStringHandle creates a handle that accepts strings natively.
func NewMockStringHandle() *MockStringHandle {
	return &MockStringHandle{MockHandle: NewMockHandle()}
}

func (m *MockStringHandle) WriteUTF8String(s string, done func(error)) {
	m.record("writeUtf8String", []byte(s), done)
}

func (m *MockStringHandle) WriteLatin1String(s string, done func(error)) {
	m.record("writeLatin1String", []byte(s), done)
}

func (m *MockStringHandle) WriteASCIIString(s string, done func(error)) {
	m.record("writeAsciiString", []byte(s), done)
}

func (m *MockStringHandle) WriteUCS2String(s string, done func(error)) {
	m.record("writeUcs2String", []byte(s), done)
}
