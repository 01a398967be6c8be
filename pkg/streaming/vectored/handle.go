// Package vectored is the boundary between streams and transports: the
// per-encoding dispatch contract, write requests, and the batching writer
// that turns a corked run of writes into one vectored call.
package vectored

import (
	"sync/atomic"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// Callback receives the outcome of a write exactly once.
type Callback func(error)

// Handle is the minimal transport: raw bytes in, one completion out.
// done must be invoked exactly once, from any goroutine.
type Handle interface {
	WriteBuffer(p []byte, done func(error))
}

// StringHandle is implemented by transports that accept strings in a given
// encoding without prior conversion, one method per encoding.
type StringHandle interface {
	WriteUTF8String(s string, done func(error))
	WriteLatin1String(s string, done func(error))
	WriteASCIIString(s string, done func(error))
	WriteUCS2String(s string, done func(error))
}

// ChunkHandle is implemented by in-process transports that take whole
// chunks, including object-mode values.
type ChunkHandle interface {
	WriteChunk(c chunk.Chunk, done func(error))
}

// VectoredHandle is implemented by transports that can accept several
// chunks in one call. The batch succeeds or fails as a whole.
type VectoredHandle interface {
	Writev(chunks []chunk.Chunk, done func(error))
}

// HandleFunc adapts a function to a Handle and a ChunkHandle.
type HandleFunc func(c chunk.Chunk, done func(error))

// WriteBuffer implements Handle.
func (f HandleFunc) WriteBuffer(p []byte, done func(error)) {
	f(chunk.Bytes(p), done)
}

// WriteChunk implements ChunkHandle.
func (f HandleFunc) WriteChunk(c chunk.Chunk, done func(error)) {
	f(c, done)
}

// Request is one queued write. The writer holds its chunk until Settle.
type Request struct {
	Chunk    chunk.Chunk
	Size     int
	Callback Callback

	settled atomic.Bool
}

// NewRequest creates a request accounting size against the high water mark.
func NewRequest(c chunk.Chunk, size int, cb Callback) *Request {
	return &Request{Chunk: c, Size: size, Callback: cb}
}

// MarkSettled claims the request's single completion. Only the first caller
// gets true; it is then responsible for invoking Callback.
func (r *Request) MarkSettled() bool {
	return r.settled.CompareAndSwap(false, true)
}

// Settled reports whether the request already completed.
func (r *Request) Settled() bool {
	return r.settled.Load()
}

// Complete settles the request and runs its callback, once.
func (r *Request) Complete(err error) bool {
	if !r.MarkSettled() {
		return false
	}
	if r.Callback != nil {
		r.Callback(err)
	}
	return true
}
