package duplex

import (
	"sync"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// Mapper turns each written chunk into zero or more readable chunks. push
// hands one output chunk to the readable half and reports whether it is
// still below its mark; done must be called exactly once per Map.
type Mapper interface {
	Map(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error))
}

// MapperFunc adapts a function to a Mapper.
type MapperFunc func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error))

// Map implements Mapper.
func (f MapperFunc) Map(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
	f(c, push, done)
}

// Flusher is implemented by mappers that emit trailing output once the
// writable half ended, before end of data reaches the readable half.
type Flusher interface {
	Flush(push func(chunk.Chunk) bool, done func(error))
}

// Transform is a Duplex whose readable output is computed from its writable
// input. A write completes only once its output was accepted below the
// readable mark, so a slow consumer holds back the writer.
type Transform struct {
	*Duplex

	mapper Mapper

	mu     sync.Mutex
	held   func(error)
	demand bool
}

// NewTransform creates a Transform around m. The Readable.Read and
// Writable.Final hooks of config are owned by the transform; a Destroy hook
// in either half is kept.
func NewTransform(m Mapper, config Config) *Transform {
	t := &Transform{mapper: m}
	config.Readable.Read = t.produce
	config.Writable.Final = t.final

	hook := config.Destroy
	config.Destroy = func(err error) {
		t.mu.Lock()
		t.held = nil
		t.mu.Unlock()
		if hook != nil {
			hook(err)
		}
	}
	t.Duplex = New(t, config)
	return t
}

// WriteBuffer lets the transform act as the handle of its own writable half.
func (t *Transform) WriteBuffer(p []byte, done func(error)) {
	t.WriteChunk(chunk.Bytes(p), done)
}

// WriteChunk maps one chunk. Writes reach it one at a time, in order.
func (t *Transform) WriteChunk(c chunk.Chunk, done func(error)) {
	t.mapper.Map(c, t.push, func(err error) {
		if err != nil {
			done(err)
			return
		}
		t.release(done)
	})
}

func (t *Transform) push(c chunk.Chunk) bool {
	ok, err := t.r.Push(c)
	return ok && err == nil
}

// release completes a mapped write at once when the readable half has room
// or asked for data, and parks it otherwise.
func (t *Transform) release(done func(error)) {
	t.mu.Lock()
	if t.demand || t.r.Buffered() < t.r.HighWaterMark() {
		t.demand = false
		t.mu.Unlock()
		done(nil)
		return
	}
	t.held = done
	t.mu.Unlock()
}

// produce is the readable Read hook: the consumer wants data.
func (t *Transform) produce(int) {
	t.mu.Lock()
	held := t.held
	t.held = nil
	if held == nil {
		t.demand = true
	}
	t.mu.Unlock()

	if held != nil {
		held(nil)
	}
}

func (t *Transform) final(done func(error)) {
	f, ok := t.mapper.(Flusher)
	if !ok {
		done(t.r.PushEOF())
		return
	}
	f.Flush(t.push, func(err error) {
		if err != nil {
			done(err)
			return
		}
		done(t.r.PushEOF())
	})
}
