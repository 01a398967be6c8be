package duplex

import (
	"sync/atomic"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// PassThrough returns a Transform that forwards every chunk unchanged.
func PassThrough(config Config) *Transform {
	return Map(func(c chunk.Chunk) (chunk.Chunk, error) { return c, nil }, config)
}

// Map returns a Transform that replaces each chunk with fn's result. An
// error from fn destroys the transform.
func Map(fn func(chunk.Chunk) (chunk.Chunk, error), config Config) *Transform {
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		out, err := fn(c)
		if err != nil {
			done(err)
			return
		}
		push(out)
		done(nil)
	}), config)
}

// Filter returns a Transform that forwards only the chunks pred accepts.
func Filter(pred func(chunk.Chunk) bool, config Config) *Transform {
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		if pred(c) {
			push(c)
		}
		done(nil)
	}), config)
}

// FlatMap returns a Transform that expands each chunk into fn's results,
// in order.
func FlatMap(fn func(chunk.Chunk) []chunk.Chunk, config Config) *Transform {
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		for _, out := range fn(c) {
			push(out)
		}
		done(nil)
	}), config)
}

// Peek returns a Transform that calls action for each chunk and forwards it.
func Peek(action func(chunk.Chunk), config Config) *Transform {
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		action(c)
		push(c)
		done(nil)
	}), config)
}

// Skip returns a Transform that drops the first n chunks.
func Skip(n int64, config Config) *Transform {
	var seen atomic.Int64
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		if seen.Add(1) > n {
			push(c)
		}
		done(nil)
	}), config)
}

// Limit returns a Transform that forwards at most n chunks and drops the
// rest. The writable side keeps accepting input until it is ended.
func Limit(n int64, config Config) *Transform {
	var seen atomic.Int64
	return NewTransform(MapperFunc(func(c chunk.Chunk, push func(chunk.Chunk) bool, done func(error)) {
		if seen.Add(1) <= n {
			push(c)
		}
		done(nil)
	}), config)
}
