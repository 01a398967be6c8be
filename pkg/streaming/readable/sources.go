package readable

import (
	"context"
	"errors"
	"io"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// FromSlice creates a Readable that produces chunks in order, one per
// producer call, then ends. config.Read is replaced.
func FromSlice(chunks []chunk.Chunk, config Config) *Readable {
	var r *Readable
	next := 0
	config.Read = func(int) {
		if next >= len(chunks) {
			_ = r.PushEOF()
			return
		}
		c := chunks[next]
		next++
		if _, err := r.Push(c); err != nil {
			r.Destroy(err)
		}
	}
	r = New(config)
	return r
}

// FromChannel creates a Readable fed from ch. Each producer call receives
// one value on a new goroutine, so a slow consumer leaves values in the
// channel. The stream ends when ch is closed and is destroyed with ctx.Err()
// when ctx is done first.
func FromChannel(ctx context.Context, ch <-chan chunk.Chunk, config Config) *Readable {
	var r *Readable
	config.Read = func(int) {
		go func() {
			select {
			case c, ok := <-ch:
				if !ok {
					_ = r.PushEOF()
					return
				}
				pushOrDestroy(r, c)
			case <-ctx.Done():
				r.Destroy(ctx.Err())
			case <-r.Done():
			}
		}()
	}
	r = New(config)
	return r
}

// FromReader creates a byte-mode Readable reading at most size bytes from
// src per producer call. A src that is also an io.Closer is closed when the
// stream is destroyed, which unblocks a pending read.
func FromReader(src io.Reader, size int, config Config) *Readable {
	if size <= 0 {
		size = DefaultHighWaterMark
	}
	config.Mode = chunk.ModeBytes

	var r *Readable
	config.Read = func(int) {
		go func() {
			buf := make([]byte, size)
			for {
				n, err := src.Read(buf)
				if n > 0 {
					pushOrDestroy(r, chunk.Bytes(buf[:n]))
				}
				switch {
				case errors.Is(err, io.EOF):
					_ = r.PushEOF()
					return
				case err != nil:
					r.Destroy(err)
					return
				case n > 0:
					return
				}
			}
		}()
	}

	hook := config.Destroy
	config.Destroy = func(err error) {
		if c, ok := src.(io.Closer); ok {
			_ = c.Close()
		}
		if hook != nil {
			hook(err)
		}
	}
	r = New(config)
	return r
}

func pushOrDestroy(r *Readable, c chunk.Chunk) {
	if _, err := r.Push(c); err != nil && !gferrors.IsDestroyed(err) {
		r.Destroy(err)
	}
}
