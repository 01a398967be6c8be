package writable

import (
	"context"
	"io"
	"sync"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

type writer struct {
	w *Writable

	mu  sync.Mutex
	err error
}

// AsWriter exposes w as an io.WriteCloser. Write blocks while the stream
// is above its high water mark and reports the first failed write; Close
// ends the stream and waits for it to finish.
func (w *Writable) AsWriter() io.WriteCloser {
	return &writer{w: w}
}

func (a *writer) record(err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	if a.err == nil {
		a.err = err
	}
	a.mu.Unlock()
}

func (a *writer) failed() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *writer) Write(p []byte) (int, error) {
	if err := a.failed(); err != nil {
		return 0, err
	}
	ok := a.w.Write(chunk.Bytes(p), a.record)
	if err := a.failed(); err != nil {
		return 0, err
	}
	if !ok {
		if err := a.w.WaitDrain(context.Background()); err != nil {
			if failed := a.failed(); failed != nil {
				return 0, failed
			}
			return 0, err
		}
	}
	return len(p), nil
}

func (a *writer) Close() error {
	errc := make(chan error, 1)
	a.w.End(nil, func(err error) { errc <- err })
	if err := <-errc; err != nil {
		return err
	}
	return a.failed()
}
