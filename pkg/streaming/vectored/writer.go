package vectored

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
)

// Config holds configuration for Writer.
type Config struct {
	// Name labels logs and metrics.
	Name string

	// Logger receives duplicate-completion warnings. Default: no-op.
	Logger *zap.Logger

	// Metrics records batch sizes and durations. Nil disables metrics.
	Metrics *metrics.Registry
}

// Writer dispatches batches of requests to a Handle, using the optional
// capabilities the handle implements.
type Writer struct {
	handle  Handle
	strings StringHandle
	chunks  ChunkHandle
	vector  VectoredHandle

	name    string
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewWriter inspects h for optional capabilities.
func NewWriter(h Handle, config Config) *Writer {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		handle:  h,
		name:    config.Name,
		logger:  logger.With(zap.String("component", "vectored")),
		metrics: config.Metrics,
	}
	w.strings, _ = h.(StringHandle)
	w.chunks, _ = h.(ChunkHandle)
	w.vector, _ = h.(VectoredHandle)
	return w
}

// Vectored reports whether batches go out as a single Writev call.
func (w *Writer) Vectored() bool {
	return w.vector != nil
}

// Dispatch hands batch to the transport. settle runs once per request, in
// batch order; done runs once after the last settle with the first error.
//
// With a vectored handle and more than one request the whole batch goes out
// in one Writev call and every request shares its outcome. Otherwise the
// requests are written one after another; after a failure the remaining
// requests are not dispatched and settle with the same error.
func (w *Writer) Dispatch(batch []*Request, settle func(*Request, error), done func(error)) {
	if len(batch) == 0 {
		done(nil)
		return
	}
	start := time.Now()
	if w.vector != nil && len(batch) > 1 {
		w.dispatchVectored(batch, settle, func(err error) {
			w.metrics.ObserveBatch(w.name, "vectored", len(batch), time.Since(start))
			done(err)
		})
		return
	}
	s := &sequence{
		w:      w,
		batch:  batch,
		settle: settle,
		done: func(err error) {
			w.metrics.ObserveBatch(w.name, "sequential", len(batch), time.Since(start))
			done(err)
		},
	}
	s.run()
}

func (w *Writer) dispatchVectored(batch []*Request, settle func(*Request, error), done func(error)) {
	chunks := make([]chunk.Chunk, len(batch))
	for i, req := range batch {
		c, err := w.prepare(req.Chunk)
		if err != nil {
			// One bad chunk fails the batch; nothing is handed to the transport.
			for _, r := range batch {
				settle(r, err)
			}
			done(err)
			return
		}
		chunks[i] = c
	}

	// batch stays referenced by this closure until the transport completes.
	w.vector.Writev(chunks, w.once("Writev", func(err error) {
		for _, r := range batch {
			settle(r, err)
		}
		done(err)
	}))
}

// prepare converts strings the transport cannot take natively.
func (w *Writer) prepare(c chunk.Chunk) (chunk.Chunk, error) {
	if c.IsObject() {
		if w.chunks == nil {
			return c, gferrors.NewOperationError("vectored", "Dispatch", gferrors.ErrInvalidChunk).
				WithContext("transport does not accept objects")
		}
		return c, nil
	}
	if !c.IsString() || w.chunks != nil {
		return c, nil
	}
	switch encoding.Select(c.Encoding) {
	case encoding.MethodUnknown:
		return c, gferrors.NewOperationError("vectored", "Dispatch", gferrors.ErrUnknownEncoding).
			WithContext("encoding=" + string(c.Encoding))
	case encoding.MethodUTF8, encoding.MethodLatin1, encoding.MethodASCII, encoding.MethodUCS2:
		if w.strings != nil {
			return c, nil
		}
	}
	return c.Decoded()
}

// writeOne sends a single chunk through the method its encoding selects.
func (w *Writer) writeOne(c chunk.Chunk, done func(error)) {
	c, err := w.prepare(c)
	if err != nil {
		done(err)
		return
	}
	done = w.once("write", done)

	switch {
	case w.chunks != nil:
		w.chunks.WriteChunk(c, done)
	case c.IsString():
		switch encoding.Select(c.Encoding) {
		case encoding.MethodUTF8:
			w.strings.WriteUTF8String(c.Str, done)
		case encoding.MethodLatin1:
			w.strings.WriteLatin1String(c.Str, done)
		case encoding.MethodASCII:
			w.strings.WriteASCIIString(c.Str, done)
		case encoding.MethodUCS2:
			w.strings.WriteUCS2String(c.Str, done)
		default:
			// prepare only leaves native encodings as strings
			done(gferrors.ErrUnknownEncoding)
		}
	default:
		w.handle.WriteBuffer(c.Data, done)
	}
}

// once guards against transports completing a call twice.
func (w *Writer) once(op string, fn func(error)) func(error) {
	var fired atomic.Bool
	return func(err error) {
		if !fired.CompareAndSwap(false, true) {
			w.logger.Warn("transport completed a write twice",
				zap.String("stream", w.name), zap.String("op", op), zap.Error(err))
			return
		}
		fn(err)
	}
}

// sequence writes a batch one request at a time. Transports that complete
// synchronously are handled by looping instead of recursing.
type sequence struct {
	w      *Writer
	batch  []*Request
	settle func(*Request, error)
	done   func(error)

	mu      sync.Mutex
	next    int
	looping bool
	pending bool
}

func (s *sequence) run() {
	s.mu.Lock()
	if s.looping {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.looping = true
	for s.next < len(s.batch) {
		req := s.batch[s.next]
		if req.Settled() {
			// failed by its owner already; never hand it to the transport
			s.next++
			if s.next == len(s.batch) {
				s.looping = false
				s.mu.Unlock()
				s.done(nil)
				return
			}
			continue
		}
		s.pending = false
		s.mu.Unlock()

		s.w.writeOne(req.Chunk, func(err error) { s.complete(req, err) })

		s.mu.Lock()
		if !s.pending {
			// completion is still outstanding; it will call run again
			break
		}
	}
	s.looping = false
	s.mu.Unlock()
}

func (s *sequence) complete(req *Request, err error) {
	s.settle(req, err)

	s.mu.Lock()
	s.next++
	if err != nil {
		rest := s.batch[s.next:]
		s.next = len(s.batch)
		s.mu.Unlock()
		for _, r := range rest {
			s.settle(r, err)
		}
		s.done(err)
		return
	}
	last := s.next == len(s.batch)
	s.mu.Unlock()

	if last {
		s.done(nil)
		return
	}
	s.run()
}
