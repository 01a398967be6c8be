package readable

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnykmshr/flowio/internal/hooks"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

const kind = "readable"

// Handler receives the notifications of a Readable. Nil funcs are skipped.
// Handlers are called without any stream lock held and may call back into
// the stream.
type Handler struct {
	Data  func(c chunk.Chunk)
	End   func()
	Error func(err error)
	Close func()
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	list *hooks.List[Handler]
	id   uint64
}

// Cancel removes the handler. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil {
		s.list.Remove(s.id)
	}
}

// Readable is the consumer-facing side of a stream: a producer pushes
// chunks, a consumer pulls them with Read or receives them as a subscriber
// while flowing. The buffer is bounded by the high water mark through the
// return value of Push.
type Readable struct {
	config  Config
	name    string
	logger  *zap.Logger
	metrics *metrics.Registry

	mu         sync.Mutex
	state      State
	buf        *chunk.Queue[chunk.Chunk]
	eof        bool
	err        error
	pushed     uint64
	delivering bool
	pulling    bool
	reading    bool
	signal     chan struct{}
	ended      chan struct{}
	done       chan struct{}
	doneClosed bool

	handlers hooks.List[Handler]
}

// NewSafe validates config and creates a paused Readable.
func NewSafe(config Config) (*Readable, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(config), nil
}

// New creates a paused Readable. It does not validate config: a negative
// HighWaterMark selects the default and an unknown Mode behaves as byte
// mode. Use NewSafe to reject such configurations.
func New(config Config) *Readable {
	config = config.withDefaults()
	name := config.Name
	if name == "" {
		name = kind + "-" + uuid.NewString()[:8]
	}
	mode := config.Mode
	return &Readable{
		config:  config,
		name:    name,
		logger:  config.Logger.With(zap.String("component", kind), zap.String("stream", name)),
		metrics: config.Metrics,
		state:   StatePaused,
		buf:     chunk.NewQueue(func(c chunk.Chunk) int { return c.Size(mode) }),
		signal:  make(chan struct{}),
		ended:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// NewWithMetrics creates a Readable recording into reg under name.
func NewWithMetrics(config Config, reg *metrics.Registry, name string) *Readable {
	config.Metrics = reg
	config.Name = name
	return New(config)
}

// Name returns the stream name used in logs and metrics.
func (r *Readable) Name() string { return r.name }

// Push hands a chunk from the producer to the stream. It reports whether the
// buffer is still below the high water mark; a producer should stop pushing
// on false until its Read hook is called again.
func (r *Readable) Push(c chunk.Chunk) (bool, error) {
	r.mu.Lock()
	switch {
	case r.state == StateDestroyed:
		r.mu.Unlock()
		return false, gferrors.NewOperationError(kind, "Push", gferrors.ErrDestroyed)
	case r.eof:
		r.mu.Unlock()
		return false, gferrors.NewOperationError(kind, "Push", gferrors.ErrPushAfterEOF)
	}

	c, err := r.normalize(c)
	if err != nil {
		r.mu.Unlock()
		return false, err
	}

	r.reading = false
	if r.config.Mode == chunk.ModeObject || !c.Empty() {
		r.buf.Push(c)
		r.pushed++
		r.signalLocked()
		r.metrics.ObserveChunk(r.name, "push", c.Size(r.config.Mode))
	}
	r.mu.Unlock()

	r.flow()

	r.mu.Lock()
	size := r.buf.Size()
	r.mu.Unlock()
	r.metrics.SetBuffered(r.name, kind, size)

	if size >= r.config.HighWaterMark {
		r.metrics.ObserveBackpressure(r.name, kind)
		return false, nil
	}
	return true, nil
}

// PushEOF signals that the producer has no more data. End is delivered
// once every buffered chunk has been consumed. Calling it again is a no-op.
func (r *Readable) PushEOF() error {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return gferrors.NewOperationError(kind, "PushEOF", gferrors.ErrDestroyed)
	}
	if r.eof {
		r.mu.Unlock()
		return nil
	}
	r.eof = true
	r.reading = false
	r.signalLocked()
	r.mu.Unlock()

	r.logger.Debug("end of data", zap.Int("buffered", r.Buffered()))
	r.flow()
	return nil
}

func (r *Readable) normalize(c chunk.Chunk) (chunk.Chunk, error) {
	if r.config.Mode == chunk.ModeObject {
		return c, nil
	}
	if c.IsObject() {
		return c, gferrors.NewOperationError(kind, "Push", gferrors.ErrInvalidChunk).
			WithContext("object chunk on a byte-mode stream")
	}
	out, err := c.Decoded()
	if err != nil {
		return c, gferrors.NewOperationError(kind, "Push", err)
	}
	return out, nil
}

// Read pulls up to n bytes (one value in object mode) from the buffer.
// In byte mode it returns exactly n bytes when that many are buffered, the
// remaining bytes once end of data is pending, and nothing otherwise. n <= 0
// takes everything buffered. It returns io.EOF once ended.
func (r *Readable) Read(n int) (chunk.Chunk, bool, error) {
	r.mu.Lock()
	switch r.state {
	case StateDestroyed:
		err := r.destroyedErrorLocked("Read")
		r.mu.Unlock()
		return chunk.Chunk{}, false, err
	case StateEnded:
		r.mu.Unlock()
		return chunk.Chunk{}, false, io.EOF
	}
	c, ok := r.takeLocked(n)
	end := r.drainedLocked()
	size := r.buf.Size()
	r.mu.Unlock()

	if ok {
		r.metrics.ObserveChunk(r.name, "read", c.Size(r.config.Mode))
		r.metrics.SetBuffered(r.name, kind, size)
	}
	if end {
		r.emitEnd()
		if !ok {
			return chunk.Chunk{}, false, io.EOF
		}
		return c, true, nil
	}
	r.pull()
	return c, ok, nil
}

// ReadContext blocks until Read yields a chunk, the stream ends (io.EOF),
// the stream is destroyed, or ctx is done. It is meant for paused streams;
// in flowing mode subscribers take the data first.
func (r *Readable) ReadContext(ctx context.Context, n int) (chunk.Chunk, error) {
	for {
		r.mu.Lock()
		sig := r.signal
		r.mu.Unlock()

		c, ok, err := r.Read(n)
		if err != nil {
			return chunk.Chunk{}, err
		}
		if ok {
			return c, nil
		}

		select {
		case <-sig:
		case <-ctx.Done():
			return chunk.Chunk{}, ctx.Err()
		}
	}
}

//nolint:gocyclo
func (r *Readable) takeLocked(n int) (chunk.Chunk, bool) {
	if r.buf.Len() == 0 {
		return chunk.Chunk{}, false
	}
	if r.config.Mode == chunk.ModeObject {
		return r.buf.Pop()
	}

	size := r.buf.Size()
	if n <= 0 || n == size || (n > size && r.eof) {
		if r.buf.Len() == 1 {
			return r.buf.Pop()
		}
		return chunk.Concat(r.buf.Drain()), true
	}
	if n > size {
		return chunk.Chunk{}, false
	}

	head, _ := r.buf.Peek()
	if len(head.Data) >= n {
		if len(head.Data) == n {
			return r.buf.Pop()
		}
		r.buf.ReplaceFront(chunk.Bytes(head.Data[n:]))
		return chunk.Bytes(head.Data[:n:n]), true
	}

	out := make([]byte, 0, n)
	for len(out) < n {
		head, _ = r.buf.Peek()
		need := n - len(out)
		if len(head.Data) <= need {
			out = append(out, head.Data...)
			r.buf.Pop()
			continue
		}
		out = append(out, head.Data[:need]...)
		r.buf.ReplaceFront(chunk.Bytes(head.Data[need:]))
	}
	return chunk.Bytes(out), true
}

// Pause stops flowing delivery. A Pause issued from a Data handler takes
// effect before the next chunk.
func (r *Readable) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked("Pause", StatePaused)
}

// Resume switches to flowing mode: buffered chunks are delivered to the
// subscribers first, then the producer is asked for more. Chunks delivered
// while nobody is subscribed are lost.
func (r *Readable) Resume() error {
	r.mu.Lock()
	err := r.transitionLocked("Resume", StateFlowing)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.flow()
	return nil
}

// flow delivers buffered chunks while flowing. Only one goroutine delivers
// at a time; calls made meanwhile, including reentrant ones from handlers,
// return at once and their chunks are picked up by the active loop.
func (r *Readable) flow() {
	r.mu.Lock()
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for r.state == StateFlowing {
		c, ok := r.buf.Pop()
		if !ok {
			break
		}
		handlers := r.handlers.Snapshot()
		r.mu.Unlock()

		r.metrics.ObserveChunk(r.name, "deliver", c.Size(r.config.Mode))
		for _, h := range handlers {
			if h.Data != nil {
				h.Data(c)
			}
		}

		r.mu.Lock()
	}
	r.delivering = false
	end := r.state == StateFlowing && r.drainedLocked()
	r.mu.Unlock()

	if end {
		r.emitEnd()
		return
	}
	r.pull()
}

// pull calls the producer hook until the buffer reaches the mark or the
// producer answers asynchronously.
func (r *Readable) pull() {
	if r.config.Read == nil {
		return
	}
	r.mu.Lock()
	if r.pulling {
		r.mu.Unlock()
		return
	}
	r.pulling = true
	for r.wantsMoreLocked() {
		r.reading = true
		before := r.pushed
		r.mu.Unlock()

		r.config.Read(r.config.HighWaterMark)

		r.mu.Lock()
		if r.reading || r.pushed == before {
			break
		}
	}
	r.pulling = false
	r.mu.Unlock()
}

func (r *Readable) wantsMoreLocked() bool {
	return !r.reading && !r.eof &&
		(r.state == StatePaused || r.state == StateFlowing) &&
		r.buf.Size() < r.config.HighWaterMark
}

func (r *Readable) drainedLocked() bool {
	return r.eof && r.buf.Len() == 0 &&
		(r.state == StatePaused || r.state == StateFlowing)
}

func (r *Readable) emitEnd() {
	r.mu.Lock()
	if r.state != StatePaused && r.state != StateFlowing {
		r.mu.Unlock()
		return
	}
	_ = r.transitionLocked("end", StateEnded)
	close(r.ended)
	r.closeDoneLocked()
	r.signalLocked()
	handlers := r.handlers.Snapshot()
	r.mu.Unlock()

	r.logger.Debug("ended")
	for _, h := range handlers {
		if h.End != nil {
			h.End()
		}
	}
}

// Destroy tears the stream down: buffered chunks are discarded, the Destroy
// hook runs, then one Error notification (when err is non-nil and end was
// not delivered yet) and one Close notification fire. Later calls do nothing.
func (r *Readable) Destroy(err error) {
	r.mu.Lock()
	if r.state == StateDestroyed {
		r.mu.Unlock()
		return
	}
	wasEnded := r.state == StateEnded
	_ = r.transitionLocked("Destroy", StateDestroyed)
	r.err = err
	discarded := r.buf.Len()
	r.buf.Drain()
	r.closeDoneLocked()
	r.signalLocked()
	r.mu.Unlock()

	r.logger.Debug("destroyed", zap.Error(err), zap.Int("discarded", discarded))
	r.metrics.ObserveDestroy(r.name, kind)
	r.metrics.SetBuffered(r.name, kind, 0)

	if r.config.Destroy != nil {
		r.config.Destroy(err)
	}

	handlers := r.handlers.Snapshot()
	r.handlers.Clear()
	if err != nil && !wasEnded {
		r.metrics.ObserveError(r.name, kind)
		for _, h := range handlers {
			if h.Error != nil {
				h.Error(err)
			}
		}
	}
	for _, h := range handlers {
		if h.Close != nil {
			h.Close()
		}
	}
}

// Subscribe registers h. Handlers added to a destroyed stream never fire.
func (r *Readable) Subscribe(h Handler) *Subscription {
	id := r.handlers.Add(h)
	return &Subscription{list: &r.handlers, id: id}
}

// TakeBuffered removes and returns every buffered chunk without delivering it.
func (r *Readable) TakeBuffered() []chunk.Chunk {
	r.mu.Lock()
	out := r.buf.Drain()
	end := r.drainedLocked() && r.state == StateFlowing
	r.mu.Unlock()
	r.metrics.SetBuffered(r.name, kind, 0)
	if end {
		r.emitEnd()
	}
	return out
}

func (r *Readable) destroyedErrorLocked(op string) error {
	e := gferrors.NewOperationError(kind, op, gferrors.ErrDestroyed)
	if r.err != nil {
		e.WithContext(r.err.Error())
	}
	return e
}

func (r *Readable) signalLocked() {
	close(r.signal)
	r.signal = make(chan struct{})
}

func (r *Readable) closeDoneLocked() {
	if !r.doneClosed {
		r.doneClosed = true
		close(r.done)
	}
}

// State returns the current lifecycle state.
func (r *Readable) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Buffered returns the buffered size in bytes, or values in object mode.
func (r *Readable) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Size()
}

// Len returns the number of buffered chunks.
func (r *Readable) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// IsPaused reports whether the stream is in paused mode.
func (r *Readable) IsPaused() bool {
	return r.State() == StatePaused
}

// Ended is closed once end of data has been delivered.
func (r *Readable) Ended() <-chan struct{} { return r.ended }

// Done is closed on the first terminal event: end or destroy.
func (r *Readable) Done() <-chan struct{} { return r.done }

// Err returns the error the stream was destroyed with, if any.
func (r *Readable) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// HighWaterMark returns the effective buffer limit.
func (r *Readable) HighWaterMark() int { return r.config.HighWaterMark }

// Mode returns the stream mode.
func (r *Readable) Mode() chunk.Mode { return r.config.Mode }
