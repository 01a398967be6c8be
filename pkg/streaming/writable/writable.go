package writable

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnykmshr/flowio/internal/hooks"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/common/validation"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
)

const kind = "writable"

// Handler receives the notifications of a Writable. Nil funcs are skipped.
type Handler struct {
	Drain  func()
	Finish func()
	Error  func(err error)
	Close  func()
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

// Writable is the producer-facing side of a stream. Writes are queued in
// FIFO order and handed to a transport Handle one batch at a time; the
// queued plus in-flight size is bounded by the high water mark through the
// return value of Write and the Drain notification.
type Writable struct {
	config  Config
	name    string
	logger  *zap.Logger
	metrics *metrics.Registry
	writer  *vectored.Writer

	mu         sync.Mutex
	state      State
	corked     int
	queue      *chunk.Queue[*vectored.Request]
	inflight   []*vectored.Request
	length     int
	needDrain  bool
	drainOwed  bool
	writeDepth int
	writing    bool
	pumping    bool
	finalizing bool
	finishCbs  []vectored.Callback
	err        error
	drained    chan struct{}
	finished   chan struct{}
	done       chan struct{}
	doneClosed bool

	handlers hooks.List[Handler]
}

// NewSafe validates h and config and creates an open Writable.
func NewSafe(h vectored.Handle, config Config) (*Writable, error) {
	if err := validation.ValidateNotNil(kind, "Handle", h); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(h, config), nil
}

// New creates an open Writable writing to h. It does not validate config:
// a negative HighWaterMark selects the default and an unknown Mode behaves
// as byte mode. Use NewSafe to reject such configurations.
func New(h vectored.Handle, config Config) *Writable {
	config = config.withDefaults()
	name := config.Name
	if name == "" {
		name = kind + "-" + uuid.NewString()[:8]
	}
	logger := config.Logger.With(zap.String("component", kind), zap.String("stream", name))
	return &Writable{
		config:  config,
		name:    name,
		logger:  logger,
		metrics: config.Metrics,
		writer: vectored.NewWriter(h, vectored.Config{
			Name:    name,
			Logger:  logger,
			Metrics: config.Metrics,
		}),
		queue:    chunk.NewQueue(func(r *vectored.Request) int { return r.Size }),
		drained:  make(chan struct{}),
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewWithMetrics creates a Writable recording into reg under name.
func NewWithMetrics(h vectored.Handle, config Config, reg *metrics.Registry, name string) *Writable {
	config.Metrics = reg
	config.Name = name
	return New(h, config)
}

// Name returns the stream name used in logs and metrics.
func (w *Writable) Name() string { return w.name }

// Write queues c and reports whether the caller may keep writing. On false
// the caller should wait for Drain. cb runs exactly once with the outcome,
// possibly before Write returns. Byte chunks are copied, so the caller may
// reuse its buffer.
func (w *Writable) Write(c chunk.Chunk, cb vectored.Callback) bool {
	if cb == nil {
		cb = func(error) {}
	}

	w.mu.Lock()
	switch w.state {
	case StateDestroyed:
		w.mu.Unlock()
		cb(gferrors.NewOperationError(kind, "Write", gferrors.ErrWriteAfterDestroy))
		return false
	case StateEnding, StateFinished:
		w.mu.Unlock()
		cb(gferrors.NewOperationError(kind, "Write", gferrors.ErrWriteAfterEnd))
		return false
	}

	c, err := w.prepare(c)
	if err != nil {
		w.mu.Unlock()
		cb(err)
		return !w.NeedDrain()
	}

	if w.drainOwed {
		w.logger.Warn("write while a drain is pending", zap.Int("buffered", w.length))
		w.metrics.ObserveViolation(w.name)
	}

	size := c.Size(w.config.Mode)
	w.queue.Push(vectored.NewRequest(c, size, cb))
	w.length += size
	if w.length >= w.config.HighWaterMark {
		w.needDrain = true
	}
	w.writeDepth++
	corked := w.corked > 0
	length := w.length
	w.mu.Unlock()

	w.metrics.ObserveChunk(w.name, "write", size)
	w.metrics.SetBuffered(w.name, kind, length)

	if !corked {
		w.pump()
	}

	w.mu.Lock()
	w.writeDepth--
	ok := true
	drain := false
	switch {
	case w.state == StateDestroyed:
		ok = false
	case w.needDrain && w.length == 0 && w.writeDepth == 0:
		// Completed synchronously: nothing left to wait for.
		w.needDrain = false
		drain = w.drainOwed
		w.drainOwed = false
	case w.needDrain:
		w.drainOwed = true
		ok = false
	}
	w.mu.Unlock()

	if !ok {
		w.metrics.ObserveBackpressure(w.name, kind)
	}
	if drain {
		w.emitDrain()
	}
	return ok
}

// WriteString writes s in enc, or in the default encoding when enc is empty.
func (w *Writable) WriteString(s string, enc encoding.Encoding, cb vectored.Callback) bool {
	if enc == "" {
		enc = w.config.DefaultEncoding
	}
	return w.Write(chunk.String(s, enc), cb)
}

// WriteContext writes c and waits for its completion.
func (w *Writable) WriteContext(ctx context.Context, c chunk.Chunk) error {
	errc := make(chan error, 1)
	w.Write(c, func(err error) { errc <- err })
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitDrain blocks while a drain is owed. It returns an error once the
// stream is destroyed.
func (w *Writable) WaitDrain(ctx context.Context) error {
	for {
		w.mu.Lock()
		if w.state == StateDestroyed {
			w.mu.Unlock()
			return gferrors.NewOperationError(kind, "WaitDrain", gferrors.ErrDestroyed)
		}
		if !w.needDrain {
			w.mu.Unlock()
			return nil
		}
		sig := w.drained
		w.mu.Unlock()

		select {
		case <-sig:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Callers hold w.mu.
func (w *Writable) prepare(c chunk.Chunk) (chunk.Chunk, error) {
	if c.IsObject() && w.config.Mode != chunk.ModeObject {
		return c, gferrors.NewOperationError(kind, "Write", gferrors.ErrInvalidChunk).
			WithContext("object chunk on a byte-mode stream")
	}
	if !c.IsString() {
		return c.Clone(), nil
	}
	if c.Encoding == "" {
		c.Encoding = w.config.DefaultEncoding
	}
	if !c.Encoding.Valid() {
		return c, gferrors.NewOperationError(kind, "Write", gferrors.ErrUnknownEncoding).
			WithContext("encoding=" + c.Encoding.String())
	}
	if !w.config.DecodeStrings {
		return c, nil
	}
	out, err := c.Decoded()
	if err != nil {
		return c, gferrors.NewOperationError(kind, "Write", err)
	}
	return out, nil
}

// pump hands the queued requests to the transport as one batch. It is a
// trampoline: a batch completing synchronously does not recurse, the
// active loop dispatches the next one.
func (w *Writable) pump() {
	w.mu.Lock()
	if w.pumping {
		w.mu.Unlock()
		return
	}
	w.pumping = true
	for !w.writing && w.corked == 0 && w.queue.Len() > 0 &&
		(w.state == StateOpen || w.state == StateEnding) {
		batch := w.queue.Drain()
		w.inflight = batch
		w.writing = true
		w.mu.Unlock()

		w.writer.Dispatch(batch, w.settle, w.batchDone)

		w.mu.Lock()
	}
	w.pumping = false
	w.mu.Unlock()
}

func (w *Writable) settle(req *vectored.Request, err error) {
	if !req.MarkSettled() {
		return
	}
	w.mu.Lock()
	w.length -= req.Size
	length := w.length
	w.mu.Unlock()

	w.metrics.SetBuffered(w.name, kind, length)
	if req.Callback != nil {
		req.Callback(err)
	}
}

func (w *Writable) batchDone(err error) {
	w.mu.Lock()
	if w.state == StateDestroyed {
		w.mu.Unlock()
		return
	}
	w.writing = false
	w.inflight = nil
	if err != nil {
		w.mu.Unlock()
		w.logger.Error("transport write failed", zap.Error(err))
		w.Destroy(err)
		return
	}
	drain := w.needDrain && w.length == 0 && w.writeDepth == 0
	if drain {
		w.needDrain = false
		w.drainOwed = false
	}
	w.mu.Unlock()

	if drain {
		w.emitDrain()
	}
	w.pump()
	w.maybeFinish()
}

func (w *Writable) emitDrain() {
	w.mu.Lock()
	close(w.drained)
	w.drained = make(chan struct{})
	w.mu.Unlock()

	w.metrics.ObserveDrain(w.name)
	for _, h := range w.handlers.Snapshot() {
		if h.Drain != nil {
			h.Drain()
		}
	}
}

// End stops accepting writes, optionally after writing final. cb runs once
// the stream finished, or with the error that destroyed it. Calling End on
// a finished stream settles cb with ErrAlreadyEnded; calling it while
// ending attaches cb to the pending finish.
func (w *Writable) End(final *chunk.Chunk, cb vectored.Callback) {
	if cb == nil {
		cb = func(error) {}
	}
	if final != nil && w.State() == StateOpen {
		w.Write(*final, func(err error) {
			if err != nil {
				w.Destroy(err)
			}
		})
	}

	w.mu.Lock()
	switch w.state {
	case StateDestroyed:
		w.mu.Unlock()
		cb(gferrors.NewOperationError(kind, "End", gferrors.ErrDestroyed))
		return
	case StateFinished:
		w.mu.Unlock()
		cb(gferrors.NewOperationError(kind, "End", gferrors.ErrAlreadyEnded))
		return
	case StateEnding:
		w.finishCbs = append(w.finishCbs, cb)
		w.mu.Unlock()
		return
	}
	_ = w.transitionLocked("End", StateEnding)
	w.corked = 0
	w.finishCbs = append(w.finishCbs, cb)
	w.mu.Unlock()

	w.logger.Debug("ending")
	w.pump()
	w.maybeFinish()
}

func (w *Writable) maybeFinish() {
	w.mu.Lock()
	if w.state != StateEnding || w.finalizing || w.writing || w.queue.Len() > 0 {
		w.mu.Unlock()
		return
	}
	w.finalizing = true
	w.mu.Unlock()

	if w.config.Final == nil {
		w.finish(nil)
		return
	}
	var once sync.Once
	w.config.Final(func(err error) {
		once.Do(func() { w.finish(err) })
	})
}

func (w *Writable) finish(err error) {
	if err != nil {
		w.logger.Error("final hook failed", zap.Error(err))
		w.Destroy(err)
		return
	}

	w.mu.Lock()
	if w.state != StateEnding {
		w.mu.Unlock()
		return
	}
	_ = w.transitionLocked("finish", StateFinished)
	close(w.finished)
	w.closeDoneLocked()
	cbs := w.finishCbs
	w.finishCbs = nil
	w.mu.Unlock()

	w.logger.Debug("finished")
	for _, cb := range cbs {
		cb(nil)
	}
	for _, h := range w.handlers.Snapshot() {
		if h.Finish != nil {
			h.Finish()
		}
	}
	if w.config.AutoDestroy {
		w.Destroy(nil)
	}
}

// Cork makes writes accumulate until the matching Uncork. Calls nest.
func (w *Writable) Cork() {
	w.mu.Lock()
	if w.state == StateOpen {
		w.corked++
	}
	w.mu.Unlock()
}

// Uncork undoes one Cork. At zero the accumulated writes are flushed as
// one batch, a single vectored call when the transport supports it.
func (w *Writable) Uncork() {
	w.mu.Lock()
	if w.corked > 0 {
		w.corked--
	}
	flush := w.corked == 0
	w.mu.Unlock()
	if flush {
		w.pump()
	}
}

// Destroy tears the stream down. New writes are rejected at once; every
// queued and in-flight request fails with err, or ErrAborted when err is
// nil, and completions arriving later from the transport are ignored.
// One Error (for a non-nil err before finish) and one Close notification
// fire. Later calls do nothing.
func (w *Writable) Destroy(err error) {
	w.mu.Lock()
	if w.state == StateDestroyed {
		w.mu.Unlock()
		return
	}
	wasFinished := w.state == StateFinished
	_ = w.transitionLocked("Destroy", StateDestroyed)
	w.err = err
	pending := make([]*vectored.Request, 0, len(w.inflight)+w.queue.Len())
	pending = append(pending, w.inflight...)
	pending = append(pending, w.queue.Drain()...)
	w.inflight = nil
	w.length = 0
	w.needDrain = false
	w.drainOwed = false
	cbs := w.finishCbs
	w.finishCbs = nil
	w.closeDoneLocked()
	close(w.drained)
	w.drained = make(chan struct{})
	w.mu.Unlock()

	w.logger.Debug("destroyed", zap.Error(err), zap.Int("pending", len(pending)))
	w.metrics.ObserveDestroy(w.name, kind)
	w.metrics.SetBuffered(w.name, kind, 0)

	failure := err
	if failure == nil {
		failure = gferrors.ErrAborted
	}
	for _, req := range pending {
		req.Complete(failure)
	}
	for _, cb := range cbs {
		cb(failure)
	}

	if w.config.Destroy != nil {
		w.config.Destroy(err)
	}

	handlers := w.handlers.Snapshot()
	w.handlers.Clear()
	if err != nil && !wasFinished {
		w.metrics.ObserveError(w.name, kind)
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

// Subscribe registers h.
func (w *Writable) Subscribe(h Handler) *Subscription {
	id := w.handlers.Add(h)
	return &Subscription{list: &w.handlers, id: id}
}

// SubscribeWritable is Subscribe under the name Duplex uses for its
// writable half, so both satisfy the same sink interfaces.
func (w *Writable) SubscribeWritable(h Handler) *Subscription {
	return w.Subscribe(h)
}

func (w *Writable) closeDoneLocked() {
	if !w.doneClosed {
		w.doneClosed = true
		close(w.done)
	}
}

// State returns the current lifecycle state.
func (w *Writable) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Buffered returns the queued plus in-flight size.
func (w *Writable) Buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.length
}

// NeedDrain reports whether the buffered size reached the mark and no
// Drain was emitted since.
func (w *Writable) NeedDrain() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.needDrain
}

// Corked returns the cork nesting depth.
func (w *Writable) Corked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.corked
}

// Finished is closed once the stream finished.
func (w *Writable) Finished() <-chan struct{} { return w.finished }

// Done is closed on the first terminal event: finish or destroy.
func (w *Writable) Done() <-chan struct{} { return w.done }

// Err returns the error the stream was destroyed with, if any.
func (w *Writable) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// HighWaterMark returns the effective buffer limit.
func (w *Writable) HighWaterMark() int { return w.config.HighWaterMark }

// Mode returns the stream mode.
func (w *Writable) Mode() chunk.Mode { return w.config.Mode }

// Vectored reports whether the transport accepts batched writes.
func (w *Writable) Vectored() bool { return w.writer.Vectored() }
