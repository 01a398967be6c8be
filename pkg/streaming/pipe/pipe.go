package pipe

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

// Source is the readable end of a link. *readable.Readable, *duplex.Duplex
// and *duplex.Transform implement it.
type Source interface {
	Subscribe(h readable.Handler) *readable.Subscription
	Pause() error
	Resume() error
	Destroy(err error)
	TakeBuffered() []chunk.Chunk
	State() readable.State
	Err() error
}

// Sink is the writable end of a link. *writable.Writable, *duplex.Duplex
// and *duplex.Transform implement it.
type Sink interface {
	Write(c chunk.Chunk, cb vectored.Callback) bool
	End(final *chunk.Chunk, cb vectored.Callback)
	Destroy(err error)
	NeedDrain() bool
	SubscribeWritable(h writable.Handler) *writable.Subscription
}

// Link relays chunks from a source to a sink, pausing the source while the
// sink is over its mark.
type Link struct {
	src     Source
	dst     Sink
	opts    options
	logger  *zap.Logger
	metrics *metrics.Registry

	srcSub *readable.Subscription
	dstSub *writable.Subscription

	mu     sync.Mutex
	paused bool
	ended  bool
	closed bool
	err    error
	done   chan struct{}
}

// Pipe connects src to dst and starts the flow. When dst already needs a
// drain the source stays paused until it drains.
func Pipe(src Source, dst Sink, opts ...Option) *Link {
	o := options{end: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = "pipe-" + uuid.NewString()[:8]
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Link{
		src:     src,
		dst:     dst,
		opts:    o,
		logger:  logger.With(zap.String("component", "pipe"), zap.String("stream", o.name)),
		metrics: o.metrics,
		done:    make(chan struct{}),
	}
	l.metrics.LinkOpened(o.name)

	l.dstSub = dst.SubscribeWritable(writable.Handler{
		Drain:  l.onDrain,
		Finish: func() { l.finish(nil) },
		Error:  l.onSinkError,
		Close:  func() { l.finish(nil) },
	})
	l.srcSub = src.Subscribe(readable.Handler{
		Data:  l.onData,
		End:   l.onEnd,
		Error: l.onSourceError,
		Close: func() { l.finish(nil) },
	})

	// a source that finished before the link existed fired its events
	// to nobody
	switch src.State() {
	case readable.StateEnded:
		l.logger.Debug("source already ended")
		l.onEnd()
		return l
	case readable.StateDestroyed:
		l.onDestroyedSource()
		return l
	}

	l.mu.Lock()
	l.paused = dst.NeedDrain()
	paused := l.paused
	l.mu.Unlock()
	if paused {
		l.metrics.ObservePipePause(o.name)
		l.logger.Debug("sink needs drain, starting paused")
		return l
	}
	if err := src.Resume(); err != nil {
		l.logger.Debug("source cannot flow", zap.Error(err))
	}
	return l
}

func (l *Link) onData(c chunk.Chunk) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	ok := l.dst.Write(c, nil)
	l.metrics.ObserveRelay(l.opts.name)
	if ok {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	wasPaused := l.paused
	l.paused = true
	l.mu.Unlock()

	if !wasPaused {
		l.metrics.ObservePipePause(l.opts.name)
	}
	_ = l.src.Pause()

	// A sink completing on another goroutine may have drained before the
	// pause, and onDrain then had nothing to resume.
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	if l.dst.NeedDrain() {
		l.paused = true
		l.mu.Unlock()
		return
	}
	l.paused = false
	l.mu.Unlock()

	_ = l.src.Resume()
}

func (l *Link) onDrain() {
	l.mu.Lock()
	if !l.paused || l.closed {
		l.mu.Unlock()
		return
	}
	l.paused = false
	l.mu.Unlock()

	_ = l.src.Resume()
}

func (l *Link) onEnd() {
	l.mu.Lock()
	if l.ended || l.closed {
		l.mu.Unlock()
		return
	}
	l.ended = true
	l.mu.Unlock()

	if !l.opts.end {
		l.finish(nil)
		return
	}
	l.dst.End(nil, l.finish)
}

func (l *Link) onSourceError(err error) {
	l.logger.Debug("source failed", zap.Error(err))
	l.dst.Destroy(err)
	l.finish(err)
}

// onDestroyedSource closes a link whose source was destroyed before Pipe.
func (l *Link) onDestroyedSource() {
	if err := l.src.Err(); err != nil {
		l.onSourceError(err)
		return
	}
	l.finish(gferrors.NewOperationError("pipe", "Pipe", gferrors.ErrDestroyed).
		WithContext("source " + l.opts.name + " was destroyed before piping"))
}

func (l *Link) onSinkError(err error) {
	l.logger.Debug("sink failed", zap.Error(err))
	l.src.Destroy(err)
	l.finish(err)
}

// finish detaches the link once. A source that did not end is paused so
// that it stops flowing into nobody.
func (l *Link) finish(err error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.err = err
	ended := l.ended
	close(l.done)
	l.mu.Unlock()

	l.srcSub.Cancel()
	l.dstSub.Cancel()
	if !ended {
		_ = l.src.Pause()
	}
	l.metrics.LinkClosed(l.opts.name)
	l.logger.Debug("link closed", zap.Error(err))
}

// Unpipe detaches the link. Chunks still buffered in the source are
// handled according to the link's UnpipePolicy. UnpipeFlush hands every
// buffered chunk to the sink regardless of its mark; check NeedDrain
// before writing more. Calling it on a closed link does nothing.
func (l *Link) Unpipe() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	_ = l.src.Pause()
	switch l.opts.unpipe {
	case UnpipeDiscard:
		dropped := l.src.TakeBuffered()
		if len(dropped) > 0 {
			l.logger.Debug("unpipe dropped buffered chunks", zap.Int("chunks", len(dropped)))
		}
	case UnpipeFlush:
		for _, c := range l.src.TakeBuffered() {
			l.dst.Write(c, nil)
			l.metrics.ObserveRelay(l.opts.name)
		}
	case UnpipeRetain:
	}
	l.finish(nil)
}

// Done is closed once the link is detached.
func (l *Link) Done() <-chan struct{} { return l.done }

// Err returns the error that closed the link, if any.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Name returns the link name.
func (l *Link) Name() string { return l.opts.name }
