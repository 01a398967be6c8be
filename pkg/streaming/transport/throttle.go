package transport

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
)

// Limiter paces bytes. *rate.Limiter implements it.
type Limiter interface {
	WaitN(ctx context.Context, n int) error
	Burst() int
}

// Throttle wraps a Handle so that no more than a limiter's rate of bytes per
// second reaches it. Waiting happens off the caller's goroutine; completions
// keep their order because a stream has at most one call in flight.
type Throttle struct {
	next    vectored.Handle
	vector  vectored.VectoredHandle
	limiter Limiter
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewThrottle limits next to bytesPerSecond with the given burst. A burst
// of zero allows one second's worth of bytes at once.
func NewThrottle(next vectored.Handle, bytesPerSecond, burst int) *Throttle {
	if burst <= 0 {
		burst = bytesPerSecond
	}
	return NewThrottleWithLimiter(next, rate.NewLimiter(rate.Limit(bytesPerSecond), burst), nil)
}

// NewThrottleWithLimiter paces next with a caller-supplied limiter.
func NewThrottleWithLimiter(next vectored.Handle, limiter Limiter, logger *zap.Logger) *Throttle {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Throttle{
		next:    next,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "throttle")),
		ctx:     ctx,
		cancel:  cancel,
	}
	t.vector, _ = next.(vectored.VectoredHandle)
	return t
}

// WriteBuffer waits for len(p) tokens, then delegates.
func (t *Throttle) WriteBuffer(p []byte, done func(error)) {
	go func() {
		if err := t.wait(len(p)); err != nil {
			done(err)
			return
		}
		t.next.WriteBuffer(p, done)
	}()
}

// Writev waits for the batch size, then hands the batch to next as one
// Writev, or as one concatenated buffer when next cannot take vectors.
func (t *Throttle) Writev(chunks []chunk.Chunk, done func(error)) {
	size := 0
	for _, c := range chunks {
		size += len(c.Data)
	}
	go func() {
		if err := t.wait(size); err != nil {
			done(err)
			return
		}
		if t.vector != nil {
			t.vector.Writev(chunks, done)
			return
		}
		t.next.WriteBuffer(chunk.Concat(chunks).Data, done)
	}()
}

// wait takes n tokens in burst-sized steps; WaitN rejects more than a burst.
func (t *Throttle) wait(n int) error {
	burst := t.limiter.Burst()
	for n > 0 {
		step := n
		if burst > 0 && step > burst {
			step = burst
		}
		if err := t.limiter.WaitN(t.ctx, step); err != nil {
			t.logger.Debug("throttle wait aborted", zap.Error(err))
			return err
		}
		n -= step
	}
	return nil
}

// Close fails pending waits with context.Canceled.
func (t *Throttle) Close() error {
	t.cancel()
	return nil
}
