package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// Stats holds statistics about an Async transport.
type Stats struct {
	// BytesWritten is the total number of bytes written.
	BytesWritten int64

	// WriteCount is the number of completed write calls, vectored or not.
	WriteCount int64

	// VectoredCount is the number of Writev calls among them.
	VectoredCount int64

	// RetryCount is the number of retried attempts.
	RetryCount int64

	// ErrorCount is the number of calls that failed after every retry.
	ErrorCount int64

	// TotalWriteTime is the total time spent writing.
	TotalWriteTime time.Duration

	// LastWriteTime is the timestamp of the last write.
	LastWriteTime time.Time
}

// AsyncConfig holds configuration options for Async.
type AsyncConfig struct {
	// QueueSize is the number of calls that may wait for the writer goroutine.
	// Default: 100
	QueueSize int

	// MaxRetries is the number of times to retry a failed write.
	// Default: 3
	MaxRetries int

	// RetryDelay is the delay between retries.
	// Default: 100ms
	RetryDelay time.Duration

	// OnError is called when a call fails after every retry.
	OnError func(error)

	Name    string
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// DefaultAsyncConfig returns a default configuration.
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		QueueSize:  100,
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// call is one queued transport call.
type call struct {
	bufs     net.Buffers
	vectored bool
	done     func(error)
}

// Async is a stream transport over an io.Writer. Calls are served in order
// by one background goroutine, with retries; Writev goes out through
// net.Buffers, a single writev(2) on sockets.
type Async struct {
	underlying io.Writer
	config     AsyncConfig
	logger     *zap.Logger

	calls chan call

	// senders hold mu.RLock while queueing; Close takes the write lock
	// before closing calls.
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats   Stats
	statsMu sync.RWMutex
}

// NewAsync starts an Async transport writing to w.
func NewAsync(w io.Writer, config AsyncConfig) *Async {
	def := DefaultAsyncConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.Name == "" {
		config.Name = "async"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		underlying: w,
		config:     config,
		logger:     logger.With(zap.String("component", "transport"), zap.String("transport", config.Name)),
		calls:      make(chan call, config.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	a.wg.Add(1)
	go a.writerLoop()
	return a
}

// WriteBuffer queues p. done runs on the writer goroutine.
func (a *Async) WriteBuffer(p []byte, done func(error)) {
	a.enqueue(call{bufs: net.Buffers{p}, done: done})
}

// Writev queues the chunks as one vectored write. The call succeeds or
// fails as a whole.
func (a *Async) Writev(chunks []chunk.Chunk, done func(error)) {
	bufs := make(net.Buffers, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Data) > 0 {
			bufs = append(bufs, c.Data)
		}
	}
	a.enqueue(call{bufs: bufs, vectored: true, done: done})
}

func (a *Async) enqueue(c call) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		c.done(gferrors.NewOperationError("transport", "Write", gferrors.ErrClosed))
		return
	}
	a.calls <- c
}

// Close stops accepting calls, waits for the queued ones to be written and
// stops the writer goroutine.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.calls)
	a.mu.Unlock()

	a.wg.Wait()
	a.cancel()
	return nil
}

// Abort stops the writer goroutine without waiting for a pending retry
// delay. Queued calls fail with ErrClosed.
func (a *Async) Abort() {
	a.cancel()
	_ = a.Close()
}

// IsClosed reports whether Close was called.
func (a *Async) IsClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// Stats returns a snapshot of the transport statistics.
func (a *Async) Stats() Stats {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return a.stats
}

func (a *Async) writerLoop() {
	defer a.wg.Done()

	for c := range a.calls {
		if a.ctx.Err() != nil {
			c.done(gferrors.NewOperationError("transport", "Write", gferrors.ErrClosed))
			continue
		}

		start := time.Now()
		n, err := a.writeWithRetries(c.bufs)
		duration := time.Since(start)

		a.updateStats(func(s *Stats) {
			s.WriteCount++
			s.BytesWritten += n
			s.TotalWriteTime += duration
			s.LastWriteTime = time.Now()
			if c.vectored {
				s.VectoredCount++
			}
			if err != nil {
				s.ErrorCount++
			}
		})
		a.config.Metrics.ObserveTransportBytes(a.config.Name, int(n))

		if err != nil {
			a.logger.Error("write failed", zap.Error(err), zap.Int64("written", n))
			if a.config.OnError != nil {
				a.config.OnError(err)
			}
		}
		c.done(err)
	}
}

// writeWithRetries writes every buffer, resuming after partial writes.
func (a *Async) writeWithRetries(bufs net.Buffers) (int64, error) {
	var total int64
	var lastErr error

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			a.updateStats(func(s *Stats) { s.RetryCount++ })
			a.config.Metrics.ObserveRetry(a.config.Name)
			select {
			case <-time.After(a.config.RetryDelay):
			case <-a.ctx.Done():
				return total, a.ctx.Err()
			}
		}

		// WriteTo consumes bufs as it goes.
		n, err := bufs.WriteTo(a.underlying)
		total += n
		if err != nil {
			lastErr = err
			continue
		}
		if len(bufs) == 0 {
			return total, nil
		}
	}
	return total, lastErr
}

func (a *Async) updateStats(updater func(*Stats)) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	updater(&a.stats)
}
