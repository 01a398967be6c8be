package duplex

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

// Config holds configuration options for a Duplex.
type Config struct {
	// Readable configures the readable half. Its Destroy hook is wrapped.
	Readable readable.Config

	// Writable configures the writable half. Its Destroy hook is wrapped.
	Writable writable.Config

	// AllowHalfOpen keeps the writable half open after the readable half
	// ended. When false, the end of the readable half ends the writable.
	// DefaultConfig sets it; the zero Config leaves it false.
	AllowHalfOpen bool

	// AutoDestroy destroys the duplex once the readable half ended and the
	// writable half finished.
	AutoDestroy bool

	// Destroy is called once when the duplex is destroyed.
	Destroy func(err error)

	// Name labels both halves in logs and metrics unless they are named.
	Name string

	// Logger and Metrics apply to halves that do not set their own.
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// DefaultConfig returns a half-open byte-mode configuration.
func DefaultConfig() Config {
	return Config{
		Readable:      readable.DefaultConfig(),
		Writable:      writable.DefaultConfig(),
		AllowHalfOpen: true,
	}
}

// Duplex pairs a readable and a writable half with independent marks and
// buffers. The halves share one destroyed flag: destroying either half, or
// the duplex, destroys both, once.
type Duplex struct {
	name   string
	logger *zap.Logger
	r      *readable.Readable
	w      *writable.Writable

	destroyed atomic.Bool
	onDestroy func(error)

	mu   sync.Mutex
	err  error
	done chan struct{}

	halves   sync.Mutex
	ended    bool
	finished bool
}

// New creates a Duplex whose writable half writes to h.
func New(h vectored.Handle, config Config) *Duplex {
	name := config.Name
	if name == "" {
		name = "duplex-" + uuid.NewString()[:8]
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Duplex{
		name:      name,
		logger:    logger.With(zap.String("component", "duplex"), zap.String("stream", name)),
		onDestroy: config.Destroy,
		done:      make(chan struct{}),
	}

	rc := config.Readable
	if rc.Name == "" {
		rc.Name = name + "/readable"
	}
	if rc.Logger == nil {
		rc.Logger = config.Logger
	}
	if rc.Metrics == nil {
		rc.Metrics = config.Metrics
	}
	rHook := rc.Destroy
	rc.Destroy = func(err error) {
		if rHook != nil {
			rHook(err)
		}
		d.Destroy(err)
	}

	wc := config.Writable
	if wc.Name == "" {
		wc.Name = name + "/writable"
	}
	if wc.Logger == nil {
		wc.Logger = config.Logger
	}
	if wc.Metrics == nil {
		wc.Metrics = config.Metrics
	}
	wHook := wc.Destroy
	wc.Destroy = func(err error) {
		if wHook != nil {
			wHook(err)
		}
		d.Destroy(err)
	}

	d.r = readable.New(rc)
	d.w = writable.New(h, wc)

	d.r.Subscribe(readable.Handler{End: func() {
		if !config.AllowHalfOpen {
			d.w.End(nil, nil)
		}
		if config.AutoDestroy && d.settle(true, false) {
			d.Destroy(nil)
		}
	}})
	if config.AutoDestroy {
		d.w.SubscribeWritable(writable.Handler{Finish: func() {
			if d.settle(false, true) {
				d.Destroy(nil)
			}
		}})
	}
	return d
}

// settle records the end of one half and reports whether both are done.
func (d *Duplex) settle(ended, finished bool) bool {
	d.halves.Lock()
	defer d.halves.Unlock()
	d.ended = d.ended || ended
	d.finished = d.finished || finished
	return d.ended && d.finished
}

// Destroy destroys both halves with err. Only the first call has an effect.
func (d *Duplex) Destroy(err error) {
	if !d.destroyed.CompareAndSwap(false, true) {
		return
	}
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()

	d.logger.Debug("destroying", zap.Error(err))
	d.r.Destroy(err)
	d.w.Destroy(err)
	if d.onDestroy != nil {
		d.onDestroy(err)
	}
	close(d.done)
}

// Name returns the duplex name.
func (d *Duplex) Name() string { return d.name }

// Readable returns the readable half.
func (d *Duplex) Readable() *readable.Readable { return d.r }

// Writable returns the writable half.
func (d *Duplex) Writable() *writable.Writable { return d.w }

// Done is closed once the duplex was destroyed.
func (d *Duplex) Done() <-chan struct{} { return d.done }

// Destroyed reports whether Destroy ran.
func (d *Duplex) Destroyed() bool { return d.destroyed.Load() }

// Err returns the error the duplex was destroyed with.
func (d *Duplex) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Readable side.

func (d *Duplex) Push(c chunk.Chunk) (bool, error) { return d.r.Push(c) }
func (d *Duplex) PushEOF() error                   { return d.r.PushEOF() }

func (d *Duplex) Read(n int) (chunk.Chunk, bool, error) { return d.r.Read(n) }

func (d *Duplex) ReadContext(ctx context.Context, n int) (chunk.Chunk, error) {
	return d.r.ReadContext(ctx, n)
}

// State returns the lifecycle state of the readable half.
func (d *Duplex) State() readable.State { return d.r.State() }

func (d *Duplex) Pause() error                { return d.r.Pause() }
func (d *Duplex) Resume() error               { return d.r.Resume() }
func (d *Duplex) TakeBuffered() []chunk.Chunk { return d.r.TakeBuffered() }

// Subscribe registers readable-side notifications.
func (d *Duplex) Subscribe(h readable.Handler) *readable.Subscription {
	return d.r.Subscribe(h)
}

// Writable side.

func (d *Duplex) Write(c chunk.Chunk, cb vectored.Callback) bool { return d.w.Write(c, cb) }

func (d *Duplex) WriteString(s string, enc encoding.Encoding, cb vectored.Callback) bool {
	return d.w.WriteString(s, enc, cb)
}

func (d *Duplex) WriteContext(ctx context.Context, c chunk.Chunk) error {
	return d.w.WriteContext(ctx, c)
}

func (d *Duplex) End(final *chunk.Chunk, cb vectored.Callback) { d.w.End(final, cb) }
func (d *Duplex) Cork()                                      { d.w.Cork() }
func (d *Duplex) Uncork()                                    { d.w.Uncork() }
func (d *Duplex) NeedDrain() bool                            { return d.w.NeedDrain() }
func (d *Duplex) WaitDrain(ctx context.Context) error        { return d.w.WaitDrain(ctx) }

// SubscribeWritable registers writable-side notifications.
func (d *Duplex) SubscribeWritable(h writable.Handler) *writable.Subscription {
	return d.w.SubscribeWritable(h)
}
