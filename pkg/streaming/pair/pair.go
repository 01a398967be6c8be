package pair

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/duplex"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

// Config holds configuration for both endpoints of a pair.
type Config struct {
	// Readable and Writable configure each endpoint's halves. The Read,
	// Final and Destroy hooks are owned by the pair.
	Readable readable.Config
	Writable writable.Config

	// AllowHalfOpen keeps an endpoint writable after its peer ended.
	// DefaultConfig sets it; the zero Config leaves it false.
	AllowHalfOpen bool

	// Name prefixes the endpoint names. A random pair id is used when empty.
	Name string

	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// DefaultConfig returns a byte-mode, half-open configuration.
func DefaultConfig() Config {
	return Config{
		Readable:      readable.DefaultConfig(),
		Writable:      writable.DefaultConfig(),
		AllowHalfOpen: true,
	}
}

// arena holds the two endpoints. Endpoints refer to each other by slot so
// neither keeps the other alive once the arena is released.
type arena struct {
	id string

	mu   sync.Mutex
	ends [2]*Endpoint
	live int
}

func (a *arena) peer(side int) *Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ends[1-side]
}

// release drops the destroyed side; the arena is empty once both are gone.
func (a *arena) release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live--
	if a.live == 0 {
		a.ends = [2]*Endpoint{}
	}
}

// Endpoint is one side of an in-memory duplex pair. What it writes is read
// from its peer, and the other way round.
type Endpoint struct {
	*duplex.Duplex

	arena  *arena
	side   int
	logger *zap.Logger

	mu     sync.Mutex
	held   func(error)
	demand bool
}

// New creates two connected endpoints.
func New(config Config) (*Endpoint, *Endpoint) {
	a := &arena{id: config.Name, live: 2}
	if a.id == "" {
		a.id = "pair-" + uuid.NewString()[:8]
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for side := 0; side < 2; side++ {
		e := &Endpoint{
			arena: a,
			side:  side,
			logger: logger.With(zap.String("component", "pair"),
				zap.String("pair", a.id), zap.Int("side", side)),
		}

		dc := duplex.Config{
			Readable:      config.Readable,
			Writable:      config.Writable,
			AllowHalfOpen: config.AllowHalfOpen,
			Name:          endpointName(a.id, side),
			Logger:        config.Logger,
			Metrics:       config.Metrics,
			Destroy:       e.onDestroy,
		}
		dc.Readable.Read = e.produce
		dc.Readable.Destroy = nil
		dc.Writable.Final = e.final
		dc.Writable.Destroy = nil

		e.Duplex = duplex.New(e, dc)
		a.ends[side] = e
	}
	return a.ends[0], a.ends[1]
}

func endpointName(id string, side int) string {
	if side == 0 {
		return id + "/a"
	}
	return id + "/b"
}

// PairID returns the id shared by both endpoints.
func (e *Endpoint) PairID() string { return e.arena.id }

// Peer returns the other endpoint, or nil once the pair was released.
func (e *Endpoint) Peer() *Endpoint { return e.arena.peer(e.side) }

// WriteBuffer makes the endpoint the transport of its own writable half.
func (e *Endpoint) WriteBuffer(p []byte, done func(error)) {
	e.WriteChunk(chunk.Bytes(p), done)
}

// WriteChunk hands a copy of c to the peer's readable half. The write
// completes once the peer buffers it below its mark, or later when the
// peer's consumer asks for more.
func (e *Endpoint) WriteChunk(c chunk.Chunk, done func(error)) {
	if !c.IsObject() && c.Empty() {
		done(nil)
		return
	}
	peer := e.Peer()
	if peer == nil {
		done(gferrors.NewOperationError("pair", "Write", gferrors.ErrDestroyed))
		return
	}

	e.mu.Lock()
	e.demand = false
	e.mu.Unlock()

	ok, err := peer.Duplex.Push(c.Clone())
	if err != nil {
		done(err)
		return
	}

	e.mu.Lock()
	if ok || e.demand {
		e.demand = false
		e.mu.Unlock()
		done(nil)
		return
	}
	e.held = done
	e.mu.Unlock()
}

// produce is this endpoint's Read hook: its consumer wants data, so the
// peer's parked write may complete.
func (e *Endpoint) produce(int) {
	writer := e.Peer()
	if writer == nil {
		return
	}
	writer.mu.Lock()
	held := writer.held
	writer.held = nil
	if held == nil {
		writer.demand = true
	}
	writer.mu.Unlock()

	if held != nil {
		held(nil)
	}
}

// final delivers end of data to the peer once every write completed.
func (e *Endpoint) final(done func(error)) {
	peer := e.Peer()
	if peer == nil {
		done(gferrors.NewOperationError("pair", "End", gferrors.ErrDestroyed))
		return
	}
	done(peer.Duplex.PushEOF())
}

func (e *Endpoint) onDestroy(err error) {
	e.logger.Debug("endpoint destroyed", zap.Error(err))
	e.mu.Lock()
	e.held = nil
	e.mu.Unlock()

	if peer := e.Peer(); peer != nil {
		peer.Destroy(err)
	}
	e.arena.release()
}
