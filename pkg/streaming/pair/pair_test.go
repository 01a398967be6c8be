package pair

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
)

func TestEcho(t *testing.T) {
	a, b := New(DefaultConfig())
	assert.Equal(t, a.PairID(), b.PairID())
	assert.Same(t, b, a.Peer())

	// b echoes everything back
	b.Subscribe(readable.Handler{Data: func(c chunk.Chunk) {
		b.Write(c, nil)
	}})
	require.NoError(t, b.Resume())

	var got strings.Builder
	a.Subscribe(readable.Handler{Data: func(c chunk.Chunk) {
		got.Write(c.Data)
	}})
	require.NoError(t, a.Resume())

	cb := testutil.NewCallbackTracker()
	a.Write(chunk.Bytes([]byte("ping")), cb.ErrFunc())
	a.WriteString(" pong", "", nil)

	cb.AssertCalled(t)
	assert.NoError(t, cb.Err())
	assert.Equal(t, "ping pong", got.String())
}

func TestZeroLengthWriteLeavesPeerUntouched(t *testing.T) {
	a, b := New(DefaultConfig())
	var events atomic.Int32
	b.Subscribe(readable.Handler{Data: func(chunk.Chunk) { events.Add(1) }})
	require.NoError(t, b.Resume())

	cb := testutil.NewCallbackTracker()
	a.Write(chunk.Bytes(nil), cb.ErrFunc())

	cb.AssertCalled(t)
	assert.NoError(t, cb.Err())
	assert.Equal(t, int32(0), events.Load())
	assert.Equal(t, 0, b.Readable().Buffered())
}

func TestWritesCopyTheirBytes(t *testing.T) {
	a, b := New(DefaultConfig())
	p := []byte("original")
	a.Write(chunk.Bytes(p), nil)
	copy(p, "mutated!")

	c, ok, err := b.Read(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", string(c.Data))
}

func TestWriteCompletesWhenPeerPulls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Readable.HighWaterMark = 4
	a, b := New(cfg)

	var completed atomic.Int32
	for i := 0; i < 3; i++ {
		a.Write(chunk.Bytes([]byte("abcd")), func(err error) {
			require.NoError(t, err)
			completed.Add(1)
		})
	}
	assert.Equal(t, int32(0), completed.Load(), "peer is at its mark")
	assert.Equal(t, 4, b.Readable().Buffered())

	_, ok, err := b.Read(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, 4, b.Readable().Buffered())

	var total int
	b.Subscribe(readable.Handler{Data: func(c chunk.Chunk) { total += c.Len() }})
	require.NoError(t, b.Resume())
	assert.Equal(t, 8, total)
	assert.Equal(t, int32(3), completed.Load())
}

func TestEndReachesPeerAfterData(t *testing.T) {
	a, b := New(DefaultConfig())
	a.Write(chunk.Bytes([]byte("last words")), nil)
	a.End(nil, nil)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	out, err := b.Readable().ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last words", string(chunk.Concat(out).Data))

	// half open: b can still talk back
	assert.True(t, b.Write(chunk.Bytes([]byte("ack")), nil))
	c, ok, err := a.Read(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ack", string(c.Data))
}

func TestZeroConfigEndsBothWays(t *testing.T) {
	a, b := New(Config{})
	a.End(nil, nil)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	_, err := b.Readable().ReadAll(ctx)
	require.NoError(t, err)

	// not half open: b's writable follows its readable
	testutil.WaitClosed(t, b.Writable().Finished())
}

func TestDestroyPropagatesOnce(t *testing.T) {
	a, b := New(DefaultConfig())
	var aErrors, bErrors atomic.Int32
	a.Subscribe(readable.Handler{Error: func(error) { aErrors.Add(1) }})
	b.Subscribe(readable.Handler{Error: func(error) { bErrors.Add(1) }})

	boom := errors.New("connection reset")
	b.Destroy(boom)
	a.Destroy(errors.New("late"))

	testutil.WaitClosed(t, a.Done())
	testutil.WaitClosed(t, b.Done())
	assert.ErrorIs(t, a.Err(), boom)
	assert.ErrorIs(t, b.Err(), boom)
	assert.Equal(t, int32(1), aErrors.Load())
	assert.Equal(t, int32(1), bErrors.Load())
	assert.Nil(t, a.Peer())
	assert.Nil(t, b.Peer())
}

func TestPendingWriteFailsWhenPeerIsDestroyed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Readable.HighWaterMark = 1
	a, b := New(cfg)

	cb := testutil.NewCallbackTracker()
	a.Write(chunk.Bytes([]byte("stuck")), cb.ErrFunc())
	cb.AssertNotCalled(t)

	b.Destroy(nil)
	cb.AssertCalled(t)
	assert.ErrorIs(t, cb.Err(), gferrors.ErrAborted)
}
