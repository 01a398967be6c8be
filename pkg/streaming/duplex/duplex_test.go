package duplex

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

func TestHalvesAreIndependent(t *testing.T) {
	h := testutil.NewMockHandle()
	cfg := DefaultConfig()
	cfg.Readable.HighWaterMark = 4
	cfg.Writable.HighWaterMark = 64
	d := New(h, cfg)

	ok, err := d.Push(chunk.Bytes([]byte("incoming")))
	require.NoError(t, err)
	assert.False(t, ok, "readable half is past its own mark")

	assert.True(t, d.Write(chunk.Bytes([]byte("outgoing")), nil))
	assert.Equal(t, "outgoing", h.String())

	c, ok, err := d.Read(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "incoming", string(c.Data))

	assert.Equal(t, 4, d.Readable().HighWaterMark())
	assert.Equal(t, 64, d.Writable().HighWaterMark())
	assert.Contains(t, d.Readable().Name(), d.Name())
}

func TestDestroyIsShared(t *testing.T) {
	tests := []struct {
		name    string
		destroy func(d *Duplex, err error)
	}{
		{"duplex", func(d *Duplex, err error) { d.Destroy(err) }},
		{"readable half", func(d *Duplex, err error) { d.Readable().Destroy(err) }},
		{"writable half", func(d *Duplex, err error) { d.Writable().Destroy(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hooks atomic.Int32
			cfg := DefaultConfig()
			cfg.Destroy = func(error) { hooks.Add(1) }
			d := New(testutil.NewMockHandle(), cfg)

			var rErrors, wErrors, closes atomic.Int32
			d.Subscribe(readable.Handler{
				Error: func(error) { rErrors.Add(1) },
				Close: func() { closes.Add(1) },
			})
			d.SubscribeWritable(writable.Handler{
				Error: func(error) { wErrors.Add(1) },
				Close: func() { closes.Add(1) },
			})

			boom := errors.New("boom")
			tt.destroy(d, boom)
			tt.destroy(d, errors.New("again"))
			d.Destroy(nil)

			testutil.WaitClosed(t, d.Done())
			assert.Equal(t, int32(1), hooks.Load())
			assert.Equal(t, int32(1), rErrors.Load())
			assert.Equal(t, int32(1), wErrors.Load())
			assert.Equal(t, int32(2), closes.Load())
			assert.ErrorIs(t, d.Err(), boom)
			assert.True(t, d.Destroyed())
			assert.Equal(t, readable.StateDestroyed, d.Readable().State())
			assert.Equal(t, writable.StateDestroyed, d.Writable().State())

			_, err := d.Push(chunk.Bytes([]byte("x")))
			assert.ErrorIs(t, err, gferrors.ErrDestroyed)
		})
	}
}

func TestTransportErrorDestroysBothHalves(t *testing.T) {
	h := testutil.NewMockHandle()
	h.SetAlwaysError(testutil.ErrSimulated)
	d := New(h, DefaultConfig())

	cb := testutil.NewCallbackTracker()
	d.Write(chunk.Bytes([]byte("x")), cb.ErrFunc())

	testutil.WaitClosed(t, d.Done())
	assert.ErrorIs(t, cb.Err(), testutil.ErrSimulated)
	assert.ErrorIs(t, d.Err(), testutil.ErrSimulated)
	assert.Equal(t, readable.StateDestroyed, d.Readable().State())
}

func TestHalfOpen(t *testing.T) {
	d := New(testutil.NewMockHandle(), DefaultConfig())
	require.NoError(t, d.PushEOF())
	require.NoError(t, d.Resume())

	testutil.WaitClosed(t, d.Readable().Ended())
	assert.Equal(t, writable.StateOpen, d.Writable().State())
	assert.True(t, d.Write(chunk.Bytes([]byte("still open")), nil))
}

func TestNotHalfOpenEndsWritable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowHalfOpen = false
	d := New(testutil.NewMockHandle(), cfg)

	require.NoError(t, d.PushEOF())
	require.NoError(t, d.Resume())

	testutil.WaitClosed(t, d.Writable().Finished())
	assert.False(t, d.Destroyed())
}

func TestZeroConfigIsNotHalfOpen(t *testing.T) {
	assert.True(t, DefaultConfig().AllowHalfOpen)

	d := New(testutil.NewMockHandle(), Config{})
	require.NoError(t, d.PushEOF())
	require.NoError(t, d.Resume())

	testutil.WaitClosed(t, d.Writable().Finished())
}

func TestAutoDestroyAfterBothHalves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoDestroy = true
	d := New(testutil.NewMockHandle(), cfg)

	d.End(nil, nil)
	testutil.WaitClosed(t, d.Writable().Finished())
	testutil.AssertOpen(t, d.Done())

	require.NoError(t, d.PushEOF())
	require.NoError(t, d.Resume())
	testutil.WaitClosed(t, d.Done())
	assert.NoError(t, d.Err())
}

func TestUserDestroyHooksAreKept(t *testing.T) {
	var rHook, wHook atomic.Int32
	cfg := DefaultConfig()
	cfg.Readable.Destroy = func(error) { rHook.Add(1) }
	cfg.Writable.Destroy = func(error) { wHook.Add(1) }
	d := New(testutil.NewMockHandle(), cfg)

	d.Destroy(nil)
	assert.Equal(t, int32(1), rHook.Load())
	assert.Equal(t, int32(1), wHook.Load())
}
