package redisstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.Redis = client
	cfg.Key = "stream:test"
	cfg.BlockTimeout = 20 * time.Millisecond
	return mr, cfg
}

func TestConfigValidate(t *testing.T) {
	err := DefaultConfig().Validate()
	assert.True(t, gferrors.IsValidationError(err))

	_, cfg := setupTestRedis(t)
	cfg.Key = ""
	_, err = NewSink(cfg)
	assert.True(t, gferrors.IsValidationError(err))
}

func TestSinkAppendsEntries(t *testing.T) {
	mr, cfg := setupTestRedis(t)
	w, err := NewWritable(cfg, writable.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, w.Vectored())

	w.Write(chunk.Bytes([]byte("first")), nil)
	w.Write(chunk.Bytes([]byte("second")), nil)
	w.End(nil, nil)
	testutil.WaitClosed(t, w.Finished())

	entries, err := mr.Stream(cfg.Key)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{DataField, "first"}, entries[0].Values)
	assert.Equal(t, []string{DataField, "second"}, entries[1].Values)
	assert.Equal(t, EOFField, entries[2].Values[0])
}

func TestCorkedBatchIsOneTransaction(t *testing.T) {
	mr, cfg := setupTestRedis(t)
	w, err := NewWritable(cfg, writable.DefaultConfig())
	require.NoError(t, err)

	w.Cork()
	for _, p := range []string{"a", "b", "c"} {
		w.Write(chunk.Bytes([]byte(p)), nil)
	}
	w.Uncork()
	w.End(nil, nil)
	testutil.WaitClosed(t, w.Finished())

	entries, err := mr.Stream(cfg.Key)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestSinkErrorDestroysWritable(t *testing.T) {
	mr, cfg := setupTestRedis(t)
	require.NoError(t, mr.Set(cfg.Key, "not a stream"))

	w, err := NewWritable(cfg, writable.DefaultConfig())
	require.NoError(t, err)
	cb := testutil.NewCallbackTracker()
	w.Write(chunk.Bytes([]byte("x")), cb.ErrFunc())

	testutil.WaitClosed(t, w.Done())
	var rerr *RedisError
	require.ErrorAs(t, cb.Err(), &rerr)
	assert.Equal(t, "XADD", rerr.Operation)
	assert.Equal(t, writable.StateDestroyed, w.State())
}

func TestRoundTrip(t *testing.T) {
	_, cfg := setupTestRedis(t)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	r, err := NewReadable(ctx, cfg, readable.DefaultConfig())
	require.NoError(t, err)

	w, err := NewWritable(cfg, writable.DefaultConfig())
	require.NoError(t, err)
	go func() {
		for _, p := range []string{"stream ", "through ", "redis"} {
			w.Write(chunk.Bytes([]byte(p)), nil)
		}
		w.End(nil, nil)
	}()

	out, err := r.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stream through redis", string(chunk.Concat(out).Data))
	testutil.WaitClosed(t, w.Finished())
}

func TestSourceRespectsMark(t *testing.T) {
	mr, cfg := setupTestRedis(t)
	for i := 0; i < 10; i++ {
		_, err := mr.XAdd(cfg.Key, "*", []string{DataField, "0123456789"})
		require.NoError(t, err)
	}
	_, err := mr.XAdd(cfg.Key, "*", []string{EOFField, "done"})
	require.NoError(t, err)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	r, err := NewReadable(ctx, cfg, readable.Config{HighWaterMark: 25})
	require.NoError(t, err)

	// a read triggers the first fetch, which stops at the mark
	_, _, err = r.Read(1)
	require.NoError(t, err)
	testutil.Eventually(t, func() bool { return r.Buffered() >= 25 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Less(t, r.Buffered(), 35)

	out, err := r.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, len(chunk.Concat(out).Data))
}

func TestSourceStopsOnDestroy(t *testing.T) {
	_, cfg := setupTestRedis(t)
	r, err := NewReadable(context.Background(), cfg, readable.DefaultConfig())
	require.NoError(t, err)

	_, _, err = r.Read(0)
	require.NoError(t, err)
	r.Destroy(nil)

	testutil.WaitClosed(t, r.Done())
	// the fetch goroutine notices the cancelled context within one block timeout
	time.Sleep(3 * cfg.BlockTimeout)
}

func TestRedisErrorTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("xadd: %w", context.DeadlineExceeded), true},
		{"net timeout", &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}, true},
		{"wrongtype", errors.New("WRONGTYPE Operation against a key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rerr := &RedisError{"XADD", tt.err}
			assert.Equal(t, tt.want, gferrors.IsRetryable(rerr))
			assert.ErrorIs(t, rerr, tt.err)
		})
	}
}
