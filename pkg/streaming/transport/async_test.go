package transport

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

// waitDone adapts a completion to a channel.
func waitDone() (func(error), <-chan error) {
	ch := make(chan error, 1)
	return func(err error) { ch <- err }, ch
}

func TestNewAsyncDefaults(t *testing.T) {
	a := NewAsync(testutil.NewMockWriter(), AsyncConfig{})
	defer a.Close()

	def := DefaultAsyncConfig()
	testutil.AssertEqual(t, a.config.QueueSize, def.QueueSize)
	testutil.AssertEqual(t, a.config.RetryDelay, def.RetryDelay)
	testutil.AssertEqual(t, a.IsClosed(), false)
}

func TestAsyncWriteBuffer(t *testing.T) {
	mw := testutil.NewMockWriter()
	a := NewAsync(mw, DefaultAsyncConfig())
	defer a.Close()

	done, ch := waitDone()
	a.WriteBuffer([]byte("hello"), done)
	testutil.AssertNoError(t, <-ch)
	testutil.AssertEqual(t, mw.String(), "hello")

	stats := a.Stats()
	testutil.AssertEqual(t, stats.WriteCount, int64(1))
	testutil.AssertEqual(t, stats.BytesWritten, int64(5))
}

func TestAsyncWritev(t *testing.T) {
	mw := testutil.NewMockWriter()
	a := NewAsync(mw, DefaultAsyncConfig())
	defer a.Close()

	done, ch := waitDone()
	a.Writev([]chunk.Chunk{
		chunk.Bytes([]byte("a")),
		chunk.Bytes(nil),
		chunk.Bytes([]byte("bc")),
	}, done)
	testutil.AssertNoError(t, <-ch)
	testutil.AssertEqual(t, mw.String(), "abc")
	testutil.AssertEqual(t, a.Stats().VectoredCount, int64(1))
}

func TestAsyncRetries(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	mw := testutil.NewMockWriter()
	mw.SetErrorOnNth(1)
	a := NewAsync(mw, AsyncConfig{MaxRetries: 2, RetryDelay: time.Millisecond, Name: "retry", Metrics: reg})
	defer a.Close()

	done, ch := waitDone()
	a.WriteBuffer([]byte("eventually"), done)
	testutil.AssertNoError(t, <-ch)
	testutil.AssertEqual(t, mw.String(), "eventually")
	testutil.AssertEqual(t, a.Stats().RetryCount, int64(1))
	testutil.AssertEqual(t, promtestutil.ToFloat64(reg.TransportRetries.WithLabelValues("retry")), 1.0)
}

func TestAsyncGivesUp(t *testing.T) {
	mw := testutil.NewMockWriter()
	mw.SetAlwaysError(testutil.ErrSimulated)

	var mu sync.Mutex
	var reported []error
	a := NewAsync(mw, AsyncConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		},
	})
	defer a.Close()

	done, ch := waitDone()
	a.WriteBuffer([]byte("never"), done)
	err := <-ch
	if !errors.Is(err, testutil.ErrSimulated) {
		t.Fatalf("got %v, want simulated error", err)
	}
	testutil.AssertEqual(t, a.Stats().ErrorCount, int64(1))
	mu.Lock()
	testutil.AssertEqual(t, len(reported), 1)
	mu.Unlock()
}

func TestAsyncCloseFlushesQueue(t *testing.T) {
	mw := testutil.NewMockWriter()
	mw.SetWriteDelay(time.Millisecond)
	a := NewAsync(mw, DefaultAsyncConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		a.WriteBuffer([]byte("x"), func(err error) {
			testutil.AssertNoError(t, err)
			wg.Done()
		})
	}
	testutil.AssertNoError(t, a.Close())
	wg.Wait()
	testutil.AssertEqual(t, mw.String(), strings.Repeat("x", 10))

	done, ch := waitDone()
	a.WriteBuffer([]byte("late"), done)
	if err := <-ch; !errors.Is(err, gferrors.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
	testutil.AssertNoError(t, a.Close())
}

func TestAsyncUnderWritable(t *testing.T) {
	mw := testutil.NewMockWriter()
	a := NewAsync(mw, DefaultAsyncConfig())
	defer a.Close()

	w := writable.New(a, writable.DefaultConfig())
	testutil.AssertEqual(t, w.Vectored(), true)

	w.Cork()
	w.Write(chunk.Bytes([]byte("GET / HTTP/1.1\r\n")), nil)
	w.WriteString("Host: example.com\r\n\r\n", "", nil)
	w.Uncork()
	w.End(nil, nil)

	testutil.WaitClosed(t, w.Finished())
	testutil.AssertEqual(t, mw.String(), "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	testutil.AssertEqual(t, a.Stats().VectoredCount, int64(1))
}
