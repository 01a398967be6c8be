package testutil

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

func TestEventually(t *testing.T) {
	var flag atomic.Bool
	go func() {
		time.Sleep(20 * time.Millisecond)
		flag.Store(true)
	}()
	Eventually(t, flag.Load, time.Second, time.Millisecond)
}

func TestWaitForInt32(t *testing.T) {
	var n int32
	go func() {
		for i := 0; i < 5; i++ {
			atomic.AddInt32(&n, 1)
		}
	}()
	WaitForInt32(t, &n, 5, time.Second)
}

func TestWaitClosedAndAssertOpen(t *testing.T) {
	ch := make(chan struct{})
	AssertOpen(t, ch)
	close(ch)
	WaitClosed(t, ch)
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()
	tracker.AssertNotCalled(t)

	done := tracker.ErrFunc()
	done(ErrSimulated)
	tracker.AssertCallCount(t, 1)
	AssertEqual(t, tracker.Err(), ErrSimulated)

	tracker.Func()()
	tracker.AssertCalled(t)
	AssertEqual(t, tracker.CallCount(), 2)
	// Func marks without a value and keeps the last one
	AssertEqual(t, tracker.Err(), ErrSimulated)

	tracker.Reset()
	tracker.AssertNotCalled(t)
	AssertEqual(t, tracker.Value(), nil)
}

func TestCallbackTrackerConcurrent(t *testing.T) {
	tracker := NewCallbackTracker()
	const goroutines, calls = 10, 100

	done := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < calls; j++ {
				tracker.Mark()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
	tracker.AssertCallCount(t, goroutines*calls)
}

func TestMockHandleHoldAndRelease(t *testing.T) {
	h := NewMockHandle()
	h.SetHold(true)

	var order []int
	h.WriteBuffer([]byte("a"), func(error) { order = append(order, 1) })
	h.WriteBuffer([]byte("b"), func(error) { order = append(order, 2) })
	AssertEqual(t, h.Pending(), 2)
	AssertEqual(t, len(order), 0)

	AssertEqual(t, h.ReleaseOne(), true)
	AssertEqual(t, h.Release(), 1)
	AssertEqual(t, h.ReleaseOne(), false)
	AssertEqual(t, len(order), 2)
	AssertEqual(t, order[0], 1)
	AssertEqual(t, h.String(), "ab")
}

func TestMockHandleErrors(t *testing.T) {
	h := NewMockHandle()
	h.SetErrorOnNth(2)

	tracker := NewCallbackTracker()
	h.WriteBuffer([]byte("ok"), tracker.ErrFunc())
	AssertNoError(t, tracker.Err())
	h.WriteBuffer([]byte("lost"), tracker.ErrFunc())
	AssertEqual(t, tracker.Err(), ErrSimulated)
	AssertEqual(t, h.String(), "ok")

	boom := errors.New("boom")
	h.SetAlwaysError(boom)
	h.WriteBuffer([]byte("x"), tracker.ErrFunc())
	AssertEqual(t, tracker.Err(), boom)
	AssertEqual(t, h.CallCount(), 3)
}

func TestMockHandleAsync(t *testing.T) {
	h := NewMockHandle()
	h.SetAsync(true)

	done := make(chan struct{})
	h.WriteBuffer([]byte("later"), func(error) { close(done) })
	WaitClosed(t, done)
}

func TestMockVectoredHandle(t *testing.T) {
	h := NewMockVectoredHandle()
	tracker := NewCallbackTracker()
	h.Writev([]chunk.Chunk{chunk.Bytes([]byte("a")), chunk.Bytes([]byte("b"))}, tracker.ErrFunc())

	tracker.AssertCallCount(t, 1)
	AssertEqual(t, len(h.Batches()), 1)
	AssertEqual(t, len(h.Batches()[0]), 2)
	AssertEqual(t, h.Calls()[0], "writev")
	AssertEqual(t, h.String(), "ab")
}

func TestMockStringHandle(t *testing.T) {
	h := NewMockStringHandle()
	h.WriteLatin1String("café", func(error) {})
	AssertEqual(t, h.Calls()[0], "writeLatin1String")
}

func TestMockWriter(t *testing.T) {
	mw := NewMockWriter()
	mw.SetErrorOnNth(2)

	_, err := mw.Write([]byte("one"))
	AssertNoError(t, err)
	_, err = mw.Write([]byte("two"))
	AssertError(t, err)
	AssertEqual(t, mw.WriteCount(), 2)
	AssertEqual(t, mw.String(), "one")
}
