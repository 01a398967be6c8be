package writable

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vnykmshr/flowio/internal/testutil"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

// A producer that stops on false and resumes on Drain never pushes the
// buffered size past the mark plus one chunk, and callbacks fire in
// submission order.
func TestBackpressureBoundAndOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hwm := rapid.IntRange(1, 64).Draw(t, "hwm")
		h := testutil.NewMockHandle()
		h.SetHold(true)
		w := New(h, Config{HighWaterMark: hwm})

		drained := false
		w.Subscribe(Handler{Drain: func() { drained = true }})

		var order []int
		blocked := false
		maxChunk := 0
		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		next := 0
		for s := 0; s < steps; s++ {
			if blocked || rapid.Bool().Draw(t, "release") {
				h.ReleaseOne()
				if drained {
					blocked = false
					drained = false
				}
				continue
			}
			size := rapid.IntRange(1, 16).Draw(t, "size")
			if size > maxChunk {
				maxChunk = size
			}
			id := next
			next++
			ok := w.Write(chunk.Bytes(make([]byte, size)), func(err error) {
				if err != nil {
					t.Fatalf("write %d failed: %v", id, err)
				}
				order = append(order, id)
			})
			if w.Buffered() > hwm+maxChunk {
				t.Fatalf("buffered %d exceeds mark %d plus chunk %d", w.Buffered(), hwm, maxChunk)
			}
			if !ok {
				blocked = true
			}
		}
		h.Release()

		if len(order) != next {
			t.Fatalf("%d of %d callbacks fired", len(order), next)
		}
		for i, id := range order {
			if id != i {
				t.Fatalf("callback %d fired at position %d", id, i)
			}
		}
	})
}
