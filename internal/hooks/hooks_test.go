package hooks

import (
	"testing"

	"github.com/vnykmshr/flowio/internal/testutil"
)

func TestListOrderAndRemove(t *testing.T) {
	var l List[string]
	a := l.Add("a")
	l.Add("b")
	c := l.Add("c")

	testutil.AssertEqual(t, l.Len(), 3)
	testutil.AssertEqual(t, l.Remove(a), true)
	testutil.AssertEqual(t, l.Remove(a), false)

	snap := l.Snapshot()
	testutil.AssertEqual(t, len(snap), 2)
	testutil.AssertEqual(t, snap[0], "b")
	testutil.AssertEqual(t, snap[1], "c")

	l.Remove(c)
	testutil.AssertEqual(t, l.Snapshot()[0], "b")
}

func TestSnapshotIsIndependent(t *testing.T) {
	var l List[int]
	l.Add(1)
	snap := l.Snapshot()
	l.Add(2)
	testutil.AssertEqual(t, len(snap), 1)

	l.Clear()
	testutil.AssertEqual(t, l.Len(), 0)
}
