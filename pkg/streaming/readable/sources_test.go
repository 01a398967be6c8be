package readable

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

func texts(chunks []chunk.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text())
	}
	return b.String()
}

func TestFromSliceFlowing(t *testing.T) {
	r := FromSlice([]chunk.Chunk{
		chunk.Bytes([]byte("a")),
		chunk.Bytes([]byte("b")),
		chunk.Bytes([]byte("c")),
	}, Config{})

	var col collector
	r.Subscribe(col.handler())
	testutil.AssertNoError(t, r.Resume())
	testutil.WaitClosed(t, r.Ended())

	data, ends, _, _ := col.snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, data)
	testutil.AssertEqual(t, ends, 1)
}

func TestFromSliceReadAll(t *testing.T) {
	r := FromSlice([]chunk.Chunk{
		chunk.Object(1), chunk.Object(2), chunk.Object(3),
	}, Config{Mode: chunk.ModeObject, HighWaterMark: 1})

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	got, err := r.ReadAll(ctx)
	testutil.AssertNoError(t, err)
	require.Len(t, got, 3)
	testutil.AssertEqual(t, got[2].Value, any(3))
}

func TestFromSliceInvalidChunkDestroys(t *testing.T) {
	r := FromSlice([]chunk.Chunk{chunk.Object("nope")}, Config{})
	_, _, _ = r.Read(0)
	testutil.AssertEqual(t, r.State(), StateDestroyed)
	require.ErrorIs(t, r.Err(), gferrors.ErrInvalidChunk)
}

func TestFromChannel(t *testing.T) {
	ch := make(chan chunk.Chunk, 3)
	ch <- chunk.Bytes([]byte("x"))
	ch <- chunk.Bytes([]byte("y"))
	ch <- chunk.Bytes([]byte("z"))
	close(ch)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	r := FromChannel(ctx, ch, Config{})

	got, err := r.ReadAll(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, texts(got), "xyz")
}

func TestFromChannelCanceled(t *testing.T) {
	ch := make(chan chunk.Chunk)
	ctx, cancel := context.WithCancel(context.Background())
	r := FromChannel(ctx, ch, Config{})

	_, _, _ = r.Read(0)
	cancel()

	testutil.WaitClosed(t, r.Done())
	require.ErrorIs(t, r.Err(), context.Canceled)
}

func TestFromReader(t *testing.T) {
	r := FromReader(strings.NewReader("hello world"), 4, Config{})

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	got, err := r.ReadAll(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, texts(got), "hello world")
}

func TestFromReaderError(t *testing.T) {
	bad := errors.New("disk on fire")
	r := FromReader(iotest.ErrReader(bad), 4, Config{})

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	_, err := r.ReadAll(ctx)
	testutil.AssertEqual(t, gferrors.IsDestroyed(err), true)
	testutil.AssertEqual(t, r.Err(), bad)
}

func TestFromReaderDestroyClosesSource(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	r := FromReader(pr, 8, Config{})
	_, _, _ = r.Read(0)
	r.Destroy(nil)

	_, err := pw.Write([]byte("after close"))
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestAsReader(t *testing.T) {
	r := FromReader(iotest.OneByteReader(strings.NewReader("streamed bytes")), 3, Config{})

	out, err := io.ReadAll(r.AsReader())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(out), "streamed bytes")
}

func TestAsReaderSmallBuffer(t *testing.T) {
	r := New(Config{})
	_, _ = r.Push(chunk.Bytes([]byte("abcdef")))
	_ = r.PushEOF()

	rd := r.AsReader()
	p := make([]byte, 4)
	n, err := rd.Read(p)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(p[:n]), "abcd")

	n, _ = rd.Read(p)
	testutil.AssertEqual(t, string(p[:n]), "ef")

	_, err = rd.Read(p)
	testutil.AssertEqual(t, err, io.EOF)
}
