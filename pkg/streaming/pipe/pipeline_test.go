package pipe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/flowio/internal/testutil"
	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/duplex"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

func upper() *duplex.Transform {
	return duplex.Map(func(c chunk.Chunk) (chunk.Chunk, error) {
		return chunk.Bytes(bytes.ToUpper(c.Data)), nil
	}, duplex.DefaultConfig())
}

func TestPipelineThroughStages(t *testing.T) {
	h := testutil.NewMockHandle()
	h.SetAsync(true)
	src := readable.FromSlice(byteChunks("keep ", "drop ", "keep"), readable.DefaultConfig())
	drop := duplex.Filter(func(c chunk.Chunk) bool {
		return !bytes.HasPrefix(c.Data, []byte("drop"))
	}, duplex.DefaultConfig())
	dst := writable.New(h, writable.DefaultConfig())

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	err := Pipeline(ctx, src, dst, []Stage{drop, upper()}, WithName("chain"))
	require.NoError(t, err)
	assert.Equal(t, "KEEP KEEP", h.String())
	assert.Equal(t, writable.StateFinished, dst.State())
}

func TestPipelineDestroysEverythingOnFailure(t *testing.T) {
	bad := errors.New("mapper failed")
	src := readable.FromSlice(byteChunks("a", "b"), readable.DefaultConfig())
	failing := duplex.Map(func(c chunk.Chunk) (chunk.Chunk, error) {
		return c, bad
	}, duplex.DefaultConfig())
	pass := duplex.PassThrough(duplex.DefaultConfig())
	dst := writable.New(testutil.NewMockHandle(), writable.DefaultConfig())

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	err := Pipeline(ctx, src, dst, []Stage{failing, pass})
	require.ErrorIs(t, err, bad)

	assert.Equal(t, readable.StateDestroyed, src.State())
	assert.True(t, failing.Destroyed())
	assert.True(t, pass.Destroyed())
	assert.Equal(t, writable.StateDestroyed, dst.State())
}

func TestPipelineCancelled(t *testing.T) {
	src := readable.New(readable.DefaultConfig())
	dst := writable.New(testutil.NewMockHandle(), writable.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Pipeline(ctx, src, dst, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, readable.StateDestroyed, src.State())
	assert.ErrorIs(t, dst.Err(), context.DeadlineExceeded)
}

func TestPipelineUnpipedLinkAborts(t *testing.T) {
	src := readable.New(readable.DefaultConfig())
	dst := writable.New(testutil.NewMockHandle(), writable.DefaultConfig())

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	time.AfterFunc(10*time.Millisecond, func() { dst.Destroy(nil) })
	err := Pipeline(ctx, src, dst, nil)
	assert.ErrorIs(t, err, gferrors.ErrAborted)
	assert.Equal(t, readable.StateDestroyed, src.State())
}
