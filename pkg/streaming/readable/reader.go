package readable

import (
	"context"
	"errors"
	"io"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

type reader struct {
	r    *Readable
	rest []byte
}

// AsReader exposes a paused byte-mode Readable as an io.Reader. Read blocks
// until data arrives and returns io.EOF once the stream ended.
func (r *Readable) AsReader() io.Reader {
	return &reader{r: r}
}

func (rd *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(rd.rest) == 0 {
		c, err := rd.r.ReadContext(context.Background(), 0)
		if err != nil {
			return 0, err
		}
		if c.IsObject() {
			return 0, gferrors.NewOperationError(kind, "AsReader", gferrors.ErrInvalidChunk)
		}
		rd.rest = c.Data
	}
	n := copy(p, rd.rest)
	rd.rest = rd.rest[n:]
	return n, nil
}

// ReadAll consumes the stream until it ends and returns every chunk read.
func (r *Readable) ReadAll(ctx context.Context) ([]chunk.Chunk, error) {
	var out []chunk.Chunk
	for {
		c, err := r.ReadContext(ctx, 0)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}
