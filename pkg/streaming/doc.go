/*
Package streaming groups the flowio stream packages.

A stream moves chunks, either byte slices or arbitrary values, from a
producer to a consumer while keeping memory bounded. Each side has a high
water mark: a readable's Push and a writable's Write return false once
the mark is reached, and the other side signals when to continue (the
Read hook and the Drain event).

  - chunk: Chunk and Queue
  - readable: the source side
  - writable: the sink side, with cork/uncork batching
  - vectored: how a writable's batch reaches a transport handle
  - encoding: utf8, latin1, ascii, ucs2, hex and base64 conversions
  - duplex: a readable and a writable behind one handle; Transform
  - pipe: Pipe links and Pipeline chains
  - pair: in-memory connected duplex endpoints
  - transport: handles over io.Writer, rate limits and Redis streams

Basic usage:

	upper := duplex.Map(func(c chunk.Chunk) (chunk.Chunk, error) {
		return chunk.Bytes(bytes.ToUpper(c.Data)), nil
	}, duplex.DefaultConfig())

	err := pipe.Pipeline(ctx, src, dst, []pipe.Stage{upper})

Every stream is destroyed exactly once; Destroy is the cancellation
primitive and the error it is given is reported to subscribers.
*/
package streaming
