/*
Package flowio provides backpressure-aware byte and object streams for Go.

Streams (pkg/streaming):
  - chunk: the unit carried by streams, plus the FIFO buffer
  - readable: producer/consumer source with a high water mark
  - writable: ordered, corkable sink over a transport handle
  - vectored: batch dispatch to transports, single or vectored
  - encoding: string encodings for string chunks
  - duplex: independent read and write halves, and transforms
  - pipe: backpressure-aware links and pipelines
  - pair: two connected in-memory endpoints
  - transport: async io.Writer, throttling and Redis stream handles

Support:
  - config: YAML and environment configuration
  - metrics: Prometheus metrics for every component

Example usage:

	import (
		"github.com/vnykmshr/flowio/pkg/streaming/pipe"
		"github.com/vnykmshr/flowio/pkg/streaming/readable"
		"github.com/vnykmshr/flowio/pkg/streaming/transport"
		"github.com/vnykmshr/flowio/pkg/streaming/writable"
	)

	out := transport.NewAsync(conn, transport.DefaultAsyncConfig())
	defer out.Close()

	src := readable.FromReader(file, 32*1024, readable.DefaultConfig())
	dst := writable.New(out, writable.DefaultConfig())
	err := pipe.Pipeline(ctx, src, dst, nil)
*/
package flowio
