/*
Package duplex provides streams that are readable and writable at once.

A Duplex holds one readable.Readable and one writable.Writable. Each half
keeps its own buffer, high water mark and mode; they share a single
destroyed flag, so destroying either half tears down both and the Destroy
hook runs once.

	d := duplex.New(conn, duplex.DefaultConfig())
	d.Subscribe(readable.Handler{Data: func(c chunk.Chunk) { ... }})
	d.Resume()
	d.Write(chunk.Bytes(req), nil)

With AllowHalfOpen false, the end of the readable half ends the writable
half. With AutoDestroy, the duplex is destroyed once its readable half
ended and its writable half finished.

# Transforms

A Transform computes its readable output from its writable input through a
Mapper. A write is acknowledged only when its output fits below the
readable mark or the consumer asks for more, so backpressure travels from
the reader back to the writer.

	upper := duplex.Map(func(c chunk.Chunk) (chunk.Chunk, error) {
		return chunk.Bytes(bytes.ToUpper(c.Data)), nil
	}, duplex.DefaultConfig())

Map, Filter, FlatMap, Peek, Skip, Limit and PassThrough cover the common
cases. Mappers that also implement Flusher emit trailing output when the
writable half ends.
*/
package duplex
