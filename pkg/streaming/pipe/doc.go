/*
Package pipe connects readable sources to writable sinks with backpressure.

Pipe subscribes to both ends and relays every chunk the source delivers:

	link := pipe.Pipe(src, dst)
	<-link.Done()

When a write reports that the sink reached its high water mark the source
is paused before its next chunk, and resumed on the sink's drain. The sink
is ended when the source ends, unless WithEnd(false) is given. A failure on
either end destroys the other one and is reported by Link.Err.

Unpipe detaches a link early. What happens to chunks the source still
buffers is chosen with WithUnpipePolicy: they are discarded by default,
written to the sink with UnpipeFlush, or kept in the source with
UnpipeRetain.

Pipeline chains a source through transforms into a sink and waits for the
sink to finish. The first error, or the cancellation of the context,
destroys every stream in the chain.

	err := pipe.Pipeline(ctx, src, dst, []pipe.Stage{gzip, throttle})
*/
package pipe
