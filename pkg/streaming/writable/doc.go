/*
Package writable implements the producer-facing half of a stream.

A Writable accepts chunks with Write and hands them to a transport
through the dispatch contract of package vectored. Every write gets
exactly one callback: after the transport accepted the chunk, or with the
error that failed it.

	w := writable.New(handle, writable.DefaultConfig())
	if !w.Write(chunk.Bytes(p), onDone) {
		// wait for the Drain notification, or:
		_ = w.WaitDrain(ctx)
	}
	w.End(nil, onFinish)

Backpressure:

Write returns false once the queued plus in-flight size reaches the high
water mark. A Drain notification follows when everything written so far
has completed. Writing anyway is a protocol violation: it is logged at
warn level and counted, but the write is still accepted.

Batching:

Only one batch is in flight at a time. Writes issued meanwhile, or while
corked, accumulate and go out together; with a transport implementing
vectored.VectoredHandle a batch of several chunks is one Writev call whose
outcome is shared by every request in it.

	w.Cork()
	w.Write(header, nil)
	w.Write(body, nil)
	w.Uncork() // one Writev

Lifecycle:

End moves the stream from open to ending; once every write completed and
the optional Final hook succeeded it is finished. Destroy may happen at
any point: it rejects new writes, fails every pending request with the
destroy error (ErrAborted when none was given) and fires one Error and one
Close notification. A transport error destroys the stream with that error.

Writes after End fail with ErrWriteAfterEnd, writes after Destroy with
ErrWriteAfterDestroy; neither affects requests already queued.
*/
package writable
