/*
Package readable implements the consumer-facing half of a stream.

A Readable sits between a producer and a consumer. The producer hands
chunks over with Push and signals the end of its data with PushEOF; the
consumer either pulls with Read, or subscribes and switches the stream to
flowing mode with Resume.

Backpressure:

The buffer is bounded by a high water mark, measured in bytes (byte mode)
or values (object mode). Push returns false once the buffered size reaches
the mark. A well behaved producer then stops and waits for its Read hook,
which the stream calls whenever the consumer wants more and the buffer is
below the mark:

	var r *readable.Readable
	r = readable.New(readable.Config{
		HighWaterMark: 16,
		Read: func(size int) {
			more, _ := r.Push(chunk.Bytes(next()))
			_ = more // stop producing on false until the next call
		},
	})

The hook is never called again before the producer answers the previous
call with Push or PushEOF, so it may answer asynchronously.

Paused and flowing:

A new Readable is paused. Read takes data out of the buffer:

	c, ok, err := r.Read(10)     // exactly 10 bytes, or nothing yet
	c, err = r.ReadContext(ctx, 0) // block until anything is buffered

Resume delivers buffered chunks to subscribers in push order before asking
the producer for more. A Pause issued from inside a Data handler stops the
delivery before the next chunk; handlers are never invoked reentrantly.

	sub := r.Subscribe(readable.Handler{
		Data: func(c chunk.Chunk) { ... },
		End:  func() { ... },
	})
	defer sub.Cancel()
	_ = r.Resume()

State:

The lifecycle is a closed set of states with explicit transitions:
paused and flowing alternate, either moves to ended once end of data has
been delivered, and any state moves to destroyed. Invalid transitions are
rejected with an error matching ErrInvalidTransition, or ErrDestroyed on a
destroyed stream.

Destroy:

Destroy is idempotent. It discards buffered data, runs the Destroy hook,
then fires at most one Error and exactly one Close notification. End and
error are mutually exclusive: a stream destroyed after it ended reports
no Error.

Adapters:

FromSlice, FromChannel and FromReader build readables over common
producers; AsReader and ReadAll consume a readable from plain Go code.
*/
package readable
