/*
Package transport provides handles that connect writable streams to the
outside world.

Async serves an io.Writer from a background goroutine, retrying failed
writes. It implements Writev through net.Buffers, so a socket receives a
corked batch in one system call:

	conn, _ := net.Dial("tcp", addr)
	t := transport.NewAsync(conn, transport.DefaultAsyncConfig())
	defer t.Close()
	w := writable.New(t, writable.DefaultConfig())

Throttle wraps any handle and paces the bytes reaching it with a token
bucket from golang.org/x/time/rate:

	w := writable.New(transport.NewThrottle(t, 64*1024, 0), writable.DefaultConfig())

The redisstream subpackage stores a stream in a Redis stream key.
*/
package transport
