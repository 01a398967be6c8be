package pipe_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/pipe"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

func ExamplePipe() {
	src := readable.FromSlice([]chunk.Chunk{
		chunk.Bytes([]byte("alpha")),
		chunk.Bytes([]byte("beta")),
	}, readable.DefaultConfig())
	dst := writable.New(vectored.HandleFunc(func(c chunk.Chunk, done func(error)) {
		fmt.Println("sink got", c.Text())
		done(nil)
	}), writable.DefaultConfig())

	link := pipe.Pipe(src, dst)
	<-link.Done()
	fmt.Println("link error:", link.Err())

	// Output:
	// sink got alpha
	// sink got beta
	// link error: <nil>
}

func ExamplePipeline() {
	src := readable.FromSlice([]chunk.Chunk{chunk.Bytes([]byte("x"))}, readable.DefaultConfig())
	dst := writable.New(vectored.HandleFunc(func(c chunk.Chunk, done func(error)) {
		done(fmt.Errorf("disk full"))
	}), writable.DefaultConfig())

	err := pipe.Pipeline(context.Background(), src, dst, nil)
	fmt.Println(err)
	fmt.Println(src.State())

	// Output:
	// disk full
	// destroyed
}
