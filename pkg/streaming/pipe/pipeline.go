package pipe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
)

// Stage is a stream in the middle of a pipeline, such as a duplex.Transform.
type Stage interface {
	Source
	Sink
}

// Pipeline pipes src through each stage, in order, into dst and waits until
// dst finished. The first failure, or the cancellation of ctx, destroys every
// stream in the chain and is returned.
func Pipeline(ctx context.Context, src Source, dst Sink, through []Stage, opts ...Option) error {
	sources := make([]Source, 0, len(through)+1)
	sinks := make([]Sink, 0, len(through)+1)
	sources = append(sources, src)
	for _, st := range through {
		sinks = append(sinks, st)
		sources = append(sources, st)
	}
	sinks = append(sinks, dst)

	destroyAll := func(err error) {
		src.Destroy(err)
		for _, st := range through {
			st.Destroy(err)
		}
		dst.Destroy(err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range sources {
		linkOpts := opts
		if len(sources) > 1 {
			linkOpts = append(append([]Option(nil), opts...), withIndex(i))
		}
		link := Pipe(sources[i], sinks[i], linkOpts...)
		g.Go(func() error {
			select {
			case <-link.Done():
				return link.result()
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		destroyAll(err)
		return err
	}
	return nil
}

// withIndex suffixes a configured link name with the link's position.
func withIndex(i int) Option {
	return func(o *options) {
		if o.name != "" {
			o.name = fmt.Sprintf("%s/%d", o.name, i)
		}
	}
}

// result is the link outcome as a pipeline sees it: a link that closed
// before its source ended cut the chain.
func (l *Link) result() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	if !l.ended {
		return gferrors.NewOperationError("pipe", "Pipeline", gferrors.ErrAborted).
			WithContext("link " + l.opts.name + " closed before its source ended")
	}
	return nil
}
