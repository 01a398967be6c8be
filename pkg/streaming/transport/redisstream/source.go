package redisstream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
)

// NewReadable creates a Readable fed from a Redis stream. Entries are read
// with XREAD only while the consumer wants data; the EOF marker ends the
// stream. The reader stops when ctx is done or the readable is destroyed.
// rconfig.Read is replaced.
func NewReadable(ctx context.Context, config Config, rconfig readable.Config) (*readable.Readable, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	logger := config.Logger.With(zap.String("component", "redisstream"), zap.String("key", config.Key))

	ctx, cancel := context.WithCancel(ctx)
	src := &source{config: config, logger: logger, ctx: ctx, cancel: cancel, lastID: config.StartID}

	if rconfig.Name == "" {
		rconfig.Name = config.Name
	}
	if rconfig.Logger == nil {
		rconfig.Logger = config.Logger
	}
	if rconfig.Metrics == nil {
		rconfig.Metrics = config.Metrics
	}
	rconfig.Read = func(int) { src.request() }
	hook := rconfig.Destroy
	rconfig.Destroy = func(err error) {
		cancel()
		if hook != nil {
			hook(err)
		}
	}
	src.r = readable.New(rconfig)
	return src.r, nil
}

// source runs at most one fetch goroutine; requests arriving while it runs
// are served by the same goroutine.
type source struct {
	config Config
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	r      *readable.Readable

	// owned by the fetch goroutine
	lastID string

	mu      sync.Mutex
	active  bool
	again   bool
	stopped bool
}

func (s *source) request() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.active {
		s.again = true
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()
	go s.run()
}

func (s *source) run() {
	for {
		more := s.fetch()

		s.mu.Lock()
		if !more {
			s.stopped = true
			s.cancel()
		}
		if s.stopped || !s.again {
			s.active = false
			s.again = false
			s.mu.Unlock()
			return
		}
		s.again = false
		s.mu.Unlock()
	}
}

// fetch reads until at least one entry was pushed. It reports false once
// end of data was seen or the reader has to stop.
func (s *source) fetch() bool {
	for {
		if err := s.ctx.Err(); err != nil {
			s.r.Destroy(err)
			return false
		}

		res, err := s.config.Redis.XRead(s.ctx, &redis.XReadArgs{
			Streams: []string{s.config.Key, s.lastID},
			Count:   s.config.Count,
			Block:   s.config.BlockTimeout,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if s.ctx.Err() != nil {
				s.r.Destroy(s.ctx.Err())
				return false
			}
			rerr := &RedisError{"XREAD", err}
			if gferrors.IsRetryable(rerr) {
				s.logger.Warn("xread timed out, retrying", zap.Error(err))
				continue
			}
			s.logger.Error("xread failed", zap.Error(err))
			s.r.Destroy(rerr)
			return false
		}

		pushed := false
		for _, stream := range res {
			for _, msg := range stream.Messages {
				s.lastID = msg.ID
				if _, ok := msg.Values[EOFField]; ok {
					_ = s.r.PushEOF()
					return false
				}
				p, err := entryBytes(msg)
				if err != nil {
					s.r.Destroy(err)
					return false
				}
				s.config.Metrics.ObserveTransportBytes(s.config.Name, len(p))
				// only a request made after the last push asks for more
				s.mu.Lock()
				s.again = false
				s.mu.Unlock()
				ok, err := s.r.Push(chunk.Bytes(p))
				if err != nil {
					return false
				}
				pushed = true
				if !ok {
					// the rest is read again on the next pull
					return true
				}
			}
		}
		if pushed {
			return true
		}
	}
}

func entryBytes(msg redis.XMessage) ([]byte, error) {
	switch v := msg.Values[DataField].(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, &RedisError{"XREAD", fmt.Errorf("entry %s has no %q field", msg.ID, DataField)}
	}
}
