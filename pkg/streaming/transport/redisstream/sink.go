package redisstream

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

// Sink appends every chunk as one entry of a Redis stream. Commands run off
// the caller's goroutine.
type Sink struct {
	config Config
	logger *zap.Logger
}

// NewSink creates a Sink handle.
func NewSink(config Config) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	return &Sink{
		config: config,
		logger: config.Logger.With(zap.String("component", "redisstream"), zap.String("key", config.Key)),
	}, nil
}

// NewWritable creates a Writable on a Sink whose End appends the EOF
// marker after the last chunk.
func NewWritable(config Config, wconfig writable.Config) (*writable.Writable, error) {
	s, err := NewSink(config)
	if err != nil {
		return nil, err
	}
	wconfig.Final = s.Final
	if wconfig.Name == "" {
		wconfig.Name = s.config.Name
	}
	if wconfig.Logger == nil {
		wconfig.Logger = config.Logger
	}
	if wconfig.Metrics == nil {
		wconfig.Metrics = config.Metrics
	}
	return writable.New(s, wconfig), nil
}

func (s *Sink) addArgs(values map[string]interface{}) *redis.XAddArgs {
	args := &redis.XAddArgs{Stream: s.config.Key, Values: values}
	if s.config.MaxLen > 0 {
		args.MaxLen = s.config.MaxLen
		args.Approx = true
	}
	return args
}

// WriteBuffer appends p as one entry.
func (s *Sink) WriteBuffer(p []byte, done func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RedisTimeout)
		defer cancel()

		if err := s.config.Redis.XAdd(ctx, s.addArgs(map[string]interface{}{DataField: p})).Err(); err != nil {
			s.logger.Error("xadd failed", zap.Error(err))
			done(&RedisError{"XADD", err})
			return
		}
		s.config.Metrics.ObserveTransportBytes(s.config.Name, len(p))
		done(nil)
	}()
}

// Writev appends every chunk in one MULTI/EXEC transaction, so the batch
// lands or fails as a whole.
func (s *Sink) Writev(chunks []chunk.Chunk, done func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RedisTimeout)
		defer cancel()

		size := 0
		_, err := s.config.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range chunks {
				size += len(c.Data)
				pipe.XAdd(ctx, s.addArgs(map[string]interface{}{DataField: c.Data}))
			}
			return nil
		})
		if err != nil {
			s.logger.Error("xadd batch failed", zap.Error(err), zap.Int("chunks", len(chunks)))
			done(&RedisError{"MULTI XADD", err})
			return
		}
		s.config.Metrics.ObserveTransportBytes(s.config.Name, size)
		done(nil)
	}()
}

// Final appends the EOF marker. It is meant as a writable Final hook.
func (s *Sink) Final(done func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RedisTimeout)
		defer cancel()

		marker := uuid.NewString()
		if err := s.config.Redis.XAdd(ctx, s.addArgs(map[string]interface{}{EOFField: marker})).Err(); err != nil {
			done(&RedisError{"XADD eof", err})
			return
		}
		s.logger.Debug("end of stream written", zap.String("marker", marker))
		done(nil)
	}()
}
