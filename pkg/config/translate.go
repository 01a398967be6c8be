package config

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
	"github.com/vnykmshr/flowio/pkg/streaming/pipe"
	"github.com/vnykmshr/flowio/pkg/streaming/readable"
	"github.com/vnykmshr/flowio/pkg/streaming/transport"
	"github.com/vnykmshr/flowio/pkg/streaming/transport/redisstream"
	"github.com/vnykmshr/flowio/pkg/streaming/vectored"
	"github.com/vnykmshr/flowio/pkg/streaming/writable"
)

func parseMode(field, s string) (chunk.Mode, error) {
	switch s {
	case "", "bytes":
		return chunk.ModeBytes, nil
	case "object":
		return chunk.ModeObject, nil
	default:
		return 0, gferrors.NewValidationError(module, field, s, "unknown mode").
			WithHint("use bytes or object")
	}
}

func parseUnpipe(s string) (pipe.UnpipePolicy, error) {
	for _, p := range []pipe.UnpipePolicy{pipe.UnpipeDiscard, pipe.UnpipeFlush, pipe.UnpipeRetain} {
		if s == p.String() {
			return p, nil
		}
	}
	if s == "" {
		return pipe.UnpipeDiscard, nil
	}
	return 0, gferrors.NewValidationError(module, "pipe.unpipe", s, "unknown policy").
		WithHint("use discard, flush or retain")
}

// ReadableConfig returns a readable configuration without hooks.
func (c *Config) ReadableConfig(name string, logger *zap.Logger, reg *metrics.Registry) readable.Config {
	mode, _ := parseMode("readable.mode", c.Readable.Mode)
	return readable.Config{
		HighWaterMark: c.Readable.HighWaterMark,
		Mode:          mode,
		Name:          name,
		Logger:        logger,
		Metrics:       reg,
	}
}

// WritableConfig returns a writable configuration without hooks.
func (c *Config) WritableConfig(name string, logger *zap.Logger, reg *metrics.Registry) writable.Config {
	mode, _ := parseMode("writable.mode", c.Writable.Mode)
	enc, err := encoding.Parse(c.Writable.DefaultEncoding)
	if err != nil {
		enc = encoding.Default
	}
	return writable.Config{
		HighWaterMark:   c.Writable.HighWaterMark,
		Mode:            mode,
		DecodeStrings:   c.Writable.DecodeStrings,
		DefaultEncoding: enc,
		AutoDestroy:     c.Writable.AutoDestroy,
		Name:            name,
		Logger:          logger,
		Metrics:         reg,
	}
}

// PipeOptions returns link options for the pipe section.
func (c *Config) PipeOptions(logger *zap.Logger, reg *metrics.Registry) []pipe.Option {
	policy, _ := parseUnpipe(c.Pipe.Unpipe)
	return []pipe.Option{
		pipe.WithEnd(c.Pipe.End),
		pipe.WithUnpipePolicy(policy),
		pipe.WithLogger(logger),
		pipe.WithMetrics(reg),
	}
}

// AsyncConfig returns the configuration of an async transport.
func (c *Config) AsyncConfig(name string, logger *zap.Logger, reg *metrics.Registry) transport.AsyncConfig {
	return transport.AsyncConfig{
		QueueSize:  c.Async.QueueSize,
		MaxRetries: c.Async.MaxRetries,
		RetryDelay: c.Async.RetryDelay,
		Name:       name,
		Logger:     logger,
		Metrics:    reg,
	}
}

// WrapThrottle wraps next in a byte-rate limit, or returns next unchanged when
// the throttle section is off. A wrapped handle is an io.Closer.
func (c *Config) WrapThrottle(next vectored.Handle) vectored.Handle {
	if c.Throttle.BytesPerSecond <= 0 {
		return next
	}
	return transport.NewThrottle(next, c.Throttle.BytesPerSecond, c.Throttle.Burst)
}

// NewRedisClient connects to the configured server.
func (c *Config) NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// RedisStreamConfig returns a redisstream configuration using client.
func (c *Config) RedisStreamConfig(client redis.UniversalClient, logger *zap.Logger, reg *metrics.Registry) redisstream.Config {
	return redisstream.Config{
		Redis:        client,
		Key:          c.Redis.Key,
		MaxLen:       c.Redis.MaxLen,
		RedisTimeout: c.Redis.Timeout,
		BlockTimeout: c.Redis.BlockTimeout,
		Count:        c.Redis.Count,
		StartID:      c.Redis.StartID,
		Logger:       logger,
		Metrics:      reg,
	}
}
