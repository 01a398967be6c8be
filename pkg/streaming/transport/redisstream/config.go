package redisstream

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/common/validation"
	"github.com/vnykmshr/flowio/pkg/metrics"
)

const (
	// DataField holds a chunk's bytes in a stream entry.
	DataField = "data"
	// EOFField marks the entry that ends the stream. Its value is a unique id.
	EOFField = "eof"
)

// Config holds configuration for Redis stream transports.
type Config struct {
	// Redis client used for every command.
	Redis redis.UniversalClient

	// Key is the Redis stream key.
	Key string

	// MaxLen caps the stream length with approximate trimming. Zero keeps
	// every entry.
	MaxLen int64

	// RedisTimeout bounds each write command.
	// Default: 500ms
	RedisTimeout time.Duration

	// BlockTimeout is how long one XREAD waits for new entries.
	// Default: 100ms
	BlockTimeout time.Duration

	// Count is the number of entries fetched per XREAD.
	// Default: 16
	Count int64

	// StartID is the id after which a source starts reading.
	// Default: "0", the beginning of the stream
	StartID string

	Name    string
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// DefaultConfig returns a configuration without client and key.
func DefaultConfig() Config {
	return Config{
		RedisTimeout: 500 * time.Millisecond,
		BlockTimeout: 100 * time.Millisecond,
		Count:        16,
		StartID:      "0",
	}
}

// Validate checks the fields that have no default.
func (c Config) Validate() error {
	if err := validation.ValidateNotNil("redisstream", "Redis", c.Redis); err != nil {
		return err
	}
	if c.Key == "" {
		return gferrors.NewValidationError("redisstream", "Key", c.Key, "stream key is required").
			WithHint("use one key per stream, e.g. \"uploads:42\"")
	}
	return validation.ValidateNonNegative("redisstream", "MaxLen", float64(c.MaxLen))
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RedisTimeout <= 0 {
		c.RedisTimeout = def.RedisTimeout
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = def.BlockTimeout
	}
	if c.Count <= 0 {
		c.Count = def.Count
	}
	if c.StartID == "" {
		c.StartID = def.StartID
	}
	if c.Name == "" {
		c.Name = "redis:" + c.Key
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// RedisError represents a failed Redis operation.
type RedisError struct {
	Operation string
	Err       error
}

func (e *RedisError) Error() string {
	return "redis " + e.Operation + " failed: " + e.Err.Error()
}

func (e *RedisError) Unwrap() error {
	return e.Err
}

// Is reports command and network timeouts as gferrors.ErrTimeout.
func (e *RedisError) Is(target error) bool {
	if target != gferrors.ErrTimeout {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}
