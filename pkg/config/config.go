package config

import (
	"time"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/common/validation"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
)

const module = "config"

// Config is the file configuration of a flowio process.
type Config struct {
	Log      LogConfig      `yaml:"log" env:"LOG"`
	Metrics  MetricsConfig  `yaml:"metrics" env:"METRICS"`
	Readable ReadableConfig `yaml:"readable" env:"READABLE"`
	Writable WritableConfig `yaml:"writable" env:"WRITABLE"`
	Pipe     PipeConfig     `yaml:"pipe" env:"PIPE"`
	Async    AsyncConfig    `yaml:"async" env:"ASYNC"`
	Throttle ThrottleConfig `yaml:"throttle" env:"THROTTLE"`
	Redis    RedisConfig    `yaml:"redis" env:"REDIS"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths as understood by zap.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// ReadableConfig mirrors the tunables of readable.Config.
type ReadableConfig struct {
	HighWaterMark int `yaml:"high_water_mark" env:"HIGH_WATER_MARK"`
	// Mode is bytes or object.
	Mode string `yaml:"mode" env:"MODE"`
}

// WritableConfig mirrors the tunables of writable.Config.
type WritableConfig struct {
	HighWaterMark   int    `yaml:"high_water_mark" env:"HIGH_WATER_MARK"`
	Mode            string `yaml:"mode" env:"MODE"`
	DecodeStrings   bool   `yaml:"decode_strings" env:"DECODE_STRINGS"`
	DefaultEncoding string `yaml:"default_encoding" env:"DEFAULT_ENCODING"`
	AutoDestroy     bool   `yaml:"auto_destroy" env:"AUTO_DESTROY"`
}

// PipeConfig holds link defaults.
type PipeConfig struct {
	End bool `yaml:"end" env:"END"`
	// Unpipe is discard, flush or retain.
	Unpipe string `yaml:"unpipe" env:"UNPIPE"`
}

// AsyncConfig mirrors transport.AsyncConfig.
type AsyncConfig struct {
	QueueSize  int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
}

// ThrottleConfig limits transport throughput. Zero BytesPerSecond disables it.
type ThrottleConfig struct {
	BytesPerSecond int `yaml:"bytes_per_second" env:"BYTES_PER_SECOND"`
	Burst          int `yaml:"burst" env:"BURST"`
}

// RedisConfig holds the connection and stream settings for redisstream.
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	Password     string        `yaml:"password" env:"PASSWORD"`
	DB           int           `yaml:"db" env:"DB"`
	Key          string        `yaml:"key" env:"KEY"`
	MaxLen       int64         `yaml:"max_len" env:"MAX_LEN"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	BlockTimeout time.Duration `yaml:"block_timeout" env:"BLOCK_TIMEOUT"`
	Count        int64         `yaml:"count" env:"COUNT"`
	StartID      string        `yaml:"start_id" env:"START_ID"`
}

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "flowio",
		},
		Readable: ReadableConfig{
			HighWaterMark: 16 * 1024,
			Mode:          "bytes",
		},
		Writable: WritableConfig{
			HighWaterMark:   16 * 1024,
			Mode:            "bytes",
			DecodeStrings:   true,
			DefaultEncoding: string(encoding.Default),
		},
		Pipe: PipeConfig{
			End:    true,
			Unpipe: "discard",
		},
		Async: AsyncConfig{
			QueueSize:  100,
			MaxRetries: 3,
			RetryDelay: 100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			Timeout:      500 * time.Millisecond,
			BlockTimeout: 100 * time.Millisecond,
			Count:        16,
			StartID:      "0",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.ValidateOneOf(module, "log.level", c.Log.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if err := validation.ValidateOneOf(module, "log.format", c.Log.Format, "json", "console"); err != nil {
		return err
	}

	if err := validation.ValidateNonNegative(module, "readable.high_water_mark", float64(c.Readable.HighWaterMark)); err != nil {
		return err
	}
	if _, err := parseMode("readable.mode", c.Readable.Mode); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "writable.high_water_mark", float64(c.Writable.HighWaterMark)); err != nil {
		return err
	}
	if _, err := parseMode("writable.mode", c.Writable.Mode); err != nil {
		return err
	}
	if _, err := encoding.Parse(c.Writable.DefaultEncoding); err != nil {
		return gferrors.NewValidationError(module, "writable.default_encoding", c.Writable.DefaultEncoding, "unknown encoding").
			WithHint("use utf8, latin1, ascii, ucs2, hex, base64 or buffer")
	}
	if _, err := parseUnpipe(c.Pipe.Unpipe); err != nil {
		return err
	}

	if err := validation.ValidatePositive(module, "async.queue_size", c.Async.QueueSize); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "async.max_retries", float64(c.Async.MaxRetries)); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "throttle.bytes_per_second", float64(c.Throttle.BytesPerSecond)); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "throttle.burst", float64(c.Throttle.Burst)); err != nil {
		return err
	}
	return validation.ValidateNonNegative(module, "redis.max_len", float64(c.Redis.MaxLen))
}
