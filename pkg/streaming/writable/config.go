package writable

import (
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/common/validation"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
	"github.com/vnykmshr/flowio/pkg/streaming/encoding"
)

const (
	// DefaultHighWaterMark is the byte-mode limit on queued plus in-flight data.
	DefaultHighWaterMark = 16 * 1024
	// DefaultObjectHighWaterMark is the object-mode limit, in values.
	DefaultObjectHighWaterMark = 16
)

// Config holds configuration options for a Writable.
type Config struct {
	// HighWaterMark is the queued plus in-flight size at which Write starts
	// returning false. Zero selects the default for Mode.
	HighWaterMark int

	// Mode fixes the stream to bytes or objects for its lifetime.
	Mode chunk.Mode

	// DecodeStrings converts string chunks to bytes on Write. When false,
	// strings reach the transport with their encoding and are dispatched
	// to the matching string method.
	// Default: true
	DecodeStrings bool

	// DefaultEncoding applies to WriteString calls without an encoding.
	// Default: utf8
	DefaultEncoding encoding.Encoding

	// Final runs once after the last write completed, before Finish.
	// An error passed to done destroys the stream.
	Final func(done func(error))

	// Destroy is called once when the stream is destroyed, after pending
	// writes were failed and before the Error and Close notifications.
	Destroy func(err error)

	// AutoDestroy destroys the stream right after Finish.
	AutoDestroy bool

	// Name labels logs and metrics. A random name is used when empty.
	Name string

	// Logger receives lifecycle logs and protocol warnings. Nil disables logging.
	Logger *zap.Logger

	// Metrics records stream metrics. Nil disables metrics.
	Metrics *metrics.Registry
}

// DefaultConfig returns a byte-mode configuration with the default mark.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:   DefaultHighWaterMark,
		Mode:            chunk.ModeBytes,
		DecodeStrings:   true,
		DefaultEncoding: encoding.Default,
	}
}

// Validate checks the configuration values that cannot be defaulted.
func (c Config) Validate() error {
	if err := validation.ValidateNonNegative(kind, "HighWaterMark", float64(c.HighWaterMark)); err != nil {
		return err
	}
	if c.Mode != chunk.ModeBytes && c.Mode != chunk.ModeObject {
		return gferrors.NewValidationError(kind, "Mode", uint8(c.Mode), "unknown mode").
			WithHint("use chunk.ModeBytes or chunk.ModeObject")
	}
	if c.DefaultEncoding != "" && !c.DefaultEncoding.Valid() {
		return gferrors.NewValidationError(kind, "DefaultEncoding", c.DefaultEncoding, "unknown encoding").
			WithHint("use utf8, latin1, ascii, ucs2, hex, base64 or buffer")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.HighWaterMark <= 0 {
		c.HighWaterMark = DefaultHighWaterMark
		if c.Mode == chunk.ModeObject {
			c.HighWaterMark = DefaultObjectHighWaterMark
		}
	}
	if c.DefaultEncoding == "" {
		c.DefaultEncoding = encoding.Default
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
