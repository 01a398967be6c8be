package readable

import (
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/common/validation"
	"github.com/vnykmshr/flowio/pkg/metrics"
	"github.com/vnykmshr/flowio/pkg/streaming/chunk"
)

const (
	// DefaultHighWaterMark is the byte-mode buffer limit.
	DefaultHighWaterMark = 16 * 1024
	// DefaultObjectHighWaterMark is the object-mode buffer limit, in values.
	DefaultObjectHighWaterMark = 16
)

// Config holds configuration options for a Readable.
type Config struct {
	// HighWaterMark is the buffered size at which Push starts returning false.
	// Bytes in byte mode, values in object mode. Zero selects the default.
	HighWaterMark int

	// Mode fixes the stream to bytes or objects for its lifetime.
	Mode chunk.Mode

	// Read is the producer hook. It is called with the suggested size when
	// the consumer wants more data and the buffer is below the mark. No
	// further call is made until the producer pushes (data or EOF).
	Read func(size int)

	// Destroy is called once when the stream is destroyed, before the
	// Error and Close notifications.
	Destroy func(err error)

	// Name labels logs and metrics. A random name is used when empty.
	Name string

	// Logger receives lifecycle logs. Nil disables logging.
	Logger *zap.Logger

	// Metrics records stream metrics. Nil disables metrics.
	Metrics *metrics.Registry
}

// DefaultConfig returns a byte-mode configuration with the default mark.
func DefaultConfig() Config {
	return Config{
		HighWaterMark: DefaultHighWaterMark,
		Mode:          chunk.ModeBytes,
	}
}

// Validate checks the configuration values that cannot be defaulted.
func (c Config) Validate() error {
	if err := validation.ValidateNonNegative("readable", "HighWaterMark", float64(c.HighWaterMark)); err != nil {
		return err
	}
	if c.Mode != chunk.ModeBytes && c.Mode != chunk.ModeObject {
		return gferrors.NewValidationError("readable", "Mode", uint8(c.Mode), "unknown mode").
			WithHint("use chunk.ModeBytes or chunk.ModeObject")
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
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
