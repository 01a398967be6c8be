package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
	"github.com/vnykmshr/flowio/pkg/metrics"
)

// NewLogger builds the zap logger described by the log section.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, gferrors.NewValidationError(module, "log.level", c.Level, "unknown level")
	}

	var encoderConfig zapcore.EncoderConfig
	if c.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := c.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      c.Format == "console",
		Encoding:         c.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// NewMetrics returns the registry for the metrics section, registering on
// reg (the default registerer when nil). It is nil when metrics are off.
func (c MetricsConfig) NewMetrics(reg prometheus.Registerer) *metrics.Registry {
	mc := metrics.DefaultConfig()
	mc.Enabled = c.Enabled
	if c.Namespace != "" {
		mc.Namespace = c.Namespace
	}
	if reg != nil {
		mc.Registry = reg
	}
	return metrics.New(mc)
}
