package pipe

import (
	"go.uber.org/zap"

	"github.com/vnykmshr/flowio/pkg/metrics"
)

// UnpipePolicy decides what happens to data still buffered in the source
// when a link is detached with Unpipe.
type UnpipePolicy int

const (
	// UnpipeDiscard drops the source's buffered chunks.
	UnpipeDiscard UnpipePolicy = iota
	// UnpipeFlush writes the source's buffered chunks to the sink first.
	// The flush ignores the sink's mark, which may need a drain afterwards.
	UnpipeFlush
	// UnpipeRetain leaves buffered chunks in the source for a later reader.
	UnpipeRetain
)

func (p UnpipePolicy) String() string {
	switch p {
	case UnpipeDiscard:
		return "discard"
	case UnpipeFlush:
		return "flush"
	case UnpipeRetain:
		return "retain"
	default:
		return "unknown"
	}
}

// options holds link configuration.
type options struct {
	end     bool
	unpipe  UnpipePolicy
	name    string
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures a Link.
type Option func(*options)

// WithEnd controls whether the sink is ended when the source ends.
//
// Default: true
func WithEnd(end bool) Option {
	return func(o *options) {
		o.end = end
	}
}

// WithUnpipePolicy sets what Unpipe does with undelivered source data.
//
// Default: UnpipeDiscard
func WithUnpipePolicy(p UnpipePolicy) Option {
	return func(o *options) {
		o.unpipe = p
	}
}

// WithName labels the link in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the link logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records link metrics into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}
