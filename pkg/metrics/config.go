package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `yaml:"enabled"`

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer `yaml:"-"`

	// Namespace overrides the default "flowio" namespace for metrics.
	Namespace string `yaml:"namespace"`

	// Labels are additional labels to add to all metrics.
	Labels prometheus.Labels `yaml:"labels"`
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: defaultNamespace,
		Labels:    nil,
	}
}
