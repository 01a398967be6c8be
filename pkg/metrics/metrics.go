package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "flowio"

// Registry holds all metric instances for flowio components.
// A nil *Registry is valid and records nothing.
type Registry struct {
	// Stream Metrics
	StreamChunks           *prometheus.CounterVec
	StreamBytes            *prometheus.CounterVec
	StreamBuffered         *prometheus.GaugeVec
	StreamErrors           *prometheus.CounterVec
	StreamDestroyed        *prometheus.CounterVec
	StateTransitions       *prometheus.CounterVec
	BackpressureEvents     *prometheus.CounterVec
	BackpressureViolations *prometheus.CounterVec
	DrainEvents            *prometheus.CounterVec

	// Write Dispatch Metrics
	WriteBatches   *prometheus.CounterVec
	WriteBatchSize *prometheus.HistogramVec
	WriteDuration  *prometheus.HistogramVec

	// Pipe Metrics
	PipeLinksActive *prometheus.GaugeVec
	PipeChunks      *prometheus.CounterVec
	PipePauses      *prometheus.CounterVec

	// Transport Metrics
	TransportRetries      *prometheus.CounterVec
	TransportBytesWritten *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by flowio components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, defaultNamespace)
}

// New builds a registry from config. It returns nil when metrics are disabled.
func New(config Config) *Registry {
	if !config.Enabled {
		return nil
	}
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(config.Labels) > 0 {
		reg = prometheus.WrapRegistererWith(config.Labels, reg)
	}
	ns := config.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	// The default registerer already carries DefaultRegistry's collectors.
	if reg == prometheus.DefaultRegisterer && ns == defaultNamespace {
		return DefaultRegistry
	}
	return newRegistry(reg, ns)
}

func newRegistry(reg prometheus.Registerer, ns string) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Stream Metrics
		StreamChunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "chunks_total",
				Help:      "Total number of chunks moved through streams",
			},
			[]string{"stream_name", "operation"},
		),

		StreamBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "bytes_total",
				Help:      "Total number of bytes moved through streams",
			},
			[]string{"stream_name", "operation"},
		),

		StreamBuffered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "buffered",
				Help:      "Current buffered size (bytes or objects) per stream half",
			},
			[]string{"stream_name", "kind"},
		),

		StreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "errors_total",
				Help:      "Total number of stream errors",
			},
			[]string{"stream_name", "kind"},
		),

		StreamDestroyed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "destroyed_total",
				Help:      "Total number of destroyed stream halves",
			},
			[]string{"stream_name", "kind"},
		),

		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "stream",
				Name:      "state_transitions_total",
				Help:      "Total number of stream state transitions",
			},
			[]string{"stream_name", "kind", "to"},
		),

		BackpressureEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "backpressure",
				Name:      "events_total",
				Help:      "Total number of push/write calls that reached the high water mark",
			},
			[]string{"stream_name", "kind"},
		),

		BackpressureViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "backpressure",
				Name:      "violations_total",
				Help:      "Total number of writes issued while a drain was pending",
			},
			[]string{"stream_name"},
		),

		DrainEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "backpressure",
				Name:      "drains_total",
				Help:      "Total number of drain signals",
			},
			[]string{"stream_name"},
		),

		// Write Dispatch Metrics
		WriteBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "writer",
				Name:      "batches_total",
				Help:      "Total number of dispatched write batches",
			},
			[]string{"stream_name", "mode"},
		),

		WriteBatchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "writer",
				Name:      "batch_size",
				Help:      "Number of write requests per dispatched batch",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
			[]string{"stream_name", "mode"},
		),

		WriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "writer",
				Name:      "batch_duration_seconds",
				Help:      "Time from batch dispatch to transport completion",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stream_name", "mode"},
		),

		// Pipe Metrics
		PipeLinksActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "pipe",
				Name:      "links_active",
				Help:      "Number of active pipe links",
			},
			[]string{"pipe_name"},
		),

		PipeChunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "pipe",
				Name:      "chunks_relayed_total",
				Help:      "Total number of chunks relayed by pipe links",
			},
			[]string{"pipe_name"},
		),

		PipePauses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "pipe",
				Name:      "pauses_total",
				Help:      "Total number of source pauses caused by sink backpressure",
			},
			[]string{"pipe_name"},
		),

		// Transport Metrics
		TransportRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "transport",
				Name:      "retries_total",
				Help:      "Total number of retried transport writes",
			},
			[]string{"transport_name"},
		),

		TransportBytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "transport",
				Name:      "bytes_written_total",
				Help:      "Total bytes handed to the underlying transport",
			},
			[]string{"transport_name"},
		),
	}
}
