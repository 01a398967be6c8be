// Package metrics provides Prometheus instrumentation for flowio components.
//
// Streams, pipe links and transports accept an optional *Registry. A nil
// registry disables instrumentation without any branching at call sites:
// every recording helper is nil-safe.
//
// # Quick Start
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//
//	w := writable.New(handle, writable.Config{
//		Name:    "upload",
//		Metrics: reg,
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Available Metrics
//
// ## Streams
//
//   - flowio_stream_chunks_total{stream_name, operation}: chunks pushed, read, written
//   - flowio_stream_bytes_total{stream_name, operation}: bytes for the same operations
//   - flowio_stream_buffered{stream_name, kind}: current buffered size per half
//   - flowio_stream_errors_total{stream_name, kind}
//   - flowio_stream_destroyed_total{stream_name, kind}
//   - flowio_stream_state_transitions_total{stream_name, kind, to}
//
// ## Backpressure
//
//   - flowio_backpressure_events_total{stream_name, kind}: push/write returned false
//   - flowio_backpressure_violations_total{stream_name}: write while a drain was owed
//   - flowio_backpressure_drains_total{stream_name}
//
// ## Write dispatch
//
//   - flowio_writer_batches_total{stream_name, mode}: mode is "vectored" or "sequential"
//   - flowio_writer_batch_size{stream_name, mode}
//   - flowio_writer_batch_duration_seconds{stream_name, mode}
//
// ## Pipes and transports
//
//   - flowio_pipe_links_active{pipe_name}
//   - flowio_pipe_chunks_relayed_total{pipe_name}
//   - flowio_pipe_pauses_total{pipe_name}
//   - flowio_transport_retries_total{transport_name}
//   - flowio_transport_bytes_written_total{transport_name}
//
// # Configuration
//
//	reg := metrics.New(metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",                        // Override default "flowio"
//		Labels:    prometheus.Labels{"version": "1.0"}, // Additional constant labels
//	})
package metrics
