package metrics

import "time"

// The helpers below are nil-safe so components can hold a *Registry that is
// nil when instrumentation is off.

// ObserveChunk counts one chunk of the given size for a stream operation.
func (r *Registry) ObserveChunk(stream, operation string, size int) {
	if r == nil {
		return
	}
	r.StreamChunks.WithLabelValues(stream, operation).Inc()
	if size > 0 {
		r.StreamBytes.WithLabelValues(stream, operation).Add(float64(size))
	}
}

// SetBuffered records the buffered size of a stream half.
func (r *Registry) SetBuffered(stream, kind string, size int) {
	if r == nil {
		return
	}
	r.StreamBuffered.WithLabelValues(stream, kind).Set(float64(size))
}

// ObserveTransition counts a state change of a stream half.
func (r *Registry) ObserveTransition(stream, kind, to string) {
	if r == nil {
		return
	}
	r.StateTransitions.WithLabelValues(stream, kind, to).Inc()
}

// ObserveBackpressure counts a push or write that reached the high water mark.
func (r *Registry) ObserveBackpressure(stream, kind string) {
	if r == nil {
		return
	}
	r.BackpressureEvents.WithLabelValues(stream, kind).Inc()
}

// ObserveViolation counts a write issued while a drain was owed.
func (r *Registry) ObserveViolation(stream string) {
	if r == nil {
		return
	}
	r.BackpressureViolations.WithLabelValues(stream).Inc()
}

// ObserveDrain counts a drain signal.
func (r *Registry) ObserveDrain(stream string) {
	if r == nil {
		return
	}
	r.DrainEvents.WithLabelValues(stream).Inc()
}

// ObserveError counts a stream error.
func (r *Registry) ObserveError(stream, kind string) {
	if r == nil {
		return
	}
	r.StreamErrors.WithLabelValues(stream, kind).Inc()
}

// ObserveDestroy counts a destroyed stream half.
func (r *Registry) ObserveDestroy(stream, kind string) {
	if r == nil {
		return
	}
	r.StreamDestroyed.WithLabelValues(stream, kind).Inc()
}

// ObserveBatch records a completed write batch.
func (r *Registry) ObserveBatch(stream, mode string, size int, took time.Duration) {
	if r == nil {
		return
	}
	r.WriteBatches.WithLabelValues(stream, mode).Inc()
	r.WriteBatchSize.WithLabelValues(stream, mode).Observe(float64(size))
	r.WriteDuration.WithLabelValues(stream, mode).Observe(took.Seconds())
}

// LinkOpened and LinkClosed track active pipe links.
func (r *Registry) LinkOpened(pipe string) {
	if r == nil {
		return
	}
	r.PipeLinksActive.WithLabelValues(pipe).Inc()
}

func (r *Registry) LinkClosed(pipe string) {
	if r == nil {
		return
	}
	r.PipeLinksActive.WithLabelValues(pipe).Dec()
}

// ObserveRelay counts a chunk relayed by a pipe link.
func (r *Registry) ObserveRelay(pipe string) {
	if r == nil {
		return
	}
	r.PipeChunks.WithLabelValues(pipe).Inc()
}

// ObservePipePause counts a source pause caused by sink backpressure.
func (r *Registry) ObservePipePause(pipe string) {
	if r == nil {
		return
	}
	r.PipePauses.WithLabelValues(pipe).Inc()
}

// ObserveRetry counts a retried transport write.
func (r *Registry) ObserveRetry(transport string) {
	if r == nil {
		return
	}
	r.TransportRetries.WithLabelValues(transport).Inc()
}

// ObserveTransportBytes counts bytes handed to a transport.
func (r *Registry) ObserveTransportBytes(transport string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.TransportBytesWritten.WithLabelValues(transport).Add(float64(n))
}
