package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aquasync/pkg/domain"
)

// Chunk outcome labels.
const (
	ChunkCommitted = "committed"
	ChunkSkipped   = "skipped"
	ChunkFailed    = "failed"
)

// MetricsRecorder receives recompute telemetry.
type MetricsRecorder interface {
	ObserveChunk(status string, pairs int, duration time.Duration)
	ObserveVerdict(level domain.Level)
	ObservePruned(pairs int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveChunk(string, int, time.Duration) {}
func (noopMetrics) ObserveVerdict(domain.Level)             {}
func (noopMetrics) ObservePruned(int)                       {}

// NoopMetrics returns a recorder that drops everything.
func NoopMetrics() MetricsRecorder { return noopMetrics{} }

// PrometheusMetrics exports recompute counters and chunk latency.
type PrometheusMetrics struct {
	Chunks        *prometheus.CounterVec
	ChunkPairs    *prometheus.CounterVec
	ChunkDuration prometheus.Histogram
	Verdicts      *prometheus.CounterVec
	Pruned        prometheus.Counter
}

// NewPrometheusMetrics creates the collectors and registers them with reg
// when reg is non-nil.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		Chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasync",
			Subsystem: "matrix",
			Name:      "chunks_total",
			Help:      "Matrix chunks processed by outcome.",
		}, []string{"status"}),
		ChunkPairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasync",
			Subsystem: "matrix",
			Name:      "pairs_total",
			Help:      "Species pairs processed by chunk outcome.",
		}, []string{"status"}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aquasync",
			Subsystem: "matrix",
			Name:      "chunk_duration_seconds",
			Help:      "Time to evaluate and upsert one chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aquasync",
			Subsystem: "matrix",
			Name:      "verdicts_total",
			Help:      "Verdicts written by compatibility level.",
		}, []string{"level"}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aquasync",
			Subsystem: "matrix",
			Name:      "pruned_pairs_total",
			Help:      "Stored verdicts removed because a species left the catalog.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Chunks, m.ChunkPairs, m.ChunkDuration, m.Verdicts, m.Pruned)
	}
	return m
}

// ObserveChunk implements MetricsRecorder.
func (m *PrometheusMetrics) ObserveChunk(status string, pairs int, duration time.Duration) {
	m.Chunks.WithLabelValues(status).Inc()
	m.ChunkPairs.WithLabelValues(status).Add(float64(pairs))
	if status != ChunkSkipped {
		m.ChunkDuration.Observe(duration.Seconds())
	}
}

// ObserveVerdict implements MetricsRecorder.
func (m *PrometheusMetrics) ObserveVerdict(level domain.Level) {
	m.Verdicts.WithLabelValues(string(level)).Inc()
}

// ObservePruned implements MetricsRecorder.
func (m *PrometheusMetrics) ObservePruned(pairs int) {
	m.Pruned.Add(float64(pairs))
}
