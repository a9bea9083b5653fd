// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_consensus"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recompute metrics
	RecomputesTotal   prometheus.Counter
	RecomputesActive  prometheus.Gauge
	RecomputesFailed  *prometheus.CounterVec
	RecomputeDuration prometheus.Histogram

	// Decision metrics
	Decisions        *prometheus.CounterVec
	Confidence       prometheus.Histogram
	ClusterSize      prometheus.Histogram
	ParticipantCount prometheus.Histogram

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaConsumedTotal  *prometheus.CounterVec
	KafkaConsumeErrors  *prometheus.CounterVec

	// Store metrics
	StoreLatency *prometheus.HistogramVec
	StoreErrors  *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Recompute metrics
		RecomputesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Total number of consensus recomputations started",
		}),
		RecomputesActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recomputes_active",
			Help:      "Number of consensus recomputations currently running",
		}),
		RecomputesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_failed_total",
			Help:      "Total number of failed recomputations",
		}, []string{"reason"}),
		RecomputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Duration of consensus recomputations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		// Decision metrics
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Total number of consensus decisions by resulting status",
		}, []string{"status"}),
		Confidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence",
			Help:      "Consensus confidence of completed computations",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1},
		}),
		ClusterSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consensus_cluster_size",
			Help:      "Size of the winning consensus cluster",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 12, 20, 32},
		}),
		ParticipantCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "participant_count",
			Help:      "Non-empty transcriptions considered per recompute",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 12, 20, 32},
		}),

		// Kafka metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
		KafkaConsumedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumed_total",
			Help:      "Total number of trigger messages consumed",
		}, []string{"topic"}),
		KafkaConsumeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consume_errors_total",
			Help:      "Total number of malformed or undeliverable trigger messages",
		}, []string{"topic", "reason"}),

		// Store metrics
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_latency_seconds",
			Help:      "Storage operation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Total number of storage operation errors",
		}, []string{"operation"}),
	}
}

// RecordRecomputeStart records a recomputation starting.
func (m *Metrics) RecordRecomputeStart() {
	m.RecomputesTotal.Inc()
	m.RecomputesActive.Inc()
}

// RecordRecomputeEnd records a recomputation ending.
func (m *Metrics) RecordRecomputeEnd(err error, reason string, durationSeconds float64) {
	m.RecomputesActive.Dec()
	m.RecomputeDuration.Observe(durationSeconds)
	if err != nil {
		m.RecomputesFailed.WithLabelValues(reason).Inc()
	}
}

// RecordDecision records a completed consensus decision.
func (m *Metrics) RecordDecision(status string, confidence float64, clusterSize, participants int) {
	m.Decisions.WithLabelValues(status).Inc()
	m.Confidence.Observe(confidence)
	m.ClusterSize.Observe(float64(clusterSize))
	m.ParticipantCount.Observe(float64(participants))
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordKafkaConsumed records a trigger message received.
func (m *Metrics) RecordKafkaConsumed(topic string) {
	m.KafkaConsumedTotal.WithLabelValues(topic).Inc()
}

// RecordKafkaConsumeError records a malformed or failed trigger message.
func (m *Metrics) RecordKafkaConsumeError(topic, reason string) {
	m.KafkaConsumeErrors.WithLabelValues(topic, reason).Inc()
}

// RecordStore records a storage operation.
func (m *Metrics) RecordStore(operation string, err error, latencySeconds float64) {
	m.StoreLatency.WithLabelValues(operation).Observe(latencySeconds)
	if err != nil {
		m.StoreErrors.WithLabelValues(operation).Inc()
	}
}
