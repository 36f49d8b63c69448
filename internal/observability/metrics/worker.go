package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics instruments the comment classification worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	batchTotal     *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	batchInFlight  prometheus.Gauge
	commentsTotal  *prometheus.CounterVec
	batchLagSecond *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "answerd",
			Subsystem:   "worker",
			Name:        "comment_batch_total",
			Help:        "Processed comment batches by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "answerd",
			Subsystem:   "worker",
			Name:        "comment_batch_duration_seconds",
			Help:        "Comment batch processing duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "answerd",
			Subsystem:   "worker",
			Name:        "comment_batch_in_flight",
			Help:        "Number of comment batches being processed.",
			ConstLabels: constLabels,
		},
	)
	commentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "answerd",
			Subsystem:   "worker",
			Name:        "comments_total",
			Help:        "Comments seen by the classifier, by disposition.",
			ConstLabels: constLabels,
		},
		[]string{"disposition"},
	)
	batchLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "answerd",
			Subsystem:   "worker",
			Name:        "comment_batch_lag_seconds",
			Help:        "Delay between the newest comment in a batch and processing start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		},
		[]string{},
	)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, commentsTotal, batchLag)

	return &WorkerMetrics{
		registry:       registry,
		batchTotal:     batchTotal,
		batchDuration:  batchDuration,
		batchInFlight:  batchInFlight,
		commentsTotal:  commentsTotal,
		batchLagSecond: batchLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(duration time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.batchTotal.WithLabelValues(status).Inc()
	m.batchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// CountComments records how many comments a batch carried and how many the
// classifier kept.
func (m *WorkerMetrics) CountComments(received, kept int) {
	if received > 0 {
		m.commentsTotal.WithLabelValues("received").Add(float64(received))
	}
	if kept > 0 {
		m.commentsTotal.WithLabelValues("kept").Add(float64(kept))
	}
}

func (m *WorkerMetrics) ObserveBatchLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.batchLagSecond.WithLabelValues().Observe(lag.Seconds())
}
