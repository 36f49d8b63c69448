package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// HTTPServerMetrics instruments the API process: the HTTP surface plus the
// answer pipeline behind it. A private registry keeps the scrape output free
// of default-collector noise across tests and multi-process deployments.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal       *prometheus.CounterVec
	answerDuration     *prometheus.HistogramVec
	hallucinationTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "answerd",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "answerd",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "answerd",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "answerd",
			Subsystem:   "pipeline",
			Name:        "answers_total",
			Help:        "Served answers by retrieval mode and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"mode", "outcome"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "answerd",
			Subsystem:   "pipeline",
			Name:        "answer_duration_seconds",
			Help:        "End-to-end answer pipeline duration in seconds.",
			Buckets:     []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			ConstLabels: constLabels,
		},
		[]string{"mode"},
	)
	hallucinationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "answerd",
			Subsystem:   "pipeline",
			Name:        "hallucination_checks_total",
			Help:        "Hallucination classifier verdicts by class.",
			ConstLabels: constLabels,
		},
		[]string{"class"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerDuration,
		hallucinationTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		answersTotal:       answersTotal,
		answerDuration:     answerDuration,
		hallucinationTotal: hallucinationTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// ObserveAnswer implements the pipeline's metrics hook.
func (m *HTTPServerMetrics) ObserveAnswer(mode domain.RetrievalMode, outcome string, seconds float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answersTotal.WithLabelValues(string(mode), outcome).Inc()
	m.answerDuration.WithLabelValues(string(mode)).Observe(seconds)
}

// CountHallucination implements the pipeline's metrics hook.
func (m *HTTPServerMetrics) CountHallucination(class domain.HallucinationClass) {
	m.hallucinationTotal.WithLabelValues(strconv.Itoa(int(class))).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
