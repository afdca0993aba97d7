// Package metrics exposes Prometheus instrumentation for the API and
// the indexing worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics instruments the API process: HTTP traffic plus the
// answering pipeline itself, labeled by answer outcome.
type PipelineMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal     *prometheus.CounterVec
	answerDuration   *prometheus.HistogramVec
	retrievalHits    *prometheus.CounterVec
	retrievalMisses  *prometheus.CounterVec
	candidatesRanked *prometheus.HistogramVec

	crawlRunsTotal *prometheus.CounterVec
	crawlPages     *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kkuc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kkuc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kkuc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kkuc",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total answers produced, by outcome.",
		},
		[]string{"service", "outcome"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kkuc",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievalHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kkuc",
			Subsystem: "pipeline",
			Name:      "retrieval_hit_total",
			Help:      "Total requests where retrieval found at least one passage.",
		},
		[]string{"service"},
	)
	retrievalMisses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kkuc",
			Subsystem: "pipeline",
			Name:      "retrieval_miss_total",
			Help:      "Total requests where retrieval found nothing.",
		},
		[]string{"service"},
	)
	candidatesRanked := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kkuc",
			Subsystem: "pipeline",
			Name:      "ranked_candidates",
			Help:      "Distribution of candidates surviving rerank per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15},
		},
		[]string{"service"},
	)

	crawlRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kkuc",
			Subsystem: "crawler",
			Name:      "runs_total",
			Help:      "Total crawl runs by status.",
		},
		[]string{"service", "status"},
	)
	crawlPages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kkuc",
			Subsystem: "crawler",
			Name:      "pages_published",
			Help:      "Distribution of pages published per crawl run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerDuration,
		retrievalHits,
		retrievalMisses,
		candidatesRanked,
		crawlRunsTotal,
		crawlPages,
	)

	return &PipelineMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		answersTotal:     answersTotal,
		answerDuration:   answerDuration,
		retrievalHits:    retrievalHits,
		retrievalMisses:  retrievalMisses,
		candidatesRanked: candidatesRanked,
		crawlRunsTotal:   crawlRunsTotal,
		crawlPages:       crawlPages,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service, r.Method, r.URL.Path, strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).
			Observe(time.Since(start).Seconds())
	})
}

// RecordAnswer records one completed pipeline run.
func (m *PipelineMetrics) RecordAnswer(service, outcome string, rankedCount int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.answersTotal.WithLabelValues(service, outcome).Inc()
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.candidatesRanked.WithLabelValues(service).Observe(float64(rankedCount))

	if rankedCount > 0 {
		m.retrievalHits.WithLabelValues(service).Inc()
		return
	}
	m.retrievalMisses.WithLabelValues(service).Inc()
}

// RecordCrawlRun records one completed crawl trigger.
func (m *PipelineMetrics) RecordCrawlRun(service, status string, pagesPublished int) {
	if status == "" {
		status = "unknown"
	}
	m.crawlRunsTotal.WithLabelValues(service, status).Inc()
	m.crawlPages.WithLabelValues(service).Observe(float64(pagesPublished))
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
