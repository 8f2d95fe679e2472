package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchesTotal    *prometheus.CounterVec
	searchDuration   *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	sourcesKept      *prometheus.HistogramVec
	sourcesKeptRatio *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "searchcore",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchcore",
			Subsystem: "pipeline",
			Name:      "searches_total",
			Help:      "Total completed searches by mode, strategy and status.",
		},
		[]string{"service", "mode", "strategy", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "pipeline",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds by mode.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "mode"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
		[]string{"service", "stage"},
	)
	sourcesKept := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "pipeline",
			Name:      "sources_kept",
			Help:      "Distribution of sources surviving reranking per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "mode"},
	)
	sourcesKeptRatio := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchcore",
			Subsystem: "pipeline",
			Name:      "sources_kept_ratio",
			Help:      "Share of retrieved documents surviving reranking.",
			Buckets:   []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
		},
		[]string{"service", "mode"},
	)
	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchesTotal,
		searchDuration,
		stageDuration,
		sourcesKept,
		sourcesKeptRatio,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		searchesTotal:    searchesTotal,
		searchDuration:   searchDuration,
		stageDuration:    stageDuration,
		sourcesKept:      sourcesKept,
		sourcesKeptRatio: sourcesKeptRatio,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordSearch(service, mode, strategy string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	if strategy == "" {
		strategy = "unknown"
	}
	m.searchesTotal.WithLabelValues(service, mode, strategy, status).Inc()
	m.searchDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordStage(service, stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(service, stage).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordSourcesKept(service, mode string, retrieved, kept int) {
	m.sourcesKept.WithLabelValues(service, mode).Observe(float64(kept))
	if retrieved > 0 {
		m.sourcesKeptRatio.WithLabelValues(service, mode).Observe(float64(kept) / float64(retrieved))
	}
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
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
