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

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	reportsTotal    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	findingsTotal   *prometheus.CounterVec
	riskTotal       *prometheus.CounterVec
	applianceTotal  *prometheus.CounterVec
	photosPerReport *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mrc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mrc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "reports_total",
			Help:      "Total diagnosis requests by outcome.",
		},
		[]string{"service", "status"},
	)
	reportDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "duration_seconds",
			Help:      "Diagnosis duration in seconds, photo analysis and rendering included.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"service", "status"},
	)
	findingsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "findings_total",
			Help:      "Photo findings by view and outcome.",
		},
		[]string{"service", "view", "outcome"},
	)
	riskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "risk_level_total",
			Help:      "Generated reports by risk level.",
		},
		[]string{"service", "risk_level"},
	)
	applianceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "appliance_total",
			Help:      "Generated reports by recommended appliance.",
		},
		[]string{"service", "appliance"},
	)
	photosPerReport := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mrc",
			Subsystem: "diagnosis",
			Name:      "photos",
			Help:      "Distribution of uploaded photos per report.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		reportsTotal,
		reportDuration,
		findingsTotal,
		riskTotal,
		applianceTotal,
		photosPerReport,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		reportsTotal:    reportsTotal,
		reportDuration:  reportDuration,
		findingsTotal:   findingsTotal,
		riskTotal:       riskTotal,
		applianceTotal:  applianceTotal,
		photosPerReport: photosPerReport,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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

func normalizePath(path string) string {
	switch path {
	case "/", "/diagnose", "/healthz", "/metrics", "/openapi.json":
		return path
	default:
		return "other"
	}
}

// RecordDiagnosis observes a finished diagnosis. A nil diagnosis records only the failure.
func (m *HTTPServerMetrics) RecordDiagnosis(service string, diagnosis *domain.Diagnosis, duration time.Duration) {
	status := "ok"
	switch {
	case diagnosis == nil:
		status = "error"
	case diagnosis.Degraded():
		status = "degraded"
	}
	m.reportsTotal.WithLabelValues(service, status).Inc()
	m.reportDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if diagnosis == nil {
		return
	}

	for _, finding := range diagnosis.Findings {
		outcome := "ok"
		if finding.Failed {
			outcome = "failed"
		}
		m.findingsTotal.WithLabelValues(service, string(finding.View), outcome).Inc()
	}
	m.riskTotal.WithLabelValues(service, string(diagnosis.Scores.Risk)).Inc()
	m.applianceTotal.WithLabelValues(service, string(diagnosis.Scores.Appliance)).Inc()
	m.photosPerReport.WithLabelValues(service).Observe(float64(len(diagnosis.Photos)))
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
