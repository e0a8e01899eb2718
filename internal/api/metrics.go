package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments on a private registry, so the
// /metrics endpoint exposes only what this server registers.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	analysesTotal    prometheus.Counter
	detectionsTotal  prometheus.Counter
	extractionErrors prometheus.Counter
}

// NewMetrics creates and registers the server's instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthscore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthscore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		analysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthscore",
			Subsystem: "engine",
			Name:      "analyses_total",
			Help:      "Completed analysis requests.",
		}),
		detectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthscore",
			Subsystem: "engine",
			Name:      "detections_total",
			Help:      "Disease detections produced across all analyses.",
		}),
		extractionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "healthscore",
			Subsystem: "extract",
			Name:      "errors_total",
			Help:      "Files that failed extraction.",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.analysesTotal,
		m.detectionsTotal,
		m.extractionErrors,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveAnalysis records one completed analysis and its detection count.
func (m *Metrics) ObserveAnalysis(detections int) {
	m.analysesTotal.Inc()
	m.detectionsTotal.Add(float64(detections))
}

// ObserveExtractionError records one failed file extraction.
func (m *Metrics) ObserveExtractionError() {
	m.extractionErrors.Inc()
}
