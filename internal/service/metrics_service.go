package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusforms/registry-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the service:
// HTTP traffic, backend probes and switches, and stats-cache behaviour.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	probeTotal      *prometheus.CounterVec
	probeDuration   prometheus.Histogram
	switchTotal     *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	probeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_probe_total",
		Help: "Availability probes against the legacy backend by outcome",
	}, []string{"outcome"})

	probeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backend_probe_duration_seconds",
		Help:    "Duration of availability probes",
		Buckets: prometheus.DefBuckets,
	})

	switchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_switch_total",
		Help: "Active-backend changes by resulting backend",
	}, []string{"backend"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_cache_hits_total",
		Help: "Statistics payload cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_cache_misses_total",
		Help: "Statistics payload cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, probeTotal, probeDuration, switchTotal, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		probeTotal:      probeTotal,
		probeDuration:   probeDuration,
		switchTotal:     switchTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveProbe records an availability probe outcome.
func (m *MetricsService) ObserveProbe(result models.ProbeResult) {
	if m == nil {
		return
	}
	outcome := "unreachable"
	if result.Reachable {
		outcome = "reachable"
	}
	m.probeTotal.WithLabelValues(outcome).Inc()
	m.probeDuration.Observe(result.Duration.Seconds())
}

// ObserveSwitch records an active-backend change.
func (m *MetricsService) ObserveSwitch(kind models.BackendKind) {
	if m == nil {
		return
	}
	m.switchTotal.WithLabelValues(string(kind)).Inc()
}

// RecordStatsCache records a stats-cache lookup outcome.
func (m *MetricsService) RecordStatsCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
