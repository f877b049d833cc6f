package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vorot93/otterscan/internal/routing"
)

// Metrics bundles prometheus collectors used by the explorer server.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	ResponseBytes      *prometheus.CounterVec
	RateLimitDropped   prometheus.Counter
	BundleEntries      *prometheus.GaugeVec
	DiscoveryErrors    prometheus.Counter
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otterscan_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "otterscan_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		ResponseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otterscan_response_bytes_total",
			Help: "Total number of response body bytes written.",
		}, []string{"route"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otterscan_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		BundleEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "otterscan_bundle_entries",
			Help: "Number of files in each embedded bundle.",
		}, []string{"bundle"}),
		DiscoveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otterscan_discovery_errors_total",
			Help: "Total number of upstream discovery failures.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.ResponseBytes,
		m.RateLimitDropped,
		m.BundleEntries,
		m.DiscoveryErrors,
	)

	return m
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
		m.ResponseBytes.WithLabelValues(route).Add(float64(wrapped.written))
	})
}

// normalizeRoute keeps label cardinality bounded to the route table.
func normalizeRoute(path string) string {
	if route, ok := routing.Match(path); ok {
		return route.Label
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
