package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navcalc_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navcalc_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	catalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navcalc_catalog_records",
			Help: "Ephemeris records in the current catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "navcalc_catalog_age_seconds",
			Help: "Age of the current ephemeris catalog in seconds.",
		},
	)

	blocksSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "navcalc_blocks_skipped_total",
			Help: "Malformed navigation data blocks dropped during parsing.",
		},
	)

	positionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navcalc_position_duration_seconds",
			Help:    "Duration of a single position computation in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)

	positionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navcalc_positions_total",
			Help: "Position computations by outcome.",
		},
		[]string{"result"},
	)

	keplerExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "navcalc_kepler_iterations_exhausted_total",
			Help: "Kepler solves that hit the iteration cap before reaching tolerance.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		catalogRecords,
		catalogAgeSeconds,
		blocksSkippedTotal,
		positionDurationSeconds,
		positionsTotal,
		keplerExhaustedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLoad updates catalog gauges after a successful ephemeris load.
func RecordLoad(records, skipped int) {
	catalogRecords.Set(float64(records))
	blocksSkippedTotal.Add(float64(skipped))
}

// SetCatalogAge updates the catalog age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// ObservePosition records one position computation and its outcome.
func ObservePosition(d time.Duration, ok bool) {
	positionDurationSeconds.Observe(d.Seconds())
	result := "ok"
	if !ok {
		result = "error"
	}
	positionsTotal.WithLabelValues(result).Inc()
}

// KeplerExhausted counts a Kepler solve that used up its iteration cap.
func KeplerExhausted() {
	keplerExhaustedTotal.Inc()
}

// knownRoutes are the exact paths the server registers.
var knownRoutes = map[string]bool{
	"/healthz":            true,
	"/readyz":             true,
	"/metrics":            true,
	"/api/v1/ephemerides": true,
	"/api/v1/satellites":  true,
	"/api/v1/positions":   true,
}

// normalizeRoute collapses request paths into a bounded label set: the
// per-satellite position route maps to one label and anything unknown
// (scanners, bots) maps to "other" instead of minting a new series.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/position/") {
		return "/api/v1/position/{sat}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
