package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/auth"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/ephemeris"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/health"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/metrics"
	"github.com/laojiebang/gnss-satellite-coordinate-calculator/internal/navfile"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr           string
	TrustProxy     bool
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	svc        *ephemeris.Service
	navCache   *navfile.Cache
	logger     *slog.Logger
	trustProxy bool
	maxUpload  int64
}

// NewServer creates a configured HTTP server exposing the ephemeris
// operations.
func NewServer(cfg Config, logger *slog.Logger, authCfg auth.Config, svc *ephemeris.Service, navCache *navfile.Cache) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 8 << 20
	}
	s := &Server{
		svc:        svc,
		navCache:   navCache,
		logger:     logger,
		trustProxy: cfg.TrustProxy,
		maxUpload:  cfg.MaxUploadBytes,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/ephemerides", s.loadHandler)
	mux.HandleFunc("GET /api/v1/satellites", s.satellitesHandler)
	mux.HandleFunc("GET /api/v1/position/{sat}", s.positionHandler)
	mux.HandleFunc("GET /api/v1/positions", s.snapshotHandler)

	// Middleware chain: metrics -> logging -> rate limit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = rateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxy)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control
// (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not
// log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
