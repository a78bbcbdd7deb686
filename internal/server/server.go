// Package server exposes the autotune service over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-autotune/internal/config"
	"github.com/cwbudde/algo-autotune/internal/jobs"
	"github.com/cwbudde/algo-autotune/internal/observe"
)

const readHeaderTimeout = 10 * time.Second

// Option configures a [Server].
type Option func(*Server)

// WithMetrics enables request metrics and tracing through
// [observe.Middleware].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithChecker adds a readiness check to /readyz.
func WithChecker(c Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c) }
}

// Server holds the HTTP handlers of the service.
type Server struct {
	service  *jobs.Service
	config   config.ServerConfig
	metrics  *observe.Metrics
	log      *slog.Logger
	checkers []Checker
}

// New returns a server for svc. The job database is always a readiness
// check.
func New(svc *jobs.Service, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		service: svc,
		config:  cfg,
		log:     slog.Default(),
		checkers: []Checker{
			{Name: "database", Check: svc.Ready},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with CORS and, when metrics are set,
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	var upload http.Handler = http.HandlerFunc(s.handleUpload)
	if s.config.RequestTimeout > 0 {
		upload = http.TimeoutHandler(upload, s.config.RequestTimeout,
			`{"error":"Service Unavailable","message":"processing timed out","code":503}`)
	}
	mux.Handle("POST /upload", upload)
	mux.HandleFunc("GET /download/{id}", s.handleDownload)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /jobs", s.handleJobs)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	if s.metrics != nil {
		h = observe.Middleware(s.metrics)(h)
	}
	return corsMiddleware(s.config.AllowedOrigins)(h)
}

// Run serves until ctx is cancelled and then shuts down gracefully, waiting
// up to the configured shutdown timeout for in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// corsMiddleware adds CORS headers for allowed origins and answers
// preflight requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, o := range allowedOrigins {
					if o == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Traceparent")
				w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Correlation-ID")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
