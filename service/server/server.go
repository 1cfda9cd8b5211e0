package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/waveportal/service/metrics"
)

// Server represents the HTTP server for the wave portal.
type Server struct {
	addr         string
	feed         Feed
	alerts       *AlertBox
	ssePublisher *SSEPublisher
	renderer     *TemplateRenderer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The alerts box must be the Alerter the feed controller was built with.
// The ssePublisher is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, f Feed, alerts *AlertBox, ssePublisher *SSEPublisher, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		feed:         f,
		alerts:       alerts,
		ssePublisher: ssePublisher,
		metrics:      m,
		logger:       logger,
	}
}

// WithTemplates adds template rendering support to the server using embedded files
func (s *Server) WithTemplates() error {
	renderer, err := NewTemplateRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}
	s.renderer = renderer
	s.logger.Info("HTML templates loaded from embedded files")
	return nil
}

// Handler builds the routed handler, wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// JSON API
	mux.Handle("GET /api/v1/waves", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/waves")(handleListWaves(s.feed, s.logger)))
	mux.Handle("POST /api/v1/waves", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/waves")(handleSubmitWave(s.feed, s.logger)))
	mux.Handle("POST /api/v1/waves/refresh", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/waves/refresh")(handleRefreshWaves(s.feed, s.logger)))
	mux.Handle("POST /api/v1/connect", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/connect")(handleConnect(s.feed, s.alerts, s.logger)))
	mux.Handle("PUT /api/v1/draft", metrics.HTTPMetricsMiddleware(s.metrics, "/api/v1/draft")(handleSetDraft(s.feed, s.logger)))

	// SSE streaming endpoint (if SSE publisher is configured)
	if s.ssePublisher != nil {
		mux.Handle("GET /api/v1/stream/waves", handleStreamWaves(s.ssePublisher, s.metrics, s.logger))
		s.logger.Info("SSE streaming endpoint enabled")
	} else {
		s.logger.Warn("SSE publisher not configured, streaming endpoint disabled")
	}

	// HTML page (if template renderer is configured)
	if s.renderer != nil {
		mux.HandleFunc("GET /{$}", handlePortalPage(s.renderer, s.feed, s.alerts))
		mux.HandleFunc("POST /connect", handleConnectForm(s.feed, s.logger))
		mux.HandleFunc("POST /wave", handleWaveForm(s.feed, s.logger))
		s.logger.Info("HTML page endpoints enabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	// WriteTimeout stays unset so SSE responses can stay open.
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close SSE publisher first (disconnects all clients)
	if s.ssePublisher != nil {
		s.ssePublisher.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
