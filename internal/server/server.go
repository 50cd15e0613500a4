// Package server exposes the laugh meter over HTTP: a JSON status and tap
// API, a WebSocket snapshot feed for overlays and the Prometheus endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dooshek/laughmeter/internal/logger"
	"github.com/dooshek/laughmeter/internal/observe"
	"github.com/dooshek/laughmeter/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Controller is the part of the session controller the server drives.
type Controller interface {
	Press(ctx context.Context) error
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// StatsSource provides persisted statistics as JSON.
type StatsSource interface {
	GetStatsJSON() (string, error)
}

type Server struct {
	addr           string
	controller     Controller
	stats          StatsSource
	metrics        *observe.Metrics
	metricsHandler http.Handler
	origins        []string
	log            zerolog.Logger
	srv            *http.Server
}

type Option func(*Server)

func WithStats(s StatsSource) Option {
	return func(srv *Server) { srv.stats = s }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) {
		if m != nil {
			srv.metrics = m
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(srv *Server) { srv.metricsHandler = h }
}

// WithAllowedOrigins sets the CORS origins allowed to call the API from a
// browser, in addition to localhost.
func WithAllowedOrigins(origins ...string) Option {
	return func(srv *Server) { srv.origins = append(srv.origins, origins...) }
}

func New(addr string, controller Controller, opts ...Option) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		metrics:    observe.Noop(),
		origins:    []string{"http://localhost:*", "http://127.0.0.1:*"},
		log:        logger.With("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/tap", s.handleTap)
		r.Get("/stats", s.handleStats)
	})
	r.Get("/ws", s.handleWebSocket)
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Meter server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("Meter server stopped")
	return nil
}

// accessLog logs method, path, status and elapsed time for each request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("bytes", ww.BytesWritten()).
			Msg("request done")
	})
}
