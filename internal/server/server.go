// Package server provides the HTTP API around a search session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
)

const (
	defaultSearchTimeout = 5 * time.Second
	maxIndexBytes        = 256 << 20
)

// Server is the HTTP server for the search API. All session access goes
// through mu; search callbacks run with mu held.
type Server struct {
	mu      sync.Mutex
	session *search.Session
	// released is closed when the buffered search it belongs to is replaced
	// or replayed.
	released chan struct{}

	store   storage.MetadataStore
	config  *config.ServerConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
	router  chi.Router
	server  *http.Server
}

// NewServer creates a server with the given dependencies. store and m may be nil.
func NewServer(
	session *search.Session,
	store storage.MetadataStore,
	cfg *config.ServerConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		session: session,
		store:   store,
		config:  cfg,
		metrics: m,
		logger:  logger,
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/index", s.handleLoadIndex)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server and blocks until it stops. A graceful stop
// returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// LoadIndex loads a base64 index artifact into the session. A search buffered
// before the load is answered from inside this call.
func (s *Server) LoadIndex(encoded []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.LoadIndexBase64(string(encoded)); err != nil {
		return err
	}
	s.release()
	return nil
}

// release wakes the handler waiting on the buffered search. Callers hold mu.
func (s *Server) release() {
	if s.released != nil {
		close(s.released)
		s.released = nil
	}
}

func (s *Server) searchTimeout() time.Duration {
	if s.config == nil || s.config.SearchTimeout <= 0 {
		return defaultSearchTimeout
	}
	return s.config.SearchTimeout
}

// instrument records every request in the metrics and the debug log.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), elapsed)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
		)
	})
}
