// Package api exposes the generation pipeline and approval workflow over
// HTTP REST.
//
// Endpoints:
//
//	POST  /api/generate            → run the generation pipeline
//	GET   /api/texts               → list generated texts
//	GET   /api/texts/{id}          → fetch one text
//	PATCH /api/texts/{id}/approval → approve or deny a text
//	GET   /api/statistics          → aggregate counters
//	GET   /health                  → liveness probe
//	GET   /ready                   → readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: logging and panic recovery
//   - health.go: liveness and readiness probes
//   - generate.go: generation endpoint
//   - texts.go: text listing, approval, and statistics endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/texts"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8600"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to resist slow-client attacks.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout = 30 * time.Second

	// WriteTimeout must cover a full generation run including retries.
	WriteTimeout = 3 * time.Minute

	IdleTimeout = 120 * time.Second
)

// TextStore is the read surface the text endpoints need.
type TextStore interface {
	Get(ctx context.Context, id uuid.UUID) (*texts.Text, error)
	List(ctx context.Context, params texts.ListParams) ([]texts.Text, error)
	GetStatistics(ctx context.Context) (*texts.Statistics, error)
}

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	generate *GenerateHandler
	texts    *TextsHandler
}

// NewServer creates a server with all routes registered.
func NewServer(runner Runner, store TextStore, pool *pgxpool.Pool, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(pool, logger),
		generate: NewGenerateHandler(runner, logger),
		texts:    NewTextsHandler(runner, store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.generate.RegisterRoutes(mux)
	s.texts.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
