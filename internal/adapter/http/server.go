package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotSource provides the latest published grid generation.
type SnapshotSource interface {
	sharedobs.ReadinessChecker
	Latest() *domain.GridSnapshot
}

// Server exposes health, readiness, metrics, and grid query endpoints.
type Server struct {
	httpServer *http.Server
	grid       *grid.Grid
	source     SnapshotSource
	cache      *CellCache
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and the
// grid query routes.
func NewServer(addr string, g *grid.Grid, source SnapshotSource, cache *CellCache, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		grid:   g,
		source: source,
		cache:  cache,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(source))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /grid", s.handleGrid)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /cells/{index}", s.handleCell)
	mux.HandleFunc("GET /locate", s.handleLocate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
