// Package admin serves the operational HTTP surface of a litequery
// connection: health, the database list and schema, snapshots and
// Prometheus metrics.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koustreak/litequery/internal/database/sqlite"
	"github.com/koustreak/litequery/internal/filestore"
	"github.com/koustreak/litequery/internal/logger"
	"github.com/koustreak/litequery/internal/schema"
	"github.com/koustreak/litequery/internal/snapshot"
)

// Connection is the part of *sqlite.Driver the admin surface reads.
type Connection interface {
	IsInitialized() bool
	AttachedDatabases() []sqlite.AttachedDatabase
}

// Snapshots is the part of *snapshot.Snapshotter the admin surface uses.
type Snapshots interface {
	Snapshot(ctx context.Context) ([]snapshot.Result, error)
	List(ctx context.Context) ([]filestore.ObjectInfo, error)
}

// Options wires the server's collaborators. Schema, Snapshots and Gatherer
// are optional; their routes are left out when nil.
type Options struct {
	Connection Connection
	Schema     schema.Reader
	Snapshots  Snapshots
	Gatherer   prometheus.Gatherer
	Logger     *logger.Logger
}

// Server is the admin HTTP server.
type Server struct {
	opts Options
	log  *logger.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{opts: opts, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	if s.opts.Schema != nil {
		r.Route("/databases", func(r chi.Router) {
			r.Get("/", s.handleDatabases)
			r.Get("/{name}/tables", s.handleTables)
			r.Get("/{name}/tables/{table}", s.handleTable)
		})
	}

	if s.opts.Snapshots != nil {
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleTakeSnapshot)
		})
	}

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// ListenAndServe serves the admin surface on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("admin listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.InfoWith("admin request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}
