package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/jonnymoo/shape/internal/cache"
	"github.com/jonnymoo/shape/internal/catalog"
	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/shape"
	"github.com/jonnymoo/shape/internal/validation"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = ":8080"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Fetcher executes a compiled shape query and returns the reshaped result.
// Implemented by *store.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, q querysql.Query, anchorID any) (ir.Value, error)
}

// Rule is a business function together with the shape it requires.
type Rule struct {
	Shape shape.Shape
	Func  validation.Func
}

// Config holds configuration for the server.
type Config struct {
	// Addr is the listen address. Empty means DefaultAddr.
	Addr string

	// Fetcher serves /shape-query. Nil disables the route (503).
	Fetcher Fetcher

	// Compiler lowers shapes. Nil means querysql.New().
	Compiler *querysql.Compiler

	// Rules are business functions by name. DefaultRule names the one
	// served on /validate.
	Rules       map[string]Rule
	DefaultRule string

	// Catalog resolves /validate/{name} to a named shape whose rule is
	// looked up in Rules. Optional.
	Catalog *catalog.Catalog

	// Cache holds /shape-query results for CacheTTL. Optional.
	Cache    cache.Cache
	CacheTTL time.Duration

	// Health is called by /healthz when set, typically a database ping.
	Health func(ctx context.Context) error

	// IDs generates request IDs. Nil means UUIDv7Generator.
	IDs IDGenerator

	// Logger receives request and error logs. Nil discards.
	Logger *slog.Logger
}

// Server is the HTTP front end. A Server is safe for concurrent use.
type Server struct {
	addr        string
	fetcher     Fetcher
	compiler    *querysql.Compiler
	rules       map[string]Rule
	defaultRule string
	catalog     *catalog.Catalog
	cache       cache.Cache
	cacheTTL    time.Duration
	health      func(ctx context.Context) error
	ids         IDGenerator
	logger      *slog.Logger
	router      chi.Router
}

// New creates a server from cfg.
func New(cfg Config) *Server {
	s := &Server{
		addr:        cfg.Addr,
		fetcher:     cfg.Fetcher,
		compiler:    cfg.Compiler,
		rules:       cfg.Rules,
		defaultRule: cfg.DefaultRule,
		catalog:     cfg.Catalog,
		cache:       cfg.Cache,
		cacheTTL:    cfg.CacheTTL,
		health:      cfg.Health,
		ids:         cfg.IDs,
		logger:      cfg.Logger,
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.compiler == nil {
		s.compiler = querysql.New()
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.rules == nil {
		s.rules = map[string]Rule{}
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		requestID(s.ids),
		s.logRequests,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(requireJSON(s.logger))
		r.Post("/validate", s.handleValidate)
		r.Post("/validate/{name}", s.handleValidateNamed)
		r.Post("/shape-query", s.handleShapeQuery)
		r.Post("/compile", s.handleCompile)
	})

	return r
}

// Serve starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting shape server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down shape server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
