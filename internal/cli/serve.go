package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/catalog"
	"github.com/jonnymoo/shape/internal/salary"
	"github.com/jonnymoo/shape/internal/server"
	"github.com/jonnymoo/shape/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP validation and shape-query server",
		Long: `Serve /validate, /validate/{name}, /shape-query, /compile and /healthz.

The server stops cleanly on SIGINT or SIGTERM.

Examples:
  shape serve
  shape serve --listen :9090 --driver sqlite3 --db-path upm.db
  shape serve --catalog shapes/ --redis-addr localhost:6379 --cache-ttl 5m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().String("listen", server.DefaultAddr, "listen address")
	cmd.Flags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.Flags().String("catalog", "", "directory of CUE shape definitions")
	addDatabaseFlags(cmd)
	addCacheFlags(cmd)
	addCompilerFlags(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	compiler, err := cfg.NewCompiler()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	var cat *catalog.Catalog
	if cfg.CatalogDir != "" {
		var errs []error
		cat, errs = catalog.Load(cfg.CatalogDir, catalog.LoadModeFailFast)
		if len(errs) > 0 {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, errors.Join(errs...).Error(), nil)
		}
		logger.Info("loaded shape catalog", "dir", cfg.CatalogDir, "shapes", cat.Len())
	}

	db, closeDB, err := openDatabase(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer closeDB()

	c, closeCache, err := openCache(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	defer closeCache()

	srv := server.New(server.Config{
		Addr:     cfg.Listen,
		Fetcher:  store.NewFetcher(db, logger),
		Compiler: compiler,
		Rules: map[string]server.Rule{
			salary.Name: {Shape: salary.Shape, Func: salary.CheckSalaryRecords},
		},
		DefaultRule: salary.Name,
		Catalog:     cat,
		Cache:       c,
		CacheTTL:    cfg.Cache.TTL,
		Health: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	return nil
}
