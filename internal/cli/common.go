package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/cache"
	"github.com/jonnymoo/shape/internal/config"
	"github.com/jonnymoo/shape/internal/shape"
	"github.com/jonnymoo/shape/internal/store"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig layers the config file, environment and the command's
// explicitly set flags.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	return config.Load(opts.ConfigFile, cmd.Flags())
}

// newLogger writes text logs to stderr at the configured level, or debug
// with --verbose.
func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// readSource reads path, or stdin when path is "" or "-".
func readSource(path string, cmd *cobra.Command) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// parseShape parses a shape document, as YAML for .yaml/.yml files and
// JSON otherwise.
func parseShape(path string, data []byte) (shape.Document, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return shape.ParseYAML(data)
	default:
		return shape.ParseJSON(data)
	}
}

// openDatabase opens the configured database. The returned close function
// must be called when done.
func openDatabase(cfg *config.Config) (*sql.DB, func() error, error) {
	if cfg.Database.Driver == config.DriverSQLite {
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return st.DB(), st.Close, nil
	}

	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, db.Close, nil
}

// openCache returns the configured result cache, or nil when caching is
// off. The returned close function is never nil.
func openCache(cfg *config.Config) (cache.Cache, func() error, error) {
	noop := func() error { return nil }
	if cfg.Cache.TTL == 0 {
		return nil, noop, nil
	}
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(), noop, nil
	}

	r, err := cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr}), cfg.Cache.KeyPrefix)
	if err != nil {
		return nil, noop, err
	}
	return r, r.Close, nil
}
