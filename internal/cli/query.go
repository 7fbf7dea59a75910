package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/cache"
	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	ID  string // anchor value
	Raw bool   // print the database text without reshaping
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <shape-file>",
		Short: "Fetch a shape from the database",
		Long: `Compile a shape, run it against the configured database with --id
bound to the root anchor, and print the reshaped result.

The database comes from config (shape.yaml, SHAPE_ environment variables)
or --driver/--db-path for a local SQLite file.

Examples:
  shape query folder.json --id 1234
  shape query folder.json --id F1 --driver sqlite3 --db-path upm.db
  shape query folder.json --id 1234 --raw`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "root id bound to the anchor")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the database result without reshaping")
	addDatabaseFlags(cmd)
	addCacheFlags(cmd)
	addCompilerFlags(cmd)

	return cmd
}

// addDatabaseFlags registers the flags that override database config.
func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", "", "database driver (sqlserver|sqlite3)")
	cmd.Flags().String("db-path", "", "SQLite database file")
}

// addCacheFlags registers the flags that override cache config.
func addCacheFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-addr", "", "Redis address for the result cache")
	cmd.Flags().Duration("cache-ttl", 0, "result cache TTL (0 disables caching)")
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	compiler, err := cfg.NewCompiler()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	data, err := readSource(path, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading shape: %v", err), nil)
	}
	doc, err := parseShape(path, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadShape, err.Error(), nil)
	}
	q, err := compiler.Compile(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, err.Error(), nil)
	}
	if q.Anchor != "" && opts.ID == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--id is required: the shape is anchored on @"+q.Anchor, nil)
	}

	db, closeDB, err := openDatabase(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer closeDB()

	fetcher := store.NewFetcher(db, logger)

	if opts.Raw {
		raw, err := fetcher.FetchRaw(ctx, q, opts.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		if raw == nil {
			raw = []byte("null")
		}
		if opts.Format == "json" {
			return formatter.Success(json.RawMessage(raw))
		}
		return formatter.Success(string(raw))
	}

	c, closeCache, err := openCache(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	defer closeCache()

	load := func(ctx context.Context) (ir.Value, error) {
		return fetcher.Fetch(ctx, q, opts.ID)
	}

	var result ir.Value
	if c != nil {
		key, err := cache.Key(q, opts.ID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		var hit bool
		result, hit, err = cache.Through(ctx, c, key, cfg.Cache.TTL, load)
		if err != nil && result == nil {
			return fetchFailure(formatter, err)
		}
		if err != nil {
			logger.Warn("cache write failed", "error", err)
		}
		formatter.VerboseLog("cache hit: %t", hit)
	} else {
		result, err = load(ctx)
		if err != nil {
			return fetchFailure(formatter, err)
		}
	}

	out, err := ir.MarshalValue(result)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if opts.Format == "json" {
		return formatter.Success(json.RawMessage(out))
	}
	return formatter.Success(string(out))
}

func fetchFailure(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNoResult) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
}
