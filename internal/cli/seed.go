package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixtures-file>",
		Short: "Load fixture rows into a local SQLite database",
		Long: `Create (or open) a local SQLite database with the UPM tables and
insert the rows from a YAML fixtures file.

Rows whose key already exists are skipped, so seeding twice is harmless.

Examples:
  shape seed fixtures.yaml --db-path upm.db
  cat fixtures.yaml | shape seed -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("db-path", "", "SQLite database file (default from config)")

	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	data, err := readSource(path, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading fixtures: %v", err), nil)
	}
	fixtures, err := store.ReadFixtures(bytes.NewReader(data))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), nil)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer st.Close()

	if err := st.Load(cmd.Context(), fixtures); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	rows := 0
	for _, f := range fixtures {
		rows += len(f.Rows)
	}
	formatter.VerboseLog("seeded %s", cfg.Database.Path)

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"database": cfg.Database.Path,
			"tables":   len(fixtures),
			"rows":     rows,
		})
	}
	return formatter.Success(fmt.Sprintf("Loaded %d rows into %d tables in %s", rows, len(fixtures), cfg.Database.Path))
}
