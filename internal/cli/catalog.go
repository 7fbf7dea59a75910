package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/catalog"
	"github.com/jonnymoo/shape/internal/querysql"
	"github.com/jonnymoo/shape/internal/shape"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	SQL bool // compile each entry
}

// CatalogEntry is the JSON view of one catalog entry.
type CatalogEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Rule        string         `json:"rule,omitempty"`
	List        bool           `json:"list"`
	Keys        []string       `json:"keys"`
	Shape       shape.Document `json:"shape"`
	SQL         string         `json:"sql,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog [dir]",
		Short: "List and check the named shapes in a CUE catalog",
		Long: `Load every shape definition from a directory of CUE files and list them.

All problems are reported, not only the first. With --sql every entry is
also compiled.

Examples:
  shape catalog shapes/
  shape catalog shapes/ --sql --dialect sqlite
  shape catalog --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runCatalog(opts, dir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "compile each entry and show its SQL")
	addCompilerFlags(cmd)

	return cmd
}

func runCatalog(opts *CatalogOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if dir == "" {
		dir = cfg.CatalogDir
	}
	if dir == "" {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "no catalog directory: pass one or set catalog_dir", nil)
	}

	cat, errs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return formatter.Fail(ExitCommandError, ErrCodeCatalog,
			fmt.Sprintf("catalog %s has %d problem(s)", dir, len(errs)), msgs)
	}

	compiler, err := cfg.NewCompiler()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	entries := make([]CatalogEntry, 0, cat.Len())
	for _, name := range cat.Names() {
		e, _ := cat.Get(name)
		ce := CatalogEntry{
			Name:        e.Name,
			Description: e.Description,
			Rule:        e.Rule,
			List:        e.Document.List,
			Keys:        e.Document.Shape.Keys(),
			Shape:       e.Document,
		}
		if opts.SQL {
			q, err := compiler.Compile(e.Document)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeCompile, fmt.Sprintf("shape %q: %v", name, err), nil)
			}
			ce.SQL = q.SQL
			ce.Warnings = querysql.Lint(e.Document).Warnings
		}
		entries = append(entries, ce)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"dir":    dir,
			"shapes": entries,
		})
	}
	return formatter.Success(formatCatalog(dir, entries))
}

func formatCatalog(dir string, entries []CatalogEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d shape(s)\n", dir, len(entries))
	for _, e := range entries {
		kind := "object"
		if e.List {
			kind = "list"
		}
		fmt.Fprintf(&sb, "\n%s (%s)", e.Name, kind)
		if e.Rule != "" {
			fmt.Fprintf(&sb, " -> %s", e.Rule)
		}
		sb.WriteString("\n")
		if e.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", e.Description)
		}
		fmt.Fprintf(&sb, "  keys: %s\n", strings.Join(e.Keys, ", "))
		if e.SQL != "" {
			fmt.Fprintf(&sb, "  sql: %s\n", strings.Join(strings.Fields(e.SQL), " "))
		}
		for _, w := range e.Warnings {
			fmt.Fprintf(&sb, "  warning: %s\n", w)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
