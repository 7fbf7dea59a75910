package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [shape-file]",
		Short: "Compile a shape to a FOR JSON query",
		Long: `Compile a shape document (JSON, or YAML for .yaml/.yml files) to a
single SQL statement that returns the shape as nested JSON.

Literal values in the shape become filters and are bound as parameters.
Reads stdin when no file is given.

Examples:
  shape compile folder.json
  shape compile folder.yaml --dialect sqlite
  echo '{"folder": {"datejoinedcomp": null}}' | shape compile --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCompile(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the SQL to this file")
	addCompilerFlags(cmd)

	return cmd
}

// addCompilerFlags registers the flags that override compiler config.
func addCompilerFlags(cmd *cobra.Command) {
	cmd.Flags().String("dialect", "", "SQL dialect (mssql|sqlite)")
	cmd.Flags().String("anchor", querysql.DefaultAnchor, "root id parameter name (empty for none)")
	cmd.Flags().String("table-prefix", querysql.DefaultTablePrefix, "relation table prefix")
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	compiler, err := cfg.NewCompiler()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	data, err := readSource(path, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading shape: %v", err), nil)
	}
	doc, err := parseShape(path, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadShape, err.Error(), nil)
	}

	lint := querysql.Lint(doc)
	for _, w := range lint.Warnings {
		formatter.VerboseLog("warning: %s", w)
	}

	q, err := compiler.Compile(doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompile, err.Error(), lint.Warnings)
	}
	formatter.VerboseLog("Compiled %d field(s) for %s", doc.Shape.Len(), q.Dialect)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(q.SQL+"\n"), 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if opts.Format == "json" {
		binds, err := ir.FromGo(q.Binds)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		warnings := make(ir.Array, len(lint.Warnings))
		for i, w := range lint.Warnings {
			warnings[i] = ir.String(w)
		}
		return formatter.Success(ir.Object{
			"sql":      ir.String(q.SQL),
			"binds":    binds,
			"dialect":  ir.String(q.Dialect),
			"anchor":   ir.String(q.Anchor),
			"list":     ir.Bool(q.List),
			"warnings": warnings,
		})
	}

	return formatter.Success(formatQuery(q, lint.Warnings))
}

// formatQuery renders a compiled query with its binds as SQL comments.
func formatQuery(q querysql.Query, warnings []string) string {
	var b strings.Builder
	b.WriteString(q.SQL)
	for i, v := range q.Binds {
		fmt.Fprintf(&b, "\n-- @p%d = %#v", i+1, v)
	}
	if q.Anchor != "" {
		fmt.Fprintf(&b, "\n-- @%s = <id>", q.Anchor)
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "\n-- warning: %s", w)
	}
	return b.String()
}
