package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/ir"
	"github.com/jonnymoo/shape/internal/match"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Roots []string // known relation roots override
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <shape-file> [input-file]",
		Short: "Check that an input contains a shape",
		Long: `Check that a JSON input contains every key a shape requires.

Missing relation roots are reported with example SQL that would fetch
them. Reads the input from stdin when no input file is given.

Exit codes:
  0 - Input contains the shape
  1 - Something is missing
  2 - Command error`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 2 {
				input = args[1]
			}
			return runMatch(opts, args[0], input, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Roots, "root", nil, "known relation roots (default folder, person, payroll, ...)")

	return cmd
}

func runMatch(opts *MatchOptions, shapePath, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := readSource(shapePath, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading shape: %v", err), nil)
	}
	doc, err := parseShape(shapePath, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadShape, err.Error(), nil)
	}

	raw, err := readSource(inputPath, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading input: %v", err), nil)
	}
	input, err := ir.Decode(raw)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), nil)
	}

	var matchOpts []match.Option
	if len(opts.Roots) > 0 {
		matchOpts = append(matchOpts, match.WithKnownRoots(opts.Roots...))
	}
	report := match.Match(doc.Shape, input, matchOpts...)

	if report.OK {
		if opts.Format == "json" {
			return formatter.Success(report)
		}
		return formatter.Success("✓ input contains the shape")
	}

	msg := fmt.Sprintf("%d required key(s) missing", len(report.Missing))
	if opts.Format == "json" {
		if err := formatter.Error(ErrCodeShapeMissing, msg, report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✗ %s\n", msg)
	for _, m := range report.Missing {
		loc := m.Path
		if loc == "" {
			loc = m.Key
		}
		fmt.Fprintf(w, "  %s: %s\n", loc, m.Reason)
		if m.ExampleSQL != "" && opts.Verbose {
			fmt.Fprintf(w, "    %s\n", strings.TrimSpace(m.ExampleSQL))
		}
	}
	return NewExitError(ExitFailure, msg)
}
