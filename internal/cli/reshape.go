package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonnymoo/shape/internal/reshape"
)

// ReshapeOptions holds flags for the reshape command.
type ReshapeOptions struct {
	*RootOptions
	List bool // keep the top-level array
}

// NewReshapeCommand creates the reshape command.
func NewReshapeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReshapeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reshape [result-file]",
		Short: "Reshape a raw FOR JSON result",
		Long: `Reshape the JSON a compiled shape query returned: to-one columns
(convert_to_object_ prefixed) collapse to plain objects, null relations
become empty lists, and a top-level array yields its first row unless
--list is set.

Reads stdin when no file is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runReshape(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "the result is a list document")

	return cmd
}

func runReshape(opts *ReshapeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := readSource(path, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading result: %v", err), nil)
	}

	out, err := reshape.JSON(data, !opts.List)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, err.Error(), nil)
	}

	if opts.Format == "json" {
		return formatter.Success(json.RawMessage(out))
	}
	return formatter.Success(string(out))
}
