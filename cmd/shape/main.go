// Command shape matches inputs against declarative shapes and compiles
// shapes to FOR JSON queries.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/jonnymoo/shape/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors were already reported by the formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
