// Command engram is the CLI for the engram local-first memory store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/engramdb/engram/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Operation failures already rendered their own output; only
		// command-line errors (bad flags, unknown commands) need
		// printing here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
