// Command selectir compiles the select clauses of CUE query definitions.
package main

import (
	"os"

	"github.com/roach88/selectir/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
