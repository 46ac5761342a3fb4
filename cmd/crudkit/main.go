// Command crudkit serves and manipulates configured resources stored in
// SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/crudkit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
