// Command hangup joins, inspects and drives shared sessions between local
// contexts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hangup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
