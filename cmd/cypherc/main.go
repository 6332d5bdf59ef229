package main

import (
	"os"

	"github.com/roach88/cypherc/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own diagnostics before returning an
		// ExitError, so all that is left is the process status.
		os.Exit(cli.GetExitCode(err))
	}
}
