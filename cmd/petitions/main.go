// Command petitions is a command-line client for the petitions API.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/petitions/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		var exit *cli.ExitError
		if !errors.As(err, &exit) {
			// Usage and flag errors never went through the formatter.
			cmd.PrintErrln("Error:", err)
		}
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
