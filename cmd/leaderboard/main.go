// Command leaderboard prints and exports the student leaderboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/tutorboard/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.OpenService).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
