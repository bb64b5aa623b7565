// Command megabike runs the league's batch jobs: race sync, yearly refresh,
// roster import, season recompute, rider photos and secret checks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/padraicbc/megabike/cmd/megabike/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(commands.ExecuteContext(ctx))
}
