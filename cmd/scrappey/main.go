package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pim97/scrappey-go/cmd/scrappey/commands"
	"github.com/pim97/scrappey-go/lib/telemetry"
)

func main() {
	// Ctrl+C stops waiting on the API, the remote call itself still completes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.SetupFromEnv(ctx, "scrappey-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
	}

	err = commands.ExecuteContext(ctx)
	if shutdownErr := tel.Shutdown(ctx); shutdownErr != nil {
		fmt.Fprintln(os.Stderr, "failed to shutdown telemetry:", shutdownErr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
