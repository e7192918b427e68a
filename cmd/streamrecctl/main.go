package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/edirooss/streamrec/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := &cli.Dependencies{}
	if err := cli.NewRootCmd(deps).ExecuteContext(ctx); err != nil {
		cli.ReportError(deps, err)
		stop()
		os.Exit(1)
	}
}
