// Command worker consumes parcel verification events and runs the invoice scheduler.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"parcelhub/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.NewWorkerRunner().MustRun(app.MustBuildWorkerContainer(ctx))
}
