package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/messenger/app/messenger"
	"github.com/dmitrymomot/messenger/core/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := messenger.NewApp(messenger.WithVersion(version))
	if err != nil {
		logger.New().Error("Failed to create application", logger.Component("app"), logger.Error(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
