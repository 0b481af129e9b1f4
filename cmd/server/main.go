package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sundayezeilo/tinylink/internal/app"
)

func main() {
	if err := run(); err != nil {
		// The zap logger may not exist yet when bootstrap fails.
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application
	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			application.Logger.Warn("shutdown", zap.Error(err))
		}
	}()

	// Start server (blocks until shutdown)
	return application.Start(ctx)
}
