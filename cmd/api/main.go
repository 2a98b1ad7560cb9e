// Command api serves the conference tool catalog and runs the embedding workers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unsa/eventhub/internal/config"
	"github.com/unsa/eventhub/internal/observability"
	"github.com/unsa/eventhub/pkg/database"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return exitFailure
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithMaxConns(int32(cfg.DatabaseMaxConns))) //nolint:gosec // validated non-negative
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.MigrateAll(ctx, db); err != nil {
			slog.Error("Failed to run migrations", "error", err)

			return exitFailure
		}
	}

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		slog.Error("Failed to build application", "error", err)

		return exitFailure
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		slog.Error("Application stopped", "error", runErr)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)

		return exitFailure
	}

	slog.Info("Server exited")

	if runErr != nil {
		return exitFailure
	}

	return exitSuccess
}
