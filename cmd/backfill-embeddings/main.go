// backfill-embeddings enqueues River embedding jobs for every speaker and session that has no
// stored embedding. The API process runs the jobs; this command only inserts them, so it can be
// run once after an import or on a schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/unsa/eventhub/internal/repository"
	"github.com/unsa/eventhub/internal/service"
	"github.com/unsa/eventhub/pkg/database"
)

const (
	defaultEmbeddingMaxAttempts = 3
	exitSuccess                 = 0
	exitFailure                 = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	maxAttempts := getEnvAsInt("EMBEDDING_MAX_ATTEMPTS", defaultEmbeddingMaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = defaultEmbeddingMaxAttempts
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client: no queues or workers.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{Logger: slog.Default()})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	enqueuer := service.NewEmbeddingEnqueuer(riverClient, service.EmbeddingsQueueName, maxAttempts, nil)

	stats, err := enqueuer.Backfill(ctx, repository.NewEmbeddingsRepository(db))
	if err != nil {
		slog.Error("Backfill failed", "error", err)

		return exitFailure
	}

	slog.Info("Backfill complete",
		"speakers", stats.SpeakersEnqueued, "sessions", stats.SessionsEnqueued, "errors", stats.Errors)

	fmt.Printf("Enqueued %d speaker and %d session embedding job(s), %d error(s).\n",
		stats.SpeakersEnqueued, stats.SessionsEnqueued, stats.Errors)

	if stats.Errors > 0 {
		return exitFailure
	}

	return exitSuccess
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return n
}
