package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/unsa/eventhub/internal/api/handlers"
	"github.com/unsa/eventhub/internal/api/middleware"
	"github.com/unsa/eventhub/internal/config"
	"github.com/unsa/eventhub/internal/embeddings"
	"github.com/unsa/eventhub/internal/observability"
	"github.com/unsa/eventhub/internal/repository"
	"github.com/unsa/eventhub/internal/service"
	"github.com/unsa/eventhub/internal/tools"
	"github.com/unsa/eventhub/internal/workers"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	river          *river.Client[pgx.Tx] // nil when embeddings are disabled
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

const queueDepthInterval = 15 * time.Second

// setupMetrics creates the meter provider and collectors. All results are nil when the exporter is
// unset or unsupported.
func setupMetrics(ctx context.Context, cfg *config.Config) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, promHandler, err := observability.NewMeterProvider(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter(observability.MeterScope), tools.Names())
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, promHandler, metrics, nil
}

// newEmbeddingClient returns nil when no provider is configured.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case "":
		return nil, nil //nolint:nilnil // nil client disables embeddings
	case config.EmbeddingProviderMock:
		return embeddings.NewMockClient(cfg.EmbeddingDimensions), nil
	default:
		client, err := embeddings.NewClient(ctx, embeddings.Config{
			Provider:   cfg.EmbeddingProvider,
			APIKey:     cfg.EmbeddingProviderAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			BaseURL:    cfg.EmbeddingBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}

		return client, nil
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or River;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (app *App, err error) {
	var (
		meterProvider  *sdkmetric.MeterProvider
		tracerProvider *sdktrace.TracerProvider
		promHandler    http.Handler
		metrics        *observability.Metrics
	)

	// Providers created before a later failure must not leak.
	defer func() {
		if err == nil {
			return
		}

		if err2 := shutdownObservability(context.Background(), tracerProvider, meterProvider); err2 != nil {
			slog.Error("shutdown observability after startup error", "error", err2)
		}
	}()

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, promHandler, metrics, err = setupMetrics(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// request_id (and trace_id/span_id when tracing is on) appear in every log line.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	var (
		httpMetrics      observability.HTTPMetrics
		apiMetrics       observability.APIMetrics
		toolMetrics      observability.ToolMetrics
		embeddingMetrics observability.EmbeddingMetrics
		cacheMetrics     observability.CacheMetrics
	)

	if metrics != nil {
		httpMetrics = metrics.HTTP
		apiMetrics = metrics.API
		toolMetrics = metrics.Tools
		embeddingMetrics = metrics.Embeddings
		cacheMetrics = metrics.Cache
	}

	eventsRepo := repository.NewEventsRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)
	speakersRepo := repository.NewSpeakersRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)

	embeddingClient, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if embeddingClient == nil {
		slog.Warn("embeddings disabled (EMBEDDING_PROVIDER empty); semantic search answers with provider errors")
	} else {
		slog.Info("embeddings enabled", "provider", embeddingClient.Name(), "model", embeddingClient.Model())
	}

	var limiter *rate.Limiter
	if cfg.EmbeddingRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), cfg.EmbeddingRateBurst)
	}

	generator := service.NewEmbeddingGenerator(service.EmbeddingGeneratorParams{
		Client:     embeddingClient,
		Store:      embeddingsRepo,
		Dimensions: cfg.EmbeddingDimensions,
		Timeout:    cfg.EmbeddingTimeout,
		Limiter:    limiter,
		Metrics:    embeddingMetrics,
	})

	var queryCache *service.QueryEmbeddingCache

	if cfg.SearchQueryCacheSize > 0 {
		queryCache, err = service.NewQueryEmbeddingCache(cfg.SearchQueryCacheSize)
		if err != nil {
			return nil, err
		}
	}

	ranker := service.NewSimilarityRanker(generator, embeddingsRepo, queryCache, cacheMetrics)
	hydrator := service.NewEntityHydrator(sessionsRepo, speakersRepo)

	catalog := tools.NewCatalog(tools.Deps{
		Events:     eventsRepo,
		Sessions:   sessionsRepo,
		Speakers:   speakersRepo,
		Embeddings: embeddingsRepo,
		Ranker:     ranker,
		Hydrator:   hydrator,
	}, tools.Options{
		Timeout: cfg.ToolCallTimeout,
		Metrics: toolMetrics,
	})

	var (
		riverClient *river.Client[pgx.Tx]
		enqueuer    handlers.RegenerationEnqueuer
	)

	if embeddingClient != nil {
		riverWorkers := river.NewWorkers()
		river.AddWorker(riverWorkers, workers.NewEntityEmbeddingWorker(hydrator, generator, embeddingMetrics, 0))

		riverClient, err = river.NewClient(riverpgxv5.New(db), &river.Config{
			Logger: slog.Default(),
			Queues: map[string]river.QueueConfig{
				service.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
			},
			Workers: riverWorkers,
		})
		if err != nil {
			return nil, fmt.Errorf("create River client: %w", err)
		}

		enqueuer = service.NewEmbeddingEnqueuer(riverClient, service.EmbeddingsQueueName, cfg.EmbeddingMaxAttempts, embeddingMetrics)
	}

	server := newHTTPServer(cfg, routes{
		health:     handlers.NewHealthHandler(db),
		tools:      handlers.NewToolsHandler(catalog),
		embeddings: handlers.NewEmbeddingsHandler(enqueuer, embeddingsRepo),
		metrics:    promHandler,
	}, httpMetrics, apiMetrics, meterProvider, tracerProvider)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		river:          riverClient,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

type routes struct {
	health     *handlers.HealthHandler
	tools      *handlers.ToolsHandler
	embeddings *handlers.EmbeddingsHandler
	metrics    http.Handler // nil unless the prometheus exporter is selected
}

// newHTTPServer builds the router: /health and /metrics are public, /v1 needs the API key.
// Handler chain: RequestID -> otelhttp(Logging(router)) so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	rt routes,
	httpMetrics observability.HTTPMetrics,
	apiMetrics observability.APIMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Metrics(httpMetrics))

	r.Get("/health", rt.health.Check)

	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIKey))
		r.Use(middleware.MaxBody(cfg.MaxRequestBodyBytes, apiMetrics))

		r.Get("/tools", rt.tools.List)
		r.Post("/tools/{name}", rt.tools.Call)
		r.Get("/tools/{name}", rt.tools.CallQuery)

		r.Post("/embeddings/regenerate", rt.embeddings.Regenerate)
		r.Get("/embeddings/{entityType}/{entityId}", rt.embeddings.List)
		r.Delete("/embeddings/{entityType}/{entityId}", rt.embeddings.Delete)
	})

	otelOpts := []otelhttp.Option{
		// Skip tracing for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	handler := otelhttp.NewHandler(middleware.Logging(r), cfg.ServiceName, otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 30 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and River, then blocks until ctx is cancelled (e.g. signal)
// or a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	if a.river != nil {
		if a.metrics != nil && a.metrics.Embeddings != nil {
			go runQueueDepthPoller(riverCtx, a.db, a.metrics.Embeddings)
		}

		go func() {
			if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
				select {
				case runErr <- fmt.Errorf("river: %w", err):
				default:
				}
			}
		}()
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// runQueueDepthPoller periodically updates the embeddings queue depth gauge.
func runQueueDepthPoller(ctx context.Context, db *pgxpool.Pool, embeddingMetrics observability.EmbeddingMetrics) {
	ticker := time.NewTicker(queueDepthInterval)
	defer ticker.Stop()

	update := func() {
		var count int64

		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM river_job WHERE queue = $1 AND state IN ($2, $3, $4)`,
			service.EmbeddingsQueueName,
			rivertype.JobStateAvailable, rivertype.JobStateRetryable, rivertype.JobStateScheduled,
		).Scan(&count)
		if err != nil {
			slog.WarnContext(ctx, "river queue depth poll failed", "error", err)

			return
		}

		embeddingMetrics.SetQueueDepth(ctx, count)
	}

	update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

func (a *App) stopRiver(ctx context.Context) error {
	if a.river == nil {
		return nil
	}

	return a.river.Stop(ctx)
}

// Shutdown stops the server and then River. Call after Run returns.
// Observability is shut down last; its error is returned only when server and River shut down cleanly.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if stopErr := a.stopRiver(ctx); stopErr != nil {
			slog.Error("river stop during server shutdown", "error", stopErr)
		}

		return fmt.Errorf("server shutdown: %w", err)
	}

	if err = a.stopRiver(ctx); err != nil {
		return fmt.Errorf("river stop: %w", err)
	}

	return nil
}
