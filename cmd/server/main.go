package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hiroki-koketsu/todo-service/internal/config"
	"github.com/hiroki-koketsu/todo-service/internal/handler"
	"github.com/hiroki-koketsu/todo-service/internal/repository"
	"github.com/hiroki-koketsu/todo-service/internal/telemetry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Create a basic logger for startup (before OTel is initialized)
	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	startupLogger.Info("starting application",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreBackend),
	)

	if err := cfg.Validate(); err != nil {
		startupLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	logger := startupLogger

	if cfg.TelemetryEnabled {
		// Initialize OpenTelemetry tracer provider
		tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize tracer provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown tracer provider", slog.Any("error", err))
			}
		}()

		// Initialize OpenTelemetry meter provider
		mp, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize meter provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := mp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown meter provider", slog.Any("error", err))
			}
		}()

		// Initialize OpenTelemetry logger provider (after other providers for log-trace correlation)
		lp, otelLogger, err := telemetry.InitLoggerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			startupLogger.Error("failed to initialize logger provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := lp.Shutdown(ctx); err != nil {
				startupLogger.Error("failed to shutdown logger provider", slog.Any("error", err))
			}
		}()
		logger = otelLogger
	}

	// Initialize todo repository; the process must not start without its store
	repo, client, err := openRepository(ctx, cfg)
	if err != nil {
		startupLogger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	if client != nil {
		startupLogger.Info("connected to mongodb", slog.String("database", cfg.MongoDatabase))
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				startupLogger.Error("failed to disconnect from mongodb", slog.Any("error", err))
			}
		}()
	}

	// Create metrics instruments
	meter := otel.Meter(cfg.ServiceName)
	metrics, err := telemetry.NewMetrics(meter, repo.Count)
	if err != nil {
		logger.Error("failed to create metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize handlers and router
	todoHandler := handler.NewTodoHandler(repo, logger, metrics)
	r := handler.NewRouter(todoHandler, cfg.CORSAllowedOrigins)

	// Wrap router with OpenTelemetry HTTP instrumentation
	otelHandler := otelhttp.NewHandler(r, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			// Skip tracing for health checks
			return r.URL.Path != "/api/health"
		}),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Gracefully shutdown the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped")
}

// openRepository builds the configured store. The mongo client is returned
// so main can disconnect it on shutdown; it is nil for the memory backend.
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, *mongo.Client, error) {
	if cfg.StoreBackend == config.BackendMemory {
		return repository.NewMemoryRepository(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := repository.Connect(connectCtx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return repo, client, nil
}
