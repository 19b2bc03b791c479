// Package main is the entry point for the catalog server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/catalog-service/internal/catalog"
	"github.com/vyrodovalexey/catalog-service/internal/config"
	"github.com/vyrodovalexey/catalog-service/internal/handler"
	"github.com/vyrodovalexey/catalog-service/internal/server"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
	)

	registry := newRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	itemStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create item store", zap.Error(err))
		return 1
	}
	defer closeStore(itemStore, logger)

	if cfg.MetricsEnabled {
		itemStore = store.NewInstrumentedStore(itemStore, registry)
	}

	feed := handler.NewChangeFeedHandler(logger)
	service := catalog.NewService(itemStore,
		catalog.WithNotifier(feed),
		catalog.WithLogger(logger),
	)

	opts := []server.Option{server.WithMetricsRegistry(registry)}
	if pinger, ok := itemStore.(store.Pinger); ok {
		opts = append(opts, server.WithPinger(pinger))
	}
	srv := server.New(cfg, logger, service, feed, opts...)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		// Graceful shutdown
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// newRegistry returns the Prometheus registry shared by the HTTP and store
// collectors, with the Go runtime and process collectors attached.
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// newStore creates the item store selected by cfg.StoreBackend.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		logger.Info("using in-memory item store")
		return store.NewMemoryStore(), nil
	case config.BackendPostgres:
		logger.Info("using postgres item store")
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("creating postgres schema: %w", err)
		}
		return pg, nil
	case config.BackendRedis:
		logger.Info("using redis item store", zap.String("key_prefix", cfg.RedisKeyPrefix))
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("creating redis store: %w", err)
		}
		return store.NewRedisStore(client, cfg.RedisKeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// closeStore releases backend connections once the server has drained.
func closeStore(st store.Store, logger *zap.Logger) {
	closer, ok := st.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close item store", zap.Error(err))
		return
	}
	logger.Info("item store closed")
}
