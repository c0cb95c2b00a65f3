package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/pfc/internal/api"
	"github.com/Harshitk-cp/pfc/internal/buildconfig"
	"github.com/Harshitk-cp/pfc/internal/config"
	"github.com/Harshitk-cp/pfc/internal/embedding"
	"github.com/Harshitk-cp/pfc/internal/llm"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(config.LogLevel()); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	logger.Info("pfc", zap.String("version", buildconfig.Version()), zap.String("commit", buildconfig.Commit()))

	tuning, err := config.LoadTuning(config.TuningFile())
	if err != nil {
		logger.Fatal("failed to load tuning", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	defaults := config.DefaultInference()
	if defaults.IsZero() {
		logger.Warn("no server-side inference configured; requests must carry their own inference settings")
	} else {
		logger.Info("inference defaults", zap.String("mode", string(defaults.Mode)), zap.String("provider", defaults.Provider))
	}
	resolver := llm.NewResolver(defaults, config.LLMRateLimitRPS(), config.LLMRateLimitBurst(), logger)

	opts := api.Options{
		Resolver:       resolver,
		Tuning:         tuning,
		CallTimeout:    config.LLMCallTimeout(),
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}

	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database, soar session archive enabled")
		opts.DB = pool

		embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey(), config.EmbeddingModel())
		if err != nil {
			logger.Warn("embedding client initialization failed, similar-session lookup disabled",
				zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		} else {
			logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
			opts.Embedder = embedder
		}
		opts.ArchiveRetention = config.ArchiveRetention()
		opts.ArchiveExpiryInterval = config.ArchiveExpiryInterval()
	} else {
		logger.Info("DATABASE_URL not set, soar session archive disabled")
	}

	app := api.NewApp(opts, logger)
	go app.RateLimiter.RunCleanup(ctx, 10*time.Minute)
	if app.Expirer != nil {
		app.Expirer.Start()
		defer app.Expirer.Stop()
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end when the server stops instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	stats := app.Pipeline.Stats()
	logger.Info("server stopped",
		zap.Int64("runs_started", stats.Started),
		zap.Int64("runs_completed", stats.Completed),
		zap.Int64("runs_cancelled", stats.Cancelled))
}
