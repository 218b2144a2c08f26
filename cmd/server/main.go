package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/api"
	"github.com/Harshitk-cp/dialectic/internal/config"
	"github.com/Harshitk-cp/dialectic/internal/debate"
	"github.com/Harshitk-cp/dialectic/internal/domain"
	"github.com/Harshitk-cp/dialectic/internal/llm"
	"github.com/Harshitk-cp/dialectic/internal/store"
	"github.com/Harshitk-cp/dialectic/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const telemetryBuffer = 1024

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// The database is optional: without one, finished debates live in
	// memory until the janitor evicts them.
	var pool *pgxpool.Pool
	var debateStore domain.DebateStore = store.NewMemoryStore()
	if dbURL := config.DatabaseURL(); dbURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		debateStore = pg
		logger.Info("connected to database")
	} else {
		logger.Info("no DATABASE_URL set, storing debates in memory")
	}

	solver, err := llm.NewClient(config.SolverProvider(), config.SolverAPIKey(),
		config.SolverModel(), config.AgentMaxTokens())
	if err != nil {
		logger.Fatal("failed to build solver client", zap.Error(err))
	}
	reviewer, err := llm.NewClient(config.ReviewerProvider(), config.ReviewerAPIKey(),
		config.ReviewerModel(), config.AgentMaxTokens())
	if err != nil {
		logger.Fatal("failed to build reviewer client", zap.Error(err))
	}

	sinks := []domain.TelemetrySink{
		telemetry.NewZapSink(logger),
		telemetry.NewPrometheusSink(nil),
	}
	var jsonl *telemetry.JSONLSink
	if path := config.TelemetryPath(); path != "" {
		jsonl, err = telemetry.OpenJSONLSink(path)
		if err != nil {
			logger.Fatal("failed to open telemetry file", zap.Error(err))
		}
		sinks = append(sinks, jsonl)
	}
	sink := telemetry.NewAsyncSink(telemetry.NewMultiSink(sinks...), telemetryBuffer, logger)

	mgr, err := debate.NewManager(debate.ManagerConfig{
		Solver:   solver,
		Reviewer: reviewer,
		Pace:     config.Pace(),
		Retry: llm.RetryPolicy{
			MaxAttempts: config.RetryMaxAttempts(),
			BaseDelay:   config.RetryBaseDelay(),
			Multiplier:  config.RetryMultiplier(),
			MaxDelay:    config.RetryMaxDelay(),
		},
		CallTimeout:   config.AgentCallTimeout(),
		DebateTimeout: config.DebateTimeout(),
		MaxConcurrent: config.MaxConcurrentDebates(),
		Sink:          sink,
		Store:         debateStore,
		Logger:        logger,
		Retention:     config.DebateRetention(),
	})
	if err != nil {
		logger.Fatal("failed to build debate manager", zap.Error(err))
	}
	mgr.StartJanitor()

	app := api.NewApp(pool, mgr, logger, nil)

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
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

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// Running debates are cancelled and archived before sinks close.
	mgr.Stop()
	sink.Close()
	if jsonl != nil {
		_ = jsonl.Close()
	}

	logger.Info("server stopped")
}
