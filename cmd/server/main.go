// Package main is the entrypoint for the facequeue submission server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/kiranshivaraju/facequeue/internal/api"
	"github.com/kiranshivaraju/facequeue/internal/api/handler"
	mw "github.com/kiranshivaraju/facequeue/internal/api/middleware"
	"github.com/kiranshivaraju/facequeue/internal/awsclient"
	"github.com/kiranshivaraju/facequeue/internal/blob"
	"github.com/kiranshivaraju/facequeue/internal/cache"
	"github.com/kiranshivaraju/facequeue/internal/config"
	"github.com/kiranshivaraju/facequeue/internal/queue"
	"github.com/kiranshivaraju/facequeue/internal/store"
	"github.com/kiranshivaraju/facequeue/internal/submission"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("config loaded", "env", cfg.Server.Env, "auth_enabled", cfg.Server.AuthEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. AWS clients
	sess, err := awsclient.NewSession(cfg.AWS)
	if err != nil {
		return err
	}
	s3Client := s3.New(sess)
	inputs := blob.NewS3Bucket(s3Client, cfg.Storage.InputBucket)
	results := blob.NewS3Bucket(s3Client, cfg.Storage.OutputBucket)
	requests := queue.NewSQSQueue(sqs.New(sess), cfg.Queue.RequestQueue)

	readyChecks := map[string]handler.Pinger{
		"input_bucket":  inputs,
		"output_bucket": results,
		"request_queue": requests,
	}
	var opts []submission.Option
	deps := api.Dependencies{}

	// 3. Optional database: submission ledger and API keys
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")

		pgStore := store.NewPostgresStore(pool)
		readyChecks["database"] = pgStore
		opts = append(opts, submission.WithLedger(pgStore))
		if cfg.Server.AuthEnabled {
			deps.Auth = mw.NewAuth(pgStore)
		}
	}

	// 4. Optional Redis: rate limiting
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")

		readyChecks["cache"] = redisCache
		deps.RateLimit = mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute)
	}

	// 5. Submission service and router
	svc := submission.NewService(inputs, results, requests, submission.Options{
		MaxUploadBytes: cfg.Submission.MaxUploadBytes,
		MaxWait:        cfg.Submission.MaxWait,
		PollInterval:   cfg.Submission.PollInterval,
	}, logger, opts...)

	deps.HealthHandler = handler.NewHealthHandler()
	deps.ReadyHandler = handler.NewReadyHandler(readyChecks)
	deps.SubmitHandler = handler.NewSubmitHandler(svc, cfg.Submission.MaxUploadBytes)
	deps.StatusHandler = handler.NewStatusHandler(svc)

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg.Submission.MaxWait),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// writeTimeout leaves room for the synchronous result wait on top of the upload.
func writeTimeout(maxWait time.Duration) time.Duration {
	return maxWait + 30*time.Second
}
