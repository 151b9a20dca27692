// Package main is the entrypoint for the facequeue recognition worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/kiranshivaraju/facequeue/internal/awsclient"
	"github.com/kiranshivaraju/facequeue/internal/blob"
	"github.com/kiranshivaraju/facequeue/internal/config"
	"github.com/kiranshivaraju/facequeue/internal/queue"
	"github.com/kiranshivaraju/facequeue/internal/recognizer"
	"github.com/kiranshivaraju/facequeue/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	}))
	slog.SetDefault(logger)

	backend, err := recognizer.NewBackend(cfg.Recognizer)
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}
	slog.Info("recognizer initialized", "backend", backend.Name(), "timeout", cfg.Recognizer.Timeout)

	sess, err := awsclient.NewSession(cfg.AWS)
	if err != nil {
		return err
	}
	s3Client := s3.New(sess)
	sqsClient := sqs.New(sess)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	invoker := recognizer.NewInvoker(backend, cfg.Recognizer.Timeout, logger)
	inputs := blob.NewS3Bucket(s3Client, cfg.Storage.InputBucket)
	results := blob.NewS3Bucket(s3Client, cfg.Storage.OutputBucket)
	requests := queue.NewSQSQueue(sqsClient, cfg.Queue.RequestQueue)

	var opts []worker.Option
	if cfg.Queue.ResponseQueue != "" {
		opts = append(opts, worker.WithNotifier(queue.NewSQSQueue(sqsClient, cfg.Queue.ResponseQueue)))
	}

	return runLoops(ctx, cfg.Worker.Instances, func(i int) *worker.Worker {
		return worker.New(requests, inputs, results, invoker, workerOptions(cfg),
			logger.With("worker", i), opts...)
	})
}

// runLoops runs n independent loops and returns once all of them have stopped.
func runLoops(ctx context.Context, n int, build func(i int) *worker.Worker) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range n {
		w := build(i)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	slog.Info("workers started", "instances", n)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker loop: %w", err)
	}
	slog.Info("workers stopped")
	return nil
}

func workerOptions(cfg *config.Config) worker.Options {
	return worker.Options{
		WaitTime:          cfg.Queue.WaitTime,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		PollErrorCooldown: cfg.Worker.PollErrorCooldown,
		BackoffMin:        cfg.Worker.BackoffMin,
		BackoffMax:        cfg.Worker.BackoffMax,
	}
}
