// Package main provisions the buckets and queues facequeue runs on. It is
// safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/kiranshivaraju/facequeue/internal/awsclient"
	"github.com/kiranshivaraju/facequeue/internal/blob"
	"github.com/kiranshivaraju/facequeue/internal/config"
	"github.com/kiranshivaraju/facequeue/internal/queue"
)

const deadLetterSuffix = "-dlq"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sess, err := awsclient.NewSession(cfg.AWS)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return provision(ctx, s3.New(sess), sqs.New(sess), cfg)
}

func provision(ctx context.Context, s3Client s3iface.S3API, sqsClient sqsiface.SQSAPI, cfg *config.Config) error {
	for _, name := range []string{cfg.Storage.InputBucket, cfg.Storage.OutputBucket} {
		if err := blob.NewS3Bucket(s3Client, name).Create(ctx); err != nil {
			return err
		}
		slog.Info("bucket ready", "bucket", name)
	}

	dlqName := cfg.Queue.RequestQueue + deadLetterSuffix
	_, dlqARN, err := queue.Ensure(ctx, sqsClient, dlqName, nil)
	if err != nil {
		return err
	}
	slog.Info("queue ready", "queue", dlqName)

	url, _, err := queue.Ensure(ctx, sqsClient, cfg.Queue.RequestQueue, requestQueueAttributes(cfg, dlqARN))
	if err != nil {
		return err
	}
	slog.Info("queue ready", "queue", cfg.Queue.RequestQueue, "url", url,
		"max_receive_count", cfg.Queue.MaxReceiveCount)

	if cfg.Queue.ResponseQueue != "" {
		if _, _, err := queue.Ensure(ctx, sqsClient, cfg.Queue.ResponseQueue, nil); err != nil {
			return err
		}
		slog.Info("queue ready", "queue", cfg.Queue.ResponseQueue)
	}
	return nil
}

func requestQueueAttributes(cfg *config.Config, dlqARN string) map[string]string {
	return map[string]string{
		sqs.QueueAttributeNameVisibilityTimeout:             strconv.Itoa(int(cfg.Queue.VisibilityTimeout.Seconds())),
		sqs.QueueAttributeNameReceiveMessageWaitTimeSeconds: strconv.Itoa(int(cfg.Queue.WaitTime.Seconds())),
		sqs.QueueAttributeNameRedrivePolicy:                 queue.RedrivePolicy(dlqARN, cfg.Queue.MaxReceiveCount),
	}
}
