// Package worker consumes job messages, runs the recognizer on the input
// image and writes the verdict to the result bucket.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiranshivaraju/facequeue/internal/blob"
	"github.com/kiranshivaraju/facequeue/internal/job"
	"github.com/kiranshivaraju/facequeue/internal/queue"
)

// ackTimeout bounds queue calls that must finish even while shutting down.
const ackTimeout = 10 * time.Second

// Invoker turns an image path into a verdict. It never fails.
type Invoker interface {
	Invoke(ctx context.Context, imagePath string) string
}

// Options bounds the loop. All durations must be positive except WaitTime.
type Options struct {
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
	PollErrorCooldown time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	// TempDir holds downloaded inputs. Empty means os.TempDir().
	TempDir string
}

type Option func(*Worker)

// WithNotifier enables the legacy "{body}:{verdict}" notification.
func WithNotifier(s queue.Sender) Option {
	return func(w *Worker) { w.notifier = s }
}

// WithJitter replaces the backoff delay source.
func WithJitter(f func(min, max time.Duration) time.Duration) Option {
	return func(w *Worker) { w.jitter = f }
}

// Worker keeps at most one message in flight. Run several Workers against
// the same queue to scale out.
type Worker struct {
	queue    queue.Queue
	inputs   blob.Bucket
	results  blob.Bucket
	invoker  Invoker
	opts     Options
	logger   *slog.Logger
	notifier queue.Sender
	jitter   func(min, max time.Duration) time.Duration
}

func New(q queue.Queue, inputs, results blob.Bucket, invoker Invoker, opts Options, logger *slog.Logger, extra ...Option) *Worker {
	w := &Worker{
		queue:   q,
		inputs:  inputs,
		results: results,
		invoker: invoker,
		opts:    opts,
		logger:  logger,
		jitter:  Jitter,
	}
	for _, o := range extra {
		o(w)
	}
	return w
}

// Jitter returns a uniformly random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// Run polls until ctx is cancelled. Poll errors are logged and followed by
// PollErrorCooldown; they never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"wait_time", w.opts.WaitTime.String(),
		"visibility_timeout", w.opts.VisibilityTimeout.String(),
	)
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		err := w.Poll(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		w.logger.Error("poll failed", "error", err, "cooldown", w.opts.PollErrorCooldown.String())
		select {
		case <-ctx.Done():
		case <-time.After(w.opts.PollErrorCooldown):
		}
	}
}

// Poll receives at most one message and drives it to a disposition. The
// returned error is a poll-level failure: the queue could not be read or a
// terminal message could not be deleted.
func (w *Worker) Poll(ctx context.Context) error {
	msgs, err := w.queue.Receive(ctx, queue.ReceiveOptions{
		MaxMessages:       1,
		WaitTime:          w.opts.WaitTime,
		VisibilityTimeout: w.opts.VisibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}

	for _, msg := range msgs {
		if err := w.handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) error {
	log := w.logger.With("message_id", msg.ID, "receive_count", msg.ReceiveCount)

	disp, verdict := w.Process(ctx, msg)
	log = log.With("disposition", disp.String())

	if !disp.Terminal() {
		w.backoff(ctx, msg, log)
		return nil
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	if err := w.queue.Delete(actx, msg.ReceiptHandle); err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	log.Info("message acknowledged")

	if w.notifier != nil && verdict != "" {
		if err := w.notifier.Send(actx, msg.Body+":"+verdict); err != nil {
			log.Warn("legacy notification failed", "error", err)
		}
	}
	return nil
}

// Process resolves one message. verdict is empty unless a result was written.
// Process never deletes or delays the message; the caller acts on the disposition.
func (w *Worker) Process(ctx context.Context, msg queue.Message) (Disposition, string) {
	jobID, filename, ok := job.Decode(msg.Body)
	if !ok {
		w.logger.Warn("discarding poison message", "message_id", msg.ID, "body", msg.Body)
		return DecodeFailed, ""
	}
	log := w.logger.With("job_id", jobID, "filename", filename)

	path, err := w.fetch(ctx, msg.Body, filename)
	if errors.Is(err, blob.ErrNotFound) {
		log.Warn("input object missing")
		if err := w.write(ctx, jobID, job.VerdictNotFound); err != nil {
			log.Error("writing result failed", "error", err)
			return TransientFailure, ""
		}
		return InputMissing, job.VerdictNotFound
	}
	if err != nil {
		log.Error("fetching input failed", "error", err)
		return TransientFailure, ""
	}
	defer os.Remove(path)

	verdict := w.invoker.Invoke(ctx, path)
	if ctx.Err() != nil {
		log.Warn("recognition interrupted by shutdown")
		return TransientFailure, ""
	}

	if err := w.write(ctx, jobID, verdict); err != nil {
		log.Error("writing result failed", "error", err)
		return TransientFailure, ""
	}
	level := slog.LevelInfo
	if job.IsErrorVerdict(verdict) {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "result written", "verdict", verdict)
	return Done, verdict
}

// fetch downloads key into a temp file whose name ends with _filename. On
// error no file is left behind.
func (w *Worker) fetch(ctx context.Context, key, filename string) (string, error) {
	f, err := os.CreateTemp(w.opts.TempDir, "job-*_"+tempSuffix(filename))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()

	_, err = w.inputs.Download(ctx, key, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing temp file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// write stores the verdict under jobID. It is a plain overwrite with no
// existence check, so duplicate deliveries converge on the same object.
func (w *Worker) write(ctx context.Context, jobID, verdict string) error {
	return w.results.Put(ctx, jobID, strings.NewReader(verdict))
}

// backoff hides the message for a jittered delay so it is redelivered later,
// possibly to another worker. Failures are logged only: the current
// visibility window still expires on its own.
func (w *Worker) backoff(ctx context.Context, msg queue.Message, log *slog.Logger) {
	delay := w.jitter(w.opts.BackoffMin, w.opts.BackoffMax)

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()

	if err := w.queue.ChangeVisibility(bctx, msg.ReceiptHandle, delay); err != nil {
		log.Warn("extending visibility failed", "error", err)
		return
	}
	log.Info("message scheduled for retry", "delay", delay.String())
}

// tempSuffixLen bounds the caller supplied part of a temp file name.
const tempSuffixLen = 100

func tempSuffix(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "input"
	}
	return job.TruncateName(strings.ReplaceAll(base, "*", "_"), tempSuffixLen)
}
