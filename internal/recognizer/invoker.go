// Package recognizer wraps a recognition backend in a hard timeout and maps
// every outcome to a verdict string.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/facequeue/internal/job"
	"github.com/kiranshivaraju/facequeue/pkg/models"
)

// Invoker never returns an error: success, timeout, failure and panics all
// come back as a verdict.
type Invoker struct {
	backend models.Recognizer
	timeout time.Duration
	logger  *slog.Logger
}

func NewInvoker(backend models.Recognizer, timeout time.Duration, logger *slog.Logger) *Invoker {
	return &Invoker{backend: backend, timeout: timeout, logger: logger}
}

type outcome struct {
	label string
	err   error
}

// Invoke runs the backend against imagePath. The backend's context is
// cancelled when the timeout elapses, and Invoke returns without waiting for it.
func (i *Invoker) Invoke(ctx context.Context, imagePath string) string {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("recognizer panic: %v", r)}
			}
		}()
		label, err := i.backend.Recognize(ctx, imagePath)
		done <- outcome{label: label, err: err}
	}()

	var verdict string
	select {
	case <-ctx.Done():
		verdict = fromContext(ctx.Err())
	case out := <-done:
		verdict = normalize(ctx, out)
	}

	i.logger.Info("recognizer finished",
		"backend", i.backend.Name(),
		"verdict", verdict,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return verdict
}

func normalize(ctx context.Context, out outcome) string {
	if out.err != nil {
		if ctx.Err() != nil {
			return fromContext(ctx.Err())
		}
		// Backends with their own deadlines, such as an HTTP client timeout.
		if errors.Is(out.err, context.DeadlineExceeded) {
			return job.VerdictTimeout
		}
		return job.ErrorVerdict(out.err.Error())
	}
	label := strings.TrimSpace(out.label)
	if label == "" {
		return job.VerdictUnknown
	}
	return label
}

func fromContext(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return job.VerdictTimeout
	}
	return job.ErrorVerdict(err.Error())
}
