// Package submission accepts uploads, hands them to the workers and waits a
// bounded time for the verdict.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/facequeue/internal/blob"
	"github.com/kiranshivaraju/facequeue/internal/job"
	"github.com/kiranshivaraju/facequeue/internal/queue"
	"github.com/kiranshivaraju/facequeue/pkg/models"
)

var (
	ErrUploadFailed  = errors.New("upload failed")
	ErrEnqueueFailed = errors.New("enqueue failed")
	ErrInvalidJobID  = errors.New("invalid job id")
)

// Ledger records accepted submissions. It is an audit trail only and is
// never read to decide whether a job is done.
type Ledger interface {
	RecordSubmission(ctx context.Context, sub *models.Submission) error
}

// Options bounds uploads and the synchronous wait.
type Options struct {
	MaxUploadBytes    int64
	MaxWait           time.Duration
	PollInterval      time.Duration
	AllowedExtensions []string
}

// Upload is one file received from a client. Size is the declared size in bytes.
type Upload struct {
	Filename    string
	Size        int64
	Body        io.Reader
	ContentType string
	APIKeyID    *uuid.UUID
}

// Result is the state of a job as seen through the result bucket.
type Result struct {
	JobID   string
	Status  models.JobStatus
	Verdict string
}

type Option func(*Service)

// WithLedger records each submission after it is enqueued.
func WithLedger(l Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// Service is safe for concurrent use; each request waits independently.
type Service struct {
	inputs  blob.Bucket
	results blob.Bucket
	queue   queue.Sender
	ledger  Ledger
	opts    Options
	logger  *slog.Logger
}

func NewService(inputs, results blob.Bucket, q queue.Sender, opts Options, logger *slog.Logger, extra ...Option) *Service {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = DefaultExtensions
	}
	s := &Service{
		inputs:  inputs,
		results: results,
		queue:   q,
		opts:    opts,
		logger:  logger,
	}
	for _, o := range extra {
		o(s)
	}
	return s
}

// Submit validates u, stores it, enqueues the job and waits up to MaxWait for
// the verdict. A validation failure returns *ValidationError with nothing
// written. An upload failure returns ErrUploadFailed and nothing is enqueued.
func (s *Service) Submit(ctx context.Context, u Upload) (*Result, error) {
	filename, err := s.validate(u)
	if err != nil {
		return nil, err
	}

	jobID := job.NewID()
	body, err := job.Encode(jobID, filename)
	if err != nil {
		return nil, fmt.Errorf("encoding job: %w", err)
	}
	log := s.logger.With("job_id", jobID, "filename", filename)

	if err := s.inputs.Put(ctx, body, u.Body); err != nil {
		log.Error("storing upload failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if err := s.queue.Send(ctx, body); err != nil {
		log.Error("enqueueing job failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}
	log.Info("job enqueued", "size_bytes", u.Size)

	s.record(ctx, jobID, filename, body, u)

	return s.Wait(ctx, jobID), nil
}

func (s *Service) record(ctx context.Context, jobID, filename, key string, u Upload) {
	if s.ledger == nil {
		return
	}
	sub := &models.Submission{
		JobID:       uuid.MustParse(jobID),
		Filename:    filename,
		ObjectKey:   key,
		SizeBytes:   u.Size,
		ContentType: u.ContentType,
		APIKeyID:    u.APIKeyID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.RecordSubmission(ctx, sub); err != nil {
		s.logger.Warn("recording submission failed", "job_id", jobID, "error", err)
	}
}

// Wait polls the result bucket every PollInterval until the verdict appears
// or MaxWait elapses. Read errors are logged and polling continues. If ctx
// ends first the job is reported as pending.
func (s *Service) Wait(ctx context.Context, jobID string) *Result {
	deadline := time.Now().Add(s.opts.MaxWait)
	for {
		verdict, found, err := s.lookup(ctx, jobID)
		if err != nil {
			s.logger.Warn("polling result failed", "job_id", jobID, "error", err)
		} else if found {
			return &Result{JobID: jobID, Status: models.JobStatusDone, Verdict: verdict}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return pending(jobID)
		}
		t := time.NewTimer(min(s.opts.PollInterval, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return pending(jobID)
		case <-t.C:
		}
	}
}

// Status performs a single result lookup. It has no side effects.
func (s *Service) Status(ctx context.Context, jobID string) (*Result, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, ErrInvalidJobID
	}
	verdict, found, err := s.lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !found {
		return pending(jobID), nil
	}
	return &Result{JobID: jobID, Status: models.JobStatusDone, Verdict: verdict}, nil
}

func (s *Service) lookup(ctx context.Context, jobID string) (string, bool, error) {
	data, err := s.results.Get(ctx, jobID)
	if errors.Is(err, blob.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading result: %w", err)
	}
	return string(data), true, nil
}

func pending(jobID string) *Result {
	return &Result{JobID: jobID, Status: models.JobStatusPending}
}
