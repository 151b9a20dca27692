// Package queue is the message queue client used to hand jobs from the
// submission service to the workers.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueueNotFound = errors.New("queue not found")
	ErrEmptyBody     = errors.New("message body is empty")
)

// Message is one delivery of a queued body. ReceiptHandle identifies this
// delivery, not the message, and is only valid until the visibility window ends.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	ReceiveCount  int
}

// ReceiveOptions bounds a single receive call.
type ReceiveOptions struct {
	MaxMessages       int
	WaitTime          time.Duration
	VisibilityTimeout time.Duration
}

// Sender publishes message bodies.
type Sender interface {
	Send(ctx context.Context, body string) error
}

// Queue is a named queue with visibility-timeout semantics.
// Receive returns an empty slice, not an error, when nothing arrives within WaitTime.
type Queue interface {
	Sender
	Receive(ctx context.Context, opts ReceiveOptions) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
	ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error
}
