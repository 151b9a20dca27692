// Package mock provides an in-memory queue.Queue with visibility-timeout
// semantics for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/facequeue/internal/queue"
)

type entry struct {
	id             string
	body           string
	receiveCount   int
	receipt        string
	invisibleUntil time.Time
}

// Queue is safe for concurrent use. The hook funcs, when set, run before the
// in-memory behaviour and short-circuit it when they return an error.
type Queue struct {
	SendFunc             func(ctx context.Context, body string) error
	ReceiveFunc          func(ctx context.Context, opts queue.ReceiveOptions) error
	DeleteFunc           func(ctx context.Context, receiptHandle string) error
	ChangeVisibilityFunc func(ctx context.Context, receiptHandle string, timeout time.Duration) error

	// Now is the clock used for visibility windows.
	Now func() time.Time

	mu         sync.Mutex
	entries    []*entry
	sent       []string
	deleted    []string
	visChanges []time.Duration
	arrived    chan struct{}
}

// NewQueue returns an empty queue using the wall clock.
func NewQueue() *Queue {
	return &Queue{Now: time.Now, arrived: make(chan struct{})}
}

func (q *Queue) Send(ctx context.Context, body string) error {
	if q.SendFunc != nil {
		if err := q.SendFunc(ctx, body); err != nil {
			return err
		}
	}
	if body == "" {
		return queue.ErrEmptyBody
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &entry{id: uuid.NewString(), body: body})
	q.sent = append(q.sent, body)
	if q.arrived != nil {
		close(q.arrived)
	}
	q.arrived = make(chan struct{})
	return nil
}

func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	if q.ReceiveFunc != nil {
		if err := q.ReceiveFunc(ctx, opts); err != nil {
			return nil, err
		}
	}

	var deadline <-chan time.Time
	if opts.WaitTime > 0 {
		timer := time.NewTimer(opts.WaitTime)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		msgs, arrived := q.take(opts)
		if len(msgs) > 0 || deadline == nil {
			return msgs, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-arrived:
		}
	}
}

func (q *Queue) take(opts queue.ReceiveOptions) ([]queue.Message, <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := opts.MaxMessages
	if n <= 0 {
		n = 1
	}
	now := q.now()

	var msgs []queue.Message
	for _, e := range q.entries {
		if len(msgs) == n {
			break
		}
		if now.Before(e.invisibleUntil) {
			continue
		}
		e.receiveCount++
		e.receipt = uuid.NewString()
		e.invisibleUntil = now.Add(opts.VisibilityTimeout)
		msgs = append(msgs, queue.Message{
			ID:            e.id,
			Body:          e.body,
			ReceiptHandle: e.receipt,
			ReceiveCount:  e.receiveCount,
		})
	}
	return msgs, q.arrived
}

func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	if q.DeleteFunc != nil {
		if err := q.DeleteFunc(ctx, receiptHandle); err != nil {
			return err
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.receipt == receiptHandle {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			q.deleted = append(q.deleted, e.body)
			return nil
		}
	}
	return fmt.Errorf("delete: unknown receipt handle %q", receiptHandle)
}

func (q *Queue) ChangeVisibility(ctx context.Context, receiptHandle string, timeout time.Duration) error {
	if q.ChangeVisibilityFunc != nil {
		if err := q.ChangeVisibilityFunc(ctx, receiptHandle, timeout); err != nil {
			return err
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.receipt == receiptHandle {
			e.invisibleUntil = q.now().Add(timeout)
			q.visChanges = append(q.visChanges, timeout)
			return nil
		}
	}
	return fmt.Errorf("change visibility: unknown receipt handle %q", receiptHandle)
}

func (q *Queue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

// ExpireAll makes every in-flight message visible again, as if its window elapsed.
func (q *Queue) ExpireAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		e.invisibleUntil = time.Time{}
	}
}

// Len returns the number of messages not yet deleted.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Sent returns every body accepted by Send, in order.
func (q *Queue) Sent() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.sent...)
}

// Deleted returns the body of every deleted message, in order.
func (q *Queue) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

// VisibilityChanges returns every timeout passed to a successful ChangeVisibility.
func (q *Queue) VisibilityChanges() []time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]time.Duration(nil), q.visChanges...)
}

var _ queue.Queue = (*Queue)(nil)
