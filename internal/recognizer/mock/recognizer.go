package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/facequeue/pkg/models"
)

// MockRecognizer satisfies models.Recognizer for testing.
type MockRecognizer struct {
	Name_         string
	RecognizeFunc func(ctx context.Context, imagePath string) (string, error)

	calls atomic.Int64
}

func (m *MockRecognizer) Name() string { return m.Name_ }

func (m *MockRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	m.calls.Add(1)
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, imagePath)
	}
	return "", nil
}

// Calls returns how many times Recognize has been invoked.
func (m *MockRecognizer) Calls() int { return int(m.calls.Load()) }

// NewMockRecognizer returns a MockRecognizer that always answers label.
func NewMockRecognizer(label string) *MockRecognizer {
	return &MockRecognizer{
		Name_: "mock",
		RecognizeFunc: func(_ context.Context, _ string) (string, error) {
			return label, nil
		},
	}
}

// NewFailingRecognizer returns a MockRecognizer that always returns the given error.
func NewFailingRecognizer(err error) *MockRecognizer {
	return &MockRecognizer{
		Name_: "mock-failing",
		RecognizeFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}

// NewBlockingRecognizer returns a MockRecognizer that blocks until its context is done.
func NewBlockingRecognizer() *MockRecognizer {
	return &MockRecognizer{
		Name_: "mock-blocking",
		RecognizeFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

// Compile-time check that MockRecognizer implements Recognizer.
var _ models.Recognizer = (*MockRecognizer)(nil)
