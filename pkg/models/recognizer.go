package models

import "context"

// Recognizer is the interface every recognition backend implements.
// Workers never call a backend directly; they go through recognizer.Invoker,
// which bounds the call and turns every outcome into a verdict.
type Recognizer interface {
	// Recognize classifies the image stored at imagePath and returns the raw label.
	Recognize(ctx context.Context, imagePath string) (string, error)
	// Name returns the backend identifier (e.g., "stub", "exec").
	Name() string
}
