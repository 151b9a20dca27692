// Package stub is a recognizer that classifies nothing. It lets the whole
// pipeline run without a model installed.
package stub

import (
	"context"
	"path/filepath"

	"github.com/kiranshivaraju/facequeue/pkg/models"
)

type Recognizer struct{}

func New() *Recognizer { return &Recognizer{} }

func (r *Recognizer) Name() string { return "stub" }

// Recognize returns UNKNOWN:<basename>.
func (r *Recognizer) Recognize(_ context.Context, imagePath string) (string, error) {
	return "UNKNOWN:" + filepath.Base(imagePath), nil
}

var _ models.Recognizer = (*Recognizer)(nil)
