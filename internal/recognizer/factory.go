package recognizer

import (
	"fmt"

	"github.com/kiranshivaraju/facequeue/internal/config"
	"github.com/kiranshivaraju/facequeue/internal/recognizer/execrunner"
	"github.com/kiranshivaraju/facequeue/internal/recognizer/httpclient"
	"github.com/kiranshivaraju/facequeue/internal/recognizer/stub"
	"github.com/kiranshivaraju/facequeue/pkg/models"
)

// NewBackend constructs the recognition backend named by config.
// Called once at worker startup.
func NewBackend(cfg config.RecognizerConfig) (models.Recognizer, error) {
	switch cfg.Backend {
	case "stub":
		return stub.New(), nil
	case "exec":
		r, err := execrunner.New(cfg.Command)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "http":
		return httpclient.New(cfg.URL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q: must be one of stub, exec, http", cfg.Backend)
	}
}
