// Package execrunner runs an external recognition program with the image
// path as its last argument.
package execrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kiranshivaraju/facequeue/pkg/models"
)

var ErrEmptyCommand = errors.New("recognizer command is empty")

// waitDelay bounds how long Wait blocks on inherited pipes after the process is killed.
const waitDelay = 2 * time.Second

// Runner executes argv followed by the image path. The process is killed
// when the context passed to Recognize is done.
type Runner struct {
	argv []string
}

// New splits command on whitespace. Quoting is not interpreted.
func New(command string) (*Runner, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return &Runner{argv: argv}, nil
}

func (r *Runner) Name() string { return "exec" }

// Recognize returns trimmed stdout, or trimmed stderr when stdout is empty.
// A non-zero exit status is not an error as long as the program started;
// whatever it printed is the label.
func (r *Runner) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := append(append([]string(nil), r.argv[1:]...), imagePath)
	cmd := exec.CommandContext(ctx, r.argv[0], args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("run %s: %w", r.argv[0], err)
		}
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		return out, nil
	}
	return strings.TrimSpace(stderr.String()), nil
}

var _ models.Recognizer = (*Runner)(nil)
