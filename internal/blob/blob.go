// Package blob is the object store client used for inbound images and
// outbound verdicts.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// Bucket is a single named bucket. Implementations must be safe for concurrent use.
// Put is a plain overwrite: writing the same key twice leaves the last value.
type Bucket interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) ([]byte, error)
	Download(ctx context.Context, key string, w io.WriterAt) (int64, error)
}
