// Package mock provides an in-memory blob.Bucket for tests.
package mock

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/kiranshivaraju/facequeue/internal/blob"
)

// Bucket is an in-memory blob.Bucket. The *Func hooks, when set, run before
// the default behaviour and may return an error to simulate failures.
type Bucket struct {
	PutFunc      func(key string, data []byte) error
	GetFunc      func(key string) error
	DownloadFunc func(key string) error

	mu      sync.Mutex
	objects map[string][]byte
	puts    map[string]int
}

// NewBucket returns an empty Bucket.
func NewBucket() *Bucket {
	return &Bucket{objects: make(map[string][]byte), puts: make(map[string]int)}
}

func (b *Bucket) Put(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if b.PutFunc != nil {
		if err := b.PutFunc(key, data); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.puts[key]++
	return nil
}

func (b *Bucket) Get(_ context.Context, key string) ([]byte, error) {
	if b.GetFunc != nil {
		if err := b.GetFunc(key); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (b *Bucket) Download(_ context.Context, key string, w io.WriterAt) (int64, error) {
	if b.DownloadFunc != nil {
		if err := b.DownloadFunc(key); err != nil {
			return 0, err
		}
	}
	b.mu.Lock()
	data, ok := b.objects[key]
	b.mu.Unlock()
	if !ok {
		return 0, blob.ErrNotFound
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

// Set stores an object directly, bypassing hooks and put counters.
func (b *Bucket) Set(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = bytes.Clone(data)
}

// Object returns the stored bytes for key.
func (b *Bucket) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// PutCount returns how many successful Put calls targeted key.
func (b *Bucket) PutCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.puts[key]
}

// Compile-time check that Bucket implements blob.Bucket.
var _ blob.Bucket = (*Bucket)(nil)
