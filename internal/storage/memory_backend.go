package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// InMemoryBackend implements Provider using in-memory storage (for testing).
type InMemoryBackend struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	locks map[string]chan struct{}
	// FailWrites, when non-nil, is returned by WriteText (for testing).
	FailWrites error
	writes     int
}

// NewInMemoryBackend creates a new in-memory storage backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		locks: make(map[string]chan struct{}),
	}
}

// ReadText returns a copy of the stored document.
func (b *InMemoryBackend) ReadText(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	data, ok := b.files[path]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteText stores a copy of data.
func (b *InMemoryBackend) WriteText(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.FailWrites != nil {
		return &IOError{Op: "write", Path: path, Err: b.FailWrites}
	}
	b.mu.Lock()
	b.dirs[filepath.Dir(path)] = true
	b.files[path] = append([]byte(nil), data...)
	b.writes++
	b.mu.Unlock()
	return nil
}

// EnsureContainer records the parent directory as existing.
func (b *InMemoryBackend) EnsureContainer(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.dirs[filepath.Dir(path)] = true
	b.mu.Unlock()
	return nil
}

// Lock acquires a per-path in-process lock.
func (b *InMemoryBackend) Lock(ctx context.Context, path string) (func() error, error) {
	b.mu.Lock()
	ch, ok := b.locks[path]
	if !ok {
		ch = make(chan struct{}, 1)
		b.locks[path] = ch
	}
	b.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
	}

	var once sync.Once
	return func() error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}

// Close releases any resources (no-op for in-memory backend).
func (b *InMemoryBackend) Close() error { return nil }

// Put seeds a document (for testing).
func (b *InMemoryBackend) Put(path string, data []byte) {
	b.mu.Lock()
	b.files[path] = append([]byte(nil), data...)
	b.mu.Unlock()
}

// Writes returns the number of successful WriteText calls.
func (b *InMemoryBackend) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

// HasContainer reports whether the parent of path was created.
func (b *InMemoryBackend) HasContainer(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirs[filepath.Dir(path)]
}

// Ensure InMemoryBackend implements Provider at compile time
var _ Provider = (*InMemoryBackend)(nil)
