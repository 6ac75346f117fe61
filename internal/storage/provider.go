package storage

import (
	"context"
	"errors"
	"io/fs"
)

// ErrNotExist is returned by Provider.ReadText when no document is stored at
// the requested path. It matches fs.ErrNotExist via errors.Is.
var ErrNotExist = &notExistError{}

type notExistError struct{}

func (*notExistError) Error() string        { return "document does not exist" }
func (*notExistError) Is(target error) bool { return target == fs.ErrNotExist }

// Provider defines the contract for all persistence mechanisms used by the
// launch configuration store. Paths are opaque to callers; the file system
// backend treats them as OS paths.
type Provider interface {
	// ReadText returns the full stored text. It MUST return an error matching
	// ErrNotExist if nothing is stored at path.
	ReadText(ctx context.Context, path string) ([]byte, error)

	// WriteText atomically replaces the stored text, creating any missing
	// parent container first.
	WriteText(ctx context.Context, path string, data []byte) error

	// EnsureContainer creates the parent container of path if it is missing.
	EnsureContainer(ctx context.Context, path string) error

	// Lock acquires an exclusive lock guarding path, waiting until it is
	// available or ctx is done. The returned release function must be called
	// exactly once.
	Lock(ctx context.Context, path string) (release func() error, err error)

	// Close performs any necessary cleanup of backend resources.
	Close() error
}

// IOError describes a failed persistence operation. Its message concatenates
// the underlying system error for diagnostics.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return e.Op + " " + e.Path + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// IsNotExist reports whether err indicates an absent document.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist) || errors.Is(err, fs.ErrNotExist)
}
