package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// BackupDirName is the directory, next to the document, that holds the
// previous versions of a document overwritten by FileSystemBackend.
const BackupDirName = ".launchman-backups"

// FileSystemBackend implements Provider using the local file system.
type FileSystemBackend struct {
	// Perm is the permission used for written documents. Defaults to 0644.
	Perm os.FileMode
	// Backups configures retention of previous document versions. A nil
	// Cleaner disables backups.
	Backups *Cleaner
	// Logger receives warnings for best-effort work. Defaults to slog.Default().
	Logger *slog.Logger
	// now is overridden in tests.
	now func() time.Time
}

// NewFileSystemBackend creates a new file system storage backend.
func NewFileSystemBackend() *FileSystemBackend {
	return &FileSystemBackend{Perm: 0644}
}

func (b *FileSystemBackend) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *FileSystemBackend) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

// ReadText returns the document at path. An absent file yields an error
// matching ErrNotExist.
func (b *FileSystemBackend) ReadText(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, ErrNotExist)
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// WriteText atomically persists the entire document, creating the parent
// directory when it is missing. When backups are enabled the previous
// contents are copied aside first.
func (b *FileSystemBackend) WriteText(ctx context.Context, path string, data []byte) error {
	if err := b.EnsureContainer(ctx, path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.Backups != nil {
		if err := b.backup(path); err != nil {
			// The write itself still proceeds; a missing backup loses history,
			// not data.
			b.logger().Warn("failed to back up launch document", "path", path, "error", err)
		}
	}

	perm := b.Perm
	if perm == 0 {
		perm = 0644
	}
	if err := AtomicWriteFile(path, data, perm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// EnsureContainer creates the directory containing path.
func (b *FileSystemBackend) EnsureContainer(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// Lock acquires an advisory lock file next to path ("<path>.lock"). The
// containing directory is created when missing.
func (b *FileSystemBackend) Lock(ctx context.Context, path string) (func() error, error) {
	if err := b.EnsureContainer(ctx, path); err != nil {
		return nil, err
	}
	f, err := acquireFileLockContext(ctx, LockFilePath(path))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}
	var released bool
	return func() error {
		if released {
			return nil
		}
		released = true
		if err := releaseFileLock(f); err != nil {
			return fmt.Errorf("failed to release document lock: %w", err)
		}
		return nil
	}, nil
}

// Close is a no-op; locks are scoped to Lock/release pairs.
func (b *FileSystemBackend) Close() error { return nil }

// backup copies the current document, if any, into the backup directory and
// applies the retention policy.
func (b *FileSystemBackend) backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dir := BackupDirectory(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := BackupFileName(path, b.clock())
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	_, werr := dst.Write(data)
	cerr := dst.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(dst.Name())
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	report, err := b.Backups.ExecuteCleanup(path)
	if err != nil {
		return fmt.Errorf("backup cleanup: %w", err)
	}
	if len(report.Removed) > 0 {
		b.logger().Debug("pruned launch document backups", "path", path, "removed", len(report.Removed))
	}
	return nil
}

// Ensure FileSystemBackend implements Provider at compile time
var _ Provider = (*FileSystemBackend)(nil)
