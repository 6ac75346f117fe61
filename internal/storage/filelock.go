package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrWouldBlock signals that a non-blocking lock attempt failed due to the
// resource being locked by another process.
var ErrWouldBlock = errors.New("file lock would block")

// lockRetryInterval is how long acquireFileLockContext waits between
// non-blocking attempts.
var lockRetryInterval = 25 * time.Millisecond

// AcquireLockHandle attempts to acquire an exclusive lock on path and returns
// the underlying file handle if successful. A lock held elsewhere is reported
// as (nil, false, nil).
func AcquireLockHandle(path string) (*os.File, bool, error) {
	f, err := acquireFileLock(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		if errors.Is(err, ErrWouldBlock) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return f, true, nil
}

// ReleaseLockHandle releases the lock represented by the provided file handle
// and removes the lock artifact.
func ReleaseLockHandle(f *os.File) error { return releaseFileLock(f) }

// acquireFileLockContext retries a non-blocking lock attempt until it
// succeeds, fails with something other than contention, or ctx is done.
func acquireFileLockContext(ctx context.Context, path string) (*os.File, error) {
	for {
		f, ok, err := AcquireLockHandle(path)
		if err != nil {
			return nil, err
		}
		if ok {
			return f, nil
		}
		t := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-t.C:
		}
	}
}
