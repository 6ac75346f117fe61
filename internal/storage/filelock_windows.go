//go:build windows

package storage

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// acquireFileLock attempts to acquire an exclusive lock on the given file.
// Returns the file handle on success, or ErrWouldBlock if another process
// holds the lock.
var acquireFileLock = func(path string) (*os.File, error) {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFileWindows(lockFile); err != nil {
		lockFile.Close()
		return nil, err
	}

	return lockFile, nil
}

// releaseFileLock releases the lock and removes the lock file.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}

	path := lockFile.Name()

	err1 := unlockFileWindows(lockFile)
	err2 := lockFile.Close()
	err3 := os.Remove(path)

	// A missing lock file is a success condition
	if err3 != nil && os.IsNotExist(err3) {
		err3 = nil
	}

	return errors.Join(err1, err2, err3)
}

// lockFileWindows acquires an exclusive lock using LockFileEx.
func lockFileWindows(f *os.File) error {
	handle := windows.Handle(f.Fd())
	var overlapped windows.Overlapped

	err := windows.LockFileEx(
		handle,
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1, // Lock 1 byte
		0,
		&overlapped,
	)
	if err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return ErrWouldBlock
		}
		return fmt.Errorf("LockFileEx failed: %w", err)
	}
	return nil
}

// unlockFileWindows releases the lock using UnlockFileEx.
func unlockFileWindows(f *os.File) error {
	handle := windows.Handle(f.Fd())
	var overlapped windows.Overlapped
	if err := windows.UnlockFileEx(handle, 0, 1, 0, &overlapped); err != nil {
		return fmt.Errorf("UnlockFileEx failed: %w", err)
	}
	return nil
}
