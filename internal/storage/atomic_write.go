package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// testHookCrashBeforeRename is a test-only hook to simulate a crash
// during the critical window between writing the temp file and renaming it.
var testHookCrashBeforeRename func()

// SetTestHookCrashBeforeRename sets the test hook for crash simulation.
// This is only for testing purposes.
func SetTestHookCrashBeforeRename(hook func()) {
	testHookCrashBeforeRename = hook
}

// RenameError wraps a rename error with the temporary file path.
type RenameError struct {
	Err      error
	tempPath string
}

func (e RenameError) Error() string    { return e.Err.Error() }
func (e RenameError) TempPath() string { return e.tempPath }
func (e RenameError) Unwrap() error    { return e.Err }

// AtomicWriteFile safely writes data by using a temporary file and an atomic
// rename. Readers observe either the previous contents or the new contents,
// never a partial write.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tempFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(filename)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var success bool
	defer func() {
		if !success {
			if err := os.Remove(tempFile.Name()); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove temporary file", "path", tempFile.Name(), "error", err)
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file %q: %w", tempFile.Name(), err)
	}
	if err := os.Chmod(tempFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if testHookCrashBeforeRename != nil {
		testHookCrashBeforeRename()
	}

	var renameErr error
	if runtime.GOOS == "windows" {
		renameErr = atomicRenameWindows(tempFile.Name(), filename)
	} else {
		renameErr = os.Rename(tempFile.Name(), filename)
	}
	if renameErr != nil {
		return RenameError{Err: renameErr, tempPath: tempFile.Name()}
	}
	success = true
	return nil
}
