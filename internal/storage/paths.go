package storage

import (
	"path/filepath"
	"strings"
	"time"
)

// backupTimeLayout sorts lexically in chronological order.
const backupTimeLayout = "20060102T150405.000000000"

// LockFilePath returns the advisory lock file guarding a document.
func LockFilePath(path string) string {
	return path + ".lock"
}

// BackupDirectory returns the directory holding backups of a document.
func BackupDirectory(path string) string {
	return filepath.Join(filepath.Dir(path), BackupDirName)
}

// BackupFileName returns the name of a backup of path taken at t.
// File naming: {base}.{timestamp}.bak
func BackupFileName(path string, t time.Time) string {
	return filepath.Base(path) + "." + t.UTC().Format(backupTimeLayout) + ".bak"
}

// parseBackupFileName extracts the timestamp of a backup of the document
// named base. ok is false for unrelated files.
func parseBackupFileName(base, name string) (t time.Time, ok bool) {
	prefix := base + "."
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".bak") {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".bak")
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
