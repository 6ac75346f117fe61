package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Cleaner enforces retention policies for document backups.
type Cleaner struct {
	MaxAgeDays int
	MaxCount   int
	// DryRun when true makes ExecuteCleanup report what it would remove but
	// does not actually delete any files.
	DryRun bool
	// Purge when true ignores retention policies and removes every backup.
	Purge bool
	// now is overridden in tests.
	now func() time.Time
}

// CleanupReport summarizes what was removed and what was skipped.
type CleanupReport struct {
	Removed []string
	Skipped []string
}

// BackupInfo describes one stored backup of a document.
type BackupInfo struct {
	Path    string
	Created time.Time
	Size    int64
}

// ListBackups returns the backups of the document at path, newest first.
func ListBackups(path string) ([]BackupInfo, error) {
	dir := BackupDirectory(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory %q: %w", dir, err)
	}

	base := filepath.Base(path)
	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		created, ok := parseBackupFileName(base, e.Name())
		if !ok {
			continue
		}
		info := BackupInfo{Path: filepath.Join(dir, e.Name()), Created: created}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
		}
		out = append(out, info)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

// ExecuteCleanup applies the retention policy to the backups of the
// document at path and returns a report.
func (c *Cleaner) ExecuteCleanup(path string) (*CleanupReport, error) {
	backups, err := ListBackups(path)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}

	toRemove := make(map[string]bool)

	if c.Purge {
		for _, b := range backups {
			toRemove[b.Path] = true
		}
	}

	if c.MaxAgeDays > 0 {
		cutoff := now.Add(-time.Duration(c.MaxAgeDays) * 24 * time.Hour)
		for _, b := range backups {
			if b.Created.Before(cutoff) {
				toRemove[b.Path] = true
			}
		}
	}

	// backups is newest first
	if c.MaxCount > 0 && len(backups) > c.MaxCount {
		for _, b := range backups[c.MaxCount:] {
			toRemove[b.Path] = true
		}
	}

	var report CleanupReport
	for _, b := range backups {
		if !toRemove[b.Path] {
			continue
		}
		if c.DryRun {
			report.Removed = append(report.Removed, b.Path)
			continue
		}
		if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
			report.Skipped = append(report.Skipped, b.Path)
			continue
		}
		report.Removed = append(report.Removed, b.Path)
	}

	return &report, nil
}
