package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedBackups creates one backup of path per timestamp.
func seedBackups(t *testing.T, path string, stamps ...time.Time) {
	t.Helper()
	dir := BackupDirectory(path)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, ts := range stamps {
		require.NoError(t, os.WriteFile(filepath.Join(dir, BackupFileName(path, ts)), []byte("{}"), 0644))
	}
}

func TestListBackups_IgnoresUnrelatedFiles(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "launch.json")
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seedBackups(t, path, now.Add(-time.Hour), now)
	require.NoError(t, os.WriteFile(filepath.Join(BackupDirectory(path), "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(BackupDirectory(path), "tasks.json.20260301T000000.000000000.bak"), nil, 0644))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.True(t, backups[0].Created.Equal(now))
}

func TestListBackups_NoDirectory(t *testing.T) {
	t.Parallel()
	backups, err := ListBackups(filepath.Join(t.TempDir(), "launch.json"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestCleaner_Policies(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name        string
		cleaner     Cleaner
		wantRemoved int
		wantLeft    int
	}{
		{name: "no policy", cleaner: Cleaner{}, wantRemoved: 0, wantLeft: 4},
		{name: "max count", cleaner: Cleaner{MaxCount: 1}, wantRemoved: 3, wantLeft: 1},
		{name: "max age", cleaner: Cleaner{MaxAgeDays: 2}, wantRemoved: 2, wantLeft: 2},
		{name: "purge", cleaner: Cleaner{Purge: true}, wantRemoved: 4, wantLeft: 0},
		{name: "dry run", cleaner: Cleaner{Purge: true, DryRun: true}, wantRemoved: 4, wantLeft: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "launch.json")
			seedBackups(t, path, now, now.Add(-day), now.Add(-3*day), now.Add(-5*day))

			c := tt.cleaner
			c.now = func() time.Time { return now }
			report, err := c.ExecuteCleanup(path)
			require.NoError(t, err)
			assert.Len(t, report.Removed, tt.wantRemoved)
			assert.Empty(t, report.Skipped)

			left, err := ListBackups(path)
			require.NoError(t, err)
			assert.Len(t, left, tt.wantLeft)
		})
	}
}

func TestBackupFileName_RoundTrip(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 5, 6, 7, 8, 9, 123456789, time.UTC)
	name := BackupFileName("/ws/.vscode/launch.json", ts)
	assert.Equal(t, "launch.json.20260506T070809.123456789.bak", name)

	got, ok := parseBackupFileName("launch.json", name)
	require.True(t, ok)
	assert.True(t, got.Equal(ts))

	_, ok = parseBackupFileName("launch.json", "launch.json.garbage.bak")
	assert.False(t, ok)
}

func TestLockFilePath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("ws", "launch.json.lock"), LockFilePath(filepath.Join("ws", "launch.json")))
	assert.Equal(t, filepath.Join("ws", BackupDirName), BackupDirectory(filepath.Join("ws", "launch.json")))
}
