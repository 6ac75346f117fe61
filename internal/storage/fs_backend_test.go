package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemBackend_ReadAbsent(t *testing.T) {
	t.Parallel()
	b := NewFileSystemBackend()
	path := filepath.Join(t.TempDir(), ".vscode", "launch.json")

	_, err := b.ReadText(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.True(t, IsNotExist(err))

	var ioErr *IOError
	assert.False(t, errors.As(err, &ioErr), "absence is not an I/O failure")
}

func TestFileSystemBackend_WriteCreatesParent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := NewFileSystemBackend()
	path := filepath.Join(t.TempDir(), "nested", ".vscode", "launch.json")

	require.NoError(t, b.WriteText(ctx, path, []byte(`{"configurations": []}`)))

	got, err := b.ReadText(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, `{"configurations": []}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestFileSystemBackend_WriteFailureIsIOError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewFileSystemBackend().WriteText(context.Background(), filepath.Join(blocker, "launch.json"), []byte("{}"))
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "mkdir", ioErr.Op)
	assert.Contains(t, err.Error(), blocker)
}

func TestFileSystemBackend_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "launch.json")

	require.ErrorIs(t, NewFileSystemBackend().WriteText(ctx, path, []byte("{}")), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileSystemBackend_Lock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := NewFileSystemBackend()
	path := filepath.Join(t.TempDir(), ".vscode", "launch.json")

	release, err := b.Lock(ctx, path)
	require.NoError(t, err)
	_, err = os.Stat(LockFilePath(path))
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = b.Lock(waitCtx, path)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, release())
	require.NoError(t, release(), "release is idempotent")

	release, err = b.Lock(ctx, path)
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestFileSystemBackend_Backups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "launch.json")

	b := NewFileSystemBackend()
	b.Backups = &Cleaner{MaxCount: 2}
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, text := range []string{"v1", "v2", "v3", "v4"} {
		require.NoError(t, b.WriteText(ctx, path, []byte(text)))
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 2)

	newest, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "v3", string(newest))
	older, err := os.ReadFile(backups[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(older))
	assert.True(t, backups[0].Created.After(backups[1].Created))
}

func TestFileSystemBackend_NoBackupForFirstWrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "launch.json")
	b := NewFileSystemBackend()
	b.Backups = &Cleaner{}

	require.NoError(t, b.WriteText(context.Background(), path, []byte("{}")))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Empty(t, backups)
}
