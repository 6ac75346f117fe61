package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Explicit(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	ws, err := Resolve(root, "/somewhere/else", "")
	require.NoError(t, err)
	assert.Equal(t, SourceExplicit, ws.Source)
	assert.Equal(t, root, ws.Root)
	assert.Equal(t, filepath.Join(root, ".vscode", "launch.json"), ws.DocumentPath)
}

func TestResolve_ExplicitMustBeDirectory(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := Resolve(file, "", "")
	require.Error(t, err)
	_, err = Resolve(filepath.Join(t.TempDir(), "missing"), "", "")
	require.Error(t, err)
}

func TestResolve_GitTopLevel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	sub := filepath.Join(root, "pkg", "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))

	ws, err := Resolve("", sub, "")
	require.NoError(t, err)
	assert.Equal(t, SourceGit, ws.Source)
	assert.Equal(t, filepath.Clean(root), filepath.Clean(ws.Root))
	assert.Equal(t, filepath.Join(ws.Root, ".vscode", "launch.json"), ws.DocumentPath)
}

func TestResolve_FallsBackToDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ws, err := Resolve("", dir, "custom/debug.json")
	require.NoError(t, err)
	// The temp dir could sit inside a git checkout; only the non-git case
	// pins the root.
	if ws.Source == SourceCwd {
		assert.Equal(t, dir, ws.Root)
	}
	assert.Equal(t, filepath.Join(ws.Root, "custom", "debug.json"), ws.DocumentPath)
}

func TestResolve_AbsoluteDocument(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	doc := filepath.Join(t.TempDir(), "elsewhere.json")

	ws, err := Resolve(root, "", doc)
	require.NoError(t, err)
	assert.Equal(t, doc, ws.DocumentPath)
}
