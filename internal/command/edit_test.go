package command

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/testutil"
)

// fakeEditor writes a script that replaces the file it is given with body.
func fakeEditor(t *testing.T, body string) string {
	t.Helper()
	testutil.SkipIfWindows(t, testutil.DetectPlatform(t), "editor stub is a shell script")
	dir := t.TempDir()
	content := filepath.Join(dir, "content")
	require.NoError(t, os.WriteFile(content, []byte(body), 0644))
	script := filepath.Join(dir, "editor")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncp '"+content+"' \"$1\"\n"), 0755))
	return script
}

func TestEditCommand(t *testing.T) {
	h := newDiskApp(t)
	t.Setenv("EDITOR", fakeEditor(t, `{"configurations": [{"name": "Edited", "type": "go", "request": "launch"}]}`))

	h.mustRun(t, "edit")
	doc := h.diskDocument(t)
	require.Len(t, doc.Configurations, 1)
	assert.Equal(t, "Edited", doc.Configurations[0].Name)
}

func TestEditCommandReportsInvalidResult(t *testing.T) {
	h := newDiskApp(t)
	t.Setenv("EDITOR", fakeEditor(t, `{"configurations": [`))

	_, stderr, err := h.run(t, "edit")
	var pe *launch.ParseError
	assert.True(t, errors.As(err, &pe), "got %v", err)
	assert.Contains(t, stderr, "✗ "+h.docPath+" is not valid")
}

func TestEditCommandEditorFails(t *testing.T) {
	testutil.SkipIfWindows(t, testutil.DetectPlatform(t), "relies on false(1)")
	h := newDiskApp(t)
	t.Setenv("EDITOR", "false")

	_, _, err := h.run(t, "edit")
	assert.ErrorContains(t, err, "editor false")
	// the document was still created for the editor
	_, err = os.Stat(h.docPath)
	assert.NoError(t, err)
}

func TestEditorFallback(t *testing.T) {
	h := newTestApp(t)
	// restored by t.Setenv when the test ends
	t.Setenv("EDITOR", "")
	require.NoError(t, os.Unsetenv("EDITOR"))
	t.Setenv("VISUAL", "")
	assert.Equal(t, "vi", h.editor())

	t.Setenv("VISUAL", "code --wait")
	assert.Equal(t, "code --wait", h.editor())

	h.config().SetGlobalOption("editor", "nano")
	assert.Equal(t, "nano", h.editor())

	t.Setenv("EDITOR", "emacs")
	assert.Equal(t, "emacs", h.editor())
}

func TestBrowseCommandNeedsTerminal(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	_, _, err := h.run(t, "browse")
	assert.ErrorContains(t, err, "browse needs a terminal")
	assert.Zero(t, h.backend.Writes())
}
