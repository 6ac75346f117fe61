package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout, stderr string
	err            error
}

func runArgs(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestRun_Help(t *testing.T) {
	t.Setenv("LAUNCHMAN_CONFIG", filepath.Join(t.TempDir(), "config"))
	for _, args := range [][]string{nil, {"help"}, {"-h"}, {"--help"}} {
		res := runArgs(t, "", args...)
		require.NoError(t, res.err, args)
		assert.Contains(t, res.stdout, "Available commands:", args)
		assert.Contains(t, res.stdout, "browse", args)
	}
}

func TestRun_Version(t *testing.T) {
	t.Setenv("LAUNCHMAN_CONFIG", filepath.Join(t.TempDir(), "config"))
	res := runArgs(t, "", "version")
	require.NoError(t, res.err)
	assert.Equal(t, "launchman version "+version+"\n", res.stdout)
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Setenv("LAUNCHMAN_CONFIG", filepath.Join(t.TempDir(), "config"))
	res := runArgs(t, "", "nonexistent")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "Unknown command: nonexistent")
}

func TestRun_DocumentRoundTrip(t *testing.T) {
	ws := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(configPath, []byte("backup.enabled false\n"), 0644))

	res := runArgs(t, "", "-config", configPath, "add", "-workspace", ws,
		"-json", `{"name": "Server", "type": "go", "request": "launch", "program": "${workspaceFolder}"}`)
	require.NoError(t, res.err, res.stderr)

	res = runArgs(t, `{"name": "All", "configurations": ["Server"]}`, "-config", configPath, "add", "-workspace", ws, "-json", "-")
	require.NoError(t, res.err, res.stderr)

	res = runArgs(t, "", "-config", configPath, "list", "-workspace", ws, "-format", "names")
	require.NoError(t, res.err)
	assert.Equal(t, "Server\nAll\n", res.stdout)

	data, err := os.ReadFile(filepath.Join(ws, ".vscode", "launch.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"compounds"`)
	_, err = os.Stat(filepath.Join(ws, ".vscode", ".launchman-backups"))
	assert.True(t, os.IsNotExist(err), "backups are disabled")
}

func TestRun_LogFileFlag(t *testing.T) {
	ws := t.TempDir()
	logPath := filepath.Join(t.TempDir(), "launchman.log")
	t.Setenv("LAUNCHMAN_CONFIG", filepath.Join(t.TempDir(), "config"))

	res := runArgs(t, "", "-log-level", "debug", "-log-file", logPath, "list", "-workspace", ws)
	require.NoError(t, res.err)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "opened launch document")
}

func TestRun_ConfigWarningsAreLogged(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(configPath, []byte("colour never\n"), 0644))

	res := runArgs(t, "", "-config", configPath, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `unknown global option: \"colour\"`)
}

func TestRun_BadGlobalFlag(t *testing.T) {
	res := runArgs(t, "", "-nope")
	require.Error(t, res.err)
}
