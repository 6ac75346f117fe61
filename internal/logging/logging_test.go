package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelWarn,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "loud")
}

func TestNew_TextToFallback(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("document saved", "path", "/ws/.vscode/launch.json")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"document saved\"")
	assert.Contains(t, out, "path=/ws/.vscode/launch.json")
}

func TestNew_JSONToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "launchman.log")
	var fallback bytes.Buffer
	logger, closer, err := New(Options{Level: "debug", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 1}, &fallback)
	require.NoError(t, err)

	logger.Debug("reload", "configurations", 2)
	require.NoError(t, closer.Close())
	assert.Zero(t, fallback.Len())

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &record))
	assert.Equal(t, "reload", record["msg"])
	assert.Equal(t, "DEBUG", record["level"])
	assert.EqualValues(t, 2, record["configurations"])
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()
	_, _, err := New(Options{Level: "chatty"}, nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "x.log")
	_, _, err = New(Options{Format: "xml", File: path}, nil)
	assert.ErrorContains(t, err, "xml")

	logger, closer, err := New(Options{}, nil)
	require.NoError(t, err)
	logger.Error("discarded")
	assert.NoError(t, closer.Close())
}
