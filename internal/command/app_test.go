package command

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/launcher"
	"github.com/joeycumines/launchman/internal/storage"
	"github.com/joeycumines/launchman/internal/treeview"
)

// testApp is an App over an in-memory document in a temporary workspace.
type testApp struct {
	*App
	root     string
	docPath  string
	backend  *storage.InMemoryBackend
	launches *launcher.RecordingLauncher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.SetGlobalOption("workspace", root)
	backend := storage.NewInMemoryBackend()
	launches := new(launcher.RecordingLauncher)
	return &testApp{
		App: &App{
			Config:      cfg,
			ConfigPath:  filepath.Join(t.TempDir(), "config"),
			Version:     "test",
			Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
			Getwd:       func() (string, error) { return root, nil },
			Provider:    backend,
			Launcher:    launches,
			Interactive: func() bool { return false },
		},
		root:     root,
		docPath:  filepath.Join(root, ".vscode", "launch.json"),
		backend:  backend,
		launches: launches,
	}
}

// run dispatches args through a fresh registry, so flag values never leak
// between invocations.
func (h *testApp) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = Builtin(h.App).Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func (h *testApp) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := h.run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout
}

func (h *testApp) put(text string) { h.backend.Put(h.docPath, []byte(text)) }

func (h *testApp) document(t *testing.T) *launch.Document {
	t.Helper()
	text, err := h.backend.ReadText(context.Background(), h.docPath)
	require.NoError(t, err)
	doc, err := launch.Decode(text)
	require.NoError(t, err)
	return doc
}

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling
// reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const serverDocument = `{
    "version": "0.2.0",
    "configurations": [
        {"name": "Server", "type": "go", "request": "launch", "program": "${workspaceFolder}/cmd/server"},
        {"name": "Worker", "type": "go", "request": "launch", "program": "${workspaceFolder}/cmd/worker", "args": ["-v"]}
    ],
    "compounds": [
        {"name": "All", "configurations": ["Server", "Worker"]},
        {"name": "Ghosts", "configurations": ["Gone"]}
    ]
}
`

func TestAppWorkspace(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)

	ws, err := h.workspace(target{})
	require.NoError(t, err)
	assert.Equal(t, h.root, ws.Root)
	assert.Equal(t, h.docPath, ws.DocumentPath)

	ws, err = h.workspace(target{document: "debug/launch.json"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.root, "debug", "launch.json"), ws.DocumentPath)

	h.config().SetGlobalOption("document.path", "conf/launch.json")
	ws, err = h.workspace(target{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.root, "conf", "launch.json"), ws.DocumentPath)

	_, err = h.workspace(target{workspace: filepath.Join(h.root, "missing")})
	assert.Error(t, err)
}

func TestAppProvider(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.Provider = nil

	p, err := h.provider()
	require.NoError(t, err)
	fs, ok := p.(*storage.FileSystemBackend)
	require.True(t, ok, "expected the fs backend, got %T", p)
	require.NotNil(t, fs.Backups)
	assert.Equal(t, 10, fs.Backups.MaxCount)
	assert.Equal(t, 30, fs.Backups.MaxAgeDays)

	h.config().SetGlobalOption("backup.enabled", "false")
	p, err = h.provider()
	require.NoError(t, err)
	assert.Nil(t, p.(*storage.FileSystemBackend).Backups)

	h.config().SetGlobalOption("storage.backend", "memory")
	p, err = h.provider()
	require.NoError(t, err)
	assert.IsType(t, &storage.InMemoryBackend{}, p)

	h.config().SetGlobalOption("storage.backend", "s3")
	_, err = h.provider()
	assert.Error(t, err)
}

func TestAppNewLauncher(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	ws, err := h.workspace(target{})
	require.NoError(t, err)

	assert.Same(t, h.launches, h.newLauncher(ws, "", nil))

	h.Launcher = nil
	h.config().SetGlobalOption("launch.tty", "true")
	h.config().SetGlobalOption("launch.shell-env", "false")
	l, ok := h.newLauncher(ws, "/tmp/f.go", io.Discard).(*launcher.ExecLauncher)
	require.True(t, ok)
	assert.Equal(t, h.root, l.Workspace)
	assert.Equal(t, "/tmp/f.go", l.File)
	assert.True(t, l.TTY)
	assert.False(t, l.InheritEnv)
}

func TestAppClickBehavior(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	assert.Equal(t, treeview.ClickOpen, h.clickBehavior())

	cfg := config.NewConfig()
	cfg.SetGlobalOption("click-behavior", "debug")
	h.setConfig(cfg)
	assert.Equal(t, treeview.ClickDebug, h.clickBehavior())

	cfg.SetGlobalOption("click-behavior", "hover")
	assert.Equal(t, treeview.ClickOpen, h.clickBehavior())
}

func TestAppStylesPlainWhenNotInteractive(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	doc := &launch.Document{Configurations: []launch.Configuration{{Name: "Server", Type: "go", Request: "launch"}}}
	out := treeview.Render("launch.json", doc, h.styles(io.Discard))
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Server")
}
