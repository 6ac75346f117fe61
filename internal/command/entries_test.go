package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/launch"
)

func TestListCommandFormats(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	assert.Equal(t, "Server\nWorker\nAll\nGhosts\n", h.mustRun(t, "list", "-format", "names"))

	doc, err := launch.Decode([]byte(h.mustRun(t, "list", "-format", "json")))
	require.NoError(t, err)
	assert.True(t, doc.Equal(h.document(t)))

	tree := h.mustRun(t, "list")
	assert.True(t, strings.HasPrefix(tree, h.docPath+"\n"), tree)
	for _, want := range []string{"Server", "Worker", "All", "Gone (missing)"} {
		assert.Contains(t, tree, want)
	}

	h.config().SetCommandOption("list", "format", "names")
	assert.Equal(t, "Server\nWorker\nAll\nGhosts\n", h.mustRun(t, "list"))

	_, _, err = h.run(t, "list", "-format", "yaml")
	assert.ErrorContains(t, err, "format")
}

func TestListCommandConfigurationsOnly(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)
	assert.Equal(t, "Server\nWorker\n", h.mustRun(t, "list", "-format", "names", "-configurations"))

	// compounds are never read
	h.put(`{"compounds": 42, "configurations": [{"name": "A", "type": "go", "request": "launch"}]}`)
	assert.Equal(t, "A\n", h.mustRun(t, "list", "-format", "names", "-configurations"))
	_, _, err := h.run(t, "list", "-format", "names")
	assert.Error(t, err)

	_, _, err = h.run(t, "list", "-format", "json", "-configurations")
	assert.ErrorContains(t, err, "-configurations requires -format names")
}

func TestListCommandAbsentDocument(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)

	assert.Equal(t,
		h.docPath+" does not exist yet; run 'launchman init' or 'launchman add'\n",
		h.mustRun(t, "list"))
	assert.Empty(t, h.mustRun(t, "list", "-format", "names"))
	assert.Zero(t, h.backend.Writes(), "listing must not create the document")
}

func TestListCommandInvalidDocument(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(`{"configurations": [}`)

	stdout, stderr, err := h.run(t, "list")
	var pe *launch.ParseError
	require.True(t, errors.As(err, &pe), "expected a parse error, got %v", err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "✗ "+h.docPath+" is not valid")

	_, stderr, err = h.run(t, "list", "-format", "names")
	assert.Error(t, err)
	assert.NotContains(t, stderr, "is not valid")
}

func TestShowCommand(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	entry, err := launch.DecodeEntry([]byte(h.mustRun(t, "show", "Worker")))
	require.NoError(t, err)
	cfg, ok := entry.(launch.Configuration)
	require.True(t, ok)
	assert.Equal(t, "Worker", cfg.Name)
	args, _ := cfg.Attr("args")
	got, _ := args.AsStrings()
	assert.Equal(t, []string{"-v"}, got)

	entry, err = launch.DecodeEntry([]byte(h.mustRun(t, "show", "All")))
	require.NoError(t, err)
	assert.Equal(t, launch.Compound{Name: "All", Configurations: []string{"Server", "Worker"}}.Configurations,
		entry.(launch.Compound).Configurations)

	_, _, err = h.run(t, "show", "Nope")
	var nf *collection.NotFoundError
	assert.True(t, errors.As(err, &nf), "got %v", err)

	_, _, err = h.run(t, "show")
	assert.Error(t, err)
}

func TestAddCommandJSON(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)

	out := h.mustRun(t, "add", "-json", `{"name": "Server", "type": "go", "request": "launch", "program": "${workspaceFolder}"}`)
	assert.Equal(t, `Added "Server" to `+h.docPath+"\n", out)

	h.Stdin = strings.NewReader(`{"name": "All", "configurations": ["Server"]}`)
	h.mustRun(t, "add", "-json", "-")

	doc := h.document(t)
	require.Len(t, doc.Configurations, 1)
	require.Len(t, doc.Compounds, 1)
	assert.Equal(t, "launch", doc.Configurations[0].Request)
	assert.Equal(t, []string{"Server"}, doc.Compounds[0].Configurations)

	_, _, err := h.run(t, "add", "-json", `{"name": "All", "type": "node", "request": "launch"}`)
	var dup *collection.DuplicateNameError
	assert.True(t, errors.As(err, &dup), "got %v", err)

	_, _, err = h.run(t, "add", "-json", `{"name": `)
	var pe *launch.ParseError
	assert.True(t, errors.As(err, &pe), "got %v", err)
}

func TestAddCommandInfersFromFile(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "cmd"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "cmd", "main.go"), []byte("package main\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "tool.py"), []byte("print(1)\n"), 0644))

	out := h.mustRun(t, "add", "-file", filepath.Join("cmd", "main.go"))
	assert.Equal(t, `Added "Go: main.go" to `+h.docPath+"\n", out)
	h.mustRun(t, "add", "-file", filepath.Join(h.root, "tool.py"), "-name", "Tool")

	doc := h.document(t)
	require.Len(t, doc.Configurations, 2)
	program, _ := doc.Configurations[0].StringAttr("program")
	assert.Equal(t, "${workspaceFolder}/cmd/main.go", program)
	assert.Equal(t, "go", doc.Configurations[0].Type)
	assert.Equal(t, "Tool", doc.Configurations[1].Name)
	assert.Equal(t, "debugpy", doc.Configurations[1].Type)

	_, _, err := h.run(t, "add", "-file", "README")
	assert.Error(t, err)
}

func TestAddCommandInfersFromDirectory(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "svc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "go.mod"), []byte("module example\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "svc", "go.mod"), []byte("module svc\n"), 0644))

	h.mustRun(t, "add", "-dir", ".")
	h.mustRun(t, "add", "-dir", "svc")
	assert.Equal(t, "Go: launch package\nGo: launch package (svc)\n", h.mustRun(t, "list", "-format", "names"))
}

func TestAddCommandNeedsOneSource(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	for _, args := range [][]string{
		{"add"},
		{"add", "-json", "{}", "-file", "main.go"},
		{"add", "-file", "main.go", "-dir", "."},
	} {
		_, _, err := h.run(t, args...)
		assert.ErrorContains(t, err, "exactly one of -json, -file or -dir", "%v", args)
	}
	_, _, err := h.run(t, "add", "-dir", ".", "extra")
	assert.Error(t, err)
}

func TestUpdateCommand(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	out := h.mustRun(t, "update", "-json", `{"name": "Server", "type": "go", "request": "launch", "program": "${workspaceFolder}/cmd/api"}`, "Server")
	assert.Equal(t, "Updated \"Server\"\n", out)
	program, _ := h.document(t).Configurations[0].StringAttr("program")
	assert.Equal(t, "${workspaceFolder}/cmd/api", program)

	out = h.mustRun(t, "update", "-json", `{"name": "API", "type": "go", "request": "launch"}`, "Server")
	assert.Equal(t, "Updated \"Server\" (now \"API\")\n", out)
	doc := h.document(t)
	assert.Equal(t, "API", doc.Configurations[0].Name)
	// references are left as they were
	assert.Equal(t, []string{"Server", "Worker"}, doc.Compounds[0].Configurations)

	_, _, err := h.run(t, "update", "-json", `{"name": "X", "configurations": []}`, "Worker")
	assert.ErrorIs(t, err, collection.ErrKindMismatch)

	_, _, err = h.run(t, "update", "Worker")
	assert.ErrorContains(t, err, "-json is required")
}

func TestRemoveCommand(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	assert.Equal(t, "Removed \"Server\"\n", h.mustRun(t, "remove", "Server"))
	doc := h.document(t)
	require.Len(t, doc.Configurations, 1)
	assert.Equal(t, []string{"Worker"}, doc.Compounds[0].Configurations)

	_, _, err := h.run(t, "remove", "Server")
	var nf *collection.NotFoundError
	assert.True(t, errors.As(err, &nf), "got %v", err)
}

func TestDuplicateCommand(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	assert.Equal(t, "Server Copy\n", h.mustRun(t, "duplicate", "Server"))
	assert.Equal(t, "Server Copy 2\n", h.mustRun(t, "duplicate", "Server"))
	assert.Equal(t, "All Copy\n", h.mustRun(t, "duplicate", "All"))

	doc := h.document(t)
	require.Len(t, doc.Configurations, 4)
	program, _ := doc.Configurations[2].StringAttr("program")
	assert.Equal(t, "${workspaceFolder}/cmd/server", program)
	assert.Equal(t, []string{"Server", "Worker"}, doc.Compounds[2].Configurations)
}
