package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/launcher"
)

func TestLaunchCommandConfiguration(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	stdout, stderr, err := h.run(t, "launch", "Server")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, "started Server (debug)\n", stderr)

	_, stderr, err = h.run(t, "launch", "-no-debug", "Worker")
	require.NoError(t, err)
	assert.Equal(t, "started Worker (run)\n", stderr)

	calls := h.launches.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Server", calls[0].Configuration.Name)
	assert.Equal(t, launcher.ModeDebug, calls[0].Mode)
	assert.Equal(t, "Worker", calls[1].Configuration.Name)
	assert.Equal(t, launcher.ModeNoDebug, calls[1].Mode)
}

func TestLaunchCommandCompound(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	_, stderr, err := h.run(t, "launch", "All")
	require.NoError(t, err)
	assert.Equal(t, "started Server (debug)\nstarted Worker (debug)\n", stderr)

	calls := h.launches.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Server", calls[0].Configuration.Name)
	assert.Equal(t, "Worker", calls[1].Configuration.Name)

	_, _, err = h.run(t, "launch", "Ghosts")
	assert.ErrorContains(t, err, `compound "Ghosts" references no existing configuration`)
	assert.Len(t, h.launches.Calls(), 2)
}

func TestLaunchCommandErrors(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	_, _, err := h.run(t, "launch", "Nope")
	var nf *collection.NotFoundError
	assert.True(t, errors.As(err, &nf), "got %v", err)

	_, _, err = h.run(t, "launch")
	assert.Error(t, err)

	boom := errors.New("no debugger")
	h.launches.Err = boom
	_, _, err = h.run(t, "launch", "All")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "Server: no debugger")
}

func TestLaunchCommandDryRun(t *testing.T) {
	t.Parallel()
	h := newTestApp(t)
	h.put(serverDocument)

	out := h.mustRun(t, "launch", "-dry-run", "All")
	assert.Equal(t,
		"Server: dlv debug "+h.root+"/cmd/server\n"+
			"Worker: dlv debug "+h.root+"/cmd/worker -- -v\n",
		out)

	out = h.mustRun(t, "launch", "-dry-run", "-no-debug", "Worker")
	assert.Equal(t, "Worker: go run "+h.root+"/cmd/worker -v\n", out)
	assert.Empty(t, h.launches.Calls())
}

func TestResolveLaunchTargets(t *testing.T) {
	t.Parallel()
	doc, err := launch.Decode([]byte(serverDocument))
	require.NoError(t, err)

	got, err := resolveLaunchTargets(doc, doc.Configurations[1])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Worker", got[0].Name)

	got, err = resolveLaunchTargets(doc, launch.Compound{Name: "Mixed", Configurations: []string{"Worker", "Gone", "Server"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Worker", got[0].Name)
	assert.Equal(t, "Server", got[1].Name)

	_, err = resolveLaunchTargets(doc, launch.Compound{Name: "Empty"})
	assert.Error(t, err)
}
