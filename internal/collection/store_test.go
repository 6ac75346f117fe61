package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/notify"
	"github.com/joeycumines/launchman/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docPath = "/ws/.vscode/launch.json"

func newMemoryStore(t *testing.T, text string) (*Store, *storage.InMemoryBackend) {
	t.Helper()
	backend := storage.NewInMemoryBackend()
	if text != "" {
		backend.Put(docPath, []byte(text))
	}
	s, err := NewStore(backend, docPath)
	require.NoError(t, err)
	return s, backend
}

func node(name string) launch.Configuration {
	c := launch.Configuration{Name: name, Type: "node", Request: launch.RequestLaunch}
	c.SetAttr("program", launch.String("${workspaceFolder}/"+name+".js"))
	return c
}

func names(cs []launch.Configuration) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestNewStore_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewStore(nil, docPath)
	require.Error(t, err)
	_, err = NewStore(storage.NewInMemoryBackend(), "")
	require.Error(t, err)
}

func TestStore_ListAbsentDocumentIsEmpty(t *testing.T) {
	t.Parallel()
	s, _ := newMemoryStore(t, "")
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ListMalformedDocumentFails(t *testing.T) {
	t.Parallel()
	s, _ := newMemoryStore(t, `{"configurations": [ { "name": "A", } `)
	got, err := s.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, got, "a malformed document must not read as empty")

	var pe *launch.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestStore_ListIgnoresCompounds(t *testing.T) {
	t.Parallel()
	s, _ := newMemoryStore(t, `{
	// compounds are malformed but the fast path never looks at them
	"compounds": 42,
	"configurations": [{"name": "A", "type": "go", "request": "launch"}]
}`)
	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(got))
}

func TestStore_AddAppendsAndCreatesDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, backend := newMemoryStore(t, "")

	require.NoError(t, s.Add(ctx, node("A")))
	require.NoError(t, s.Add(ctx, node("B")))
	assert.True(t, backend.HasContainer(docPath))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"A", "B"}, names(got))
	assert.True(t, got[1].Equal(node("B")))

	doc, exists, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, launch.DefaultVersion, doc.Version)
}

func TestStore_AddRejectsCollision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, backend := newMemoryStore(t, `{"version": "0.2.0", "configurations": [{"name": "A"}], "compounds": [{"name": "G", "configurations": []}]}`)

	for _, name := range []string{"A", "G"} {
		err := s.Add(ctx, node(name))
		var dup *DuplicateNameError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, name, dup.Name)
	}
	err := s.Add(ctx, launch.Compound{Name: "A"})
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Zero(t, backend.Writes())
}

func TestStore_AddRejectsEmptyName(t *testing.T) {
	t.Parallel()
	s, _ := newMemoryStore(t, "")
	require.ErrorIs(t, s.Add(context.Background(), launch.Configuration{Type: "go"}), ErrEmptyName)
}

func TestStore_AddCompound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"version": "0.2.0", "configurations": [{"name": "A"}]}`)

	require.NoError(t, s.Add(ctx, &launch.Compound{Name: "G", Configurations: []string{"A", "Missing"}}))

	doc, _, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Compounds, 1)
	assert.Equal(t, []string{"A", "Missing"}, doc.Compounds[0].Configurations)
}

func TestStore_UpdateInPlace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, "")
	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, s.Add(ctx, node(n)))
	}

	b2 := node("B2")
	b2.SetAttr("stopOnEntry", launch.Bool(true))
	require.NoError(t, s.Update(ctx, "B", b2))

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B2", "C"}, names(got))
	assert.True(t, got[1].Equal(b2))
}

func TestStore_UpdateCompound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"configurations": [{"name": "A"}, {"name": "B"}], "compounds": [{"name": "G", "configurations": ["A"]}]}`)

	require.NoError(t, s.Update(ctx, "G", launch.Compound{Name: "G", Configurations: []string{"A", "B"}}))

	entry, err := s.Get(ctx, "G")
	require.NoError(t, err)
	g, ok := entry.(launch.Compound)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, g.Configurations)
}

func TestStore_UpdateErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	original := `{"configurations": [{"name": "A"}, {"name": "B"}], "compounds": [{"name": "G", "configurations": ["A"]}]}`

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, backend := newMemoryStore(t, original)
		err := s.Update(ctx, "Z", node("Z"))
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Z", nf.Name)
		assert.Zero(t, backend.Writes())
	})

	t.Run("rename collision", func(t *testing.T) {
		t.Parallel()
		s, backend := newMemoryStore(t, original)
		err := s.Update(ctx, "A", node("G"))
		var dup *DuplicateNameError
		require.ErrorAs(t, err, &dup)
		assert.Zero(t, backend.Writes())
	})

	t.Run("kind mismatch", func(t *testing.T) {
		t.Parallel()
		s, _ := newMemoryStore(t, original)
		require.ErrorIs(t, s.Update(ctx, "A", launch.Compound{Name: "A"}), ErrKindMismatch)
		require.ErrorIs(t, s.Update(ctx, "G", node("G")), ErrKindMismatch)
	})

	t.Run("absent document", func(t *testing.T) {
		t.Parallel()
		s, _ := newMemoryStore(t, "")
		err := s.Update(ctx, "A", node("A"))
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.ErrorIs(t, err, storage.ErrNotExist)
	})
}

func TestStore_RemoveCascadesReferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{
	"version": "0.2.0",
	"configurations": [{"name": "A"}, {"name": "B"}],
	"compounds": [{"name": "G", "configurations": ["A", "B"]}]
}`)

	require.NoError(t, s.Remove(ctx, "A"))

	doc, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(doc.Configurations))
	require.Len(t, doc.Compounds, 1)
	assert.Equal(t, []string{"B"}, doc.Compounds[0].Configurations)
}

func TestStore_RemoveCompound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"configurations": [{"name": "A"}], "compounds": [{"name": "G", "configurations": ["A"]}, {"name": "H", "configurations": ["G"]}]}`)

	require.NoError(t, s.Remove(ctx, "G"))

	doc, _, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Compounds, 1)
	assert.Equal(t, "H", doc.Compounds[0].Name)
	assert.Empty(t, doc.Compounds[0].Configurations)
	assert.True(t, doc.HasCompounds)
}

func TestStore_RemoveFirstMatchOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"configurations": [{"name": "A", "type": "x"}, {"name": "A", "type": "y"}]}`)

	require.NoError(t, s.Remove(ctx, "A"))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Type)
}

func TestStore_RemoveMissingLeavesDocumentUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	original := "{\n  // keep me\n  \"configurations\": [ {\"name\": \"A\"} ]\n}\n"
	s, backend := newMemoryStore(t, original)

	err := s.Remove(ctx, "Nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Zero(t, backend.Writes())

	text, err := backend.ReadText(ctx, docPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(text))
}

func TestStore_RemoveAbsentDocument(t *testing.T) {
	t.Parallel()
	s, backend := newMemoryStore(t, "")
	err := s.Remove(context.Background(), "A")
	assert.ErrorIs(t, err, storage.ErrNotExist)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.Zero(t, backend.Writes())
}

func TestStore_FailedMutationOnAbsentDocumentCreatesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), ".vscode")
	s, err := NewStore(storage.NewFileSystemBackend(), filepath.Join(dir, "launch.json"))
	require.NoError(t, err)

	var nf *NotFoundError
	assert.ErrorAs(t, s.Remove(ctx, "A"), &nf)
	assert.ErrorAs(t, s.Update(ctx, "A", node("A")), &nf)
	assert.ErrorIs(t, s.Update(ctx, "A", node("A")), storage.ErrNotExist)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "directory created by a failed mutation")
}

func TestStore_DuplicateDisambiguates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"version": "0.2.0", "configurations": [{"name": "A", "type": "node", "request": "launch"}]}`)

	a := launch.Configuration{Name: "A", Type: "node", Request: "launch"}
	first, err := s.Duplicate(ctx, a)
	require.NoError(t, err)
	second, err := s.Duplicate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "A Copy", first.EntryName())
	assert.Equal(t, "A Copy 2", second.EntryName())

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "A Copy", "A Copy 2"}, names(got))
	for _, c := range got[1:] {
		assert.Equal(t, "node", c.Type)
		assert.Equal(t, "launch", c.Request)
	}
}

func TestStore_DuplicateKeepsFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, "")
	src := node("A")
	src.SetAttr("args", launch.Strings("--verbose"))
	require.NoError(t, s.Add(ctx, src))

	dup, err := s.Duplicate(ctx, src)
	require.NoError(t, err)

	want := src.Clone()
	want.Name = "A Copy"
	got, ok := dup.(launch.Configuration)
	require.True(t, ok)
	assert.True(t, got.Equal(want))
}

func TestStore_DuplicateCompoundGoesToCompounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, `{"configurations": [{"name": "A"}], "compounds": [{"name": "G", "configurations": ["A"]}]}`)

	dup, err := s.Duplicate(ctx, launch.Compound{Name: "G", Configurations: []string{"A"}})
	require.NoError(t, err)
	assert.Equal(t, "G Copy", dup.EntryName())

	doc, _, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Configurations, 1)
	require.Len(t, doc.Compounds, 2)
	assert.Equal(t, "G Copy", doc.Compounds[1].Name)
}

func TestStore_InitCreatesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, backend := newMemoryStore(t, "")

	require.NoError(t, s.Init(ctx))
	text, err := backend.ReadText(ctx, docPath)
	require.NoError(t, err)
	assert.Equal(t, string(launch.Encode(launch.NewDocument())), string(text))

	require.ErrorIs(t, s.Init(ctx), ErrDocumentExists)
}

func TestStore_InitDoesNotReplaceMalformedDocument(t *testing.T) {
	t.Parallel()
	s, _ := newMemoryStore(t, "not json")
	require.ErrorIs(t, s.Init(context.Background()), ErrDocumentExists)
}

func TestStore_WriteFailureSurfacesIOError(t *testing.T) {
	t.Parallel()
	s, backend := newMemoryStore(t, "")
	backend.FailWrites = errors.New("permission denied")

	err := s.Add(context.Background(), node("A"))
	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), docPath)
}

func TestStore_NotifiesAfterMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sig := new(notify.Signal)
	s, err := NewStore(storage.NewInMemoryBackend(), docPath, WithSignal(sig))
	require.NoError(t, err)
	ch, cancel := sig.Subscribe()
	defer cancel()

	require.NoError(t, s.Add(ctx, node("A")))
	select {
	case <-ch:
	default:
		t.Fatal("expected a notification after Add")
	}

	require.Error(t, s.Remove(ctx, "Z"))
	select {
	case <-ch:
		t.Fatal("failed operations must not notify")
	default:
	}

	s.Refresh()
	select {
	case <-ch:
	default:
		t.Fatal("expected a notification after Refresh")
	}
}

func TestStore_CancelledContextDoesNotWrite(t *testing.T) {
	t.Parallel()
	s, backend := newMemoryStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Add(ctx, node("A")), context.Canceled)
	assert.Zero(t, backend.Writes())
}

func TestStore_ConcurrentAddsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMemoryStore(t, "")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, node("cfg-"+strings.Repeat("x", i))))
		}()
	}
	wg.Wait()

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestStore_FileSystemPreservesComments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ".vscode", "launch.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	original := `{
    // Use IntelliSense to learn about possible attributes.
    "version": "0.2.0",
    "configurations": [
        // the server
        {
            "name": "server",
            "type": "go",
            "request": "launch",
            "program": "${workspaceFolder}/cmd/server" // main package
        },
        {
            "name": "tests",
            "type": "go",
            "request": "launch",
            "mode": "test"
        }
    ]
}
`
	require.NoError(t, os.WriteFile(path, []byte(original), 0644))

	s, err := NewStore(storage.NewFileSystemBackend(), path)
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, node("web")))
	require.NoError(t, s.Remove(ctx, "tests"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "// Use IntelliSense to learn about possible attributes.")
	assert.Contains(t, text, "// the server")
	assert.Contains(t, text, "// main package")
	assert.NotContains(t, text, `"tests"`)
	assert.Contains(t, text, `"name": "web"`)

	got, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"server", "web"}, names(got))

	_, err = os.Stat(storage.LockFilePath(path))
	assert.True(t, os.IsNotExist(err), "lock file should be removed on release")
}

func TestCopyName(t *testing.T) {
	t.Parallel()
	doc := launch.NewDocument()
	assert.Equal(t, "A Copy", CopyName(doc, "A"))

	doc.Configurations = append(doc.Configurations, launch.Configuration{Name: "A Copy"})
	assert.Equal(t, "A Copy 2", CopyName(doc, "A"))

	doc.Compounds = append(doc.Compounds, launch.Compound{Name: "A Copy 2"})
	assert.Equal(t, "A Copy 3", CopyName(doc, "A"))
}
