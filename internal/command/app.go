package command

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/launcher"
	"github.com/joeycumines/launchman/internal/storage"
	"github.com/joeycumines/launchman/internal/workspace"
)

// App is the state the commands share. The zero value of every optional
// field selects the real environment.
type App struct {
	Config     *config.Config
	ConfigPath string
	Version    string
	Logger     *slog.Logger
	// Stdin is read when an entry is given as "-".
	Stdin io.Reader
	// Getwd defaults to os.Getwd.
	Getwd func() (string, error)
	// Provider replaces the configured storage backend.
	Provider storage.Provider
	// Launcher replaces the process launcher.
	Launcher launcher.Launcher
	// Interactive reports whether stdout is a terminal. Nil means it is
	// detected.
	Interactive func() bool

	mu         sync.RWMutex
	schemaOnce sync.Once
	schema     *config.ConfigSchema
}

// config returns the current configuration. The watcher may replace it
// while a command runs, so readers take a fresh pointer per lookup.
func (a *App) config() *config.Config {
	a.mu.RLock()
	cfg := a.Config
	a.mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Config == nil {
		a.Config = config.NewConfig()
	}
	return a.Config
}

func (a *App) setConfig(cfg *config.Config) {
	a.mu.Lock()
	a.Config = cfg
	a.mu.Unlock()
}

// Schema returns the option schema.
func (a *App) Schema() *config.ConfigSchema {
	a.schemaOnce.Do(func() { a.schema = config.DefaultSchema() })
	return a.schema
}

func (a *App) resolve(key string) string { return a.Schema().Resolve(a.config(), key) }

func (a *App) resolveCommand(section, key string) string {
	return a.Schema().ResolveCommand(a.config(), section, key)
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *App) stdin() io.Reader {
	if a.Stdin != nil {
		return a.Stdin
	}
	return os.Stdin
}

// target is the document a command operates on.
type target struct {
	workspace string
	document  string
}

func (t *target) setupFlags(fs *flag.FlagSet) {
	fs.StringVar(&t.workspace, "workspace", "", "Workspace root (default: config, then git top-level, then the working directory)")
	fs.StringVar(&t.document, "document", "", "Launch document path, relative to the workspace")
}

func (a *App) workspace(t target) (*workspace.Workspace, error) {
	explicit := t.workspace
	if explicit == "" {
		explicit = a.resolve("workspace")
	}
	document := t.document
	if document == "" {
		document = a.resolve("document.path")
	}
	getwd := a.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	dir, err := getwd()
	if err != nil {
		return nil, err
	}
	return workspace.Resolve(explicit, dir, document)
}

func (a *App) provider() (storage.Provider, error) {
	if a.Provider != nil {
		return a.Provider, nil
	}
	p, err := storage.GetBackend(a.resolve("storage.backend"))
	if err != nil {
		return nil, err
	}
	if fs, ok := p.(*storage.FileSystemBackend); ok {
		fs.Logger = a.logger()
		fs.Backups = a.backupPolicy()
	}
	return p, nil
}

// backupPolicy returns the configured retention, or nil when backups are
// disabled.
func (a *App) backupPolicy() *storage.Cleaner {
	schema, cfg := a.Schema(), a.config()
	if !schema.ResolveBool(cfg, "backup.enabled") {
		return nil
	}
	return &storage.Cleaner{
		MaxCount:   schema.ResolveInt(cfg, "backup.max-count"),
		MaxAgeDays: schema.ResolveInt(cfg, "backup.max-age-days"),
	}
}

// openStore resolves the workspace and opens its document.
func (a *App) openStore(t target) (*collection.Store, *workspace.Workspace, error) {
	ws, err := a.workspace(t)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.provider()
	if err != nil {
		return nil, nil, err
	}
	store, err := collection.NewStore(p, ws.DocumentPath, collection.WithLogger(a.logger()))
	if err != nil {
		return nil, nil, err
	}
	a.logger().Debug("opened launch document", "path", ws.DocumentPath, "source", ws.Source, "branch", ws.Branch)
	return store, ws, nil
}

// newLauncher returns the launcher for ws. Program output goes to out.
func (a *App) newLauncher(ws *workspace.Workspace, file string, out io.Writer) launcher.Launcher {
	if a.Launcher != nil {
		return a.Launcher
	}
	schema, cfg := a.Schema(), a.config()
	return &launcher.ExecLauncher{
		Workspace:  ws.Root,
		File:       file,
		TTY:        schema.ResolveBool(cfg, "launch.tty"),
		InheritEnv: schema.ResolveBool(cfg, "launch.shell-env"),
		Stdout:     out,
		Logger:     a.logger(),
	}
}
