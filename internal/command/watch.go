package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/treeview"
	"github.com/joeycumines/launchman/internal/watch"
)

// WatchCommand prints the collection again whenever the document changes,
// and reloads the configuration file when it changes.
type WatchCommand struct {
	*BaseCommand
	app      *App
	target   target
	debounce time.Duration
}

// NewWatchCommand creates a new watch command.
func NewWatchCommand(app *App) *WatchCommand {
	return &WatchCommand{
		BaseCommand: NewBaseCommand("watch", "Print the collection each time launch.json changes", "watch [options]"),
		app:         app,
	}
}

func (c *WatchCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.DurationVar(&c.debounce, "debounce", 0, "Quiet period before a change is reported (default: watch.debounce)")
}

func (c *WatchCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := c.app.startWatcher(ctx, store, c.debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	changes, unsubscribe := store.Signal().Subscribe()
	defer unsubscribe()

	c.print(ctx, store, stdout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			c.print(ctx, store, stdout)
		}
	}
}

func (c *WatchCommand) print(ctx context.Context, store *collection.Store, stdout io.Writer) {
	styles := c.app.styles(stdout)
	doc, exists, err := store.Load(ctx)
	switch {
	case err != nil:
		_, _ = fmt.Fprintln(stdout, treeview.RenderError(store.Path(), err, styles))
	case !exists:
		_, _ = fmt.Fprintf(stdout, "%s does not exist\n", store.Path())
	default:
		_, _ = fmt.Fprintln(stdout, treeview.Render(store.Path(), doc, styles))
	}
}

// startWatcher watches the document of store, and the config file when it
// is known, until ctx is done. Document changes refresh store; config
// changes replace app.Config, and refresh store when the click behavior
// changed.
func (a *App) startWatcher(ctx context.Context, store *collection.Store, debounce time.Duration) (*watch.Watcher, error) {
	if debounce <= 0 {
		debounce = a.Schema().ResolveDuration(a.config(), "watch.debounce")
	}
	targets := []string{store.Path()}
	configTarget := ""
	if a.ConfigPath != "" {
		abs, err := filepath.Abs(a.ConfigPath)
		if err != nil {
			return nil, err
		}
		configTarget = abs
		targets = append(targets, abs)
	}

	w, err := watch.New(targets, watch.WithDebounce(debounce), watch.WithLogger(a.logger()))
	if err != nil {
		return nil, err
	}

	go func() {
		err := w.Run(ctx, func(changed []string) {
			refresh := false
			if configTarget != "" && slices.Contains(changed, configTarget) {
				// a new click behavior redraws the tree
				refresh = a.reloadConfig()
			}
			if slices.ContainsFunc(changed, func(p string) bool { return p != configTarget }) {
				a.logger().Debug("launch document changed", "path", store.Path())
				refresh = true
			}
			if refresh {
				store.Refresh()
			}
		})
		if err != nil && ctx.Err() == nil {
			a.logger().Warn("file watcher stopped", "error", err)
		}
	}()
	return w, nil
}

// reloadConfig reads the config file again and reports whether the click
// behavior changed. A file that fails to load keeps the previous
// configuration.
func (a *App) reloadConfig() bool {
	cfg, err := config.LoadFromPath(a.ConfigPath)
	if err != nil {
		a.logger().Warn("config reload failed", "path", a.ConfigPath, "error", err)
		return false
	}
	before := a.resolve("click-behavior")
	a.setConfig(cfg)
	a.logger().Debug("config reloaded", "path", a.ConfigPath, "warnings", len(cfg.Warnings))
	after := a.resolve("click-behavior")
	if after == before {
		return false
	}
	a.logger().Info("click behavior changed", "from", before, "to", after)
	return true
}
