package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/launchman/internal/treeview"
)

// BrowseCommand shows the interactive tree view.
type BrowseCommand struct {
	*BaseCommand
	app    *App
	target target
}

// NewBrowseCommand creates a new browse command.
func NewBrowseCommand(app *App) *BrowseCommand {
	return &BrowseCommand{
		BaseCommand: NewBaseCommand("browse", "Browse, launch and edit configurations interactively", "browse [options]"),
		app:         app,
	}
}

func (c *BrowseCommand) SetupFlags(fs *flag.FlagSet) { c.target.setupFlags(fs) }

func (c *BrowseCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	if !c.app.interactive(stdout) {
		return errors.New("browse needs a terminal; use 'launchman list' instead")
	}
	store, ws, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := c.app.startWatcher(ctx, store, 0)
	if err != nil {
		return err
	}
	defer w.Close()

	return treeview.Run(ctx, treeview.Options{
		Store: store,
		// output stays in the session buffers while the view owns the screen
		Launcher:      c.app.newLauncher(ws, "", nil),
		ClickBehavior: c.app.clickBehavior,
		Editor:        c.app.editor(),
		Styles:        c.app.styles(stdout),
		Logger:        c.app.logger(),
	})
}

// clickBehavior reads the option on every call, so a reloaded config
// applies to the next activation.
func (a *App) clickBehavior() treeview.ClickBehavior {
	b, err := treeview.ParseClickBehavior(a.resolve("click-behavior"))
	if err != nil {
		a.logger().Warn("ignoring click-behavior", "error", err)
		return treeview.ClickOpen
	}
	return b
}

func (a *App) editor() string {
	if e := a.resolve("editor"); e != "" {
		return e
	}
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	return "vi"
}
