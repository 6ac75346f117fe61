package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/treeview"
)

// EditCommand opens the raw document in the configured editor, creating it
// first when it is absent.
type EditCommand struct {
	*BaseCommand
	app    *App
	target target
}

// NewEditCommand creates a new edit command.
func NewEditCommand(app *App) *EditCommand {
	return &EditCommand{
		BaseCommand: NewBaseCommand("edit", "Open launch.json in $EDITOR", "edit [options]"),
		app:         app,
	}
}

func (c *EditCommand) SetupFlags(fs *flag.FlagSet) { c.target.setupFlags(fs) }

func (c *EditCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil && !errors.Is(err, collection.ErrDocumentExists) {
		return err
	}

	argv := append(strings.Fields(c.app.editor()), store.Path())
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = c.app.stdin()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %s: %w", argv[0], err)
	}

	// report a document left malformed
	if _, _, err := store.Load(ctx); err != nil {
		var pe *launch.ParseError
		if errors.As(err, &pe) {
			_, _ = fmt.Fprintln(stderr, treeview.RenderError(store.Path(), err, c.app.styles(stderr)))
		}
		return err
	}
	return nil
}

