package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/storage"
)

// BackupsCommand lists, prunes and restores the saved previous versions of
// the launch document.
type BackupsCommand struct {
	*BaseCommand
	app    *App
	target target
	dryRun bool
	purge  bool
}

// NewBackupsCommand creates a new backups command.
func NewBackupsCommand(app *App) *BackupsCommand {
	return &BackupsCommand{
		BaseCommand: NewBaseCommand(
			"backups",
			"List, clean or restore launch.json backups",
			"backups [options] [list | clean | restore <n>]",
		),
		app: app,
	}
}

func (c *BackupsCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.BoolVar(&c.dryRun, "dry-run", false, "Report what clean would remove without removing it")
	fs.BoolVar(&c.purge, "purge", false, "Make clean remove every backup")
}

func (c *BackupsCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ws, err := c.app.workspace(c.target)
	if err != nil {
		return err
	}
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		if len(args) > 0 {
			return fmt.Errorf("unexpected arguments: %v", args)
		}
		return c.list(ws.DocumentPath, stdout)
	case "clean":
		if len(args) > 0 {
			return fmt.Errorf("unexpected arguments: %v", args)
		}
		return c.clean(ws.DocumentPath, stdout, stderr)
	case "restore":
		if len(args) != 1 {
			return errors.New("usage: backups restore <n>")
		}
		return c.restore(ctx, args[0], stdout)
	}
	return fmt.Errorf("unknown subcommand: %s", sub)
}

func (c *BackupsCommand) list(path string, stdout io.Writer) error {
	backups, err := storage.ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		_, _ = fmt.Fprintf(stdout, "No backups of %s\n", path)
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCREATED\tSIZE\tPATH")
	for i, b := range backups {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, b.Created.Local().Format(time.DateTime), b.Size, b.Path)
	}
	return w.Flush()
}

func (c *BackupsCommand) clean(path string, stdout, stderr io.Writer) error {
	cleaner := c.app.backupPolicy()
	if cleaner == nil {
		// retention still applies to backups left from before they were disabled
		schema, cfg := c.app.Schema(), c.app.config()
		cleaner = &storage.Cleaner{
			MaxCount:   schema.ResolveInt(cfg, "backup.max-count"),
			MaxAgeDays: schema.ResolveInt(cfg, "backup.max-age-days"),
		}
	}
	cleaner.DryRun = c.dryRun
	cleaner.Purge = c.purge

	report, err := cleaner.ExecuteCleanup(path)
	if err != nil {
		return err
	}
	verb := "Removed"
	if c.dryRun {
		verb = "Would remove"
	}
	for _, p := range report.Removed {
		_, _ = fmt.Fprintf(stdout, "%s %s\n", verb, p)
	}
	for _, p := range report.Skipped {
		_, _ = fmt.Fprintf(stderr, "Could not remove %s\n", p)
	}
	_, _ = fmt.Fprintf(stdout, "%s %d backup(s)\n", verb, len(report.Removed))
	return nil
}

// restore writes backup n (1 is the newest) over the document. The text is
// validated first so a malformed backup is never restored.
func (c *BackupsCommand) restore(ctx context.Context, arg string, stdout io.Writer) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return fmt.Errorf("invalid backup number %q", arg)
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	backups, err := storage.ListBackups(store.Path())
	if err != nil {
		return err
	}
	if n > len(backups) {
		return fmt.Errorf("backup %d does not exist (%d available)", n, len(backups))
	}
	text, err := os.ReadFile(backups[n-1].Path)
	if err != nil {
		return err
	}
	if _, err := launch.Decode(text); err != nil {
		return fmt.Errorf("backup %s: %w", backups[n-1].Path, err)
	}

	provider, err := c.app.provider()
	if err != nil {
		return err
	}
	release, err := provider.Lock(ctx, store.Path())
	if err != nil {
		return err
	}
	err = provider.WriteText(ctx, store.Path(), text)
	if rerr := release(); err == nil {
		err = rerr
	}
	if err != nil {
		return err
	}
	store.Refresh()
	_, _ = fmt.Fprintf(stdout, "Restored %s from %s\n", store.Path(), backups[n-1].Path)
	return nil
}
