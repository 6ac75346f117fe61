package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/launcher"
)

// LaunchCommand starts a configuration, or every configuration of a
// compound, and waits for the programs to exit.
type LaunchCommand struct {
	*BaseCommand
	app     *App
	target  target
	noDebug bool
	dryRun  bool
	file    string
}

// NewLaunchCommand creates a new launch command.
func NewLaunchCommand(app *App) *LaunchCommand {
	return &LaunchCommand{
		BaseCommand: NewBaseCommand("launch", "Start a configuration or compound", "launch [options] <name>"),
		app:         app,
	}
}

func (c *LaunchCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.BoolVar(&c.noDebug, "no-debug", false, "Run without the debugger")
	fs.BoolVar(&c.dryRun, "dry-run", false, "Print the command lines instead of running them")
	fs.StringVar(&c.file, "file", "", "File substituted for ${file}")
}

func (c *LaunchCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one name")
	}
	store, ws, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	entry, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	doc, _, err := store.Load(ctx)
	if err != nil {
		return err
	}
	configs, err := resolveLaunchTargets(doc, entry)
	if err != nil {
		return err
	}

	mode := launcher.ModeDebug
	if c.noDebug {
		mode = launcher.ModeNoDebug
	}
	file, err := c.app.absFrom(c.file)
	if err != nil {
		return err
	}

	if c.dryRun {
		planner := &launcher.ExecLauncher{Workspace: ws.Root, File: file}
		for _, cfg := range configs {
			plan, err := planner.Plan(cfg, mode)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Name, err)
			}
			_, _ = fmt.Fprintf(stdout, "%s: %s\n", cfg.Name, strings.Join(plan.Argv, " "))
		}
		return nil
	}

	l := c.app.newLauncher(ws, file, stdout)
	sessions := make([]*launcher.Session, 0, len(configs))
	for _, cfg := range configs {
		session, err := l.Launch(ctx, cfg, mode)
		if err != nil {
			return errors.Join(fmt.Errorf("%s: %w", cfg.Name, err), waitAll(sessions))
		}
		c.app.logger().Info("launched", "name", cfg.Name, "session", session.ID, "mode", mode.String())
		_, _ = fmt.Fprintf(stderr, "started %s (%s)\n", cfg.Name, mode)
		sessions = append(sessions, session)
	}
	return waitAll(sessions)
}

func waitAll(sessions []*launcher.Session) error {
	var errs []error
	for _, s := range sessions {
		if err := s.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// resolveLaunchTargets returns the configurations entry stands for. A
// compound yields its references that exist, in order; one with none left
// is an error.
func resolveLaunchTargets(doc *launch.Document, entry launch.Entry) ([]launch.Configuration, error) {
	switch e := entry.(type) {
	case launch.Configuration:
		return []launch.Configuration{e}, nil
	case launch.Compound:
		byName := make(map[string]launch.Configuration, len(doc.Configurations))
		for _, cfg := range doc.Configurations {
			if _, seen := byName[cfg.Name]; !seen {
				byName[cfg.Name] = cfg
			}
		}
		var out []launch.Configuration
		for _, ref := range e.Configurations {
			if cfg, ok := byName[ref]; ok {
				out = append(out, cfg)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("compound %q references no existing configuration", e.Name)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported entry %T", entry)
}
