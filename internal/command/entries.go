package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joeycumines/launchman/internal/infer"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/treeview"
)

// ListCommand prints the configurations and compounds of the document.
type ListCommand struct {
	*BaseCommand
	app    *App
	target  target
	format  string
	configs bool
}

// NewListCommand creates a new list command.
func NewListCommand(app *App) *ListCommand {
	return &ListCommand{
		BaseCommand: NewBaseCommand("list", "List launch configurations and compounds", "list [options]"),
		app:         app,
	}
}

func (c *ListCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.StringVar(&c.format, "format", "", "Output format: tree, names or json (default: [list] format)")
	fs.BoolVar(&c.configs, "configurations", false, "Only configuration names, without reading compounds (requires -format names)")
}

func (c *ListCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	format := c.format
	if format == "" {
		format = c.app.resolveCommand("list", "format")
	}
	if opt := c.app.Schema().Lookup("list", "format"); opt != nil {
		if err := opt.Validate(format); err != nil {
			return fmt.Errorf("format: %w", err)
		}
	}

	if c.configs && format != "names" {
		return fmt.Errorf("-configurations requires -format names, not %s", format)
	}

	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	if c.configs {
		configs, err := store.List(ctx)
		if err != nil {
			return err
		}
		for _, cfg := range configs {
			_, _ = fmt.Fprintln(stdout, cfg.Name)
		}
		return nil
	}
	doc, exists, err := store.Load(ctx)
	if err != nil {
		if format == "tree" {
			_, _ = fmt.Fprintln(stderr, treeview.RenderError(store.Path(), err, c.app.styles(stderr)))
		}
		return err
	}

	switch format {
	case "names":
		for _, cfg := range doc.Configurations {
			_, _ = fmt.Fprintln(stdout, cfg.Name)
		}
		for _, cmp := range doc.Compounds {
			_, _ = fmt.Fprintln(stdout, cmp.Name)
		}
	case "json":
		_, _ = stdout.Write(launch.Encode(doc))
	default:
		if !exists {
			_, _ = fmt.Fprintf(stdout, "%s does not exist yet; run 'launchman init' or 'launchman add'\n", store.Path())
			return nil
		}
		_, _ = fmt.Fprintln(stdout, treeview.Render(store.Path(), doc, c.app.styles(stdout)))
	}
	return nil
}

// ShowCommand prints one entry as JSON.
type ShowCommand struct {
	*BaseCommand
	app    *App
	target target
}

// NewShowCommand creates a new show command.
func NewShowCommand(app *App) *ShowCommand {
	return &ShowCommand{
		BaseCommand: NewBaseCommand("show", "Print one configuration or compound as JSON", "show [options] <name>"),
		app:         app,
	}
}

func (c *ShowCommand) SetupFlags(fs *flag.FlagSet) { c.target.setupFlags(fs) }

func (c *ShowCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one name")
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	entry, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	_, _ = stdout.Write(launch.EncodeEntry(entry))
	_, _ = fmt.Fprintln(stdout)
	return nil
}

// entrySource is where add and update read an entry from.
type entrySource struct {
	json string
}

func (s *entrySource) setupFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.json, "json", "", `The entry as JSON text, or "-" to read it from stdin`)
}

func (s *entrySource) given() bool { return s.json != "" }

func (s *entrySource) read(stdin io.Reader) (launch.Entry, error) {
	text := []byte(s.json)
	if s.json == "-" {
		var err error
		if text, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("reading entry from stdin: %w", err)
		}
	}
	return launch.DecodeEntry(text)
}

// AddCommand appends an entry to the document.
type AddCommand struct {
	*BaseCommand
	app    *App
	target target
	source entrySource
	file   string
	dir    string
	name   string
}

// NewAddCommand creates a new add command.
func NewAddCommand(app *App) *AddCommand {
	return &AddCommand{
		BaseCommand: NewBaseCommand(
			"add",
			"Add a configuration or compound",
			"add [options] (-json <entry> | -file <path> | -dir <path>)",
		),
		app: app,
	}
}

func (c *AddCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	c.source.setupFlags(fs)
	fs.StringVar(&c.file, "file", "", "Generate a configuration that runs this file")
	fs.StringVar(&c.dir, "dir", "", "Generate a configuration for the project in this directory")
	fs.StringVar(&c.name, "name", "", "Name for a generated configuration")
}

func (c *AddCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	sources := 0
	for _, set := range []bool{c.source.given(), c.file != "", c.dir != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("exactly one of -json, -file or -dir is required")
	}

	store, ws, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}

	var entry launch.Entry
	switch {
	case c.source.given():
		if entry, err = c.source.read(c.app.stdin()); err != nil {
			return err
		}
	case c.file != "":
		path, err := c.app.absFrom(c.file)
		if err != nil {
			return err
		}
		cfg, err := infer.FromFile(ws.Root, path)
		if err != nil {
			return err
		}
		entry = c.rename(cfg)
	default:
		dir, err := c.app.absFrom(c.dir)
		if err != nil {
			return err
		}
		cfg, err := infer.FromDirectory(ws.Root, dir)
		if err != nil {
			return err
		}
		entry = c.rename(cfg)
	}

	if err := store.Add(ctx, entry); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Added %q to %s\n", entry.EntryName(), store.Path())
	return nil
}

func (c *AddCommand) rename(cfg launch.Configuration) launch.Configuration {
	if c.name != "" {
		cfg.Name = c.name
	}
	return cfg
}

// UpdateCommand replaces an entry.
type UpdateCommand struct {
	*BaseCommand
	app    *App
	target target
	source entrySource
}

// NewUpdateCommand creates a new update command.
func NewUpdateCommand(app *App) *UpdateCommand {
	return &UpdateCommand{
		BaseCommand: NewBaseCommand(
			"update",
			"Replace a configuration or compound, optionally renaming it",
			"update [options] -json <entry> <name>",
		),
		app: app,
	}
}

func (c *UpdateCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	c.source.setupFlags(fs)
}

func (c *UpdateCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one name")
	}
	if !c.source.given() {
		return errors.New("-json is required")
	}
	entry, err := c.source.read(c.app.stdin())
	if err != nil {
		return err
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	if err := store.Update(ctx, args[0], entry); err != nil {
		return err
	}
	if entry.EntryName() != args[0] {
		_, _ = fmt.Fprintf(stdout, "Updated %q (now %q)\n", args[0], entry.EntryName())
	} else {
		_, _ = fmt.Fprintf(stdout, "Updated %q\n", args[0])
	}
	return nil
}

// RemoveCommand deletes an entry and every compound reference to it.
type RemoveCommand struct {
	*BaseCommand
	app    *App
	target target
}

// NewRemoveCommand creates a new remove command.
func NewRemoveCommand(app *App) *RemoveCommand {
	return &RemoveCommand{
		BaseCommand: NewBaseCommand("remove", "Remove a configuration or compound", "remove [options] <name>"),
		app:         app,
	}
}

func (c *RemoveCommand) SetupFlags(fs *flag.FlagSet) { c.target.setupFlags(fs) }

func (c *RemoveCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one name")
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	if err := store.Remove(ctx, args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Removed %q\n", args[0])
	return nil
}

// DuplicateCommand copies an entry under a fresh name.
type DuplicateCommand struct {
	*BaseCommand
	app    *App
	target target
}

// NewDuplicateCommand creates a new duplicate command.
func NewDuplicateCommand(app *App) *DuplicateCommand {
	return &DuplicateCommand{
		BaseCommand: NewBaseCommand("duplicate", `Copy a configuration or compound as "<name> Copy"`, "duplicate [options] <name>"),
		app:         app,
	}
}

func (c *DuplicateCommand) SetupFlags(fs *flag.FlagSet) { c.target.setupFlags(fs) }

func (c *DuplicateCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one name")
	}
	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	entry, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	created, err := store.Duplicate(ctx, entry)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, created.EntryName())
	return nil
}

// absFrom resolves path against the working directory of app.
func (a *App) absFrom(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	getwd := a.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	dir, err := getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}
