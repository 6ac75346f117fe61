package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "launchman - manage the launch configurations of a workspace")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: launchman <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'launchman help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: launchman %s\n", cmd.Usage())

	// flags are listed through a throwaway FlagSet
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "launchman version %s\n", c.version)
	return nil
}

// ConfigCommand manages configuration.
type ConfigCommand struct {
	*BaseCommand
	app     *App
	showAll bool
}

// NewConfigCommand creates a new config command. Values set through it are
// written to app.ConfigPath, or the default config path when that is empty.
func NewConfigCommand(app *App) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [key [value] | unset <key> | validate | schema | path]",
		),
		app: app,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show every option with its effective value")
}

// Execute manages configuration.
func (c *ConfigCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	schema := c.app.Schema()
	cfg := c.app.config()

	if len(args) == 0 {
		if c.showAll {
			c.printAll(stdout)
			return nil
		}
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Get the effective value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>  - Set a global value")
		_, _ = fmt.Fprintln(stdout, "  config unset <key>    - Remove a global value")
		_, _ = fmt.Fprintln(stdout, "  config --all          - Show every option")
		_, _ = fmt.Fprintln(stdout, "  config validate       - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema         - Show configuration schema")
		_, _ = fmt.Fprintln(stdout, "  config path           - Show the config file location")
		return nil
	}

	switch args[0] {
	case "validate":
		return c.executeValidate(stdout)
	case "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil
	case "path":
		path, err := c.path()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, path)
		return nil
	case "unset":
		if len(args) != 2 {
			return fmt.Errorf("usage: config unset <key>")
		}
		return c.unset(args[1], stdout)
	}

	switch len(args) {
	case 1:
		key := args[0]
		if schema.Lookup("", key) == nil {
			if _, exists := cfg.GetGlobalOption(key); !exists {
				_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
				return nil
			}
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.Resolve(cfg, key))
		return nil
	case 2:
		return c.set(args[0], args[1], stdout, stderr)
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) path() (string, error) {
	if c.app.ConfigPath != "" {
		return c.app.ConfigPath, nil
	}
	return config.GetConfigPath()
}

func (c *ConfigCommand) set(key, value string, stdout, stderr io.Writer) error {
	opt := c.app.Schema().Lookup("", key)
	if opt == nil {
		return fmt.Errorf("unknown option %q (see 'launchman config schema')", key)
	}
	if err := opt.Validate(value); err != nil {
		return fmt.Errorf("option %q: %w", key, err)
	}
	c.app.config().SetGlobalOption(key, value)

	path, err := c.path()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
	} else if err := config.SetKeyInFile(path, key, value); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: failed to persist config to disk: %v\n", err)
	}

	_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
	return nil
}

func (c *ConfigCommand) unset(key string, stdout io.Writer) error {
	delete(c.app.config().Global, key)
	path, err := c.path()
	if err != nil {
		return err
	}
	if err := config.UnsetKeyInFile(path, key); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Unset configuration: %s\n", key)
	return nil
}

func (c *ConfigCommand) printAll(stdout io.Writer) {
	schema, cfg := c.app.Schema(), c.app.config()
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "Global configuration:")
	for _, opt := range schema.GlobalOptions() {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", opt.Key, schema.Resolve(cfg, opt.Key))
	}
	for _, section := range schema.Sections() {
		_, _ = fmt.Fprintf(w, "\n[%s]\n", section)
		for _, opt := range schema.SectionOptions(section) {
			_, _ = fmt.Fprintf(w, "  %s\t%s\n", opt.Key, schema.ResolveCommand(cfg, section, opt.Key))
		}
	}
	_ = w.Flush()
}

// executeValidate validates the current config against the schema.
func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.app.config(), c.app.Schema())
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return nil
}

// InitCommand creates the workspace launch document, and optionally the
// user configuration file.
type InitCommand struct {
	*BaseCommand
	app        *App
	target     target
	withConfig bool
	force      bool
}

// NewInitCommand creates a new init command.
func NewInitCommand(app *App) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Create an empty launch.json in the workspace",
			"init [options]",
		),
		app: app,
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.BoolVar(&c.withConfig, "config", false, "Also write a commented configuration file")
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing configuration file (with -config)")
}

// Execute creates the document.
func (c *InitCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	if c.withConfig {
		if err := c.writeConfig(stdout); err != nil {
			return err
		}
	}

	store, _, err := c.app.openStore(c.target)
	if err != nil {
		return err
	}
	switch err := store.Init(ctx); {
	case errors.Is(err, collection.ErrDocumentExists):
		_, _ = fmt.Fprintf(stdout, "Launch document already exists at: %s\n", store.Path())
		return nil
	case err != nil:
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Created %s\n", store.Path())
	return nil
}

const defaultConfig = `# launchman configuration file
# Format: optionName remainingLineIsTheValue
# Use [command_name] sections for command-specific options.
# Run 'launchman config schema' for every option.

# What enter does in 'launchman browse': open, launch or debug
click-behavior open
color auto

# Keep the previous launch.json before each write
backup.enabled true
backup.max-count 10

[list]
format tree
`

func (c *InitCommand) writeConfig(stdout io.Writer) error {
	path := c.app.ConfigPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", path)
		_, _ = fmt.Fprintln(stdout, "Use -force to overwrite existing configuration")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	loaded, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("failed to load created config: %w", err)
	}
	maps.Copy(c.app.config().Global, loaded.Global)
	_, _ = fmt.Fprintf(stdout, "Initialized launchman configuration at: %s\n", path)
	if keys := slices.Sorted(maps.Keys(loaded.Global)); len(keys) > 0 {
		_, _ = fmt.Fprintf(stdout, "Options set: %v\n", keys)
	}
	return nil
}
