package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
)

// ErrUnknownCommand is returned by Run for a name with no registered command.
var ErrUnknownCommand = errors.New("unknown command")

// Registry manages the collection of available commands.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command, replacing any command of the same name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// List returns the registered command names, sorted.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.commands))
}

// Run dispatches args (without the program name) to a command. No
// arguments, -h and --help all run the help command.
func (r *Registry) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		args = []string{"help"}
	}

	cmd, err := r.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		_, _ = fmt.Fprintln(stderr, "Use 'launchman help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: launchman %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return cmd.Execute(ctx, fs.Args(), stdout, stderr)
}

// Builtin returns a registry holding every launchman command.
func Builtin(app *App) *Registry {
	r := NewRegistry()
	for _, cmd := range []Command{
		NewHelpCommand(r),
		NewVersionCommand(app.Version),
		NewConfigCommand(app),
		NewInitCommand(app),
		NewListCommand(app),
		NewShowCommand(app),
		NewAddCommand(app),
		NewUpdateCommand(app),
		NewRemoveCommand(app),
		NewDuplicateCommand(app),
		NewLaunchCommand(app),
		NewWatchCommand(app),
		NewBrowseCommand(app),
		NewEditCommand(app),
		NewMCPCommand(app),
		NewBackupsCommand(app),
		NewLogCommand(app),
	} {
		r.Register(cmd)
	}
	return r
}
