package command

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joeycumines/launchman/internal/watch"
)

// LogCommand prints the end of the log file, optionally following it.
type LogCommand struct {
	*BaseCommand
	app    *App
	follow bool
	lines  int
	file   string
}

// NewLogCommand creates a new log command.
func NewLogCommand(app *App) *LogCommand {
	return &LogCommand{
		BaseCommand: NewBaseCommand("log", "View and tail the log file", "log [tail] [options]"),
		app:         app,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file (like tail -f)")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file (like tail -f)")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Path to log file (overrides config log.file)")
}

// Execute runs the log command.
func (c *LogCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// "log tail" is "log -follow"
	if len(args) > 0 && args[0] == "tail" {
		rest, err := c.parseTail(args[1:], stderr)
		if err != nil {
			return err
		}
		c.follow = true
		args = rest
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	logPath := c.file
	if logPath == "" {
		logPath = c.app.resolve("log.file")
	}
	if logPath == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use -file or set log.file in config.")
		return errors.New("no log file configured")
	}

	t := &tailer{path: logPath, out: stdout}
	err := t.printLast(c.lines)
	switch {
	case errors.Is(err, os.ErrNotExist) && c.follow:
		_, _ = fmt.Fprintf(stderr, "Waiting for log file: %s\n", logPath)
	case errors.Is(err, os.ErrNotExist):
		_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", logPath)
		return fmt.Errorf("log file not found: %s", logPath)
	case err != nil:
		return err
	}
	if !c.follow {
		return nil
	}
	return t.follow(ctx, c.app.logger())
}

// parseTail parses the options given after "tail", keeping those given
// before it.
func (c *LogCommand) parseTail(args []string, stderr io.Writer) ([]string, error) {
	follow, lines, file := c.follow, c.lines, c.file
	fs := flag.NewFlagSet(c.Name()+" tail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c.SetupFlags(fs)
	c.follow, c.lines, c.file = follow, lines, file
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// tailer copies what is appended to a file. A file that shrinks or
// disappears was rotated and is read again from the start.
type tailer struct {
	path   string
	out    io.Writer
	offset int64
}

func (t *tailer) printLast(n int) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range readLastNLines(f, n) {
		_, _ = fmt.Fprintln(t.out, line)
	}
	t.offset, err = f.Seek(0, io.SeekEnd)
	return err
}

// follow copies new data each time the file changes, until ctx is done.
func (t *tailer) follow(ctx context.Context, logger *slog.Logger) error {
	w, err := watch.New([]string{t.path}, watch.WithDebounce(50*time.Millisecond), watch.WithLogger(logger))
	if err != nil {
		return err
	}
	defer w.Close()

	// the file may have grown between printLast and the watch starting
	t.catchUp()
	err = w.Run(ctx, func([]string) { t.catchUp() })
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (t *tailer) catchUp() {
	f, err := os.Open(t.path)
	if err != nil {
		t.offset = 0
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return
	}
	if fi.Size() < t.offset {
		t.offset = 0
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	n, _ := io.Copy(t.out, f)
	t.offset += n
}

// readLastNLines returns the last n lines of r, holding at most n lines in
// memory.
func readLastNLines(r io.Reader, n int) []string {
	if n <= 0 {
		return nil
	}
	ring := make([]string, n)
	count := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	total := min(count, n)
	out := make([]string, total)
	for i := range total {
		out[i] = ring[(count-total+i)%n]
	}
	return out
}
