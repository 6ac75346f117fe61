package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/joeycumines/launchman/internal/launch"
)

// Plan is the resolved process for a configuration.
type Plan struct {
	Argv []string
	Dir  string
	// Env holds KEY=VALUE pairs added to the base environment.
	Env []string
}

// ExecLauncher runs configurations as local processes.
type ExecLauncher struct {
	// Workspace is substituted for ${workspaceFolder} and is the default
	// working directory.
	Workspace string
	// File is substituted for ${file}.
	File string
	// TTY runs the program on a pseudo-terminal.
	TTY bool
	// InheritEnv starts from the current environment instead of an empty
	// one (PATH and HOME are always kept).
	InheritEnv bool
	// Stdout receives the program's output in addition to the session
	// buffer. Optional.
	Stdout io.Writer
	Logger *slog.Logger
}

func (l *ExecLauncher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Launch starts the program for cfg and returns without waiting for it.
func (l *ExecLauncher) Launch(ctx context.Context, cfg launch.Configuration, mode Mode) (*Session, error) {
	plan, err := l.Plan(cfg, mode)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, plan.Argv[0], plan.Argv[1:]...)
	cmd.Dir = plan.Dir
	cmd.Env = append(l.baseEnv(), plan.Env...)

	s := newSession(uuid.NewString(), cfg.Name, mode, plan)
	var out io.Writer = &s.output
	if l.Stdout != nil {
		out = io.MultiWriter(&s.output, l.Stdout)
	}

	if l.TTY {
		ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
		if err != nil {
			return nil, fmt.Errorf("failed to start %s with pty: %w", plan.Argv[0], err)
		}
		copied := make(chan struct{})
		go func() {
			defer close(copied)
			// EIO once the child exits and the slave side closes
			_, _ = io.Copy(out, ptmx)
		}()
		go func() {
			err := cmd.Wait()
			<-copied
			_ = ptmx.Close()
			s.finish(err)
		}()
	} else {
		cmd.Stdout = out
		cmd.Stderr = out
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", plan.Argv[0], err)
		}
		go func() { s.finish(cmd.Wait()) }()
	}

	l.logger().Info("launched configuration", "name", cfg.Name, "session", s.ID, "mode", mode.String(), "argv", plan.Argv)
	return s, nil
}

func (l *ExecLauncher) baseEnv() []string {
	if l.InheritEnv {
		return os.Environ()
	}
	var env []string
	for _, k := range []string{"PATH", "HOME", "USERPROFILE", "SYSTEMROOT", "TMPDIR", "TERM"} {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}

// Plan resolves the command line, directory and environment for cfg
// without starting anything.
func (l *ExecLauncher) Plan(cfg launch.Configuration, mode Mode) (*Plan, error) {
	if cfg.Request == launch.RequestAttach {
		return nil, fmt.Errorf("%q: %w", cfg.Name, ErrAttachUnsupported)
	}
	sub := l.substituter()

	str := func(key string) string {
		s, _ := cfg.StringAttr(key)
		return sub(s)
	}
	strs := func(key string) []string {
		v, ok := cfg.Attr(key)
		if !ok {
			return nil
		}
		if s, ok := v.AsString(); ok {
			return strings.Fields(sub(s))
		}
		ss, _ := v.AsStrings()
		out := make([]string, len(ss))
		for i, s := range ss {
			out[i] = sub(s)
		}
		return out
	}

	program, module, args := str("program"), str("module"), strs("args")
	runtime, runtimeArgs := str("runtimeExecutable"), strs("runtimeArgs")
	debug := mode == ModeDebug

	var argv []string
	switch {
	case runtime != "":
		argv = append([]string{runtime}, runtimeArgs...)
		if program != "" {
			argv = append(argv, program)
		}
		argv = append(argv, args...)

	case cfg.Type == "go":
		if program == "" {
			return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
		}
		if debug {
			argv = []string{"dlv", "debug", program}
			if len(args) > 0 {
				argv = append(append(argv, "--"), args...)
			}
		} else {
			argv = append([]string{"go", "run", program}, args...)
		}

	case cfg.Type == "node" || cfg.Type == "pwa-node":
		if program == "" {
			return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
		}
		argv = append([]string{"node"}, runtimeArgs...)
		if debug {
			argv = append(argv, "--inspect-brk")
		}
		argv = append(append(argv, program), args...)

	case cfg.Type == "debugpy" || cfg.Type == "python":
		argv = []string{"python3"}
		if debug {
			argv = append(argv, "-m", "debugpy", "--listen", "5678", "--wait-for-client")
		}
		switch {
		case module != "":
			argv = append(argv, "-m", module)
		case program != "":
			argv = append(argv, program)
		default:
			return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
		}
		argv = append(argv, args...)

	case cfg.Type == "bashdb" || cfg.Type == "shell":
		if program == "" {
			return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
		}
		argv = []string{"bash"}
		if debug {
			argv = append(argv, "-x")
		}
		argv = append(append(argv, program), args...)

	case cfg.Type == "lldb" && program == "":
		if _, ok := cfg.Attr("cargo"); !ok {
			return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
		}
		argv = []string{"cargo", "run"}
		if len(args) > 0 {
			argv = append(append(argv, "--"), args...)
		}

	case program != "":
		if debug && cfg.Type == "lldb" {
			argv = append([]string{"lldb", "--", program}, args...)
		} else {
			argv = append([]string{program}, args...)
		}

	default:
		return nil, fmt.Errorf("%q: %w", cfg.Name, ErrNoProgram)
	}

	dir := str("cwd")
	if dir == "" {
		dir = l.Workspace
	}

	var env []string
	if v, ok := cfg.Attr("env"); ok {
		if obj, ok := v.AsObject(); ok {
			obj.Range(func(k string, v launch.Value) bool {
				if s, ok := v.AsString(); ok {
					env = append(env, k+"="+sub(s))
				} else if !v.IsNull() {
					raw, _ := v.MarshalJSON()
					env = append(env, k+"="+string(raw))
				}
				return true
			})
		}
	}
	sort.Strings(env)

	return &Plan{Argv: argv, Dir: dir, Env: env}, nil
}

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z]+)(?::([^}]*))?\}`)

// substituter expands the predefined variables. Unknown variables are left
// as they are.
func (l *ExecLauncher) substituter() func(string) string {
	cwd, _ := os.Getwd()
	return func(s string) string {
		if !strings.Contains(s, "${") {
			return s
		}
		return variablePattern.ReplaceAllStringFunc(s, func(m string) string {
			parts := variablePattern.FindStringSubmatch(m)
			name, arg := parts[1], parts[2]
			switch name {
			case "workspaceFolder", "workspaceRoot":
				return l.Workspace
			case "workspaceFolderBasename":
				return filepath.Base(l.Workspace)
			case "file":
				return l.File
			case "fileBasename":
				return filepath.Base(l.File)
			case "fileDirname":
				return filepath.Dir(l.File)
			case "relativeFile":
				if rel, err := filepath.Rel(l.Workspace, l.File); err == nil {
					return rel
				}
				return l.File
			case "cwd":
				return cwd
			case "pathSeparator":
				return string(filepath.Separator)
			case "env":
				return os.Getenv(arg)
			}
			return m
		})
	}
}

// Ensure ExecLauncher implements Launcher at compile time
var _ Launcher = (*ExecLauncher)(nil)
