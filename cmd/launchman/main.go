package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/launchman/internal/command"
	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/logging"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses the global flags, which come before the command name, and
// dispatches the rest.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("launchman", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "Config file (default: $"+config.EnvConfigPath+" or ~/.launchman/config)")
	logLevel := global.String("log-level", "", "Log level: debug, info, warn or error")
	logFile := global.String("log-file", "", "Write logs to this file instead of stderr")
	var rest []string
	switch err := global.Parse(args); {
	case errors.Is(err, flag.ErrHelp):
		// an empty command line runs help
	case err != nil:
		return err
	default:
		rest = global.Args()
	}

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: %v; using defaults\n", err)
		cfg = config.NewConfig()
	}

	logger, closer, err := logging.New(command.LogOptions(cfg, *logFile, *logLevel), stderr)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn("config", "path", path, "issue", w)
	}

	app := &command.App{
		Config:     cfg,
		ConfigPath: path,
		Version:    version,
		Logger:     logger,
		Stdin:      stdin,
	}
	return command.Builtin(app).Run(ctx, rest, stdout, stderr)
}
