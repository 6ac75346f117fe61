package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/launchman/internal/config"
	"github.com/joeycumines/launchman/internal/mcpserver"
)

// MCPCommand serves the collection as Model Context Protocol tools on
// stdin and stdout.
type MCPCommand struct {
	*BaseCommand
	app         *App
	target      target
	allowLaunch string
}

// NewMCPCommand creates a new mcp command.
func NewMCPCommand(app *App) *MCPCommand {
	return &MCPCommand{
		BaseCommand: NewBaseCommand("mcp", "Serve the collection as MCP tools over stdio", "mcp [options]"),
		app:         app,
	}
}

func (c *MCPCommand) SetupFlags(fs *flag.FlagSet) {
	c.target.setupFlags(fs)
	fs.StringVar(&c.allowLaunch, "allow-launch", "", "Expose the launch tool: true or false (default: [mcp] allow-launch)")
}

func (c *MCPCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	server, err := c.server()
	if err != nil {
		return err
	}
	c.app.logger().Info("serving MCP on stdio")
	return server.RunStdio(ctx)
}

func (c *MCPCommand) server() (*mcpserver.Server, error) {
	allow := c.allowLaunch
	if allow == "" {
		allow = c.app.resolveCommand("mcp", "allow-launch")
	}
	launchEnabled, err := config.ParseBool(allow)
	if err != nil {
		return nil, fmt.Errorf("allow-launch: %w", err)
	}

	store, ws, err := c.app.openStore(c.target)
	if err != nil {
		return nil, err
	}
	opts := []mcpserver.Option{mcpserver.WithLogger(c.app.logger())}
	if launchEnabled {
		// stdout carries the protocol, so program output stays in the session
		opts = append(opts, mcpserver.WithLauncher(c.app.newLauncher(ws, "", nil)))
	}
	return mcpserver.New(store, c.app.Version, opts...), nil
}
