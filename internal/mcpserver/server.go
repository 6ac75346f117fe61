// Package mcpserver exposes a launch configuration collection as Model
// Context Protocol tools.
//
// Entries are exchanged as JSON text so key order survives the round trip.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/launcher"
)

// Server serves the collection operations of one store.
type Server struct {
	store    *collection.Store
	launcher launcher.Launcher
	logger   *slog.Logger
	server   *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLauncher enables the launch tool.
func WithLauncher(l launcher.Launcher) Option {
	return func(s *Server) { s.launcher = l }
}

// WithLogger sets the logger used for tool calls.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New registers the tools for store.
func New(store *collection.Store, version string, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.server = mcp.NewServer(&mcp.Implementation{Name: "launchman", Version: version}, nil)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list",
		Description: "List the launch configurations and compounds of the workspace.",
	}, s.list)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "show",
		Description: "Return one configuration or compound as JSON.",
	}, s.show)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add",
		Description: "Append a configuration or compound. A record with a configurations array of names is a compound.",
	}, s.add)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update",
		Description: "Replace the configuration or compound named name. The replacement may rename it.",
	}, s.update)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove",
		Description: "Remove the configuration or compound named name, and every compound reference to it.",
	}, s.remove)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "duplicate",
		Description: `Copy the configuration or compound named name, as "<name> Copy".`,
	}, s.duplicate)
	if s.launcher != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "launch",
			Description: "Start the configuration named name, under its debugger unless noDebug is set.",
		}, s.launch)
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *mcp.Server { return s.server }

// Run serves on t until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

// RunStdio serves on stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

type (
	// EntrySummary describes a configuration in a listing.
	EntrySummary struct {
		Name    string `json:"name"`
		Type    string `json:"type,omitempty"`
		Request string `json:"request,omitempty"`
	}

	// CompoundSummary describes a compound in a listing.
	CompoundSummary struct {
		Name           string   `json:"name"`
		Configurations []string `json:"configurations"`
	}

	ListInput struct{}

	ListOutput struct {
		Path           string            `json:"path"`
		Exists         bool              `json:"exists"`
		Configurations []EntrySummary    `json:"configurations"`
		Compounds      []CompoundSummary `json:"compounds"`
	}

	NameInput struct {
		Name string `json:"name" jsonschema:"name of the configuration or compound"`
	}

	EntryInput struct {
		Entry string `json:"entry" jsonschema:"the record as JSON text with at least a name"`
	}

	UpdateInput struct {
		Name  string `json:"name" jsonschema:"current name of the record"`
		Entry string `json:"entry" jsonschema:"the replacement record as JSON text"`
	}

	LaunchInput struct {
		Name    string `json:"name" jsonschema:"name of the configuration"`
		NoDebug bool   `json:"noDebug,omitempty" jsonschema:"run without the debugger"`
	}

	ShowOutput struct {
		Kind  string `json:"kind"`
		Entry string `json:"entry"`
	}

	NameOutput struct {
		Name string `json:"name"`
	}

	LaunchOutput struct {
		Session string   `json:"session"`
		Argv    []string `json:"argv,omitempty"`
	}
)

func (s *Server) list(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	doc, exists, err := s.store.Load(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	out := ListOutput{
		Path:           s.store.Path(),
		Exists:         exists,
		Configurations: make([]EntrySummary, 0, len(doc.Configurations)),
		Compounds:      make([]CompoundSummary, 0, len(doc.Compounds)),
	}
	for _, c := range doc.Configurations {
		out.Configurations = append(out.Configurations, EntrySummary{Name: c.Name, Type: c.Type, Request: c.Request})
	}
	for _, c := range doc.Compounds {
		out.Compounds = append(out.Compounds, CompoundSummary{Name: c.Name, Configurations: append([]string{}, c.Configurations...)})
	}
	return nil, out, nil
}

func (s *Server) show(ctx context.Context, _ *mcp.CallToolRequest, in NameInput) (*mcp.CallToolResult, ShowOutput, error) {
	entry, err := s.store.Get(ctx, in.Name)
	if err != nil {
		return nil, ShowOutput{}, err
	}
	return nil, ShowOutput{Kind: kindOf(entry), Entry: string(launch.EncodeEntry(entry))}, nil
}

func (s *Server) add(ctx context.Context, _ *mcp.CallToolRequest, in EntryInput) (*mcp.CallToolResult, NameOutput, error) {
	entry, err := launch.DecodeEntry([]byte(in.Entry))
	if err != nil {
		return nil, NameOutput{}, err
	}
	if err := s.store.Add(ctx, entry); err != nil {
		return nil, NameOutput{}, err
	}
	s.logger.Info("mcp add", "name", entry.EntryName())
	return nil, NameOutput{Name: entry.EntryName()}, nil
}

func (s *Server) update(ctx context.Context, _ *mcp.CallToolRequest, in UpdateInput) (*mcp.CallToolResult, NameOutput, error) {
	entry, err := launch.DecodeEntry([]byte(in.Entry))
	if err != nil {
		return nil, NameOutput{}, err
	}
	if err := s.store.Update(ctx, in.Name, entry); err != nil {
		return nil, NameOutput{}, err
	}
	s.logger.Info("mcp update", "name", in.Name, "new_name", entry.EntryName())
	return nil, NameOutput{Name: entry.EntryName()}, nil
}

func (s *Server) remove(ctx context.Context, _ *mcp.CallToolRequest, in NameInput) (*mcp.CallToolResult, NameOutput, error) {
	if err := s.store.Remove(ctx, in.Name); err != nil {
		return nil, NameOutput{}, err
	}
	s.logger.Info("mcp remove", "name", in.Name)
	return nil, NameOutput{Name: in.Name}, nil
}

func (s *Server) duplicate(ctx context.Context, _ *mcp.CallToolRequest, in NameInput) (*mcp.CallToolResult, NameOutput, error) {
	entry, err := s.store.Get(ctx, in.Name)
	if err != nil {
		return nil, NameOutput{}, err
	}
	created, err := s.store.Duplicate(ctx, entry)
	if err != nil {
		return nil, NameOutput{}, err
	}
	return nil, NameOutput{Name: created.EntryName()}, nil
}

func (s *Server) launch(ctx context.Context, _ *mcp.CallToolRequest, in LaunchInput) (*mcp.CallToolResult, LaunchOutput, error) {
	entry, err := s.store.Get(ctx, in.Name)
	if err != nil {
		return nil, LaunchOutput{}, err
	}
	cfg, ok := entry.(launch.Configuration)
	if !ok {
		return nil, LaunchOutput{}, fmt.Errorf("%q is a compound; launch its configurations one at a time", in.Name)
	}
	mode := launcher.ModeDebug
	if in.NoDebug {
		mode = launcher.ModeNoDebug
	}
	// the session outlives the tool call
	session, err := s.launcher.Launch(context.WithoutCancel(ctx), cfg, mode)
	if err != nil {
		return nil, LaunchOutput{}, err
	}
	out := LaunchOutput{Session: session.ID}
	if session.Plan != nil {
		out.Argv = session.Plan.Argv
	}
	return nil, out, nil
}

func kindOf(e launch.Entry) string {
	switch e.(type) {
	case launch.Compound, *launch.Compound:
		return "compound"
	}
	return "configuration"
}
