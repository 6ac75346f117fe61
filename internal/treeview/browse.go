package treeview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joeycumines/launchman/internal/collection"
	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/launcher"
)

// ClickBehavior selects what activating a row does.
type ClickBehavior string

const (
	// ClickOpen opens the document in the editor.
	ClickOpen ClickBehavior = "open"
	// ClickLaunch runs the configuration without debugging.
	ClickLaunch ClickBehavior = "launch"
	// ClickDebug starts the configuration under its debugger.
	ClickDebug ClickBehavior = "debug"
)

// ClickBehaviors lists the accepted values in documentation order.
var ClickBehaviors = []ClickBehavior{ClickOpen, ClickLaunch, ClickDebug}

// ParseClickBehavior validates s.
func ParseClickBehavior(s string) (ClickBehavior, error) {
	for _, b := range ClickBehaviors {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("invalid click behavior %q (want open, launch or debug)", s)
}

// Options configures the browser.
type Options struct {
	Store    *collection.Store
	Launcher launcher.Launcher
	// ClickBehavior is consulted on every activation, so a changed setting
	// applies without restarting. Nil means ClickOpen.
	ClickBehavior func() ClickBehavior
	// Editor is the command line used to open the document; empty means vi.
	Editor string
	Styles Styles
	Logger *slog.Logger
}

type (
	loadedMsg struct {
		doc    *launch.Document
		exists bool
		err    error
	}
	changedMsg    struct{}
	statusMsg     struct{ text string }
	editorDoneMsg struct{ err error }
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx     context.Context
	opts    Options
	logger  *slog.Logger
	changes <-chan struct{}

	doc    *launch.Document
	exists bool
	err    error
	loaded bool
	rows   []Row

	cursor, offset int
	width, height  int
	confirm        string
	status         string
}

// New returns a browser subscribed to the store's change signal. Call the
// returned cancel func once the program has finished.
func New(ctx context.Context, opts Options) (Model, func()) {
	changes, cancel := opts.Store.Signal().Subscribe()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Model{ctx: ctx, opts: opts, logger: logger, changes: changes}, cancel
}

// Run shows the browser until the user quits or ctx is done.
func Run(ctx context.Context, opts Options, programOpts ...tea.ProgramOption) error {
	m, cancel := New(ctx, opts)
	defer cancel()
	programOpts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, programOpts...)
	_, err := tea.NewProgram(m, programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.wait())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		doc, exists, err := m.opts.Store.Load(m.ctx)
		return loadedMsg{doc: doc, exists: exists, err: err}
	}
}

// wait delivers the next change notification.
func (m Model) wait() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.follow()

	case loadedMsg:
		m.loaded = true
		m.doc, m.exists, m.err = msg.doc, msg.exists, msg.err
		m.rows = Rows(msg.doc)
		m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
		m.follow()

	case changedMsg:
		return m, tea.Batch(m.load(), m.wait())

	case statusMsg:
		m.status = msg.text

	case editorDoneMsg:
		if msg.err != nil {
			m.status = "editor: " + msg.err.Error()
		}
		return m, m.load()

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if m.confirm != "" {
		name := m.confirm
		m.confirm = ""
		if k == "y" {
			return m, m.remove(name)
		}
		m.status = "kept " + name
		return m, nil
	}

	switch k {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.visible())
	case "pgdown":
		m.move(m.visible())
	case "home", "g":
		m.move(-len(m.rows))
	case "end", "G":
		m.move(len(m.rows))
	case "R", "ctrl+r":
		return m, m.load()
	case "e":
		return m, m.edit()
	case "i":
		if m.loaded && !m.exists && m.err == nil {
			return m, m.init()
		}
	case "enter":
		switch m.clickBehavior() {
		case ClickLaunch:
			return m, m.launch(launcher.ModeNoDebug)
		case ClickDebug:
			return m, m.launch(launcher.ModeDebug)
		default:
			return m, m.edit()
		}
	case "l":
		return m, m.launch(launcher.ModeDebug)
	case "r":
		return m, m.launch(launcher.ModeNoDebug)
	case "c":
		return m, m.duplicate()
	case "x", "delete":
		if row, ok := m.selected(); ok && row.Kind != RowReference {
			m.confirm = row.Name
			m.status = fmt.Sprintf("remove %s? (y/n)", row.Name)
		}
	}
	return m, nil
}

func (m Model) clickBehavior() ClickBehavior {
	if m.opts.ClickBehavior == nil {
		return ClickOpen
	}
	return m.opts.ClickBehavior()
}

func (m *Model) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.follow()
}

// follow scrolls so the cursor is visible.
func (m *Model) follow() {
	n := m.visible()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+n {
		m.offset = m.cursor - n + 1
	}
	m.offset = max(min(m.offset, len(m.rows)-n), 0)
}

// visible is the number of rows that fit between the header and footer.
func (m Model) visible() int {
	if m.height <= 0 {
		return max(len(m.rows), 1)
	}
	return max(m.height-4, 1)
}

func (m Model) selected() (Row, bool) {
	if m.err != nil || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

// targets returns the configurations the selected row launches. A compound
// launches every configuration it references that exists.
func (m Model) targets() []launch.Configuration {
	row, ok := m.selected()
	if !ok {
		return nil
	}
	var names []string
	switch row.Kind {
	case RowCompound:
		if i := m.doc.CompoundIndex(row.Name); i >= 0 {
			names = m.doc.Compounds[i].Configurations
		}
	default:
		names = []string{row.Name}
	}
	var out []launch.Configuration
	for _, name := range names {
		if i := m.doc.ConfigurationIndex(name); i >= 0 {
			out = append(out, m.doc.Configurations[i])
		}
	}
	return out
}

func (m Model) launch(mode launcher.Mode) tea.Cmd {
	cfgs := m.targets()
	if len(cfgs) == 0 || m.opts.Launcher == nil {
		return nil
	}
	ctx, l, logger := m.ctx, m.opts.Launcher, m.logger
	return func() tea.Msg {
		var started []string
		for _, c := range cfgs {
			s, err := l.Launch(ctx, c, mode)
			if err != nil {
				logger.Warn("launch failed", "name", c.Name, "error", err)
				return statusMsg{text: fmt.Sprintf("%s: %v", c.Name, err)}
			}
			started = append(started, s.Name)
		}
		return statusMsg{text: fmt.Sprintf("started %s (%s)", strings.Join(started, ", "), mode)}
	}
}

func (m Model) duplicate() tea.Cmd {
	row, ok := m.selected()
	if !ok || row.Kind == RowReference {
		return nil
	}
	var entry launch.Entry
	if row.Kind == RowCompound {
		entry = m.doc.Compounds[m.doc.CompoundIndex(row.Name)]
	} else {
		entry = m.doc.Configurations[m.doc.ConfigurationIndex(row.Name)]
	}
	ctx, store := m.ctx, m.opts.Store
	return func() tea.Msg {
		created, err := store.Duplicate(ctx, entry)
		if err != nil {
			return statusMsg{text: "duplicate: " + err.Error()}
		}
		return statusMsg{text: "created " + created.EntryName()}
	}
}

func (m Model) remove(name string) tea.Cmd {
	ctx, store := m.ctx, m.opts.Store
	return func() tea.Msg {
		if err := store.Remove(ctx, name); err != nil {
			return statusMsg{text: "remove: " + err.Error()}
		}
		return statusMsg{text: "removed " + name}
	}
}

func (m Model) init() tea.Cmd {
	ctx, store := m.ctx, m.opts.Store
	return func() tea.Msg {
		if err := store.Init(ctx); err != nil {
			return statusMsg{text: "init: " + err.Error()}
		}
		return statusMsg{text: "created " + store.Path()}
	}
}

func (m Model) edit() tea.Cmd {
	argv := strings.Fields(m.opts.Editor)
	if len(argv) == 0 {
		argv = []string{"vi"}
	}
	cmd := exec.Command(argv[0], append(argv[1:], m.opts.Store.Path())...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg { return editorDoneMsg{err: err} })
}

func (m Model) View() string {
	s := m.opts.Styles
	var b strings.Builder
	b.WriteString(s.Root.Render(m.opts.Store.Path()))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(s.Hint.Render("loading…"))
	case m.err != nil:
		b.WriteString(RenderError(m.opts.Store.Path(), m.err, s))
	case !m.exists:
		b.WriteString(s.Hint.Render("no launch.json yet; press i to create it"))
	case len(m.rows) == 0:
		b.WriteString(s.Hint.Render("no configurations"))
	default:
		b.WriteString(m.list())
	}

	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(s.Status.Render(m.status))
		b.WriteByte('\n')
	}
	b.WriteString(s.Hint.Render(fmt.Sprintf("enter %s · l debug · r run · e edit · c copy · x remove · q quit", m.clickBehavior())))
	return b.String()
}

func (m Model) list() string {
	s := m.opts.Styles
	n := m.visible()
	end := min(m.offset+n, len(m.rows))

	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		line := m.rowLabel(m.rows[i])
		if i == m.cursor {
			line = s.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	list := strings.Join(lines, "\n")
	if len(m.rows) <= n {
		return list
	}
	bar := newScrollbar(s)
	bar.rows, bar.height, bar.offset = len(m.rows), len(lines), m.offset
	return lipgloss.JoinHorizontal(lipgloss.Top, list, " ", bar.View())
}

func (m Model) rowLabel(r Row) string {
	s := m.opts.Styles
	switch r.Kind {
	case RowCompound:
		return "▸ " + s.Compound.Render(r.Name)
	case RowReference:
		return "    " + referenceLabel(r.Name, r.Missing, s)
	}
	if i := m.doc.ConfigurationIndex(r.Name); i >= 0 {
		return "  " + configurationLabel(m.doc.Configurations[i], s)
	}
	return "  " + s.Name.Render(r.Name)
}
