package command

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/joeycumines/launchman/internal/treeview"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *App) interactive(w io.Writer) bool {
	if a.Interactive != nil {
		return a.Interactive()
	}
	return isTerminal(w)
}

// styles applies the color option to the lipgloss renderer and returns the
// styles for output written to w.
func (a *App) styles(w io.Writer) treeview.Styles {
	switch a.resolve("color") {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
		return treeview.PlainStyles()
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
		return treeview.DefaultStyles()
	}
	if !a.interactive(w) || os.Getenv("NO_COLOR") != "" {
		return treeview.PlainStyles()
	}
	return treeview.DefaultStyles()
}
