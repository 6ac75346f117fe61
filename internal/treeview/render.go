// Package treeview renders a launch configuration document as a tree and
// provides an interactive browser for it.
package treeview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/joeycumines/launchman/internal/launch"
)

// Styles holds the styles used for every part of the tree.
type Styles struct {
	Root       lipgloss.Style
	Enumerator lipgloss.Style
	Name       lipgloss.Style
	Compound   lipgloss.Style
	Detail     lipgloss.Style
	Missing    lipgloss.Style
	Error      lipgloss.Style
	Hint       lipgloss.Style
	Selected   lipgloss.Style
	Status     lipgloss.Style
	Thumb      lipgloss.Style
	Track      lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Root:       lipgloss.NewStyle().Bold(true),
		Enumerator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Name:       lipgloss.NewStyle(),
		Compound:   lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),
		Detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Missing:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Hint:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		Selected:   lipgloss.NewStyle().Reverse(true),
		Status:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Thumb:      lipgloss.NewStyle().Background(lipgloss.Color("57")),
		Track:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// PlainStyles returns styles that emit no escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Root: plain, Enumerator: plain, Name: plain, Compound: plain,
		Detail: plain, Missing: plain, Error: plain, Hint: plain,
		Selected: plain, Status: plain, Thumb: plain, Track: plain,
	}
}

// RowKind identifies what a Row shows.
type RowKind int

const (
	RowConfiguration RowKind = iota
	RowCompound
	// RowReference is a configuration name listed under a compound.
	RowReference
)

// Row is one line of the tree.
type Row struct {
	Kind RowKind
	Name string
	// Compound is the owning compound of a RowReference.
	Compound string
	// Missing marks a reference to a configuration that does not exist.
	Missing bool
}

// Rows flattens doc into display order: configurations, then each compound
// followed by its references.
func Rows(doc *launch.Document) []Row {
	if doc == nil {
		return nil
	}
	rows := make([]Row, 0, len(doc.Configurations)+len(doc.Compounds))
	for _, c := range doc.Configurations {
		rows = append(rows, Row{Kind: RowConfiguration, Name: c.Name})
	}
	for _, c := range doc.Compounds {
		rows = append(rows, Row{Kind: RowCompound, Name: c.Name})
		for _, ref := range c.Configurations {
			rows = append(rows, Row{
				Kind:     RowReference,
				Name:     ref,
				Compound: c.Name,
				Missing:  doc.ConfigurationIndex(ref) < 0,
			})
		}
	}
	return rows
}

func describe(c launch.Configuration) string {
	switch {
	case c.Type != "" && c.Request != "":
		return c.Type + "/" + c.Request
	case c.Type != "":
		return c.Type
	default:
		return c.Request
	}
}

func configurationLabel(c launch.Configuration, s Styles) string {
	label := s.Name.Render(c.Name)
	if d := describe(c); d != "" {
		label += "  " + s.Detail.Render(d)
	}
	return label
}

func referenceLabel(name string, missing bool, s Styles) string {
	if missing {
		return s.Missing.Render(name + " (missing)")
	}
	return s.Name.Render(name)
}

// Render draws doc as a tree under title.
func Render(title string, doc *launch.Document, s Styles) string {
	t := tree.Root(title).
		RootStyle(s.Root).
		EnumeratorStyle(s.Enumerator).
		Enumerator(tree.RoundedEnumerator)

	if doc == nil || (len(doc.Configurations) == 0 && len(doc.Compounds) == 0) {
		t.Child(s.Hint.Render("no configurations"))
		return t.String()
	}

	for _, c := range doc.Configurations {
		t.Child(configurationLabel(c, s))
	}
	for _, c := range doc.Compounds {
		sub := tree.Root(s.Compound.Render(c.Name)).
			EnumeratorStyle(s.Enumerator).
			Enumerator(tree.RoundedEnumerator)
		if len(c.Configurations) == 0 {
			sub.Child(s.Hint.Render("empty compound"))
		}
		for _, ref := range c.Configurations {
			sub.Child(referenceLabel(ref, doc.ConfigurationIndex(ref) < 0, s))
		}
		t.Child(sub)
	}
	return t.String()
}

// RenderError draws the node shown in place of the tree when the document
// at path cannot be read. Parse errors carry their position and a hint to
// fix the file by hand.
func RenderError(path string, err error, s Styles) string {
	var (
		b  strings.Builder
		pe *launch.ParseError
	)
	if errors.As(err, &pe) {
		b.WriteString(s.Error.Render("✗ " + path + " is not valid"))
		b.WriteByte('\n')
		b.WriteString("  " + pe.Error())
		b.WriteByte('\n')
		hint := "  open it with `launchman edit` (or press e) to fix it"
		if pe.Line > 0 {
			hint = fmt.Sprintf("  open it with `launchman edit` (or press e) and fix line %d", pe.Line)
		}
		b.WriteString(s.Hint.Render(hint))
		return b.String()
	}
	b.WriteString(s.Error.Render("✗ " + path + " could not be read"))
	b.WriteByte('\n')
	b.WriteString("  " + err.Error())
	return b.String()
}
