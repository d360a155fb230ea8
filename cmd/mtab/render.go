package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/chazu/methodtable/snapshot"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	errorColor     = lipgloss.Color("#EF4444")
	warnColor      = lipgloss.Color("#F59E0B")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#10B981")

	classStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	okStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	borderStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// renderText writes every class of s as a set of tables.
func renderText(w io.Writer, s *snapshot.Snapshot) error {
	var b strings.Builder
	for i, c := range s.Classes {
		if i > 0 {
			b.WriteString("\n")
		}
		renderClass(&b, c)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderClass(b *strings.Builder, c snapshot.Class) {
	header := classStyle.Render(c.Name)
	if c.Super != "" {
		header += mutedStyle.Render(" < " + c.Super)
	}
	b.WriteString(header + "\n")

	vt := newTable("slot", "method", "declared by")
	for i, m := range c.VTable {
		vt.Row(strconv.Itoa(i), m.Name+m.Signature, m.Class)
	}
	b.WriteString(vt.String() + "\n")

	for _, it := range c.Itables {
		b.WriteString(mutedStyle.Render("itable "+it.Interface) + "\n")
		t := newTable("slot", "method", "declared by")
		for i, slot := range it.Slots {
			if slot.Method == nil {
				t.Row(strconv.Itoa(i), warnStyle.Render("<ambiguous>"), "")
				continue
			}
			t.Row(strconv.Itoa(i), slot.Method.Name+slot.Method.Signature, slot.Method.Class)
		}
		b.WriteString(t.String() + "\n")
	}

	for _, mir := range c.Mirandas {
		style := okStyle
		switch mir.Kind {
		case "ambiguous":
			style = warnStyle
		case "unimplemented":
			style = errorStyle
		}
		fmt.Fprintf(b, "  %s %s\n", style.Render(mir.Kind), mir.Method)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// renderBreaks writes compatibility breaks, one per line.
func renderBreaks(w io.Writer, breaks []snapshot.Break) {
	if len(breaks) == 0 {
		fmt.Fprintln(w, okStyle.Render("compatible"))
		return
	}
	for _, br := range breaks {
		fmt.Fprintln(w, errorStyle.Render("break:")+" "+br.String())
	}
}
