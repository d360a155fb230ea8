package server

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/methodtable/manifest"
	"github.com/chazu/methodtable/model"
	"github.com/chazu/methodtable/vtable"
)

// Analysis is the result of building and linking one hierarchy document.
// Universe is nil when the document could not be built.
type Analysis struct {
	Path        string
	Universe    *model.Universe
	Diagnostics []protocol.Diagnostic
}

var lineInError = regexp.MustCompile(`line (\d+)`)

// Analyze parses, builds and links a document. Every problem is turned into
// a diagnostic; Analyze itself never fails.
func Analyze(ctx context.Context, path, text string) *Analysis {
	a := &Analysis{Path: path}

	m, err := manifest.LoadBytes(path, []byte(text))
	if err != nil {
		line := 0
		if match := lineInError.FindStringSubmatch(err.Error()); match != nil {
			if n, convErr := strconv.Atoi(match[1]); convErr == nil && n > 0 {
				line = n - 1
			}
		}
		a.addDiagnostic(lineRange(text, line), protocol.DiagnosticSeverityError, err.Error())
		return a
	}

	u, opts, err := m.Build()
	if err != nil {
		a.addTypeErrors(text, err)
		return a
	}
	a.Universe = u

	if err := model.NewLinker(u, opts).Link(ctx); err != nil {
		a.addTypeErrors(text, err)
	}
	a.addMirandaWarnings(text)
	return a
}

func (a *Analysis) addDiagnostic(r protocol.Range, severity protocol.DiagnosticSeverity, msg string) {
	source := lspName
	a.Diagnostics = append(a.Diagnostics, protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	})
}

// addTypeErrors reports each joined error at the declaration of the type
// it belongs to.
func (a *Analysis) addTypeErrors(text string, err error) {
	for _, e := range flatten(err) {
		line := 0
		var te *manifest.TypeError
		var ce *model.ClassError
		switch {
		case errors.As(e, &te):
			line = declLine(text, te.Type)
		case errors.As(e, &ce):
			line = declLine(text, ce.Class.QualifiedName())
		}
		a.addDiagnostic(lineRange(text, line), protocol.DiagnosticSeverityError, e.Error())
	}
}

func (a *Analysis) addMirandaWarnings(text string) {
	for _, c := range a.Universe.All() {
		tables, ok := c.Tables()
		if !ok {
			continue
		}
		for _, mir := range tables.Mirandas() {
			key := mir.Method.SymbolicName() + mir.Method.SymbolicSignature()
			switch {
			case mir.Kind == vtable.MirandaAmbiguous:
				a.addDiagnostic(lineRange(text, declLine(text, c.QualifiedName())), protocol.DiagnosticSeverityWarning,
					fmt.Sprintf("%s inherits conflicting default methods for %s", c, key))
			case mir.Kind == vtable.MirandaUnimplemented && !c.Abstract:
				a.addDiagnostic(lineRange(text, declLine(text, c.QualifiedName())), protocol.DiagnosticSeverityWarning,
					fmt.Sprintf("%s does not implement %s.%s", c, mir.Method.DeclaringType().SymbolicName(), key))
			}
		}
	}
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// declLine finds the line declaring a type: the first `name = "X"` (TOML)
// or `name: X` (YAML) for the type's simple name. It returns 0 when the
// declaration is not in this document.
func declLine(text, qualified string) int {
	name := qualified
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	pattern := regexp.MustCompile(`^\s*(-\s*)?name\s*[=:]\s*["']?` + regexp.QuoteMeta(name) + `["']?\s*(#.*)?$`)
	for i, line := range strings.Split(text, "\n") {
		if pattern.MatchString(line) {
			return i
		}
	}
	return 0
}

// lineRange covers a whole line of text.
func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	width := 0
	if line < len(lines) {
		width = len(strings.TrimRight(lines[line], "\r"))
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(width)},
	}
}

// ---------------------------------------------------------------------------
// Queries against the last good analysis
// ---------------------------------------------------------------------------

// Lookup finds a class by qualified name, then by simple name.
func (a *Analysis) Lookup(word string) *model.Class {
	if a == nil || a.Universe == nil {
		return nil
	}
	if c := a.Universe.Lookup(word); c != nil {
		return c
	}
	for _, c := range a.Universe.All() {
		if c.Name == word {
			return c
		}
	}
	return nil
}

// HoverText renders a class's tables as markdown.
func (a *Analysis) HoverText(word string) (string, bool) {
	c := a.Lookup(word)
	if c == nil {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** %s", c.QualifiedName(), c.Kind)
	if c.Superclass != nil {
		fmt.Fprintf(&b, " < %s", c.Superclass)
	}
	b.WriteString("\n\n")

	if c.IsInterface() {
		fmt.Fprintf(&b, "%d methods\n", len(c.Methods))
		for _, m := range c.Methods {
			fmt.Fprintf(&b, "- `%s%s` %s %s\n", m.Name(), m.Signature(), m.Access, m.Flags)
		}
		return b.String(), true
	}

	tables, ok := c.Tables()
	if !ok {
		b.WriteString("_not linked_\n")
		return b.String(), true
	}

	b.WriteString("**vtable**\n\n")
	for i, m := range tables.VTable() {
		fmt.Fprintf(&b, "%d. `%s.%s%s`\n", i, m.DeclaringType().SymbolicName(), m.SymbolicName(), m.SymbolicSignature())
	}
	for _, it := range tables.Itables() {
		fmt.Fprintf(&b, "\n**itable %s**\n\n", it.Interface.SymbolicName())
		for i, slot := range it.Slots {
			fmt.Fprintf(&b, "%d. `%s`\n", i, slot)
		}
	}
	if mirandas := tables.Mirandas(); len(mirandas) > 0 {
		b.WriteString("\n**mirandas**\n\n")
		for _, mir := range mirandas {
			fmt.Fprintf(&b, "- `%s.%s%s` %s\n", mir.Method.DeclaringType().SymbolicName(),
				mir.Method.SymbolicName(), mir.Method.SymbolicSignature(), mir.Kind)
		}
	}
	return b.String(), true
}

// Completions returns type and method names starting with prefix.
func (a *Analysis) Completions(prefix string) []protocol.CompletionItem {
	if a == nil || a.Universe == nil || prefix == "" {
		return nil
	}
	lowerPrefix := strings.ToLower(prefix)

	var items []protocol.CompletionItem
	methods := make(map[string]string)
	for _, c := range a.Universe.All() {
		name := c.QualifiedName()
		if strings.HasPrefix(strings.ToLower(name), lowerPrefix) || strings.HasPrefix(strings.ToLower(c.Name), lowerPrefix) {
			kind := protocol.CompletionItemKindClass
			if c.IsInterface() {
				kind = protocol.CompletionItemKindInterface
			}
			detail := c.Kind.String()
			if c.Superclass != nil {
				detail = fmt.Sprintf("class (< %s)", c.Superclass)
			}
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &name,
			})
		}
		for _, m := range c.Methods {
			if strings.HasPrefix(strings.ToLower(m.Name()), lowerPrefix) {
				if _, seen := methods[m.Name()]; !seen {
					methods[m.Name()] = m.Signature()
				}
			}
		}
	}

	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := protocol.CompletionItemKindMethod
		detail := "method " + methods[name]
		label := name
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}
