package server

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", `super = "Bas`, protocol.Position{Line: 0, Character: 12}, "Bas"},
		{"qualified", `super = "geo.Sq`, protocol.Position{Line: 0, Character: 15}, "geo.Sq"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "[[type]]\nname = \"Sha", protocol.Position{Line: 1, Character: 11}, "Sha"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"middle of word", `super = "Base"`, protocol.Position{Line: 0, Character: 11}, "Base"},
		{"qualified name", `interfaces = ["geo.Shape"]`, protocol.Position{Line: 0, Character: 18}, "geo.Shape"},
		{"on punctuation", `a = "b"`, protocol.Position{Line: 0, Character: 2}, ""},
		{"trailing dot", `x = Base.`, protocol.Position{Line: 0, Character: 6}, "Base"},
		{"line beyond document", "x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUriToPath(t *testing.T) {
	if got := uriToPath("file:///tmp/x/mtab.toml"); got != filepath.FromSlash("/tmp/x/mtab.toml") {
		t.Errorf("uriToPath(file) = %q", got)
	}
	if got := uriToPath("file:///tmp/with%20space.toml"); got != filepath.FromSlash("/tmp/with space.toml") {
		t.Errorf("uriToPath(escaped) = %q", got)
	}
	if got := uriToPath("untitled:Untitled-1"); got != "untitled:Untitled-1" {
		t.Errorf("uriToPath(untitled) = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

func analyze(t *testing.T, text string) *Analysis {
	t.Helper()
	return Analyze(context.Background(), filepath.Join(t.TempDir(), "mtab.toml"), text)
}

func severityOf(d protocol.Diagnostic) protocol.DiagnosticSeverity {
	if d.Severity == nil {
		return 0
	}
	return *d.Severity
}

func TestAnalyzeClean(t *testing.T) {
	a := analyze(t, `
[[type]]
name = "A"
  [[type.method]]
  name = "foo"
  signature = "()V"

[[type]]
name = "B"
super = "A"
`)
	if len(a.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %+v, want none", a.Diagnostics)
	}
	if a.Universe == nil || a.Universe.Len() != 2 {
		t.Fatal("expected a universe with two types")
	}
}

func TestAnalyzeParseError(t *testing.T) {
	a := analyze(t, "[project]\nname = \"x\"\nbroken = = 1\n")
	if len(a.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want 1", a.Diagnostics)
	}
	d := a.Diagnostics[0]
	if severityOf(d) != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", severityOf(d))
	}
	if d.Range.Start.Line != 2 {
		t.Errorf("line = %d, want 2", d.Range.Start.Line)
	}
	if a.Universe != nil {
		t.Error("universe should be nil on parse errors")
	}
}

func TestAnalyzeFinalOverride(t *testing.T) {
	text := `
[[type]]
name = "A"
  [[type.method]]
  name = "foo"
  signature = "()V"
  final = true

[[type]]
name = "B"
super = "A"
  [[type.method]]
  name = "foo"
  signature = "()V"
`
	a := analyze(t, text)
	if len(a.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v, want 1", a.Diagnostics)
	}
	d := a.Diagnostics[0]
	if !strings.Contains(d.Message, "IllegalClassChangeError") {
		t.Errorf("message = %q", d.Message)
	}
	if d.Range.Start.Line != 9 {
		t.Errorf("line = %d, want 9 (declaration of B)", d.Range.Start.Line)
	}
}

func TestAnalyzeUnknownSuper(t *testing.T) {
	a := analyze(t, "[[type]]\nname = \"A\"\nsuper = \"Nope\"\n")
	if len(a.Diagnostics) != 1 || !strings.Contains(a.Diagnostics[0].Message, "unknown superclass") {
		t.Fatalf("diagnostics = %+v", a.Diagnostics)
	}
	if a.Diagnostics[0].Range.Start.Line != 1 {
		t.Errorf("line = %d, want 1", a.Diagnostics[0].Range.Start.Line)
	}
}

func TestAnalyzeMirandaWarnings(t *testing.T) {
	a := analyze(t, `
[[type]]
name = "I"
kind = "interface"
  [[type.method]]
  name = "m"
  signature = "()V"

[[type]]
name = "J"
kind = "interface"
  [[type.method]]
  name = "m"
  signature = "()V"

[[type]]
name = "Run"
kind = "interface"
  [[type.method]]
  name = "run"
  signature = "()V"
  abstract = true

[[type]]
name = "Both"
interfaces = ["I", "J"]

[[type]]
name = "Lazy"
interfaces = ["Run"]

[[type]]
name = "AbstractLazy"
abstract = true
interfaces = ["Run"]
`)
	var warnings []string
	for _, d := range a.Diagnostics {
		if severityOf(d) != protocol.DiagnosticSeverityWarning {
			t.Errorf("unexpected diagnostic %+v", d)
			continue
		}
		warnings = append(warnings, d.Message)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %q, want 2", warnings)
	}
	if !strings.Contains(warnings[0], "Both inherits conflicting default methods for m()V") {
		t.Errorf("warning 0 = %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "Lazy does not implement Run.run()V") {
		t.Errorf("warning 1 = %q", warnings[1])
	}
}

func TestAnalyzeIncludesRelativeToDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.toml"), []byte("[[type]]\nname = \"Base\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	a := Analyze(context.Background(), filepath.Join(dir, "mtab.toml"),
		"[[include]]\npath = \"base.toml\"\n\n[[type]]\nname = \"Sub\"\nsuper = \"Base\"\n")
	if len(a.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %+v", a.Diagnostics)
	}
}

func TestDeclLine(t *testing.T) {
	text := "[[type]]\nname = \"A\"\n\n- name: B\n[[type]]\nname = 'geo'\n"
	tests := map[string]int{"A": 1, "x.B": 3, "geo": 5, "Missing": 0}
	for name, want := range tests {
		if got := declLine(text, name); got != want {
			t.Errorf("declLine(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestHoverText(t *testing.T) {
	a := analyze(t, `
[[type]]
name = "Shape"
kind = "interface"
  [[type.method]]
  name = "area"
  signature = "()D"
  abstract = true

[[type]]
name = "Square"
package = "geo"
interfaces = ["Shape"]
  [[type.method]]
  name = "area"
  signature = "()D"
`)
	text, ok := a.HoverText("Square")
	if !ok {
		t.Fatal("no hover for Square")
	}
	for _, want := range []string{"**geo.Square** class", "**vtable**", "0. `geo.Square.area()D`", "**itable Shape**"} {
		if !strings.Contains(text, want) {
			t.Errorf("hover missing %q:\n%s", want, text)
		}
	}

	iface, ok := a.HoverText("Shape")
	if !ok || !strings.Contains(iface, "`area()D` public abstract") {
		t.Errorf("interface hover = %q", iface)
	}

	if _, ok := a.HoverText("Nothing"); ok {
		t.Error("unexpected hover for unknown word")
	}
	var nilAnalysis *Analysis
	if _, ok := nilAnalysis.HoverText("Square"); ok {
		t.Error("unexpected hover without analysis")
	}
}

func TestCompletions(t *testing.T) {
	a := analyze(t, `
[[type]]
name = "Shape"
kind = "interface"

[[type]]
name = "Square"
package = "geo"
interfaces = ["Shape"]
  [[type.method]]
  name = "scale"
  signature = "(D)V"
  [[type.method]]
  name = "scale"
  signature = "(I)V"
`)
	items := a.Completions("s")
	var labels []string
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	if got := strings.Join(labels, ","); got != "Shape,geo.Square,scale" {
		t.Errorf("completions = %s, want Shape,geo.Square,scale", got)
	}
	if items[0].Kind == nil || *items[0].Kind != protocol.CompletionItemKindInterface {
		t.Errorf("Shape kind = %v, want interface", items[0].Kind)
	}

	if got := a.Completions(""); got != nil {
		t.Errorf("empty prefix completions = %v, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorkerKeepsLastGoodAnalysis(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	path := filepath.Join(t.TempDir(), "mtab.toml")
	update := func(text string) *Analysis {
		result, err := w.Do(func(ws *Workspace) any {
			a := Analyze(context.Background(), path, text)
			ws.Update("doc", a)
			return a
		})
		if err != nil {
			t.Fatal(err)
		}
		return result.(*Analysis)
	}
	update("[[type]]\nname = \"A\"\n")
	if broken := update("[[type]\n"); broken.Universe != nil {
		t.Error("broken document should have no universe")
	}

	good, err := w.Do(func(ws *Workspace) any { return ws.Good("doc") })
	if err != nil {
		t.Fatal(err)
	}
	if a := good.(*Analysis); a == nil || a.Lookup("A") == nil {
		t.Error("last good analysis should still know A")
	}

	removed, _ := w.Do(func(ws *Workspace) any {
		ws.Remove("doc")
		return ws.Good("doc")
	})
	if removed.(*Analysis) != nil {
		t.Error("Remove should forget the document")
	}
}

func TestWorkerRecoversPanics(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	if _, err := w.Do(func(ws *Workspace) any { panic("boom") }); err == nil || err.Error() != "boom" {
		t.Errorf("err = %v, want boom", err)
	}
	if v, err := w.Do(func(ws *Workspace) any { return 42 }); err != nil || v != 42 {
		t.Errorf("worker unusable after panic: %v, %v", v, err)
	}
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker()
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(ws *Workspace) any { return nil }); err != errWorkerStopped {
		t.Errorf("err = %v, want errWorkerStopped", err)
	}
}
