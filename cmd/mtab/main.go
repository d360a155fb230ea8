// mtab computes virtual and interface method tables for a class hierarchy
// described in an mtab.toml (or YAML) file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/methodtable/codegen"
	"github.com/chazu/methodtable/manifest"
	"github.com/chazu/methodtable/model"
	"github.com/chazu/methodtable/server"
	"github.com/chazu/methodtable/snapshot"
	"github.com/chazu/methodtable/store"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("methodtable.cli")

// errBreaks marks a successful run that found compatibility breaks.
var errBreaks = errors.New("compatibility breaks found")

type options struct {
	format        string
	output        string
	classes       string
	verboseTables bool
	private       bool
	storePath     string
	compat        string
	genPath       string
	genPackage    string
	parallelism   int
}

func main() {
	var opts options
	flag.StringVar(&opts.format, "format", "text", "Output format: text, json or cbor")
	flag.StringVar(&opts.output, "o", "", "Write output to this file instead of stdout")
	flag.StringVar(&opts.classes, "class", "", "Comma-separated qualified class names to output")
	flag.BoolVar(&opts.verboseTables, "verbose-tables", false, "Give every declared method its own vtable slot")
	flag.BoolVar(&opts.private, "private", false, "Allow interface slots to resolve to private methods")
	flag.StringVar(&opts.storePath, "store", "", "Save the snapshot to this SQLite database")
	flag.StringVar(&opts.compat, "compat", "", "Compare against an older snapshot: a CBOR file, or 'latest' from -store")
	flag.StringVar(&opts.genPath, "gen", "", "Write Go slot constants to this file")
	flag.StringVar(&opts.genPackage, "pkg", "slots", "Package name for -gen")
	flag.IntVar(&opts.parallelism, "j", 0, "Classes linked in parallel (0 = GOMAXPROCS)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	verbosity := flag.Int("v", 0, "Log verbosity (0 = errors only, 1 = info, 2 = debug)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mtab [options] [hierarchy-file]\n\n")
		fmt.Fprintf(os.Stderr, "Links the classes of a hierarchy file and prints their method tables.\n")
		fmt.Fprintf(os.Stderr, "Without a file, the nearest %s in the current directory or above is used.\n\n", manifest.FileName)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mtab                               # Print tables for ./mtab.toml\n")
		fmt.Fprintf(os.Stderr, "  mtab -class geo.Square types.yaml  # One class from a YAML file\n")
		fmt.Fprintf(os.Stderr, "  mtab -format cbor -o v1.snap       # Save a snapshot file\n")
		fmt.Fprintf(os.Stderr, "  mtab -compat v1.snap               # Check slot compatibility with v1\n")
		fmt.Fprintf(os.Stderr, "  mtab -store tables.db -compat latest\n")
		fmt.Fprintf(os.Stderr, "  mtab -gen slots/slots.go -pkg slots\n")
		fmt.Fprintf(os.Stderr, "  mtab -lsp                          # Language server for editors\n")
	}
	flag.Parse()

	// The LSP speaks on stdout; keep logs on stderr.
	commonlog.Configure(*verbosity, nil)

	if *lspMode {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, flag.Arg(0), opts, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errBreaks):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

// run loads, links and reports. Link failures of individual classes are
// printed and make run fail after every output has been written.
func run(ctx context.Context, path string, opts options, stdout io.Writer) error {
	m, err := loadManifest(path)
	if err != nil {
		return err
	}

	u, linkOpts, err := m.Build()
	if err != nil {
		return err
	}
	linkOpts.Verbose = linkOpts.Verbose || opts.verboseTables
	linkOpts.AllowInterfaceResolvingToPrivate = linkOpts.AllowInterfaceResolvingToPrivate || opts.private

	linker := model.NewLinker(u, linkOpts)
	if opts.parallelism > 0 {
		linker.SetParallelism(opts.parallelism)
	}
	linkErr := linker.Link(ctx)
	if errors.Is(linkErr, context.Canceled) {
		return linkErr
	}
	for _, e := range unjoin(linkErr) {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("link:"), e)
	}

	snap := snapshot.Take(m.ProjectName(), u, linkOpts)
	hash, err := snap.HashString()
	if err != nil {
		return err
	}
	log.Infof("%s: %d classes linked, snapshot %s", m.ProjectName(), len(snap.Classes), hash)

	var broken bool
	if opts.compat != "" {
		prev, err := loadPrevious(opts, snap.Project)
		if err != nil {
			return err
		}
		breaks := snapshot.Compare(prev, snap)
		renderBreaks(os.Stderr, breaks)
		broken = len(breaks) > 0
	}

	if opts.storePath != "" {
		s, err := store.Open(opts.storePath)
		if err != nil {
			return err
		}
		rec, err := s.Save(snap)
		s.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved snapshot %s (%s)\n", rec.ID, mutedStyle.Render(rec.Hash[:12]))
	}

	filter := splitList(opts.classes)
	if opts.genPath != "" {
		src, err := codegen.Generate(snap, codegen.Options{Package: opts.genPackage, Classes: filter})
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.genPath, src, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.genPath, err)
		}
	}

	out := snap
	if len(filter) > 0 {
		out, err = selectClasses(snap, filter)
		if err != nil {
			return err
		}
	}
	if err := writeOutput(out, opts, stdout); err != nil {
		return err
	}

	if linkErr != nil {
		return fmt.Errorf("%d classes failed to link", len(unjoin(linkErr)))
	}
	if broken {
		return errBreaks
	}
	return nil
}

func loadManifest(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no %s found in this directory or any parent", manifest.FileName)
	}
	return m, nil
}

// loadPrevious reads the snapshot -compat refers to.
func loadPrevious(opts options, project string) (*snapshot.Snapshot, error) {
	if opts.compat == "latest" {
		if opts.storePath == "" {
			return nil, errors.New("-compat latest needs -store")
		}
		s, err := store.Open(opts.storePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		prev, _, err := s.Latest(project)
		if err != nil {
			return nil, fmt.Errorf("latest snapshot of %s: %w", project, err)
		}
		return prev, nil
	}

	data, err := os.ReadFile(opts.compat)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", opts.compat, err)
	}
	return snapshot.Unmarshal(data)
}

func writeOutput(s *snapshot.Snapshot, opts options, stdout io.Writer) error {
	write := func(w io.Writer) error { return encode(w, s, opts.format) }
	if opts.output == "" {
		return write(stdout)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := writeAndClose(f, write); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	return nil
}

// writeAndClose runs write on wc and closes it. A failed close is
// reported when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	werr := write(wc)
	cerr := wc.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func encode(w io.Writer, s *snapshot.Snapshot, format string) error {
	switch format {
	case "text":
		return renderText(w, s)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "cbor":
		data, err := snapshot.Marshal(s)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// selectClasses returns a copy of s holding only the named classes.
func selectClasses(s *snapshot.Snapshot, names []string) (*snapshot.Snapshot, error) {
	out := *s
	out.Classes = nil
	for _, name := range names {
		c, ok := s.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown class %s", name)
		}
		out.Classes = append(out.Classes, *c)
	}
	return &out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
