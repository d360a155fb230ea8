// Package manifest handles hierarchy description files: the types, methods
// and link options a method table computation runs on.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileName is the hierarchy file FindAndLoad looks for.
const FileName = "mtab.toml"

// Manifest is a hierarchy description.
type Manifest struct {
	Project  Project    `toml:"project" yaml:"project" json:"project"`
	Link     LinkConfig `toml:"link" yaml:"link" json:"link"`
	Includes []Include  `toml:"include" yaml:"include" json:"include,omitempty"`
	Types    []TypeDecl `toml:"type" yaml:"type" json:"type,omitempty"`

	// Path is the absolute path of the file (set at load time). Types
	// merged from includes come first in Types.
	Path string `toml:"-" yaml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name" yaml:"name" json:"name,omitempty"`
}

// LinkConfig holds the options passed to the table builder.
type LinkConfig struct {
	Verbose      bool `toml:"verbose" yaml:"verbose" json:"verbose"`
	AllowPrivate bool `toml:"allow-private" yaml:"allow-private" json:"allow-private"`
}

// Include names another hierarchy file, relative to the including file.
type Include struct {
	Path string `toml:"path" yaml:"path" json:"path"`
}

// TypeDecl declares a class or interface.
type TypeDecl struct {
	Name       string       `toml:"name" yaml:"name" json:"name"`
	Package    string       `toml:"package" yaml:"package" json:"package,omitempty"`
	Kind       string       `toml:"kind" yaml:"kind" json:"kind,omitempty"`
	Super      string       `toml:"super" yaml:"super" json:"super,omitempty"`
	Interfaces []string     `toml:"interfaces" yaml:"interfaces" json:"interfaces,omitempty"`
	Final      bool         `toml:"final" yaml:"final" json:"final"`
	Abstract   bool         `toml:"abstract" yaml:"abstract" json:"abstract"`
	Methods    []MethodDecl `toml:"method" yaml:"method" json:"method,omitempty"`
}

// QualifiedName returns package.Name, or Name in the default package.
func (d TypeDecl) QualifiedName() string {
	if d.Package == "" {
		return d.Name
	}
	return d.Package + "." + d.Name
}

// MethodDecl declares a method of a type.
type MethodDecl struct {
	Name      string `toml:"name" yaml:"name" json:"name"`
	Signature string `toml:"signature" yaml:"signature" json:"signature"`
	Access    string `toml:"access" yaml:"access" json:"access,omitempty"`
	Static    bool   `toml:"static" yaml:"static" json:"static"`
	Final     bool   `toml:"final" yaml:"final" json:"final"`
	Abstract  bool   `toml:"abstract" yaml:"abstract" json:"abstract"`
}

// Format is the syntax of a hierarchy file.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatOf picks the format from a file extension. Anything that is not
// .yaml or .yml is read as TOML.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes and schema-checks a single document. Includes are not
// followed.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse error: %w", err)
		}
	default:
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("parse error: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}

	if err := validateSchema(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile loads a hierarchy file and everything it includes.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return LoadBytes(path, data)
}

// LoadBytes is LoadFile for content that is already in memory, such as an
// unsaved editor buffer. Includes are read from disk relative to path.
func LoadBytes(path string, data []byte) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	l := &loader{merged: make(map[string]bool)}
	return l.load(abs, data)
}

// loader follows includes. merged holds every file whose types were
// already taken, so a file reached along two include paths is merged once.
type loader struct {
	stack  []string
	merged map[string]bool
}

func (l *loader) load(path string, data []byte) (*Manifest, error) {
	for _, p := range l.stack {
		if p == path {
			return nil, fmt.Errorf("include cycle: %s -> %s", strings.Join(l.stack, " -> "), path)
		}
	}
	l.stack = append(l.stack, path)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	m, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path

	var types []TypeDecl
	for _, inc := range m.Includes {
		incPath := inc.Path
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(filepath.Dir(path), incPath)
		}
		incPath = filepath.Clean(incPath)
		if l.merged[incPath] {
			continue
		}
		incData, err := os.ReadFile(incPath)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot read include %s: %w", path, inc.Path, err)
		}
		included, err := l.load(incPath, incData)
		if err != nil {
			return nil, err
		}
		types = append(types, included.Types...)
	}
	m.Types = append(types, m.Types...)
	l.merged[path] = true
	return m, nil
}

// Load parses the mtab.toml file in dir.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// FindAndLoad walks up from startDir to find an mtab.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Dir returns the directory containing the manifest file.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// ProjectName returns the project name, falling back to the file's base
// name without extension.
func (m *Manifest) ProjectName() string {
	if m.Project.Name != "" {
		return m.Project.Name
	}
	base := filepath.Base(m.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
