// Package codegen generates Go source holding the vtable slot indices of a
// snapshot, so Go code can dispatch by slot without a name lookup.
package codegen

import (
	"bytes"
	"fmt"
	"go/token"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/methodtable/snapshot"
)

// Options controls code generation.
type Options struct {
	// Package is the Go package name of the generated file.
	Package string
	// Classes restricts generation to these qualified names. Empty means
	// every class of the snapshot.
	Classes []string
}

// Generate renders one Go file with a const block per class:
//
//	const (
//		GeoSquareSlotArea = 0
//		GeoSquareSlotId   = 1
//		GeoSquareVTableLen = 2
//	)
func Generate(s *snapshot.Snapshot, opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "slots"
	}
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("codegen: invalid package name %q", pkg)
	}

	classes := s.Classes
	if len(opts.Classes) > 0 {
		classes = nil
		for _, name := range opts.Classes {
			c, ok := s.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("codegen: unknown class %s", name)
			}
			classes = append(classes, *c)
		}
	}

	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by mtab. DO NOT EDIT.")
	if s.Project != "" {
		f.PackageComment(fmt.Sprintf("Package %s holds the vtable slot indices of %s.", pkg, s.Project))
	}

	used := make(map[string]string)
	for _, c := range classes {
		prefix := typeIdent(c.Name)
		if other, ok := used[prefix]; ok {
			return nil, fmt.Errorf("codegen: %s and %s both map to %s", other, c.Name, prefix)
		}
		used[prefix] = c.Name

		f.Commentf("%s vtable slots.", c.Name)
		f.Const().Defs(classDefs(prefix, c)...)
		f.Line()
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("codegen: render: %w", err)
	}
	return buf.Bytes(), nil
}

func classDefs(prefix string, c snapshot.Class) []jen.Code {
	names := make(map[string]bool)
	defs := make([]jen.Code, 0, len(c.VTable)+1)
	for slot, m := range c.VTable {
		name := prefix + "Slot" + toPascal(m.Name)
		if names[name] {
			name = fmt.Sprintf("%s_%d", name, slot)
		}
		for names[name] {
			name += "_"
		}
		names[name] = true
		defs = append(defs, jen.Id(name).Op("=").Lit(slot).Comment(m.String()))
	}
	defs = append(defs, jen.Id(prefix+"VTableLen").Op("=").Lit(len(c.VTable)))
	return defs
}
