package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/methodtable/model"
	"github.com/chazu/methodtable/vtable"
)

// TypeError ties a build failure to the declaration of a type.
type TypeError struct {
	Type string // qualified name
	Err  error
}

func (e *TypeError) Error() string {
	return e.Type + ": " + e.Err.Error()
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// Options returns the table builder options of the [link] section.
func (m *Manifest) Options() vtable.Options {
	return vtable.Options{
		Verbose:                          m.Link.Verbose,
		AllowInterfaceResolvingToPrivate: m.Link.AllowPrivate,
	}
}

// Build creates the types described by m and validates them. The returned
// universe is not linked yet. Declaration errors are *TypeError values,
// structural rule violations are *model.ClassError values; all of them are
// joined in the returned error.
func (m *Manifest) Build() (*model.Universe, vtable.Options, error) {
	u := model.NewUniverse()
	var errs []error

	classes := make([]*model.Class, len(m.Types))
	for i, d := range m.Types {
		kind, err := parseKind(d.Kind)
		if err != nil {
			errs = append(errs, &TypeError{Type: d.QualifiedName(), Err: err})
			continue
		}
		c, err := u.NewClass(d.Package, d.Name, kind)
		if err != nil {
			errs = append(errs, &TypeError{Type: d.QualifiedName(), Err: err})
			continue
		}
		c.Final = d.Final
		c.Abstract = d.Abstract || kind == model.KindInterface
		classes[i] = c
	}

	for i, d := range m.Types {
		c := classes[i]
		if c == nil {
			continue
		}
		for _, err := range resolveDecl(u, c, d) {
			errs = append(errs, &TypeError{Type: c.QualifiedName(), Err: err})
		}
	}

	if len(errs) > 0 {
		return nil, vtable.Options{}, errors.Join(errs...)
	}
	if err := u.Validate(); err != nil {
		return nil, vtable.Options{}, err
	}
	return u, m.Options(), nil
}

func resolveDecl(u *model.Universe, c *model.Class, d TypeDecl) []error {
	var errs []error
	if d.Super != "" {
		if sup := lookupType(u, c.Package, d.Super); sup != nil {
			c.Superclass = sup
		} else {
			errs = append(errs, fmt.Errorf("unknown superclass %s", d.Super))
		}
	}
	for _, name := range d.Interfaces {
		if iface := lookupType(u, c.Package, name); iface != nil {
			c.Interfaces = append(c.Interfaces, iface)
		} else {
			errs = append(errs, fmt.Errorf("unknown interface %s", name))
		}
	}
	for _, md := range d.Methods {
		access, err := model.ParseAccess(md.Access)
		if err != nil {
			errs = append(errs, fmt.Errorf("method %s%s: %w", md.Name, md.Signature, err))
			continue
		}
		var flags model.Flags
		if md.Static {
			flags |= model.FlagStatic
		}
		if md.Final {
			flags |= model.FlagFinal
		}
		if md.Abstract {
			flags |= model.FlagAbstract
		}
		c.AddMethod(md.Name, md.Signature, access, flags)
	}
	return errs
}

// lookupType resolves a type reference from a declaration in pkg. A dotted
// name is taken as qualified; a simple name is looked up in pkg first and
// then in the default package.
func lookupType(u *model.Universe, pkg, name string) *model.Class {
	if strings.Contains(name, ".") {
		if c := u.Lookup(name); c != nil {
			return c
		}
	}
	if c := u.LookupInPackage(pkg, name); c != nil {
		return c
	}
	return u.Lookup(name)
}

func parseKind(s string) (model.Kind, error) {
	switch s {
	case "", "class":
		return model.KindClass, nil
	case "interface":
		return model.KindInterface, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}
