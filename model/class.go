package model

import (
	"github.com/chazu/methodtable/vtable"
)

// ---------------------------------------------------------------------------
// Class: classes and interfaces
// ---------------------------------------------------------------------------

// Kind distinguishes classes from interfaces.
type Kind uint8

const (
	KindClass Kind = iota
	KindInterface
)

func (k Kind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "class"
}

// Class is a class or interface of the type model.
//
// Interfaces have no superclass. Their Interfaces field lists the
// superinterfaces, and their methods with a body are default methods.
type Class struct {
	Name       string
	Package    string // empty for the default package
	Kind       Kind
	Final      bool
	Abstract   bool
	Superclass *Class
	Interfaces []*Class
	Methods    []*Method

	symbols *SymbolTable
	tables  *vtable.Tables
	linked  bool
}

// QualifiedName returns package.Name, or Name in the default package.
func (c *Class) QualifiedName() string {
	if c.Package == "" {
		return c.Name
	}
	return c.Package + "." + c.Name
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.QualifiedName()
}

// SymbolicName implements vtable.Type.
func (c *Class) SymbolicName() string {
	return c.QualifiedName()
}

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() bool {
	return c.Kind == KindInterface
}

// IsAssignableFrom implements vtable.Type.
func (c *Class) IsAssignableFrom(other vtable.Type) bool {
	o, ok := other.(*Class)
	if !ok || o == nil {
		return false
	}
	return o.IsSubtypeOf(c)
}

// IsSubtypeOf reports whether c is t, extends t, or implements t directly
// or transitively.
func (c *Class) IsSubtypeOf(t *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == t {
			return true
		}
		for _, iface := range current.Interfaces {
			if iface.IsSubtypeOf(t) {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Hierarchy helpers
// ---------------------------------------------------------------------------

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// AllInterfaces returns every interface c implements, without duplicates:
// the superclass's interfaces first, then each declared interface followed
// by its own superinterfaces.
func (c *Class) AllInterfaces() []*Class {
	var result []*Class
	seen := make(map[*Class]bool)
	var add func(iface *Class)
	add = func(iface *Class) {
		if seen[iface] {
			return
		}
		seen[iface] = true
		result = append(result, iface)
		for _, sup := range iface.Interfaces {
			add(sup)
		}
	}
	if c.Superclass != nil {
		for _, iface := range c.Superclass.AllInterfaces() {
			add(iface)
		}
	}
	for _, iface := range c.Interfaces {
		add(iface)
	}
	return result
}

// dependencies returns the types that must be linked before c.
func (c *Class) dependencies() []*Class {
	deps := make([]*Class, 0, len(c.Interfaces)+1)
	if c.Superclass != nil {
		deps = append(deps, c.Superclass)
	}
	return append(deps, c.Interfaces...)
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// AddMethod declares a method on c and returns it.
func (c *Class) AddMethod(name, signature string, access Access, flags Flags) *Method {
	m := &Method{
		name:      c.symbols.Intern(name),
		signature: c.symbols.Intern(signature),
		Access:    access,
		Flags:     flags,
		class:     c,
	}
	c.Methods = append(c.Methods, m)
	return m
}

// LookupMethod finds a method declared on c (not inherited).
func (c *Class) LookupMethod(name, signature string) *Method {
	n, s := c.symbols.Lookup(name), c.symbols.Lookup(signature)
	if n == NoSymbol || s == NoSymbol {
		return nil
	}
	for _, m := range c.Methods {
		if m.name == n && m.signature == s {
			return m
		}
	}
	return nil
}

// InterfaceTable returns an interface's own method table: its declared
// methods in declaration order.
func (c *Class) InterfaceTable() []vtable.Method {
	out := make([]vtable.Method, len(c.Methods))
	for i, m := range c.Methods {
		out[i] = m
	}
	return out
}

// ---------------------------------------------------------------------------
// Link state
// ---------------------------------------------------------------------------

// Linked reports whether c has been linked.
func (c *Class) Linked() bool {
	return c.linked
}

// Tables returns the method tables computed for a linked class. Interfaces
// have none.
func (c *Class) Tables() (*vtable.Tables, bool) {
	return c.tables, c.tables != nil
}
