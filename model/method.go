package model

import (
	"github.com/chazu/methodtable/vtable"
)

// Method is a method declaration. It implements vtable.Method.
type Method struct {
	name      Symbol
	signature Symbol
	Access    Access
	Flags     Flags

	class *Class
}

const (
	constructorName = "<init>"
	initializerName = "<clinit>"
)

// Name returns the method name.
func (m *Method) Name() string { return m.class.symbols.Name(m.name) }

// Signature returns the method descriptor.
func (m *Method) Signature() string { return m.class.symbols.Name(m.signature) }

// Class returns the declaring class.
func (m *Method) Class() *Class { return m.class }

// String returns Class.name(signature).
func (m *Method) String() string {
	return m.class.QualifiedName() + "." + m.Name() + m.Signature()
}

func (m *Method) SymbolicName() string       { return m.Name() }
func (m *Method) SymbolicSignature() string  { return m.Signature() }
func (m *Method) DeclaringType() vtable.Type { return m.class }
func (m *Method) IsFinalFlagSet() bool       { return m.Flags.Has(FlagFinal) }
func (m *Method) IsAbstract() bool           { return m.Flags.Has(FlagAbstract) }
func (m *Method) IsStatic() bool             { return m.Flags.Has(FlagStatic) }

// IsVirtualEntry excludes static, private and initializer methods.
func (m *Method) IsVirtualEntry() bool {
	if m.IsStatic() || m.Access == AccessPrivate {
		return false
	}
	name := m.Name()
	return name != constructorName && name != initializerName
}

// SameAccess reports whether both methods have the same visibility.
func (m *Method) SameAccess(other vtable.Method) bool {
	o, ok := other.(*Method)
	return ok && o.Access == m.Access
}

// CanOverride applies the visibility rules for overriding. Private
// methods are never overridden, public and protected ones always are,
// and package-private ones only from the same package. The slot does not
// matter here: the parent vtable already holds the latest binding for it.
func (m *Method) CanOverride(ancestor vtable.Method, slot int) bool {
	a, ok := ancestor.(*Method)
	if !ok {
		return false
	}
	switch a.Access {
	case AccessPrivate:
		return false
	case AccessPackage:
		return a.class.Package == m.class.Package
	default:
		return true
	}
}

// sameKey reports whether two methods share name and signature.
func (m *Method) sameKey(o *Method) bool {
	return m.name == o.name && m.signature == o.signature
}
