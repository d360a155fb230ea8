package vtable

// Type is the read-only view of a linked type used to order candidate
// implementations by their declaring type.
type Type interface {
	SymbolicName() string

	// IsAssignableFrom reports whether other is this type or one of its
	// subtypes.
	IsAssignableFrom(other Type) bool
}

// Method is the read-only view of a method declaration.
type Method interface {
	SymbolicName() string
	SymbolicSignature() string
	DeclaringType() Type

	// IsVirtualEntry reports whether the method takes part in dynamic
	// dispatch. Static, private and constructor members do not.
	IsVirtualEntry() bool
	IsFinalFlagSet() bool
	IsAbstract() bool

	// SameAccess reports whether both methods have the same visibility.
	SameAccess(other Method) bool

	// CanOverride reports whether this method may take over the given
	// ancestor's vtable slot.
	CanOverride(ancestor Method, slot int) bool
}

// InterfaceTable pairs an implemented interface with its own method table.
type InterfaceTable struct {
	Interface Type
	Methods   []Method
}

// PartialType is the type under construction. Its ancestors must already
// be linked.
type PartialType interface {
	SymbolicName() string

	// ParentTable returns the superclass's vtable, or nil for a root type.
	ParentTable() []Method

	// InterfacesData returns the implemented interfaces in a stable order.
	// Each interface must appear once; Tables.Itable indexes itables by
	// interface and keeps only the last entry of a repeated one.
	InterfacesData() []InterfaceTable

	// DeclaredMethods returns the type's own methods in declaration order.
	DeclaredMethods() []Method

	// LookupOverrideWithPrivate finds an implementation that may be
	// private. Only called when Options.AllowInterfaceResolvingToPrivate is
	// set.
	LookupOverrideWithPrivate(name, signature string) (Method, bool)
}
