// Package vtable computes the dispatch tables of a type from its already
// linked ancestry.
//
// Given the superclass's virtual method table, the method table of every
// implemented interface and the type's own declared methods, Create
// produces:
//   - the type's vtable, binary-compatible with the superclass's prefix
//   - one itable per implemented interface
//   - the miranda methods: interface methods with no single concrete
//     implementation in the hierarchy
//
// The package performs no I/O and no class loading. It is written against
// the Type, Method and PartialType capabilities; the host runtime's type
// model supplies access rules and subtyping.
package vtable
