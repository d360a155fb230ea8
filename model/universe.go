package model

import (
	"errors"
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Universe: class registry
// ---------------------------------------------------------------------------

// Universe holds every class of one type model, keyed by qualified name.
// It's thread-safe for concurrent access.
type Universe struct {
	mu      sync.RWMutex
	symbols *SymbolTable
	classes map[string]*Class
	order   []*Class
}

// NewUniverse creates an empty universe with its own symbol table.
func NewUniverse() *Universe {
	return &Universe{
		symbols: NewSymbolTable(),
		classes: make(map[string]*Class),
	}
}

// NewClass creates and registers a class. Supertypes and methods are added
// afterwards.
func (u *Universe) NewClass(pkg, name string, kind Kind) (*Class, error) {
	c := &Class{
		Name:    name,
		Package: pkg,
		Kind:    kind,
		symbols: u.symbols,
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	key := c.QualifiedName()
	if _, ok := u.classes[key]; ok {
		return nil, fmt.Errorf("type %s already defined", key)
	}
	u.classes[key] = c
	u.order = append(u.order, c)
	return c, nil
}

// Lookup finds a class by qualified name.
func (u *Universe) Lookup(name string) *Class {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.classes[name]
}

// LookupInPackage finds a class by package and simple name.
func (u *Universe) LookupInPackage(pkg, name string) *Class {
	key := name
	if pkg != "" {
		key = pkg + "." + name
	}
	return u.Lookup(key)
}

// Has returns true if a class with this qualified name is registered.
func (u *Universe) Has(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.classes[name]
	return ok
}

// All returns all classes in definition order.
func (u *Universe) All() []*Class {
	u.mu.RLock()
	defer u.mu.RUnlock()
	result := make([]*Class, len(u.order))
	copy(result, u.order)
	return result
}

// Len returns the number of registered classes.
func (u *Universe) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.order)
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// ClassError ties a validation or link failure to a class.
type ClassError struct {
	Class *Class
	Err   error
}

func (e *ClassError) Error() string {
	return e.Class.QualifiedName() + ": " + e.Err.Error()
}

func (e *ClassError) Unwrap() error {
	return e.Err
}

// ErrCycle is wrapped by errors for inheritance cycles.
var ErrCycle = errors.New("inheritance cycle")

// Validate checks the structural rules the table builder relies on. All
// violations are returned joined; each is a *ClassError.
func (u *Universe) Validate() error {
	var errs []error
	for _, c := range u.All() {
		for _, err := range validateClass(c) {
			errs = append(errs, &ClassError{Class: c, Err: err})
		}
	}
	errs = append(errs, u.checkCycles()...)
	return errors.Join(errs...)
}

func validateClass(c *Class) []error {
	var errs []error
	if c.IsInterface() {
		if c.Superclass != nil {
			errs = append(errs, fmt.Errorf("interface cannot extend class %s", c.Superclass))
		}
		if c.Final {
			errs = append(errs, errors.New("interface cannot be final"))
		}
	} else if sup := c.Superclass; sup != nil {
		if sup.IsInterface() {
			errs = append(errs, fmt.Errorf("cannot extend interface %s", sup))
		}
		if sup.Final {
			errs = append(errs, fmt.Errorf("cannot extend final class %s", sup))
		}
	}
	for _, iface := range c.Interfaces {
		if !iface.IsInterface() {
			errs = append(errs, fmt.Errorf("%s is not an interface", iface))
		}
	}

	for i, m := range c.Methods {
		for _, prev := range c.Methods[:i] {
			if prev.sameKey(m) {
				errs = append(errs, fmt.Errorf("duplicate method %s%s", m.Name(), m.Signature()))
				break
			}
		}
		errs = append(errs, validateMethod(c, m)...)
	}
	return errs
}

func validateMethod(c *Class, m *Method) []error {
	var errs []error
	where := m.Name() + m.Signature()
	if m.IsAbstract() {
		switch {
		case m.IsFinalFlagSet():
			errs = append(errs, fmt.Errorf("method %s cannot be abstract and final", where))
		case m.IsStatic():
			errs = append(errs, fmt.Errorf("method %s cannot be abstract and static", where))
		case m.Access == AccessPrivate:
			errs = append(errs, fmt.Errorf("method %s cannot be abstract and private", where))
		}
		if !c.IsInterface() && !c.Abstract {
			errs = append(errs, fmt.Errorf("abstract method %s in non-abstract class", where))
		}
	}
	if c.IsInterface() {
		if m.Access != AccessPublic && m.Access != AccessPrivate {
			errs = append(errs, fmt.Errorf("interface method %s must be public or private", where))
		}
		if m.IsFinalFlagSet() {
			errs = append(errs, fmt.Errorf("interface method %s cannot be final", where))
		}
	}
	return errs
}

func (u *Universe) checkCycles() []error {
	const (
		unvisited = iota
		visiting
		acyclic
		cyclic
	)
	state := make(map[*Class]int)
	var errs []error
	var visit func(c *Class) bool
	visit = func(c *Class) bool {
		switch state[c] {
		case visiting, cyclic:
			return false
		case acyclic:
			return true
		}
		state[c] = visiting
		for _, dep := range c.dependencies() {
			if !visit(dep) {
				errs = append(errs, &ClassError{Class: c, Err: fmt.Errorf("%w through %s", ErrCycle, dep)})
				state[c] = cyclic
				return false
			}
		}
		state[c] = acyclic
		return true
	}
	for _, c := range u.All() {
		if state[c] == unvisited {
			visit(c)
		}
	}
	return errs
}
