package model

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/methodtable/vtable"
)

var linkLog = commonlog.GetLogger("methodtable.link")

// ErrAncestorNotLinked is wrapped when a class's superclass or one of its
// interfaces failed to link or was never linked.
var ErrAncestorNotLinked = errors.New("ancestor not linked")

// Linker computes method tables for every class of a universe. Ancestors
// are always linked before their subtypes; classes whose ancestors are all
// linked are processed in parallel.
type Linker struct {
	universe    *Universe
	opts        vtable.Options
	parallelism int
}

// NewLinker creates a linker for u.
func NewLinker(u *Universe, opts vtable.Options) *Linker {
	return &Linker{
		universe:    u,
		opts:        opts,
		parallelism: runtime.GOMAXPROCS(0),
	}
}

// SetParallelism bounds the number of classes linked at once.
func (l *Linker) SetParallelism(n int) {
	if n < 1 {
		n = 1
	}
	l.parallelism = n
}

// Levels groups the universe's classes so that every class comes after all
// of its ancestors. Classes within a level are independent.
func (l *Linker) Levels() ([][]*Class, error) {
	depth := make(map[*Class]int)
	visiting := make(map[*Class]bool)

	var level func(c *Class) (int, error)
	level = func(c *Class) (int, error) {
		if d, ok := depth[c]; ok {
			return d, nil
		}
		if visiting[c] {
			return 0, &ClassError{Class: c, Err: ErrCycle}
		}
		visiting[c] = true
		d := 0
		for _, dep := range c.dependencies() {
			dd, err := level(dep)
			if err != nil {
				return 0, err
			}
			if dd+1 > d {
				d = dd + 1
			}
		}
		visiting[c] = false
		depth[c] = d
		return d, nil
	}

	var levels [][]*Class
	for _, c := range l.universe.All() {
		d, err := level(c)
		if err != nil {
			return nil, err
		}
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], c)
	}
	return levels, nil
}

// Link links every class that is not linked yet. A class whose tables
// cannot be built, or whose ancestors failed, is left unlinked; every such
// failure is reported as a *ClassError in the joined result.
func (l *Linker) Link(ctx context.Context) error {
	levels, err := l.Levels()
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		failures []error
		linked   int
	)
	for _, classes := range levels {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.parallelism)
		for _, c := range classes {
			if c.Linked() {
				continue
			}
			c := c
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := l.LinkClass(c); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
					return nil
				}
				mu.Lock()
				linked++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	linkLog.Infof("linked %d classes in %d levels, %d failed", linked, len(levels), len(failures))
	return errors.Join(failures...)
}

// LinkClass links a single class whose ancestors are already linked.
func (l *Linker) LinkClass(c *Class) error {
	for _, dep := range c.dependencies() {
		if !dep.Linked() {
			return &ClassError{Class: c, Err: fmt.Errorf("%w: %s", ErrAncestorNotLinked, dep)}
		}
	}

	if c.IsInterface() {
		c.linked = true
		linkLog.Debugf("linked interface %s (%d methods)", c, len(c.Methods))
		return nil
	}

	tables, err := vtable.Create(partialClass{c}, l.opts)
	if err != nil {
		linkLog.Errorf("%s: %s", c, err)
		return &ClassError{Class: c, Err: err}
	}
	c.tables = tables
	c.linked = true
	linkLog.Debugf("linked %s: %d vtable slots, %d itables, %d mirandas",
		c, tables.VTableLen(), len(tables.Itables()), len(tables.Mirandas()))
	return nil
}

// ---------------------------------------------------------------------------
// partialClass: vtable.PartialType view of a class under construction
// ---------------------------------------------------------------------------

type partialClass struct {
	c *Class
}

func (p partialClass) SymbolicName() string {
	return p.c.QualifiedName()
}

func (p partialClass) ParentTable() []vtable.Method {
	if p.c.Superclass == nil || p.c.Superclass.tables == nil {
		return nil
	}
	return p.c.Superclass.tables.VTable()
}

func (p partialClass) InterfacesData() []vtable.InterfaceTable {
	ifaces := p.c.AllInterfaces()
	out := make([]vtable.InterfaceTable, len(ifaces))
	for i, iface := range ifaces {
		out[i] = vtable.InterfaceTable{Interface: iface, Methods: iface.InterfaceTable()}
	}
	return out
}

func (p partialClass) DeclaredMethods() []vtable.Method {
	out := make([]vtable.Method, len(p.c.Methods))
	for i, m := range p.c.Methods {
		out[i] = m
	}
	return out
}

// LookupOverrideWithPrivate searches the class's own instance methods,
// private ones included, then the non-private instance methods of its
// superclasses.
func (p partialClass) LookupOverrideWithPrivate(name, signature string) (vtable.Method, bool) {
	if m := p.c.LookupMethod(name, signature); m != nil && !m.IsStatic() {
		return m, true
	}
	for _, sup := range p.c.Superclasses() {
		if m := sup.LookupMethod(name, signature); m != nil && !m.IsStatic() && m.Access != AccessPrivate {
			return m, true
		}
	}
	return nil, false
}
