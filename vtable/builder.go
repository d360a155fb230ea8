package vtable

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("methodtable.vtable")

// Options controls how declared methods are placed.
type Options struct {
	// Verbose gives every declared virtual method a new vtable slot, even
	// when it already took over an inherited one.
	Verbose bool

	// AllowInterfaceResolvingToPrivate lets interface slots resolve to
	// private methods through PartialType.LookupOverrideWithPrivate.
	AllowInterfaceResolvingToPrivate bool
}

// Create computes the method tables of target.
//
// The only failure is a declared method overriding a final ancestor
// method, reported as a *MethodTableError of kind IllegalClassChangeError.
// Unimplemented and ambiguous interface methods are not errors; they are
// reported through Tables.Mirandas.
func Create(target PartialType, opts Options) (*Tables, error) {
	return NewBuilder(target, opts).Build()
}

// Builder holds the state of one table construction. A Builder is used
// once and is not safe for concurrent use.
type Builder struct {
	opts   Options
	target PartialType

	locations map[MethodKey]*locationSet

	vtable   []Method
	itables  []Itable
	mirandas []Miranda
	built    bool
}

// NewBuilder prepares a build for target.
func NewBuilder(target PartialType, opts Options) *Builder {
	return &Builder{
		opts:      opts,
		target:    target,
		locations: make(map[MethodKey]*locationSet),
	}
}

// Build runs the construction. It may only be called once.
func (b *Builder) Build() (*Tables, error) {
	if b.built {
		return nil, fmt.Errorf("vtable: builder for %s already used", b.target.SymbolicName())
	}
	b.built = true

	// Every key inherited from the superclass or an interface.
	b.buildLocations()
	// The declared method competing for each inherited key.
	b.assignCandidateTargets()
	// Overrides in place, then appended slots.
	if err := b.resolveVirtual(); err != nil {
		return nil, err
	}
	// Interface slots, from the class hierarchy first and then from the
	// maximally specific defaults. Records mirandas.
	b.resolveInterfaces()

	t := newTables(b.vtable, b.itables, b.mirandas)
	b.locations = nil
	return t, nil
}

func (b *Builder) buildLocations() {
	b.registerFromTable(b.target.ParentTable(), vtableOrigin)
	for _, it := range b.target.InterfacesData() {
		b.registerFromTable(it.Methods, itableOrigin)
	}
}

func (b *Builder) registerFromTable(table []Method, o origin) {
	for slot, m := range table {
		if !m.IsVirtualEntry() {
			continue
		}
		k := KeyOf(m)
		loc, ok := b.locations[k]
		if !ok {
			loc = &locationSet{}
			b.locations[k] = loc
		}
		loc.register(o, m, slot)
	}
}

func (b *Builder) assignCandidateTargets() {
	for _, m := range b.target.DeclaredMethods() {
		if !m.IsVirtualEntry() {
			continue
		}
		if loc, ok := b.locations[KeyOf(m)]; ok {
			loc.setTarget(m)
		}
	}
}

func (b *Builder) resolveVirtual() error {
	parent := b.target.ParentTable()
	b.vtable = make([]Method, 0, len(parent)+len(b.target.DeclaredMethods()))

	for i, m := range parent {
		loc, ok := b.locations[KeyOf(m)]
		if !ok || loc.target == nil {
			b.vtable = append(b.vtable, m)
			continue
		}
		if registered, ok := loc.vtableLookupBySlot(i); !ok || registered != m {
			panic(fmt.Sprintf("vtable: %s: parent slot %d (%s) missing from locations", b.target.SymbolicName(), i, KeyOf(m)))
		}

		target := loc.target
		if !target.CanOverride(m, i) {
			// The inherited binding stays; the declaration needs its own slot.
			b.vtable = append(b.vtable, m)
			loc.markMustPopulate()
			continue
		}
		if m.IsFinalFlagSet() {
			return finalOverrideError(b.target, target, m)
		}
		b.vtable = append(b.vtable, target)
		if !target.SameAccess(m) {
			loc.markMustPopulate()
		}
	}

	for _, m := range b.target.DeclaredMethods() {
		if !m.IsVirtualEntry() {
			continue
		}
		if !b.opts.Verbose {
			if loc, ok := b.locations[KeyOf(m)]; ok && !loc.shouldPopulate() {
				continue
			}
		}
		log.Debugf("%s: slot %d for %s", b.target.SymbolicName(), len(b.vtable), KeyOf(m))
		b.vtable = append(b.vtable, m)
	}
	return nil
}

func (b *Builder) resolveInterfaces() {
	data := b.target.InterfacesData()
	b.itables = make([]Itable, 0, len(data))
	for _, it := range data {
		slots := make([]Slot, 0, len(it.Methods))
		for _, m := range it.Methods {
			if !m.IsVirtualEntry() {
				slots = append(slots, Resolved(m))
				continue
			}
			k := KeyOf(m)
			slots = append(slots, b.resolveInterface(k, b.locations[k]))
		}
		b.itables = append(b.itables, Itable{Interface: it.Interface, Slots: slots})
	}
}

// resolveInterface resolves k once per build; later slots sharing the key
// reuse the cached slot.
func (b *Builder) resolveInterface(k MethodKey, loc *locationSet) Slot {
	if !loc.resolved {
		loc.resolvedSlot = b.resolveInterfaceImpl(k, loc)
		loc.resolved = true
	}
	return loc.resolvedSlot
}

func (b *Builder) resolveInterfaceImpl(k MethodKey, loc *locationSet) Slot {
	if loc.target != nil {
		return Resolved(loc.target)
	}
	// In private mode the hook replaces the vtable-origin search: private
	// methods are not part of the location model, so the runtime's lookup
	// must cover the superclass chain as well.
	if b.opts.AllowInterfaceResolvingToPrivate {
		if m, ok := b.target.LookupOverrideWithPrivate(k.Name, k.Signature); ok && m != nil {
			return Resolved(m)
		}
	} else if m := mostSpecificConcrete(loc.vLocations); m != nil {
		return Resolved(m)
	}

	// Each key reaches this point at most once per build, so the miranda
	// list holds no duplicates.
	slot, miranda := resolveMaximallySpecific(loc.iLocations)
	log.Debugf("%s: miranda %s is %s", b.target.SymbolicName(), k, miranda.Kind)
	b.mirandas = append(b.mirandas, miranda)
	return slot
}
