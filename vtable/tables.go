package vtable

import "fmt"

// ---------------------------------------------------------------------------
// Slot: itable entry
// ---------------------------------------------------------------------------

// Slot is one itable entry. It either holds a resolved method or marks a
// conflict between unrelated default methods. The zero Slot is ambiguous.
type Slot struct {
	method Method
}

// Resolved returns a slot bound to m.
func Resolved(m Method) Slot {
	return Slot{method: m}
}

// Ambiguous returns a slot with no single implementation. Invoking through
// it must fail at call time.
func Ambiguous() Slot {
	return Slot{}
}

// Method returns the bound method, or false for an ambiguous slot.
func (s Slot) Method() (Method, bool) {
	return s.method, s.method != nil
}

// IsAmbiguous reports whether the slot has no single implementation.
func (s Slot) IsAmbiguous() bool {
	return s.method == nil
}

func (s Slot) String() string {
	if s.method == nil {
		return "<ambiguous>"
	}
	return s.method.DeclaringType().SymbolicName() + "." + KeyOf(s.method).String()
}

// ---------------------------------------------------------------------------
// Miranda methods
// ---------------------------------------------------------------------------

// MirandaKind tells the runtime how a miranda method behaves when invoked.
type MirandaKind uint8

const (
	// MirandaDefault resolved to exactly one maximally specific default.
	MirandaDefault MirandaKind = iota
	// MirandaUnimplemented has only abstract declarations; invoking it
	// raises an abstract-method error.
	MirandaUnimplemented
	// MirandaAmbiguous has several unrelated defaults; invoking it raises a
	// conflicting-defaults error.
	MirandaAmbiguous
)

func (k MirandaKind) String() string {
	switch k {
	case MirandaDefault:
		return "default-resolved"
	case MirandaUnimplemented:
		return "unimplemented"
	case MirandaAmbiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("MirandaKind(%d)", uint8(k))
	}
}

// Miranda is an interface method without a concrete implementation in the
// type's class hierarchy. For ambiguous entries Method is a placeholder
// taken from the first interface declaring the key.
type Miranda struct {
	Method Method
	Kind   MirandaKind
}

// ---------------------------------------------------------------------------
// Tables: build result
// ---------------------------------------------------------------------------

// Itable is the resolved method table of one implemented interface.
type Itable struct {
	Interface Type
	Slots     []Slot
}

// Tables is the immutable result of a build. Accessors return copies.
type Tables struct {
	vtable   []Method
	itables  []Itable
	index    map[Type]int
	mirandas []Miranda
}

func newTables(vtable []Method, itables []Itable, mirandas []Miranda) *Tables {
	index := make(map[Type]int, len(itables))
	for i, it := range itables {
		index[it.Interface] = i
	}
	return &Tables{
		vtable:   vtable,
		itables:  itables,
		index:    index,
		mirandas: mirandas,
	}
}

// VTable returns the virtual method table. The slot index is the dispatch
// index.
func (t *Tables) VTable() []Method {
	out := make([]Method, len(t.vtable))
	copy(out, t.vtable)
	return out
}

// VTableLen returns the number of vtable slots.
func (t *Tables) VTableLen() int {
	return len(t.vtable)
}

// VTableAt returns the method at a dispatch index.
func (t *Tables) VTableAt(slot int) (Method, bool) {
	if slot < 0 || slot >= len(t.vtable) {
		return nil, false
	}
	return t.vtable[slot], true
}

// Itables returns one table per implemented interface, in the order the
// interfaces were supplied.
func (t *Tables) Itables() []Itable {
	out := make([]Itable, len(t.itables))
	for i, it := range t.itables {
		slots := make([]Slot, len(it.Slots))
		copy(slots, it.Slots)
		out[i] = Itable{Interface: it.Interface, Slots: slots}
	}
	return out
}

// Itable returns the slots resolved for iface.
func (t *Tables) Itable(iface Type) ([]Slot, bool) {
	i, ok := t.index[iface]
	if !ok {
		return nil, false
	}
	slots := make([]Slot, len(t.itables[i].Slots))
	copy(slots, t.itables[i].Slots)
	return slots, true
}

// Mirandas returns the miranda methods in discovery order. Each key
// appears at most once.
func (t *Tables) Mirandas() []Miranda {
	out := make([]Miranda, len(t.mirandas))
	copy(out, t.mirandas)
	return out
}
