package vtable

// origin tells which ancestor table a location was read from.
type origin uint8

const (
	vtableOrigin origin = iota
	itableOrigin
)

// location is one occurrence of a key in an ancestor table.
type location struct {
	method Method
	slot   int
}

// locationSet is the per-key bookkeeping of one build.
type locationSet struct {
	vLocations []location // superclass vtable, slot order
	iLocations []location // interface tables, interface order then slot order

	// target is the type's own declaration for this key, if any.
	target Method

	// mustPopulate is set when the inherited slot cannot be reused as is
	// and the target needs a slot of its own.
	mustPopulate bool

	resolved     bool
	resolvedSlot Slot
}

func (l *locationSet) register(o origin, m Method, slot int) {
	switch o {
	case vtableOrigin:
		l.vLocations = append(l.vLocations, location{method: m, slot: slot})
	case itableOrigin:
		l.iLocations = append(l.iLocations, location{method: m, slot: slot})
	}
}

func (l *locationSet) setTarget(m Method) {
	l.target = m
}

func (l *locationSet) markMustPopulate() {
	l.mustPopulate = true
}

// shouldPopulate reports whether the target gets an appended vtable slot.
// Keys never seen in the superclass always do.
func (l *locationSet) shouldPopulate() bool {
	return l.mustPopulate || len(l.vLocations) == 0
}

// vtableLookupBySlot returns the superclass method registered at slot.
func (l *locationSet) vtableLookupBySlot(slot int) (Method, bool) {
	for _, loc := range l.vLocations {
		if loc.slot == slot {
			return loc.method, true
		}
	}
	return nil, false
}
