package snapshot

import (
	"fmt"

	"github.com/chazu/methodtable/vtable"
)

// BreakKind classifies a binary-compatibility break.
type BreakKind uint8

const (
	// SlotRemoved: a vtable slot of the old layout no longer exists.
	SlotRemoved BreakKind = iota + 1
	// SlotKeyChanged: a vtable slot now holds a different name+signature.
	SlotKeyChanged
	// ItableSlotAmbiguous: an interface slot that resolved now conflicts.
	ItableSlotAmbiguous
	// ItableSlotUnimplemented: an interface slot that resolved to a method
	// with a body now resolves to an unimplemented one.
	ItableSlotUnimplemented
	// InterfaceRemoved: the class no longer implements an interface.
	InterfaceRemoved
)

func (k BreakKind) String() string {
	switch k {
	case SlotRemoved:
		return "slot removed"
	case SlotKeyChanged:
		return "slot key changed"
	case ItableSlotAmbiguous:
		return "interface slot ambiguous"
	case ItableSlotUnimplemented:
		return "interface slot unimplemented"
	case InterfaceRemoved:
		return "interface removed"
	default:
		return fmt.Sprintf("BreakKind(%d)", uint8(k))
	}
}

// Break is one incompatibility between two snapshots.
type Break struct {
	Kind      BreakKind `json:"kind"`
	Class     string    `json:"class"`
	Interface string    `json:"interface,omitempty"`
	Slot      int       `json:"slot"`
	Old       string    `json:"old,omitempty"`
	New       string    `json:"new,omitempty"`
}

func (b Break) String() string {
	where := b.Class
	if b.Interface != "" {
		where += " itable " + b.Interface
	}
	switch b.Kind {
	case InterfaceRemoved:
		return fmt.Sprintf("%s: %s", where, b.Kind)
	case SlotRemoved:
		return fmt.Sprintf("%s slot %d: %s (was %s)", where, b.Slot, b.Kind, b.Old)
	default:
		return fmt.Sprintf("%s slot %d: %s (%s -> %s)", where, b.Slot, b.Kind, b.Old, b.New)
	}
}

// Compare reports the breaks a newer layout introduces for code compiled
// against the older one. Only classes present in both snapshots are
// compared. Code dispatching through an old slot index must find a method
// with the same key there, and interface slots that used to resolve must
// still resolve.
func Compare(prev, next *Snapshot) []Break {
	var breaks []Break
	for i := range prev.Classes {
		oc := &prev.Classes[i]
		nc, ok := next.Lookup(oc.Name)
		if !ok {
			continue
		}
		breaks = append(breaks, compareVTables(oc, nc)...)
		breaks = append(breaks, compareItables(oc, nc)...)
	}
	return breaks
}

func compareVTables(oc, nc *Class) []Break {
	var breaks []Break
	for slot, om := range oc.VTable {
		if slot >= len(nc.VTable) {
			breaks = append(breaks, Break{Kind: SlotRemoved, Class: oc.Name, Slot: slot, Old: om.Key()})
			continue
		}
		if nm := nc.VTable[slot]; nm.Key() != om.Key() {
			breaks = append(breaks, Break{Kind: SlotKeyChanged, Class: oc.Name, Slot: slot, Old: om.Key(), New: nm.Key()})
		}
	}
	return breaks
}

func compareItables(oc, nc *Class) []Break {
	var breaks []Break
	newTables := make(map[string]*Itable, len(nc.Itables))
	for i := range nc.Itables {
		newTables[nc.Itables[i].Interface] = &nc.Itables[i]
	}
	unimplemented := unimplementedSet(nc)
	oldUnimplemented := unimplementedSet(oc)

	for _, oit := range oc.Itables {
		nit, ok := newTables[oit.Interface]
		if !ok {
			breaks = append(breaks, Break{Kind: InterfaceRemoved, Class: oc.Name, Interface: oit.Interface})
			continue
		}
		for slot, ps := range oit.Slots {
			if slot >= len(nit.Slots) || ps.Ambiguous || ps.Method == nil {
				continue
			}
			ns := nit.Slots[slot]
			switch {
			case ns.Ambiguous || ns.Method == nil:
				breaks = append(breaks, Break{Kind: ItableSlotAmbiguous, Class: oc.Name, Interface: oit.Interface,
					Slot: slot, Old: ps.Method.String(), New: ns.String()})
			case unimplemented[*ns.Method] && !oldUnimplemented[*ps.Method]:
				breaks = append(breaks, Break{Kind: ItableSlotUnimplemented, Class: oc.Name, Interface: oit.Interface,
					Slot: slot, Old: ps.Method.String(), New: ns.Method.String()})
			}
		}
	}
	return breaks
}

func unimplementedSet(c *Class) map[Method]bool {
	set := make(map[Method]bool)
	for _, m := range c.Mirandas {
		if m.Kind == vtable.MirandaUnimplemented.String() {
			set[m.Method] = true
		}
	}
	return set
}
