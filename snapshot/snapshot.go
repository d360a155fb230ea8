// Package snapshot records the method tables of a linked universe in a
// canonical form. Snapshots are encoded as canonical CBOR, so two equal
// table layouts always produce the same bytes and the same hash.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/methodtable/model"
	"github.com/chazu/methodtable/vtable"
)

// Version is the snapshot format version written by Marshal.
const Version uint8 = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the table layout of every linked class of one project.
type Snapshot struct {
	Version uint8   `cbor:"1,keyasint" json:"version"`
	Project string  `cbor:"2,keyasint" json:"project"`
	Options Options `cbor:"3,keyasint" json:"options"`
	Classes []Class `cbor:"4,keyasint" json:"classes"`
}

// Options mirrors the table builder options the snapshot was linked with.
type Options struct {
	Verbose      bool `cbor:"1,keyasint" json:"verbose"`
	AllowPrivate bool `cbor:"2,keyasint" json:"allowPrivate"`
}

// Class holds the tables of one class.
type Class struct {
	Name     string    `cbor:"1,keyasint" json:"name"`
	Super    string    `cbor:"2,keyasint,omitempty" json:"super,omitempty"`
	VTable   []Method  `cbor:"3,keyasint" json:"vtable"`
	Itables  []Itable  `cbor:"4,keyasint,omitempty" json:"itables,omitempty"`
	Mirandas []Miranda `cbor:"5,keyasint,omitempty" json:"mirandas,omitempty"`
}

// Method identifies a method by declaring type, name and signature.
type Method struct {
	Class     string `cbor:"1,keyasint" json:"class"`
	Name      string `cbor:"2,keyasint" json:"name"`
	Signature string `cbor:"3,keyasint" json:"signature"`
}

// Key returns name+signature, the identity slots are matched on.
func (m Method) Key() string {
	return m.Name + m.Signature
}

func (m Method) String() string {
	return m.Class + "." + m.Name + m.Signature
}

// Slot is an itable entry. Method is nil for an ambiguous slot.
type Slot struct {
	Method    *Method `cbor:"1,keyasint,omitempty" json:"method,omitempty"`
	Ambiguous bool    `cbor:"2,keyasint,omitempty" json:"ambiguous,omitempty"`
}

func (s Slot) String() string {
	if s.Ambiguous || s.Method == nil {
		return "<ambiguous>"
	}
	return s.Method.String()
}

// Itable is the table of one implemented interface.
type Itable struct {
	Interface string `cbor:"1,keyasint" json:"interface"`
	Slots     []Slot `cbor:"2,keyasint" json:"slots"`
}

// Miranda is a method an interface contributes without a class
// implementation. Kind is the vtable.MirandaKind string form.
type Miranda struct {
	Method Method `cbor:"1,keyasint" json:"method"`
	Kind   string `cbor:"2,keyasint" json:"kind"`
}

// Take records every linked class of u, sorted by qualified name.
// Interfaces and unlinked classes are left out.
func Take(project string, u *model.Universe, opts vtable.Options) *Snapshot {
	s := &Snapshot{
		Version: Version,
		Project: project,
		Options: Options{
			Verbose:      opts.Verbose,
			AllowPrivate: opts.AllowInterfaceResolvingToPrivate,
		},
	}
	for _, c := range u.All() {
		tables, ok := c.Tables()
		if !ok {
			continue
		}
		super := ""
		if c.Superclass != nil {
			super = c.Superclass.QualifiedName()
		}
		s.Classes = append(s.Classes, FromTables(c.QualifiedName(), super, tables))
	}
	sort.Slice(s.Classes, func(i, j int) bool {
		return s.Classes[i].Name < s.Classes[j].Name
	})
	return s
}

// FromTables converts computed tables into their snapshot form.
func FromTables(name, super string, t *vtable.Tables) Class {
	c := Class{Name: name, Super: super}
	for _, m := range t.VTable() {
		c.VTable = append(c.VTable, methodOf(m))
	}
	for _, it := range t.Itables() {
		st := Itable{Interface: it.Interface.SymbolicName()}
		for _, slot := range it.Slots {
			if m, ok := slot.Method(); ok {
				ref := methodOf(m)
				st.Slots = append(st.Slots, Slot{Method: &ref})
			} else {
				st.Slots = append(st.Slots, Slot{Ambiguous: true})
			}
		}
		c.Itables = append(c.Itables, st)
	}
	for _, mir := range t.Mirandas() {
		c.Mirandas = append(c.Mirandas, Miranda{Method: methodOf(mir.Method), Kind: mir.Kind.String()})
	}
	return c
}

func methodOf(m vtable.Method) Method {
	return Method{
		Class:     m.DeclaringType().SymbolicName(),
		Name:      m.SymbolicName(),
		Signature: m.SymbolicSignature(),
	}
}

// Lookup finds a class by qualified name.
func (s *Snapshot) Lookup(name string) (*Class, bool) {
	i := sort.Search(len(s.Classes), func(i int) bool { return s.Classes[i].Name >= name })
	if i < len(s.Classes) && s.Classes[i].Name == name {
		return &s.Classes[i], true
	}
	// Snapshots built by hand may not be sorted.
	for i := range s.Classes {
		if s.Classes[i].Name == name {
			return &s.Classes[i], true
		}
	}
	return nil, false
}

// Marshal serializes a snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}
	return &s, nil
}

// Hash returns the SHA-256 of the canonical encoding.
func (s *Snapshot) Hash() ([32]byte, error) {
	data, err := Marshal(s)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashString returns Hash in hex.
func (s *Snapshot) HashString() (string, error) {
	h, err := s.Hash()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
