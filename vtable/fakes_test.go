package vtable

// Minimal implementations of the capabilities for tests.

type fakeType struct {
	name   string
	supers []*fakeType
}

func newType(name string, supers ...*fakeType) *fakeType {
	return &fakeType{name: name, supers: supers}
}

func (t *fakeType) SymbolicName() string { return t.name }

func (t *fakeType) IsAssignableFrom(other Type) bool {
	o, ok := other.(*fakeType)
	if !ok {
		return false
	}
	if o == t {
		return true
	}
	for _, s := range o.supers {
		if t.IsAssignableFrom(s) {
			return true
		}
	}
	return false
}

type fakeMethod struct {
	name       string
	sig        string
	decl       *fakeType
	access     string
	static     bool
	final      bool
	abstract   bool
	noOverride bool
}

func method(decl *fakeType, name string) *fakeMethod {
	return &fakeMethod{name: name, sig: "()V", decl: decl, access: "public"}
}

func (m *fakeMethod) SymbolicName() string      { return m.name }
func (m *fakeMethod) SymbolicSignature() string { return m.sig }
func (m *fakeMethod) DeclaringType() Type       { return m.decl }
func (m *fakeMethod) IsVirtualEntry() bool      { return !m.static && m.access != "private" }
func (m *fakeMethod) IsFinalFlagSet() bool      { return m.final }
func (m *fakeMethod) IsAbstract() bool          { return m.abstract }

func (m *fakeMethod) SameAccess(other Method) bool {
	return m.access == other.(*fakeMethod).access
}

func (m *fakeMethod) CanOverride(ancestor Method, slot int) bool {
	return !m.noOverride
}

type fakePartial struct {
	name     string
	parent   []Method
	ifaces   []InterfaceTable
	declared []Method

	private      map[MethodKey]Method
	privateCalls int
}

func (p *fakePartial) SymbolicName() string             { return p.name }
func (p *fakePartial) ParentTable() []Method            { return p.parent }
func (p *fakePartial) InterfacesData() []InterfaceTable { return p.ifaces }
func (p *fakePartial) DeclaredMethods() []Method        { return p.declared }

func (p *fakePartial) LookupOverrideWithPrivate(name, signature string) (Method, bool) {
	p.privateCalls++
	m, ok := p.private[MethodKey{Name: name, Signature: signature}]
	return m, ok
}

func methods(ms ...*fakeMethod) []Method {
	out := make([]Method, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

func itable(iface *fakeType, ms ...*fakeMethod) InterfaceTable {
	return InterfaceTable{Interface: iface, Methods: methods(ms...)}
}

func sameMethods(got []Method, want ...*fakeMethod) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != Method(want[i]) {
			return false
		}
	}
	return true
}

func names(ms []Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.DeclaringType().SymbolicName() + "." + m.SymbolicName()
	}
	return out
}
