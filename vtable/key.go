package vtable

// MethodKey identifies a dispatch slot across an inheritance chain.
type MethodKey struct {
	Name      string
	Signature string
}

// KeyOf returns the key of m.
func KeyOf(m Method) MethodKey {
	return MethodKey{Name: m.SymbolicName(), Signature: m.SymbolicSignature()}
}

func (k MethodKey) String() string {
	return k.Name + k.Signature
}
