package vtable

import "fmt"

// Kind classifies a MethodTableError.
type Kind uint8

const (
	// IllegalClassChangeError is raised when a declared method overrides a
	// final ancestor method.
	IllegalClassChangeError Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case IllegalClassChangeError:
		return "IllegalClassChangeError"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// MethodTableError aborts construction of a type's tables. No partial
// tables are produced when it is returned.
type MethodTableError struct {
	Kind       Kind
	Message    string
	Method     Method // the declared method, if any
	Overridden Method // the ancestor method, if any
}

func (e *MethodTableError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func finalOverrideError(target PartialType, declared, ancestor Method) *MethodTableError {
	return &MethodTableError{
		Kind: IllegalClassChangeError,
		Message: fmt.Sprintf("method %s%s from type %s overrides final method %s%s from type %s",
			declared.SymbolicName(), declared.SymbolicSignature(), target.SymbolicName(),
			ancestor.SymbolicName(), ancestor.SymbolicSignature(), ancestor.DeclaringType().SymbolicName()),
		Method:     declared,
		Overridden: ancestor,
	}
}
