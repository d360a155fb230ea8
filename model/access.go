package model

import (
	"fmt"
	"strings"
)

// Access is a member's visibility.
type Access uint8

const (
	AccessPackage Access = iota
	AccessPrivate
	AccessProtected
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPackage:
		return "package"
	case AccessPrivate:
		return "private"
	case AccessProtected:
		return "protected"
	case AccessPublic:
		return "public"
	default:
		return fmt.Sprintf("Access(%d)", uint8(a))
	}
}

// ParseAccess parses an access keyword. The empty string means public.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(s) {
	case "", "public":
		return AccessPublic, nil
	case "protected":
		return AccessProtected, nil
	case "package":
		return AccessPackage, nil
	case "private":
		return AccessPrivate, nil
	}
	return 0, fmt.Errorf("unknown access %q", s)
}

// Flags are method modifiers other than access.
type Flags uint8

const (
	FlagStatic Flags = 1 << iota
	FlagFinal
	FlagAbstract
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagStatic) {
		parts = append(parts, "static")
	}
	if f.Has(FlagFinal) {
		parts = append(parts, "final")
	}
	if f.Has(FlagAbstract) {
		parts = append(parts, "abstract")
	}
	return strings.Join(parts, " ")
}
