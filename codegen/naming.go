package codegen

import (
	"strings"
	"unicode"
)

// toPascal converts a string to PascalCase. Any rune that cannot appear in
// a Go identifier separates words and is dropped.
// e.g., "hash_code" → "HashCode", "geo.Square" → "GeoSquare",
// "java/lang.Object" → "JavaLangObject"
func toPascal(s string) string {
	if len(s) == 0 {
		return s
	}

	var b strings.Builder
	nextUpper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// typeIdent returns the identifier prefix for a qualified type name.
func typeIdent(qualified string) string {
	id := toPascal(qualified)
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "T" + id
	}
	return id
}
