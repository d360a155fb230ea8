package model

import "sync"

// Symbol is the id of an interned method name or method signature. Two
// methods share a key exactly when both of their symbols are equal.
type Symbol int32

// NoSymbol is what Lookup returns for text no method ever used.
const NoSymbol Symbol = -1

// SymbolTable maps method names and signatures to Symbols. It only grows,
// and one table is shared by every class of a universe.
type SymbolTable struct {
	mu    sync.Mutex
	ids   map[string]Symbol
	texts []string
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[string]Symbol)}
}

// Intern returns the symbol of a method name or signature, assigning the
// next id the first time the text is seen.
func (st *SymbolTable) Intern(text string) Symbol {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids[text]; ok {
		return id
	}
	id := Symbol(len(st.texts))
	st.ids[text] = id
	st.texts = append(st.texts, text)
	return id
}

// Lookup returns the symbol of text without interning it. Method lookups
// use it so that probing for an undeclared method does not grow the table.
func (st *SymbolTable) Lookup(text string) Symbol {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.ids[text]; ok {
		return id
	}
	return NoSymbol
}

// Name returns the name or signature a symbol stands for.
func (st *SymbolTable) Name(id Symbol) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if id < 0 || int(id) >= len(st.texts) {
		return ""
	}
	return st.texts[id]
}
