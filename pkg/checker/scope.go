// Package checker - Name resolution and type checking
// Design: A declaration pre-pass registers every top-level name so
// forward references resolve, then bodies are checked into typed HIR.
// Type errors poison the offending node with Any and checking
// continues.
package checker

import (
	"github.com/rue-lang/rue-compiler/pkg/hir"
	"github.com/rue-lang/rue-compiler/pkg/types"
)

// Scope is one lexical scope. Lookup walks outward through parents.
type Scope struct {
	parent  *Scope
	id      int
	symbols map[string]*hir.Symbol
}

func (s *Scope) lookup(name string) (*hir.Symbol, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// declare adds a symbol to this scope. It reports false when the name
// is already bound in this same scope; shadowing an outer scope is
// allowed.
func (s *Scope) declare(sym *hir.Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

func (c *Checker) pushScope() *Scope {
	c.nextScopeID++
	c.scope = &Scope{
		parent:  c.scope,
		id:      c.nextScopeID,
		symbols: make(map[string]*hir.Symbol),
	}
	return c.scope
}

func (c *Checker) popScope() {
	c.scope = c.scope.parent
}

// Narrowing overlays. A branch narrowed by an `is` test pushes an
// immutable overlay keyed by symbol; the symbol's stored type is never
// mutated.

type narrowing map[*hir.Symbol]types.Type

func (c *Checker) pushNarrowing(n narrowing) {
	c.narrowings = append(c.narrowings, n)
}

func (c *Checker) popNarrowing() {
	c.narrowings = c.narrowings[:len(c.narrowings)-1]
}

// typeOf returns the symbol's effective type under the innermost
// narrowing overlay that mentions it.
func (c *Checker) typeOf(sym *hir.Symbol) types.Type {
	for i := len(c.narrowings) - 1; i >= 0; i-- {
		if t, ok := c.narrowings[i][sym]; ok {
			return t
		}
	}
	return sym.Ty
}
