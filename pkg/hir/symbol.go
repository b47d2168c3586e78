package hir

import (
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/types"
)

type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolStruct
	SymbolEnum
	SymbolVariant
	SymbolParameter
	SymbolLet
	SymbolBuiltin
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolStruct:
		return "struct"
	case SymbolEnum:
		return "enum"
	case SymbolVariant:
		return "enum variant"
	case SymbolParameter:
		return "parameter"
	case SymbolLet:
		return "binding"
	case SymbolBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// Symbol is a named entity: function, type, parameter, or binding.
// Type symbols carry their definition in Ty (the *types.Struct,
// *types.Enum, or *types.Variant itself).
type Symbol struct {
	Kind    SymbolKind
	Name    string
	Ty      types.Type
	Decl    diagnostics.Span
	ScopeID int

	// Functions only.
	Builtin Builtin
}

func (s *Symbol) IsCallable() bool {
	return s.Kind == SymbolFunction || s.Kind == SymbolBuiltin
}
