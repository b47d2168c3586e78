// Package types - The Rue type lattice
// Design: A closed variant set with structural primitives and nominal
// structs/enums. Nominal types compare by pointer identity; everything
// else compares structurally.
package types

import (
	"fmt"
	"math/big"
	"strings"
)

type Type interface {
	typeNode()
	String() string
}

// Primitives

type Nil struct{}
type Bytes struct{}
type Bytes32 struct{}
type Int struct{}
type Bool struct{}
type Any struct{}

func (Nil) typeNode()     {}
func (Bytes) typeNode()   {}
func (Bytes32) typeNode() {}
func (Int) typeNode()     {}
func (Bool) typeNode()    {}
func (Any) typeNode()     {}

func (Nil) String() string     { return "Nil" }
func (Bytes) String() string   { return "Bytes" }
func (Bytes32) String() string { return "Bytes32" }
func (Int) String() string     { return "Int" }
func (Bool) String() string    { return "Bool" }
func (Any) String() string     { return "Any" }

// List is the array type T[]. Arrays are invariant in their element.
type List struct {
	Element Type
}

func (*List) typeNode() {}

func (l *List) String() string {
	return l.Element.String() + "[]"
}

// Field is a named struct, variant, or enum field.
type Field struct {
	Name string
	Type Type
}

// Struct is a nominal record type.
type Struct struct {
	Name   string
	Fields []Field
}

func (*Struct) typeNode() {}

func (s *Struct) String() string { return s.Name }

func (s *Struct) Field(name string) (Field, int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, 0, false
}

// Enum is a nominal tagged union.
type Enum struct {
	Name     string
	Variants []*Variant
}

func (*Enum) typeNode() {}

func (e *Enum) String() string { return e.Name }

func (e *Enum) Variant(name string) (*Variant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Variant is one arm of an enum. Its discriminant is the integer tag
// stored as the first element of the runtime value.
type Variant struct {
	Name         string
	Enum         *Enum
	Discriminant *big.Int
	Fields       []Field
}

func (*Variant) typeNode() {}

func (v *Variant) String() string {
	return v.Enum.Name + "::" + v.Name
}

func (v *Variant) Field(name string) (Field, int, bool) {
	for i, f := range v.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, 0, false
}

// Function is the type of a callable.
type Function struct {
	Params []Type
	Ret    Type
}

func (*Function) typeNode() {}

func (f *Function) String() string {
	var params []string
	for _, p := range f.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), f.Ret.String())
}

// Equal reports type identity: pointer identity for nominal types,
// structural equality otherwise.
func Equal(a, b Type) bool {
	switch at := a.(type) {
	case Nil, Bytes, Bytes32, Int, Bool, Any:
		return a == b
	case *List:
		bt, ok := b.(*List)
		return ok && Equal(at.Element, bt.Element)
	case *Struct:
		return a == b
	case *Enum:
		return a == b
	case *Variant:
		return a == b
	case *Function:
		bt, ok := b.(*Function)
		if !ok || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if !Equal(at.Params[i], bt.Params[i]) {
				return false
			}
		}
		return Equal(at.Ret, bt.Ret)
	}
	return false
}

// Assignable reports whether a value of type `from` may appear where
// `to` is expected: subtype or equal. The subtype relation is
// every type <= Any, Bytes32 <= Bytes, E::V <= E, and Nil <= T[]
// (the empty list terminates every list). Arrays are invariant.
func Assignable(from, to Type) bool {
	if Equal(from, to) {
		return true
	}
	if _, ok := to.(Any); ok {
		return true
	}
	if _, ok := from.(Bytes32); ok {
		if _, ok := to.(Bytes); ok {
			return true
		}
	}
	if v, ok := from.(*Variant); ok {
		if e, ok := to.(*Enum); ok {
			return v.Enum == e
		}
	}
	if _, ok := from.(Nil); ok {
		if _, ok := to.(*List); ok {
			return true
		}
	}
	return false
}

// Lub computes the least common supertype of two types, falling back
// to Any when the types are unrelated.
func Lub(a, b Type) Type {
	if Assignable(a, b) {
		return b
	}
	if Assignable(b, a) {
		return a
	}
	av, aok := a.(*Variant)
	bv, bok := b.(*Variant)
	if aok && bok && av.Enum == bv.Enum {
		return av.Enum
	}
	return Any{}
}

// Overlap reports whether a runtime value could inhabit both types,
// which gates the usefulness of an `is` test.
func Overlap(a, b Type) bool {
	if Assignable(a, b) || Assignable(b, a) {
		return true
	}
	av, aok := a.(*Variant)
	bv, bok := b.(*Variant)
	if aok && bok {
		return av == bv
	}
	return false
}

// IsAtom reports whether every runtime value of the type is a CLVM atom
// (as opposed to a cons pair). Used by `is` lowering.
func IsAtom(t Type) bool {
	switch t.(type) {
	case Nil, Bytes, Bytes32, Int, Bool:
		return true
	}
	return false
}
