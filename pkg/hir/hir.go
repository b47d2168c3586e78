// Package hir - Typed semantic IR for Rue
// Design: A small expression tree produced by the type checker. Every
// node carries its resolved type; nodes produced despite a type error
// are poisoned with type Any so checking of siblings continues.
package hir

import (
	"math/big"

	"github.com/rue-lang/rue-compiler/pkg/types"
)

// Expr is a typed HIR expression.
type Expr interface {
	hirExpr()
	Type() types.Type
}

// Atom is a literal value in its CLVM byte encoding: integers are
// minimal two's-complement big-endian, strings and hex literals are raw
// bytes, true is 0x01, false and nil are the empty atom.
type Atom struct {
	Value []byte
	Ty    types.Type
}

// Reference reads a symbol: a parameter or a let binding.
type Reference struct {
	Symbol *Symbol
	Ty     types.Type
}

// Let binds a value in the environment of Body.
type Let struct {
	Symbol *Symbol
	Value  Expr
	Body   Expr
	Ty     types.Type
}

// If is a lazily evaluated conditional.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
	Ty   types.Type
}

// Call invokes a user-defined function.
type Call struct {
	Callee *Symbol
	Args   []Expr
	Ty     types.Type
}

// BuiltinCall invokes a compiler builtin.
type BuiltinCall struct {
	Builtin Builtin
	Args    []Expr
	Ty      types.Type
}

// List constructs a cons list from its items. A spread item splices a
// list into the tail position.
type List struct {
	Items []ListItem
	Ty    types.Type
}

type ListItem struct {
	Spread bool
	Value  Expr
}

// Construct builds a struct or enum variant value: a cons list of the
// field values in declaration order, preceded by the discriminant for
// enum variants.
type Construct struct {
	Discriminant *big.Int // nil for structs
	Fields       []Expr   // declaration order
	Ty           types.Type
}

// Access extracts a component of a cons structure: RestDepth
// applications of rest, then optionally a first. Struct field i is
// (i, true); enum variant field i is (i+1, true); `.first` is (0, true)
// and `.rest` is (1, false).
type Access struct {
	Operand   Expr
	RestDepth int
	TakeFirst bool
	Ty        types.Type
}

// Unary is logical not or arithmetic negation.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	Ty      types.Type
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// Binary is an infix operation on two operands.
type Binary struct {
	Op  BinaryOp
	Lhs Expr
	Rhs Expr
	Ty  types.Type
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpConcat
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
)

// IsTest checks the runtime shape of the operand against a type,
// producing Bool. Narrowing happens in the checker; by the time the
// test reaches HIR only the runtime check remains.
type IsTest struct {
	Operand Expr
	Target  types.Type
	Ty      types.Type
}

// Cast re-types the operand without changing its bit pattern.
type Cast struct {
	Operand Expr
	Ty      types.Type
}

func (*Atom) hirExpr()        {}
func (*Reference) hirExpr()   {}
func (*Let) hirExpr()         {}
func (*If) hirExpr()          {}
func (*Call) hirExpr()        {}
func (*BuiltinCall) hirExpr() {}
func (*List) hirExpr()        {}
func (*Construct) hirExpr()   {}
func (*Access) hirExpr()      {}
func (*Unary) hirExpr()       {}
func (*Binary) hirExpr()      {}
func (*IsTest) hirExpr()      {}
func (*Cast) hirExpr()        {}

func (e *Atom) Type() types.Type        { return e.Ty }
func (e *Reference) Type() types.Type   { return e.Ty }
func (e *Let) Type() types.Type         { return e.Ty }
func (e *If) Type() types.Type          { return e.Ty }
func (e *Call) Type() types.Type        { return e.Ty }
func (e *BuiltinCall) Type() types.Type { return e.Ty }
func (e *List) Type() types.Type        { return e.Ty }
func (e *Construct) Type() types.Type   { return e.Ty }
func (e *Access) Type() types.Type      { return e.Ty }
func (e *Unary) Type() types.Type       { return e.Ty }
func (e *Binary) Type() types.Type      { return e.Ty }
func (e *IsTest) Type() types.Type      { return e.Ty }
func (e *Cast) Type() types.Type        { return e.Ty }

// Builtin identifies a compiler-provided function.
type Builtin int

const (
	BuiltinSha256 Builtin = iota
	BuiltinSha256Tree
)

// Function is a checked function ready for lowering.
type Function struct {
	Symbol *Symbol
	Params []*Symbol
	Body   Expr
}

// Program is the checked compilation unit.
type Program struct {
	Functions []*Function // declaration order
	Main      *Function
}
