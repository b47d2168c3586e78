// Package codegen - LIR to CLVM emission
// Design: Assigns each surviving function a position in the program's
// function list, resolves calls to environment paths, and emits the
// final s-expression. Conditionals are thunked with quote/apply so the
// untaken branch never evaluates.
package codegen

import (
	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/lir"
	"github.com/rue-lang/rue-compiler/pkg/logger"
)

// Generate emits the CLVM program for optimized LIR.
func Generate(prog *lir.Program) clvm.Value {
	logger.LogPhase("codegen")

	g := &generator{indexes: make(map[*lir.Function]int)}
	for i, fn := range prog.Functions {
		g.indexes[fn] = i
	}

	mainBody := g.gen(prog.Main.Body)

	if !prog.Wrapped {
		return mainBody
	}

	// (a (q . main) (c (q . (f1 ... fn)) 1))
	bodies := make([]clvm.Value, len(prog.Functions))
	for i, fn := range prog.Functions {
		bodies[i] = g.gen(fn.Body)
	}
	funcList := clvm.FromList(bodies)

	return list(
		opAtom(clvm.OpApply),
		quote(mainBody),
		list(
			opAtom(clvm.OpCons),
			quote(funcList),
			&clvm.Atom{Bytes: []byte{1}},
		),
	)
}

type generator struct {
	indexes map[*lir.Function]int
}

func (g *generator) gen(node lir.Node) clvm.Value {
	switch t := node.(type) {
	case *lir.Atom:
		if len(t.Value) == 0 {
			// The empty atom is path 0, which already evaluates to nil.
			return clvm.NilVal()
		}
		return quote(&clvm.Atom{Bytes: t.Value})

	case *lir.Path:
		return pathAtom(t.Bits)

	case *lir.If:
		// (a (i cond (q . then) (q . else)) 1)
		return list(
			opAtom(clvm.OpApply),
			list(
				opAtom(clvm.OpIf),
				g.gen(t.Cond),
				quote(g.gen(t.Then)),
				quote(g.gen(t.Else)),
			),
			&clvm.Atom{Bytes: []byte{1}},
		)

	case *lir.Op:
		items := make([]clvm.Value, 0, len(t.Args)+1)
		items = append(items, opAtom(t.Opcode))
		for _, arg := range t.Args {
			items = append(items, g.gen(arg))
		}
		return clvm.FromList(items)

	case *lir.Quote:
		return quote(g.gen(t.Body))

	case *lir.Apply:
		return list(opAtom(clvm.OpApply), g.gen(t.Code), g.gen(t.Env))

	case *lir.Call:
		index, ok := g.indexes[t.Fn]
		if !ok {
			panic("codegen: call to a function dropped by tree-shaking")
		}
		fnPath := lir.Compose(t.FuncsPath, lir.ElementPath(index))

		// (a <fn> (c <funcs> (c a1 ... (c an ()))))
		var env clvm.Value = clvm.NilVal()
		for i := len(t.Args) - 1; i >= 0; i-- {
			env = list(opAtom(clvm.OpCons), g.gen(t.Args[i]), env)
		}
		env = list(opAtom(clvm.OpCons), pathAtom(t.FuncsPath), env)

		return list(opAtom(clvm.OpApply), pathAtom(fnPath), env)
	}
	panic("codegen: unknown LIR node")
}

// quote wraps a value as (q . v). The empty atom stays bare: path 0 is
// already nil.
func quote(v clvm.Value) clvm.Value {
	if clvm.IsNil(v) {
		return v
	}
	return &clvm.Pair{First: &clvm.Atom{Bytes: []byte{1}}, Rest: v}
}

func opAtom(op int) clvm.Value {
	return &clvm.Atom{Bytes: []byte{byte(op)}}
}

// pathAtom encodes an environment path as an unsigned big-endian atom.
func pathAtom(bits uint64) clvm.Value {
	if bits == 0 {
		return clvm.NilVal()
	}
	var b []byte
	for n := bits; n > 0; n >>= 8 {
		b = append([]byte{byte(n)}, b...)
	}
	return &clvm.Atom{Bytes: b}
}

func list(items ...clvm.Value) clvm.Value {
	return clvm.FromList(items)
}
