// Package optimizer - LIR-level optimizations
// Design: Tree-shaking plus a fixed-point of local rewrites. Passes run
// until no rule fires; exceeding the iteration cap is a compiler bug.
package optimizer

import (
	"fmt"

	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/lir"
	"github.com/rue-lang/rue-compiler/pkg/logger"
)

// maxIterations bounds the rewrite fixpoint.
const maxIterations = 32

// Optimize runs all passes to a fixed point.
func Optimize(prog *lir.Program) *lir.Program {
	logger.LogPhase("optimize")

	for i := 0; ; i++ {
		if i >= maxIterations {
			panic(fmt.Sprintf("optimizer: no fixed point after %d iterations", maxIterations))
		}

		changed := TreeShake(prog)
		if Simplify(prog) {
			changed = true
		}
		if !changed {
			return prog
		}
	}
}

// TreeShake drops functions unreachable from the entry point. Reports
// whether anything was removed.
func TreeShake(prog *lir.Program) bool {
	for _, fn := range prog.Functions {
		fn.Used = false
	}
	prog.Main.Used = true
	markCalls(prog.Main.Body)

	kept := prog.Functions[:0]
	removed := 0
	for _, fn := range prog.Functions {
		if fn.Used {
			kept = append(kept, fn)
		} else {
			removed++
		}
	}
	prog.Functions = kept

	if removed > 0 {
		logger.LogOptimization("treeshake", removed)
	}
	return removed > 0
}

func markCalls(node lir.Node) {
	walk(node, func(n lir.Node) {
		if call, ok := n.(*lir.Call); ok && !call.Fn.Used {
			call.Fn.Used = true
			markCalls(call.Fn.Body)
		}
	})
}

// Simplify applies the local rewrite rules bottom-up over every
// function body once. Reports whether anything changed.
func Simplify(prog *lir.Program) bool {
	changed := 0

	simplifyFn := func(fn *lir.Function) {
		body, n := rewrite(fn.Body)
		fn.Body = body
		changed += n
	}

	simplifyFn(prog.Main)
	for _, fn := range prog.Functions {
		simplifyFn(fn)
	}

	if changed > 0 {
		logger.LogOptimization("simplify", changed)
	}
	return changed > 0
}

// rewrite returns the simplified node and the number of rules fired.
func rewrite(node lir.Node) (lir.Node, int) {
	changed := 0

	child := func(n lir.Node) lir.Node {
		out, c := rewrite(n)
		changed += c
		return out
	}

	switch t := node.(type) {
	case *lir.Atom, *lir.Path:
		return node, 0

	case *lir.Quote:
		t.Body = child(t.Body)
		return t, changed

	case *lir.Apply:
		t.Code = child(t.Code)
		t.Env = child(t.Env)
		return t, changed

	case *lir.Call:
		for i, arg := range t.Args {
			t.Args[i] = child(arg)
		}
		return t, changed

	case *lir.If:
		t.Cond = child(t.Cond)
		t.Then = child(t.Then)
		t.Else = child(t.Else)

		// A constant condition selects its branch.
		if cond, ok := t.Cond.(*lir.Atom); ok {
			changed++
			if len(cond.Value) != 0 {
				return t.Then, changed
			}
			return t.Else, changed
		}
		// Identical branches make the test irrelevant, provided the
		// condition itself cannot raise.
		if equal(t.Then, t.Else) && trivial(t.Cond) {
			changed++
			return t.Then, changed
		}
		return t, changed

	case *lir.Op:
		for i, arg := range t.Args {
			t.Args[i] = child(arg)
		}

		// Path compression: first/rest of an environment path is a
		// longer environment path.
		if len(t.Args) == 1 {
			if path, ok := t.Args[0].(*lir.Path); ok {
				switch t.Opcode {
				case clvm.OpFirst:
					changed++
					return &lir.Path{Bits: lir.FirstPath(path.Bits)}, changed
				case clvm.OpRest:
					changed++
					return &lir.Path{Bits: lir.RestPath(path.Bits)}, changed
				}
			}
		}

		// Identity cons: (c (f x) (r x)) rebuilds x when x is a
		// known proper pair.
		if t.Opcode == clvm.OpCons && len(t.Args) == 2 {
			if f, ok := t.Args[0].(*lir.Op); ok && f.Opcode == clvm.OpFirst && len(f.Args) == 1 {
				if r, ok := t.Args[1].(*lir.Op); ok && r.Opcode == clvm.OpRest && len(r.Args) == 1 {
					if equal(f.Args[0], r.Args[0]) && knownPair(f.Args[0]) {
						changed++
						return f.Args[0], changed
					}
				}
			}
		}

		// Constant folding: data opcodes over quoted atoms evaluate
		// at compile time. Failures (division by zero, shape errors)
		// are left for runtime.
		if folded, ok := foldConstant(t); ok {
			changed++
			return folded, changed
		}

		return t, changed
	}
	panic("optimizer: unknown LIR node")
}

func foldConstant(op *lir.Op) (lir.Node, bool) {
	switch op.Opcode {
	case clvm.OpApply, clvm.OpIf, clvm.OpQuote, clvm.OpRaise, clvm.OpCons:
		return nil, false
	}

	args := make([]clvm.Value, len(op.Args))
	for i, arg := range op.Args {
		atom, ok := arg.(*lir.Atom)
		if !ok {
			return nil, false
		}
		args[i] = &clvm.Atom{Bytes: atom.Value}
	}

	result, err := clvm.ApplyOp(op.Opcode, args)
	if err != nil {
		return nil, false
	}
	atom, ok := result.(*clvm.Atom)
	if !ok {
		return nil, false
	}
	return &lir.Atom{Value: atom.Bytes}, true
}

// trivial reports whether evaluating the node can have no effect other
// than producing a value.
func trivial(node lir.Node) bool {
	switch t := node.(type) {
	case *lir.Atom, *lir.Path, *lir.Quote:
		return true
	case *lir.Op:
		switch t.Opcode {
		case clvm.OpRaise, clvm.OpDiv, clvm.OpDivmod,
			clvm.OpFirst, clvm.OpRest, clvm.OpStrlen:
			return false
		}
		for _, arg := range t.Args {
			if !trivial(arg) {
				return false
			}
		}
		return true
	}
	return false
}

// knownPair reports whether the node always evaluates to a cons pair.
func knownPair(node lir.Node) bool {
	op, ok := node.(*lir.Op)
	return ok && op.Opcode == clvm.OpCons
}

// equal is structural equality of LIR trees. Calls compare by target
// identity.
func equal(a, b lir.Node) bool {
	switch at := a.(type) {
	case *lir.Atom:
		bt, ok := b.(*lir.Atom)
		return ok && bytesEqual(at.Value, bt.Value)
	case *lir.Path:
		bt, ok := b.(*lir.Path)
		return ok && at.Bits == bt.Bits
	case *lir.Quote:
		bt, ok := b.(*lir.Quote)
		return ok && equal(at.Body, bt.Body)
	case *lir.Apply:
		bt, ok := b.(*lir.Apply)
		return ok && equal(at.Code, bt.Code) && equal(at.Env, bt.Env)
	case *lir.If:
		bt, ok := b.(*lir.If)
		return ok && equal(at.Cond, bt.Cond) && equal(at.Then, bt.Then) && equal(at.Else, bt.Else)
	case *lir.Op:
		bt, ok := b.(*lir.Op)
		if !ok || at.Opcode != bt.Opcode || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !equal(at.Args[i], bt.Args[i]) {
				return false
			}
		}
		return true
	case *lir.Call:
		bt, ok := b.(*lir.Call)
		if !ok || at.Fn != bt.Fn || at.FuncsPath != bt.FuncsPath || len(at.Args) != len(bt.Args) {
			return false
		}
		for i := range at.Args {
			if !equal(at.Args[i], bt.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func walk(node lir.Node, visit func(lir.Node)) {
	if node == nil {
		return
	}
	visit(node)
	switch t := node.(type) {
	case *lir.If:
		walk(t.Cond, visit)
		walk(t.Then, visit)
		walk(t.Else, visit)
	case *lir.Op:
		for _, arg := range t.Args {
			walk(arg, visit)
		}
	case *lir.Quote:
		walk(t.Body, visit)
	case *lir.Apply:
		walk(t.Code, visit)
		walk(t.Env, visit)
	case *lir.Call:
		for _, arg := range t.Args {
			walk(arg, visit)
		}
	}
}
