// Package lower - HIR to LIR lowering
// Design: Translates the typed expression tree into the cons-cell
// calculus. Each function's environment is a right-nested list of its
// parameters, prefixed by the program's function list whenever
// auxiliary functions exist. Names disappear here: every binding
// becomes an environment path.
package lower

import (
	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/hir"
	"github.com/rue-lang/rue-compiler/pkg/lir"
	"github.com/rue-lang/rue-compiler/pkg/logger"
	"github.com/rue-lang/rue-compiler/pkg/types"
)

// Lower translates a checked program into LIR.
func Lower(prog *hir.Program) *lir.Program {
	logger.LogPhase("lower")

	l := &lowerer{
		funcs: make(map[*hir.Symbol]*lir.Function),
	}

	wrapped := len(prog.Functions) > 1
	for _, fn := range prog.Functions {
		if usesTreeHash(fn.Body) {
			wrapped = true
		}
	}
	l.wrapped = wrapped

	out := &lir.Program{Wrapped: wrapped}

	// Stub every function first so calls and recursion resolve.
	for _, fn := range prog.Functions {
		stub := &lir.Function{Name: fn.Symbol.Name, ParamCount: len(fn.Params)}
		l.funcs[fn.Symbol] = stub
		if fn == prog.Main {
			out.Main = stub
		} else {
			out.Functions = append(out.Functions, stub)
		}
	}

	l.program = out

	for _, fn := range prog.Functions {
		ctx := newContext()
		if wrapped {
			ctx.funcs = 2
		}
		for i, param := range fn.Params {
			ctx.bind(param, &lir.Path{Bits: l.paramPath(i)})
		}
		l.funcs[fn.Symbol].Body = l.lowerExpr(ctx, fn.Body)
	}

	return out
}

type lowerer struct {
	program *lir.Program
	funcs   map[*hir.Symbol]*lir.Function
	treeFn  *lir.Function
	wrapped bool
}

// paramPath addresses parameter i in the current environment layout.
func (l *lowerer) paramPath(i int) uint64 {
	if l.wrapped {
		return lir.Compose(3, lir.ElementPath(i))
	}
	return lir.Compose(lir.RootPath, lir.ElementPath(i))
}

// binding is either a fixed environment path or an expression inlined
// at its single use site.
type binding struct {
	path   *lir.Path
	inline hir.Expr
}

type context struct {
	bindings map[*hir.Symbol]binding
	funcs    uint64 // path to the function list, 0 in the bare layout
}

func newContext() *context {
	return &context{bindings: make(map[*hir.Symbol]binding)}
}

func (c *context) bind(sym *hir.Symbol, path *lir.Path) {
	c.bindings[sym] = binding{path: path}
}

func (c *context) bindInline(sym *hir.Symbol, value hir.Expr) {
	c.bindings[sym] = binding{inline: value}
}

// shifted returns a context for an environment extended by one cons:
// the new value sits at first, the old environment at rest. Every
// existing path, the function list included, moves below a rest step.
func (c *context) shifted() *context {
	next := newContext()
	if c.funcs != 0 {
		next.funcs = lir.Compose(3, c.funcs)
	}
	for sym, b := range c.bindings {
		if b.path != nil {
			next.bindings[sym] = binding{path: &lir.Path{Bits: lir.Compose(3, b.path.Bits)}}
		} else {
			next.bindings[sym] = b
		}
	}
	return next
}

func (l *lowerer) lowerExpr(ctx *context, e hir.Expr) lir.Node {
	switch t := e.(type) {
	case *hir.Atom:
		return &lir.Atom{Value: t.Value}

	case *hir.Reference:
		b, ok := ctx.bindings[t.Symbol]
		if !ok {
			panic("lower: unbound symbol " + t.Symbol.Name)
		}
		if b.path != nil {
			return &lir.Path{Bits: b.path.Bits}
		}
		return l.lowerExpr(ctx, b.inline)

	case *hir.Let:
		return l.lowerLet(ctx, t)

	case *hir.If:
		return &lir.If{
			Cond: l.lowerExpr(ctx, t.Cond),
			Then: l.lowerExpr(ctx, t.Then),
			Else: l.lowerExpr(ctx, t.Else),
		}

	case *hir.Call:
		fn, ok := l.funcs[t.Callee]
		if !ok {
			panic("lower: call to unknown function " + t.Callee.Name)
		}
		args := make([]lir.Node, len(t.Args))
		for i, arg := range t.Args {
			args[i] = l.lowerExpr(ctx, arg)
		}
		return &lir.Call{Fn: fn, Args: args, FuncsPath: ctx.funcs}

	case *hir.BuiltinCall:
		return l.lowerBuiltin(ctx, t)

	case *hir.List:
		return l.lowerList(ctx, t)

	case *hir.Construct:
		return l.lowerConstruct(ctx, t)

	case *hir.Access:
		node := l.lowerExpr(ctx, t.Operand)
		for i := 0; i < t.RestDepth; i++ {
			node = &lir.Op{Opcode: clvm.OpRest, Args: []lir.Node{node}}
		}
		if t.TakeFirst {
			node = &lir.Op{Opcode: clvm.OpFirst, Args: []lir.Node{node}}
		}
		return node

	case *hir.Unary:
		operand := l.lowerExpr(ctx, t.Operand)
		switch t.Op {
		case hir.OpNot:
			return &lir.Op{Opcode: clvm.OpNot, Args: []lir.Node{operand}}
		case hir.OpNeg:
			zero := &lir.Atom{}
			return &lir.Op{Opcode: clvm.OpSub, Args: []lir.Node{zero, operand}}
		}
		panic("lower: unknown unary op")

	case *hir.Binary:
		return l.lowerBinary(ctx, t)

	case *hir.IsTest:
		return l.lowerIsTest(ctx, t)

	case *hir.Cast:
		// Coercions preserve the bit pattern; nothing to emit.
		return l.lowerExpr(ctx, t.Operand)
	}
	panic("lower: unknown HIR node")
}

// lowerLet inlines pure single-use bindings and otherwise extends the
// environment with an inner apply: (a (q . body) (c value 1)).
func (l *lowerer) lowerLet(ctx *context, t *hir.Let) lir.Node {
	if countUses(t.Body, t.Symbol) <= 1 && isPure(t.Value) {
		inner := newContext()
		inner.funcs = ctx.funcs
		for sym, b := range ctx.bindings {
			inner.bindings[sym] = b
		}
		inner.bindInline(t.Symbol, t.Value)
		return l.lowerExpr(inner, t.Body)
	}

	value := l.lowerExpr(ctx, t.Value)
	inner := ctx.shifted()
	inner.bind(t.Symbol, &lir.Path{Bits: 2})
	body := l.lowerExpr(inner, t.Body)

	env := &lir.Op{Opcode: clvm.OpCons, Args: []lir.Node{value, &lir.Path{Bits: lir.RootPath}}}
	return &lir.Apply{Code: &lir.Quote{Body: body}, Env: env}
}

func (l *lowerer) lowerBuiltin(ctx *context, t *hir.BuiltinCall) lir.Node {
	args := make([]lir.Node, len(t.Args))
	for i, arg := range t.Args {
		args[i] = l.lowerExpr(ctx, arg)
	}

	switch t.Builtin {
	case hir.BuiltinSha256:
		return &lir.Op{Opcode: clvm.OpSha256, Args: args}
	case hir.BuiltinSha256Tree:
		return &lir.Call{Fn: l.treeHashFn(), Args: args, FuncsPath: ctx.funcs}
	}
	panic("lower: unknown builtin")
}

// treeHashFn synthesizes the recursive sha256 tree hash helper on first
// use: leaves hash with a 0x01 prefix, pairs with 0x02 over the child
// hashes.
func (l *lowerer) treeHashFn() *lir.Function {
	if l.treeFn != nil {
		return l.treeFn
	}

	fn := &lir.Function{Name: "sha256_tree", ParamCount: 1}
	l.treeFn = fn
	l.program.Functions = append(l.program.Functions, fn)

	arg := func() lir.Node { return &lir.Path{Bits: l.paramPath(0)} }
	first := &lir.Op{Opcode: clvm.OpFirst, Args: []lir.Node{arg()}}
	rest := &lir.Op{Opcode: clvm.OpRest, Args: []lir.Node{arg()}}

	fn.Body = &lir.If{
		Cond: &lir.Op{Opcode: clvm.OpListp, Args: []lir.Node{arg()}},
		Then: &lir.Op{Opcode: clvm.OpSha256, Args: []lir.Node{
			&lir.Atom{Value: []byte{2}},
			&lir.Call{Fn: fn, Args: []lir.Node{first}, FuncsPath: 2},
			&lir.Call{Fn: fn, Args: []lir.Node{rest}, FuncsPath: 2},
		}},
		Else: &lir.Op{Opcode: clvm.OpSha256, Args: []lir.Node{
			&lir.Atom{Value: []byte{1}},
			arg(),
		}},
	}
	return fn
}

// lowerList builds a nil-terminated cons list. A trailing spread
// supplies the tail directly: [a, ...xs] is (c a xs).
func (l *lowerer) lowerList(ctx *context, t *hir.List) lir.Node {
	var tail lir.Node = &lir.Atom{}
	items := t.Items
	if n := len(items); n > 0 && items[n-1].Spread {
		tail = l.lowerExpr(ctx, items[n-1].Value)
		items = items[:n-1]
	}
	for i := len(items) - 1; i >= 0; i-- {
		tail = &lir.Op{Opcode: clvm.OpCons, Args: []lir.Node{l.lowerExpr(ctx, items[i].Value), tail}}
	}
	return tail
}

// lowerConstruct conses fields in declaration order, with the enum
// discriminant in front.
func (l *lowerer) lowerConstruct(ctx *context, t *hir.Construct) lir.Node {
	var tail lir.Node = &lir.Atom{}
	for i := len(t.Fields) - 1; i >= 0; i-- {
		tail = &lir.Op{Opcode: clvm.OpCons, Args: []lir.Node{l.lowerExpr(ctx, t.Fields[i]), tail}}
	}
	if t.Discriminant != nil {
		disc := &lir.Atom{Value: clvm.EncodeInt(t.Discriminant)}
		tail = &lir.Op{Opcode: clvm.OpCons, Args: []lir.Node{disc, tail}}
	}
	return tail
}

func (l *lowerer) lowerBinary(ctx *context, t *hir.Binary) lir.Node {
	lhs := l.lowerExpr(ctx, t.Lhs)
	rhs := l.lowerExpr(ctx, t.Rhs)

	op := func(opcode int, args ...lir.Node) *lir.Op {
		return &lir.Op{Opcode: opcode, Args: args}
	}

	switch t.Op {
	case hir.OpAdd:
		return op(clvm.OpAdd, lhs, rhs)
	case hir.OpSub:
		return op(clvm.OpSub, lhs, rhs)
	case hir.OpMul:
		return op(clvm.OpMul, lhs, rhs)
	case hir.OpDiv:
		return op(clvm.OpDiv, lhs, rhs)
	case hir.OpRem:
		return op(clvm.OpRest, op(clvm.OpDivmod, lhs, rhs))
	case hir.OpConcat:
		return op(clvm.OpConcat, lhs, rhs)
	case hir.OpEq:
		return op(clvm.OpEq, lhs, rhs)
	case hir.OpNe:
		return op(clvm.OpNot, op(clvm.OpEq, lhs, rhs))
	case hir.OpGt:
		return op(clvm.OpGt, lhs, rhs)
	case hir.OpLt:
		return op(clvm.OpGt, rhs, lhs)
	case hir.OpLe:
		return op(clvm.OpNot, op(clvm.OpGt, lhs, rhs))
	case hir.OpGe:
		return op(clvm.OpAny, op(clvm.OpEq, lhs, rhs), op(clvm.OpGt, lhs, rhs))
	case hir.OpAnd:
		return op(clvm.OpAll, lhs, rhs)
	case hir.OpOr:
		return op(clvm.OpAny, lhs, rhs)
	}
	panic("lower: unknown binary op")
}

// lowerIsTest emits the runtime shape check for `operand is Target`.
// Checks that would raise on the wrong shape (strlen or first of an
// atom operand) are guarded with a listp conditional.
func (l *lowerer) lowerIsTest(ctx *context, t *hir.IsTest) lir.Node {
	op := func(opcode int, args ...lir.Node) *lir.Op {
		return &lir.Op{Opcode: opcode, Args: args}
	}
	trueAtom := func() lir.Node { return &lir.Atom{Value: []byte{1}} }
	falseAtom := func() lir.Node { return &lir.Atom{} }
	operand := func() lir.Node { return l.lowerExpr(ctx, t.Operand) }

	staticAtom := types.IsAtom(t.Operand.Type())

	switch target := t.Target.(type) {
	case types.Any:
		return trueAtom()

	case types.Bytes, types.Int, types.Bool:
		return op(clvm.OpNot, op(clvm.OpListp, operand()))

	case types.Nil:
		test := op(clvm.OpEq, operand(), &lir.Atom{})
		if staticAtom {
			return test
		}
		return &lir.If{Cond: op(clvm.OpListp, operand()), Then: falseAtom(), Else: test}

	case types.Bytes32:
		test := op(clvm.OpEq, op(clvm.OpStrlen, operand()), &lir.Atom{Value: []byte{32}})
		if staticAtom {
			return test
		}
		return &lir.If{Cond: op(clvm.OpListp, operand()), Then: falseAtom(), Else: test}

	case *types.List, *types.Struct, *types.Enum:
		return op(clvm.OpListp, operand())

	case *types.Variant:
		disc := &lir.Atom{Value: clvm.EncodeInt(target.Discriminant)}
		test := op(clvm.OpEq, op(clvm.OpFirst, operand()), disc)
		if _, isEnum := t.Operand.Type().(*types.Enum); isEnum {
			return test
		}
		if _, isVariant := t.Operand.Type().(*types.Variant); isVariant {
			return test
		}
		return &lir.If{Cond: op(clvm.OpListp, operand()), Then: test, Else: falseAtom()}
	}
	panic("lower: unknown is-test target")
}

// countUses counts references to a symbol in an expression.
func countUses(e hir.Expr, sym *hir.Symbol) int {
	count := 0
	walk(e, func(n hir.Expr) {
		if ref, ok := n.(*hir.Reference); ok && ref.Symbol == sym {
			count++
		}
	})
	return count
}

// isPure reports whether evaluating the expression can neither fail
// nor diverge, making it safe to inline or drop.
func isPure(e hir.Expr) bool {
	pure := true
	walk(e, func(n hir.Expr) {
		switch n := n.(type) {
		case *hir.Call:
			pure = false
		case *hir.BuiltinCall:
			pure = false
		case *hir.Binary:
			if n.Op == hir.OpDiv || n.Op == hir.OpRem {
				pure = false
			}
		case *hir.Access:
			// first and rest raise on atoms at runtime.
			pure = false
		}
	})
	return pure
}

func walk(e hir.Expr, visit func(hir.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch t := e.(type) {
	case *hir.Let:
		walk(t.Value, visit)
		walk(t.Body, visit)
	case *hir.If:
		walk(t.Cond, visit)
		walk(t.Then, visit)
		walk(t.Else, visit)
	case *hir.Call:
		for _, arg := range t.Args {
			walk(arg, visit)
		}
	case *hir.BuiltinCall:
		for _, arg := range t.Args {
			walk(arg, visit)
		}
	case *hir.List:
		for _, item := range t.Items {
			walk(item.Value, visit)
		}
	case *hir.Construct:
		for _, f := range t.Fields {
			walk(f, visit)
		}
	case *hir.Access:
		walk(t.Operand, visit)
	case *hir.Unary:
		walk(t.Operand, visit)
	case *hir.Binary:
		walk(t.Lhs, visit)
		walk(t.Rhs, visit)
	case *hir.IsTest:
		walk(t.Operand, visit)
	case *hir.Cast:
		walk(t.Operand, visit)
	}
}

func usesTreeHash(e hir.Expr) bool {
	found := false
	walk(e, func(n hir.Expr) {
		if b, ok := n.(*hir.BuiltinCall); ok && b.Builtin == hir.BuiltinSha256Tree {
			found = true
		}
	})
	return found
}
