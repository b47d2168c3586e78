package optimizer

import (
	"testing"

	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/lir"
)

func atom(b ...byte) *lir.Atom { return &lir.Atom{Value: b} }

func op(opcode int, args ...lir.Node) *lir.Op {
	return &lir.Op{Opcode: opcode, Args: args}
}

func singleFn(body lir.Node) *lir.Program {
	return &lir.Program{Main: &lir.Function{Name: "main", Body: body}}
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		name string
		body lir.Node
		want []byte
	}{
		{
			name: "addition",
			body: op(clvm.OpAdd, atom(3), atom(4)),
			want: []byte{7},
		},
		{
			name: "nested arithmetic",
			body: op(clvm.OpMul, op(clvm.OpAdd, atom(1), atom(2)), atom(10)),
			want: []byte{30},
		},
		{
			name: "concat",
			body: op(clvm.OpConcat, atom('a', 'b'), atom('c')),
			want: []byte{'a', 'b', 'c'},
		},
		{
			name: "equality",
			body: op(clvm.OpEq, atom(5), atom(5)),
			want: []byte{1},
		},
		{
			name: "not",
			body: op(clvm.OpNot, atom()),
			want: []byte{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := Optimize(singleFn(tt.body))
			got, ok := prog.Main.Body.(*lir.Atom)
			if !ok {
				t.Fatalf("body is %T, want folded Atom", prog.Main.Body)
			}
			if string(got.Value) != string(tt.want) {
				t.Errorf("folded to %x, want %x", got.Value, tt.want)
			}
		})
	}
}

func TestFoldingLeavesRuntimeErrorsAlone(t *testing.T) {
	// Division by zero must fail at runtime, not disappear or panic at
	// compile time.
	body := op(clvm.OpDiv, atom(1), atom())
	prog := Optimize(singleFn(body))
	if _, ok := prog.Main.Body.(*lir.Op); !ok {
		t.Errorf("body is %T, division by zero should not fold", prog.Main.Body)
	}
}

func TestIfSimplification(t *testing.T) {
	path := &lir.Path{Bits: 2}

	tests := []struct {
		name string
		body lir.Node
		want lir.Node
	}{
		{
			name: "true condition",
			body: &lir.If{Cond: atom(1), Then: path, Else: atom(9)},
			want: path,
		},
		{
			name: "false condition",
			body: &lir.If{Cond: atom(), Then: atom(9), Else: path},
			want: path,
		},
		{
			name: "identical branches",
			body: &lir.If{Cond: &lir.Path{Bits: 5}, Then: &lir.Path{Bits: 2}, Else: &lir.Path{Bits: 2}},
			want: path,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := Optimize(singleFn(tt.body))
			got, ok := prog.Main.Body.(*lir.Path)
			if !ok {
				t.Fatalf("body is %T, want Path", prog.Main.Body)
			}
			if got.Bits != 2 {
				t.Errorf("path = %d, want 2", got.Bits)
			}
		})
	}
}

func TestIfWithEffectfulConditionKept(t *testing.T) {
	// (f x) can raise, so identical branches must not erase the test.
	cond := op(clvm.OpFirst, op(clvm.OpCons, atom(1), atom(2)))
	body := &lir.If{Cond: cond, Then: atom(7), Else: atom(7)}
	prog := Optimize(singleFn(body))
	if _, ok := prog.Main.Body.(*lir.If); !ok {
		t.Errorf("body is %T, the conditional should survive", prog.Main.Body)
	}
}

func TestPathCompression(t *testing.T) {
	// (f (r (r 1))) compresses to a single environment path.
	body := op(clvm.OpFirst, op(clvm.OpRest, op(clvm.OpRest, &lir.Path{Bits: 1})))
	prog := Optimize(singleFn(body))
	path, ok := prog.Main.Body.(*lir.Path)
	if !ok {
		t.Fatalf("body is %T, want Path", prog.Main.Body)
	}
	if path.Bits != lir.ElementPath(2) {
		t.Errorf("path = %d, want %d", path.Bits, lir.ElementPath(2))
	}
}

func TestIdentityCons(t *testing.T) {
	pair := op(clvm.OpCons, &lir.Path{Bits: 2}, &lir.Path{Bits: 3})
	body := op(clvm.OpCons, op(clvm.OpFirst, pair), op(clvm.OpRest, clonePair()))
	prog := Optimize(singleFn(body))
	got, ok := prog.Main.Body.(*lir.Op)
	if !ok || got.Opcode != clvm.OpCons {
		t.Fatalf("body is %v, want the rebuilt pair", prog.Main.Body)
	}
	if len(got.Args) != 2 {
		t.Fatalf("args = %d", len(got.Args))
	}
	if p, ok := got.Args[0].(*lir.Path); !ok || p.Bits != 2 {
		t.Errorf("identity cons did not collapse to the original pair")
	}
}

func clonePair() *lir.Op {
	return op(clvm.OpCons, &lir.Path{Bits: 2}, &lir.Path{Bits: 3})
}

func TestTreeShake(t *testing.T) {
	used := &lir.Function{Name: "used", ParamCount: 1}
	unused := &lir.Function{Name: "unused", ParamCount: 1}
	chained := &lir.Function{Name: "chained", ParamCount: 0}

	used.Body = &lir.Call{Fn: chained}
	unused.Body = atom(1)
	chained.Body = atom(2)

	prog := &lir.Program{
		Main:      &lir.Function{Name: "main", Body: &lir.Call{Fn: used}},
		Functions: []*lir.Function{used, unused, chained},
		Wrapped:   true,
	}

	Optimize(prog)

	if len(prog.Functions) != 2 {
		t.Fatalf("functions = %d, want 2", len(prog.Functions))
	}
	for _, fn := range prog.Functions {
		if fn.Name == "unused" {
			t.Error("unused function survived tree-shaking")
		}
		if !fn.Used {
			t.Errorf("function %s kept but not marked used", fn.Name)
		}
	}
}

func TestRecursiveFunctionSurvivesTreeShake(t *testing.T) {
	fact := &lir.Function{Name: "fact", ParamCount: 1}
	fact.Body = &lir.Call{Fn: fact, Args: []lir.Node{&lir.Path{Bits: 5}}}

	prog := &lir.Program{
		Main:      &lir.Function{Name: "main", Body: &lir.Call{Fn: fact}},
		Functions: []*lir.Function{fact},
		Wrapped:   true,
	}
	Optimize(prog)
	if len(prog.Functions) != 1 {
		t.Errorf("recursive function was dropped")
	}
}

func TestOptimizeIsIdempotent(t *testing.T) {
	build := func() *lir.Program {
		body := op(clvm.OpAdd,
			op(clvm.OpMul, atom(2), atom(3)),
			op(clvm.OpFirst, op(clvm.OpRest, &lir.Path{Bits: 1})))
		return singleFn(&lir.If{Cond: &lir.Path{Bits: 2}, Then: body, Else: atom(9)})
	}

	once := Optimize(build())
	twice := Optimize(once)

	if !equal(once.Main.Body, twice.Main.Body) {
		t.Error("optimizing twice changed the result")
	}

	// And a second run fires no rules at all.
	if Simplify(twice) {
		t.Error("a fixed point should have been reached")
	}
}
