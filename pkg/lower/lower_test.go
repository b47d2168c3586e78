package lower

import (
	"testing"

	"github.com/rue-lang/rue-compiler/pkg/ast"
	"github.com/rue-lang/rue-compiler/pkg/checker"
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/lir"
	"github.com/rue-lang/rue-compiler/pkg/parser"
)

func lowerSource(t *testing.T, source string) *lir.Program {
	t.Helper()
	bag := &diagnostics.Bag{}
	tree := parser.Parse(source, bag)
	prog := checker.Check(ast.NewRoot(tree), bag)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	return Lower(prog)
}

func TestLoneMainIsUnwrapped(t *testing.T) {
	prog := lowerSource(t, `fun main() -> Bytes { "hi" }`)
	if prog.Wrapped {
		t.Error("a lone main needs no function list")
	}
	if len(prog.Functions) != 0 {
		t.Errorf("functions = %d, want 0", len(prog.Functions))
	}
	if _, ok := prog.Main.Body.(*lir.Atom); !ok {
		t.Errorf("main body is %T, want Atom", prog.Main.Body)
	}
}

func TestParameterPaths(t *testing.T) {
	// Bare layout: parameter i sits at first after i rests.
	prog := lowerSource(t, "fun main(a: Int, b: Int) -> Int { b }")
	if prog.Wrapped {
		t.Fatal("expected bare layout")
	}
	path, ok := prog.Main.Body.(*lir.Path)
	if !ok {
		t.Fatalf("body is %T, want Path", prog.Main.Body)
	}
	if path.Bits != 5 {
		t.Errorf("second parameter path = %d, want 5", path.Bits)
	}
}

func TestWrappedParameterPaths(t *testing.T) {
	// With auxiliary functions the function list occupies the first
	// environment slot and parameters shift below rest.
	prog := lowerSource(t, `
fun helper(x: Int) -> Int { x }
fun main(a: Int) -> Int { helper(a) }
`)
	if !prog.Wrapped {
		t.Fatal("expected wrapped layout")
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("functions = %d, want 1", len(prog.Functions))
	}

	call, ok := prog.Main.Body.(*lir.Call)
	if !ok {
		t.Fatalf("main body is %T, want Call", prog.Main.Body)
	}
	arg, ok := call.Args[0].(*lir.Path)
	if !ok || arg.Bits != 5 {
		t.Errorf("first wrapped parameter path = %v, want 5", call.Args[0])
	}

	helper := prog.Functions[0]
	body, ok := helper.Body.(*lir.Path)
	if !ok || body.Bits != 5 {
		t.Errorf("helper parameter path = %v, want 5", helper.Body)
	}
}

func TestSingleUseLetIsInlined(t *testing.T) {
	prog := lowerSource(t, "fun main(a: Int) -> Int { let x = a + 1; x }")
	if _, ok := prog.Main.Body.(*lir.Apply); ok {
		t.Error("single-use pure binding should be inlined, not applied")
	}
	if _, ok := prog.Main.Body.(*lir.Op); !ok {
		t.Fatalf("body is %T, want the inlined addition", prog.Main.Body)
	}
}

func TestMultiUseLetExtendsEnvironment(t *testing.T) {
	prog := lowerSource(t, "fun main(a: Int) -> Int { let x = a + 1; x * x }")
	apply, ok := prog.Main.Body.(*lir.Apply)
	if !ok {
		t.Fatalf("body is %T, want Apply", prog.Main.Body)
	}
	if _, ok := apply.Code.(*lir.Quote); !ok {
		t.Errorf("apply code is %T, want Quote", apply.Code)
	}

	// Inside the extended environment the binding is at 2 and the
	// multiplication reads it twice.
	quote := apply.Code.(*lir.Quote)
	mul, ok := quote.Body.(*lir.Op)
	if !ok {
		t.Fatalf("quoted body is %T, want Op", quote.Body)
	}
	for _, arg := range mul.Args {
		path, ok := arg.(*lir.Path)
		if !ok || path.Bits != 2 {
			t.Errorf("binding reference = %v, want path 2", arg)
		}
	}
}

func TestShiftedOuterPathsUnderLet(t *testing.T) {
	prog := lowerSource(t, "fun main(a: Int) -> Int { let x = 1; x + a + x }")
	apply, ok := prog.Main.Body.(*lir.Apply)
	if !ok {
		t.Fatalf("body is %T, want Apply", prog.Main.Body)
	}

	// a was at 2 in the original environment; under (x . env) it is
	// first of rest: composed through 3.
	found := false
	var scan func(node lir.Node)
	scan = func(node lir.Node) {
		switch n := node.(type) {
		case *lir.Path:
			if n.Bits == lir.Compose(3, 2) {
				found = true
			}
		case *lir.Op:
			for _, arg := range n.Args {
				scan(arg)
			}
		case *lir.Quote:
			scan(n.Body)
		case *lir.Apply:
			scan(n.Code)
			scan(n.Env)
		case *lir.If:
			scan(n.Cond)
			scan(n.Then)
			scan(n.Else)
		case *lir.Call:
			for _, arg := range n.Args {
				scan(arg)
			}
		}
	}
	scan(apply.Code)
	if !found {
		t.Errorf("outer parameter path was not shifted through the new environment")
	}
}

func TestTreeHashHelperSynthesized(t *testing.T) {
	prog := lowerSource(t, "fun main(x: Any) -> Bytes32 { sha256_tree(x) }")
	if !prog.Wrapped {
		t.Error("the tree hash helper forces the wrapped layout")
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != "sha256_tree" {
		t.Fatalf("functions = %v, want the sha256_tree helper", prog.Functions)
	}

	helper := prog.Functions[0]
	cond, ok := helper.Body.(*lir.If)
	if !ok {
		t.Fatalf("helper body is %T, want If", helper.Body)
	}
	// Recursive on both children of a pair.
	then, ok := cond.Then.(*lir.Op)
	if !ok {
		t.Fatalf("then branch is %T", cond.Then)
	}
	calls := 0
	for _, arg := range then.Args {
		if call, ok := arg.(*lir.Call); ok && call.Fn == helper {
			calls++
		}
	}
	if calls != 2 {
		t.Errorf("recursive calls = %d, want 2", calls)
	}
}

func TestComposePaths(t *testing.T) {
	tests := []struct {
		name string
		base uint64
		sub  uint64
		want uint64
	}{
		{name: "root is identity", base: 1, sub: 2, want: 2},
		{name: "first of rest", base: 3, sub: 2, want: 5},
		{name: "rest of rest", base: 3, sub: 3, want: 7},
		{name: "element one of args tail", base: 3, sub: 5, want: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lir.Compose(tt.base, tt.sub); got != tt.want {
				t.Errorf("Compose(%d, %d) = %d, want %d", tt.base, tt.sub, got, tt.want)
			}
		})
	}
}

func TestElementPath(t *testing.T) {
	wants := []uint64{2, 5, 11, 23}
	for i, want := range wants {
		if got := lir.ElementPath(i); got != want {
			t.Errorf("ElementPath(%d) = %d, want %d", i, got, want)
		}
	}
}
