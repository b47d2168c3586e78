package codegen

import (
	"encoding/hex"
	"testing"

	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/lir"
)

func TestAtomsAreQuoted(t *testing.T) {
	prog := &lir.Program{Main: &lir.Function{Body: &lir.Atom{Value: []byte("Hello, world!")}}}
	value := Generate(prog)

	if got := hex.EncodeToString(clvm.Serialize(value)); got != "ff018d48656c6c6f2c20776f726c6421" {
		t.Errorf("serialized = %s", got)
	}
}

func TestNilIsNotQuoted(t *testing.T) {
	// The empty atom is environment path 0, which is already nil.
	prog := &lir.Program{Main: &lir.Function{Body: &lir.Atom{}}}
	value := Generate(prog)
	if !clvm.IsNil(value) {
		t.Errorf("nil atom should emit bare, got %x", clvm.Serialize(value))
	}
}

func TestPathsAreBareAtoms(t *testing.T) {
	prog := &lir.Program{Main: &lir.Function{Body: &lir.Path{Bits: 5}}}
	value := Generate(prog)

	atom, ok := value.(*clvm.Atom)
	if !ok || len(atom.Bytes) != 1 || atom.Bytes[0] != 5 {
		t.Errorf("path emitted as %x, want the bare atom 05", clvm.Serialize(value))
	}
}

func TestIfIsThunked(t *testing.T) {
	prog := &lir.Program{Main: &lir.Function{Body: &lir.If{
		Cond: &lir.Path{Bits: 2},
		Then: &lir.Atom{Value: []byte{10}},
		Else: &lir.Atom{Value: []byte{20}},
	}}}
	value := Generate(prog)

	// (a (i 2 (q . (q . 10)) (q . (q . 20))) 1): i selects one quoted
	// branch and the outer apply evaluates it.
	env := &clvm.Pair{First: &clvm.Atom{Bytes: []byte{1}}, Rest: clvm.NilVal()}
	out, err := clvm.Run(value, env)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	atom, ok := out.(*clvm.Atom)
	if !ok || len(atom.Bytes) != 1 || atom.Bytes[0] != 10 {
		t.Errorf("output = %x, want 0a", clvm.Serialize(out))
	}

	env = &clvm.Pair{First: clvm.NilVal(), Rest: clvm.NilVal()}
	out, err = clvm.Run(value, env)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	atom, ok = out.(*clvm.Atom)
	if !ok || len(atom.Bytes) != 1 || atom.Bytes[0] != 20 {
		t.Errorf("output = %x, want 14", clvm.Serialize(out))
	}
}

func TestWrappedProgramLayout(t *testing.T) {
	double := &lir.Function{Name: "double", ParamCount: 1}
	double.Body = &lir.Op{Opcode: clvm.OpMul, Args: []lir.Node{
		&lir.Path{Bits: 5},
		&lir.Atom{Value: []byte{2}},
	}}

	main := &lir.Function{Name: "main", Body: &lir.Call{
		Fn:        double,
		Args:      []lir.Node{&lir.Atom{Value: []byte{21}}},
		FuncsPath: 2,
	}}

	prog := &lir.Program{Main: main, Functions: []*lir.Function{double}, Wrapped: true}
	value := Generate(prog)

	out, err := clvm.Run(value, clvm.NilVal())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	atom, ok := out.(*clvm.Atom)
	if !ok || len(atom.Bytes) != 1 || atom.Bytes[0] != 42 {
		t.Errorf("output = %x, want 2a", clvm.Serialize(out))
	}
}

func TestCallToShakenFunctionPanics(t *testing.T) {
	ghost := &lir.Function{Name: "ghost"}
	prog := &lir.Program{
		Main:    &lir.Function{Body: &lir.Call{Fn: ghost, FuncsPath: 2}},
		Wrapped: true,
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a call into a dropped function")
		}
	}()
	Generate(prog)
}
