package parser

import (
	"testing"

	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/syntax"
)

func parse(t *testing.T, source string) (*syntax.GreenNode, *diagnostics.Bag) {
	t.Helper()
	bag := &diagnostics.Bag{}
	tree := Parse(source, bag)
	return tree, bag
}

// Every byte of the source must appear in the tree exactly once, no
// matter how broken the input is.
func TestParseIsLossless(t *testing.T) {
	sources := []string{
		"",
		"fun main() -> Bytes { \"Hello, world!\" }\n",
		"fun f(n: Int) -> Int { if n == 0 { 1 } else { n * f(n - 1) } }",
		"struct Point { x: Int, y: Int }",
		"enum Condition { CreateCoin = 51 { puzzle_hash: Bytes32, amount: Int } }",
		"fun main() -> Any[] { [[50, pk, sha256_tree(conditions)], ...conditions] }",
		// Broken inputs.
		"fun { }",
		"fun main( -> {",
		"let x = ;",
		"fun main() -> Int { 1 + }",
		"garbage tokens everywhere",
		"fun a() -> Int { 1 } ??? fun b() -> Int { 2 }",
	}

	for _, source := range sources {
		tree, _ := parse(t, source)
		if got := tree.Text(); got != source {
			t.Errorf("tree text != source\nsource: %q\ngot:    %q", source, got)
		}
	}
}

func TestParseFunction(t *testing.T) {
	tree, bag := parse(t, "fun add(a: Int, b: Int) -> Int { a + b }")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}

	fn, ok := tree.FindNode(syntax.KindFunctionItem)
	if !ok {
		t.Fatal("no function item")
	}
	params, ok := fn.FindNode(syntax.KindFunctionParamList)
	if !ok {
		t.Fatal("no parameter list")
	}
	if got := len(params.FindNodes(syntax.KindFunctionParam)); got != 2 {
		t.Errorf("param count = %d, want 2", got)
	}
	block, ok := fn.FindNode(syntax.KindBlock)
	if !ok {
		t.Fatal("no body block")
	}
	if _, ok := block.FindNode(syntax.KindBinaryExpr); !ok {
		t.Error("tail expression is not a binary expression")
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		source string
		// The top-level expression node kind inside the block.
		top syntax.Kind
	}{
		{name: "mul binds tighter than add", source: "fun f() -> Int { 1 + 2 * 3 }", top: syntax.KindBinaryExpr},
		{name: "comparison above arithmetic", source: "fun f() -> Bool { 1 + 2 == 3 }", top: syntax.KindBinaryExpr},
		{name: "logical and above is", source: "fun f(x: Any) -> Bool { x is Int && true }", top: syntax.KindBinaryExpr},
		{name: "call postfix", source: "fun f() -> Int { g(1)(2) }", top: syntax.KindFunctionCall},
		{name: "field postfix", source: "fun f(p: Any) -> Any { p.first }", top: syntax.KindFieldAccess},
		{name: "cast", source: "fun f() -> Bytes { 1 as Bytes }", top: syntax.KindCastExpr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, _ := parse(t, tt.source)
			fn, _ := tree.FindNode(syntax.KindFunctionItem)
			block, ok := fn.FindNode(syntax.KindBlock)
			if !ok {
				t.Fatal("no block")
			}
			nodes := block.Nodes()
			if len(nodes) == 0 {
				t.Fatal("no expression in block")
			}
			if nodes[len(nodes)-1].Kind != tt.top {
				t.Errorf("top expression kind = %v, want %v", nodes[len(nodes)-1].Kind, tt.top)
			}
		})
	}
}

func TestPrecedenceShape(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3): the inner binary is the
	// multiplication.
	tree, _ := parse(t, "fun f() -> Int { 1 + 2 * 3 }")
	fn, _ := tree.FindNode(syntax.KindFunctionItem)
	block, _ := fn.FindNode(syntax.KindBlock)
	outer, ok := block.FindNode(syntax.KindBinaryExpr)
	if !ok {
		t.Fatal("no outer binary")
	}
	inner, ok := outer.FindNode(syntax.KindBinaryExpr)
	if !ok {
		t.Fatal("no inner binary; precedence is wrong")
	}
	if inner.Text() != "2 * 3" {
		t.Errorf("inner binary = %q, want %q", inner.Text(), "2 * 3")
	}
}

func TestParseStatements(t *testing.T) {
	tree, bag := parse(t, `fun f() -> Int {
    let x: Int = 1;
    let y = x + 1;
    sha256(y);
    return y;
}`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}

	fn, _ := tree.FindNode(syntax.KindFunctionItem)
	block, _ := fn.FindNode(syntax.KindBlock)
	if got := len(block.FindNodes(syntax.KindLetStmt)); got != 2 {
		t.Errorf("let count = %d, want 2", got)
	}
	if got := len(block.FindNodes(syntax.KindExprStmt)); got != 1 {
		t.Errorf("expr statement count = %d, want 1", got)
	}
	if got := len(block.FindNodes(syntax.KindReturnStmt)); got != 1 {
		t.Errorf("return count = %d, want 1", got)
	}
}

func TestParseEnum(t *testing.T) {
	tree, bag := parse(t, `enum Condition {
    CreateCoin = 51 { puzzle_hash: Bytes32, amount: Int },
    AggSigMe = 50,
    Plain,
}`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}

	enum, ok := tree.FindNode(syntax.KindEnumItem)
	if !ok {
		t.Fatal("no enum item")
	}
	variants := enum.FindNodes(syntax.KindEnumVariant)
	if len(variants) != 3 {
		t.Fatalf("variant count = %d, want 3", len(variants))
	}
	if got := len(variants[0].FindNodes(syntax.KindStructField)); got != 2 {
		t.Errorf("first variant fields = %d, want 2", got)
	}
}

func TestParseInitializer(t *testing.T) {
	tree, bag := parse(t, "fun f() -> Any { Condition::CreateCoin { amount: 1, puzzle_hash: h } }")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	init, ok := tree.FindNode(syntax.KindFunctionItem)
	if !ok {
		t.Fatal("no function")
	}
	block, _ := init.FindNode(syntax.KindBlock)
	ctor, ok := block.FindNode(syntax.KindInitializerExpr)
	if !ok {
		t.Fatal("no initializer expression")
	}
	if got := len(ctor.FindNodes(syntax.KindInitializerField)); got != 2 {
		t.Errorf("initializer fields = %d, want 2", got)
	}
}

// The condition of an if is parsed without initializers so the block
// brace is not consumed as a construction.
func TestIfConditionIsNotInitializer(t *testing.T) {
	tree, bag := parse(t, "fun f(x: Bool) -> Int { if x { 1 } else { 2 } }")
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.All())
	}
	fn, _ := tree.FindNode(syntax.KindFunctionItem)
	block, _ := fn.FindNode(syntax.KindBlock)
	ifNode, ok := block.FindNode(syntax.KindIfExpr)
	if !ok {
		t.Fatal("no if expression")
	}
	if got := len(ifNode.FindNodes(syntax.KindBlock)); got != 2 {
		t.Errorf("if blocks = %d, want 2", got)
	}
}

func TestErrorRecovery(t *testing.T) {
	// The broken first function must not prevent parsing the second.
	tree, bag := parse(t, "fun broken( { } fun ok() -> Int { 1 }")
	if !bag.HasErrors() {
		t.Fatal("expected parse diagnostics")
	}
	items := tree.FindNodes(syntax.KindFunctionItem)
	if len(items) != 2 {
		t.Fatalf("function items = %d, want 2", len(items))
	}
}

func TestErrorNodesCarrySkippedTokens(t *testing.T) {
	tree, bag := parse(t, "??? fun ok() -> Int { 1 }")
	if !bag.HasErrors() {
		t.Fatal("expected diagnostics")
	}
	if _, ok := tree.FindNode(syntax.KindError); !ok {
		t.Error("expected an error node wrapping the skipped tokens")
	}
	if tree.Text() != "??? fun ok() -> Int { 1 }" {
		t.Errorf("losslessness violated: %q", tree.Text())
	}
}

func TestParseDiagnosticSpans(t *testing.T) {
	source := "fun f() -> Int { 1 + }"
	_, bag := parse(t, source)
	if !bag.HasErrors() {
		t.Fatal("expected a diagnostic")
	}
	d := bag.All()[0]
	if d.Span.Start < 0 || d.Span.End > len(source) {
		t.Errorf("diagnostic span %v is outside the source", d.Span)
	}
}
