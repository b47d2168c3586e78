// Package compiler - The Rue compilation pipeline
// Design: Strictly forward dataflow: source -> CST -> AST -> HIR ->
// LIR -> CLVM. Diagnostics accumulate across stages and never abort
// the pipeline; codegen runs only when no error-severity diagnostic
// was reported.
package compiler

import (
	"github.com/rue-lang/rue-compiler/pkg/ast"
	"github.com/rue-lang/rue-compiler/pkg/checker"
	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/codegen"
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/logger"
	"github.com/rue-lang/rue-compiler/pkg/lower"
	"github.com/rue-lang/rue-compiler/pkg/optimizer"
	"github.com/rue-lang/rue-compiler/pkg/parser"
)

// Result is the output of a compilation: serialized bytecode and every
// diagnostic collected along the way. Bytecode is empty whenever any
// diagnostic has error severity.
type Result struct {
	Bytecode    []byte
	Diagnostics []diagnostics.Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			return true
		}
	}
	return false
}

// Compile runs the whole pipeline over one source unit.
func Compile(source string) Result {
	value, bag := compileToValue(source)
	result := Result{Diagnostics: bag.All()}
	if value != nil {
		result.Bytecode = clvm.Serialize(value)
		logger.LogCodeGen(len(result.Bytecode))
	}
	return result
}

// CompileToValue compiles to the CLVM s-expression instead of its
// serialization, for callers that want to evaluate the program.
func CompileToValue(source string) (clvm.Value, []diagnostics.Diagnostic) {
	value, bag := compileToValue(source)
	return value, bag.All()
}

func compileToValue(source string) (clvm.Value, *diagnostics.Bag) {
	bag := &diagnostics.Bag{}

	tree := parser.Parse(source, bag)
	root := ast.NewRoot(tree)
	prog := checker.Check(root, bag)

	if bag.HasErrors() {
		return nil, bag
	}

	lowered := lower.Lower(prog)
	optimized := optimizer.Optimize(lowered)
	return codegen.Generate(optimized), bag
}
