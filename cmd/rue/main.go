// Package main implements the Rue compiler binary.
//
// Philosophy: Fast, minimal, elegant - a thin shell around the library
// pipeline in pkg/compiler.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/compiler"
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/logger"
)

const version = "0.1.0"

func main() {
	logger.Init(logger.DefaultConfig())

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "compile":
		os.Exit(compile(os.Args[2:], false))
	case "run":
		os.Exit(compile(os.Args[2:], true))
	case "version":
		fmt.Printf("rue compiler version %s\n", version)
	case "help":
		usage()
	default:
		// `rue <path.rue>` compiles directly.
		if _, err := os.Stat(cmd); err == nil {
			os.Exit(compile(os.Args[1:], false))
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Rue Compiler - Compile Rue to CLVM bytecode

Usage:
    rue compile <source.rue>  Compile and print hex-encoded bytecode
    rue run <source.rue>      Compile, then evaluate on a nil solution
    rue version               Show compiler version
    rue help                  Show this help message`)
}

func compile(args []string, run bool) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input file")
		return 1
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not read %s: %v\n", path, err)
		return 1
	}
	source := string(data)

	result := compiler.Compile(source)
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, diagnostics.Render(path, source, d))
	}
	if result.HasErrors() {
		return 1
	}

	fmt.Println(hex.EncodeToString(result.Bytecode))

	if run {
		program, err := clvm.Deserialize(result.Bytecode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		output, err := clvm.Run(program, clvm.NilVal())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Printf("output: %s\n", hex.EncodeToString(clvm.Serialize(output)))
	}
	return 0
}
