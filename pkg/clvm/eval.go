package clvm

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Run evaluates a CLVM program against an environment. It implements
// the opcode subset the compiler emits; it is a reference evaluator,
// not a consensus implementation, and performs no cost accounting.
func Run(program, env Value) (Value, error) {
	return eval(program, env, 0)
}

const maxDepth = 10_000

func eval(sexp, env Value, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("clvm: evaluation depth exceeded")
	}

	switch t := sexp.(type) {
	case *Atom:
		return lookupPath(t.Bytes, env)
	case *Pair:
		opAtom, ok := t.First.(*Atom)
		if !ok {
			return nil, fmt.Errorf("clvm: operator must be an atom")
		}
		op := int(DecodeInt(opAtom.Bytes).Int64())

		if op == OpQuote {
			return t.Rest, nil
		}

		args, ok := ToList(t.Rest)
		if !ok {
			return nil, fmt.Errorf("clvm: improper argument list")
		}
		evaled := make([]Value, len(args))
		for i, arg := range args {
			v, err := eval(arg, env, depth+1)
			if err != nil {
				return nil, err
			}
			evaled[i] = v
		}
		return apply(op, evaled, depth)
	}
	return nil, fmt.Errorf("clvm: unknown value kind")
}

// lookupPath walks the environment by the atom's bits, low bit first:
// 0 selects first, 1 selects rest.
func lookupPath(path []byte, env Value) (Value, error) {
	n := new(big.Int).SetBytes(path)
	if n.Sign() == 0 {
		return NilVal(), nil
	}
	for n.Cmp(big.NewInt(1)) > 0 {
		pair, ok := env.(*Pair)
		if !ok {
			return nil, fmt.Errorf("clvm: path into atom")
		}
		if n.Bit(0) == 0 {
			env = pair.First
		} else {
			env = pair.Rest
		}
		n.Rsh(n, 1)
	}
	return env, nil
}

// ApplyOp applies a non-control opcode to already evaluated arguments.
// Used by the evaluator and by compile-time constant folding.
func ApplyOp(op int, args []Value) (Value, error) {
	if op == OpApply || op == OpIf || op == OpQuote {
		return nil, fmt.Errorf("clvm: %s is not a data opcode", OpName(op))
	}
	return apply(op, args, 0)
}

func apply(op int, args []Value, depth int) (Value, error) {
	switch op {
	case OpApply:
		if len(args) != 2 {
			return nil, fmt.Errorf("clvm: a expects 2 arguments")
		}
		return eval(args[0], args[1], depth+1)

	case OpIf:
		if len(args) != 3 {
			return nil, fmt.Errorf("clvm: i expects 3 arguments")
		}
		if Truthy(args[0]) {
			return args[1], nil
		}
		return args[2], nil

	case OpCons:
		if len(args) != 2 {
			return nil, fmt.Errorf("clvm: c expects 2 arguments")
		}
		return &Pair{First: args[0], Rest: args[1]}, nil

	case OpFirst:
		pair, ok := args[0].(*Pair)
		if len(args) != 1 || !ok {
			return nil, fmt.Errorf("clvm: f expects a pair")
		}
		return pair.First, nil

	case OpRest:
		pair, ok := args[0].(*Pair)
		if len(args) != 1 || !ok {
			return nil, fmt.Errorf("clvm: r expects a pair")
		}
		return pair.Rest, nil

	case OpListp:
		if len(args) != 1 {
			return nil, fmt.Errorf("clvm: l expects 1 argument")
		}
		if _, ok := args[0].(*Pair); ok {
			return &Atom{Bytes: []byte{1}}, nil
		}
		return NilVal(), nil

	case OpRaise:
		return nil, fmt.Errorf("clvm: raise")

	case OpEq:
		a, b, err := twoAtoms("=", args)
		if err != nil {
			return nil, err
		}
		return boolAtom(bytes.Equal(a, b)), nil

	case OpGtBytes:
		a, b, err := twoAtoms(">s", args)
		if err != nil {
			return nil, err
		}
		return boolAtom(bytes.Compare(a, b) > 0), nil

	case OpSha256:
		h := sha256.New()
		for _, arg := range args {
			atom, ok := arg.(*Atom)
			if !ok {
				return nil, fmt.Errorf("clvm: sha256 expects atoms")
			}
			h.Write(atom.Bytes)
		}
		return &Atom{Bytes: h.Sum(nil)}, nil

	case OpSubstr:
		if len(args) < 2 || len(args) > 3 {
			return nil, fmt.Errorf("clvm: substr expects 2 or 3 arguments")
		}
		atom, ok := args[0].(*Atom)
		if !ok {
			return nil, fmt.Errorf("clvm: substr expects an atom")
		}
		start := int(atomInt(args[1]).Int64())
		end := len(atom.Bytes)
		if len(args) == 3 {
			end = int(atomInt(args[2]).Int64())
		}
		if start < 0 || end < start || end > len(atom.Bytes) {
			return nil, fmt.Errorf("clvm: substr out of range")
		}
		return &Atom{Bytes: atom.Bytes[start:end]}, nil

	case OpStrlen:
		atom, ok := args[0].(*Atom)
		if len(args) != 1 || !ok {
			return nil, fmt.Errorf("clvm: strlen expects an atom")
		}
		return &Atom{Bytes: EncodeInt64(int64(len(atom.Bytes)))}, nil

	case OpConcat:
		var out []byte
		for _, arg := range args {
			atom, ok := arg.(*Atom)
			if !ok {
				return nil, fmt.Errorf("clvm: concat expects atoms")
			}
			out = append(out, atom.Bytes...)
		}
		return &Atom{Bytes: out}, nil

	case OpAdd:
		sum := big.NewInt(0)
		for _, arg := range args {
			sum.Add(sum, atomInt(arg))
		}
		return &Atom{Bytes: EncodeInt(sum)}, nil

	case OpSub:
		if len(args) == 0 {
			return NilVal(), nil
		}
		diff := new(big.Int).Set(atomInt(args[0]))
		for _, arg := range args[1:] {
			diff.Sub(diff, atomInt(arg))
		}
		return &Atom{Bytes: EncodeInt(diff)}, nil

	case OpMul:
		prod := big.NewInt(1)
		for _, arg := range args {
			prod.Mul(prod, atomInt(arg))
		}
		return &Atom{Bytes: EncodeInt(prod)}, nil

	case OpDiv:
		if len(args) != 2 {
			return nil, fmt.Errorf("clvm: / expects 2 arguments")
		}
		q, _, err := floorDivmod(atomInt(args[0]), atomInt(args[1]))
		if err != nil {
			return nil, err
		}
		return &Atom{Bytes: EncodeInt(q)}, nil

	case OpDivmod:
		if len(args) != 2 {
			return nil, fmt.Errorf("clvm: divmod expects 2 arguments")
		}
		q, r, err := floorDivmod(atomInt(args[0]), atomInt(args[1]))
		if err != nil {
			return nil, err
		}
		return &Pair{First: &Atom{Bytes: EncodeInt(q)}, Rest: &Atom{Bytes: EncodeInt(r)}}, nil

	case OpGt:
		if len(args) != 2 {
			return nil, fmt.Errorf("clvm: > expects 2 arguments")
		}
		return boolAtom(atomInt(args[0]).Cmp(atomInt(args[1])) > 0), nil

	case OpNot:
		if len(args) != 1 {
			return nil, fmt.Errorf("clvm: not expects 1 argument")
		}
		return boolAtom(!Truthy(args[0])), nil

	case OpAny:
		for _, arg := range args {
			if Truthy(arg) {
				return boolAtom(true), nil
			}
		}
		return boolAtom(false), nil

	case OpAll:
		for _, arg := range args {
			if !Truthy(arg) {
				return boolAtom(false), nil
			}
		}
		return boolAtom(true), nil
	}

	return nil, fmt.Errorf("clvm: unknown opcode %d", op)
}

func twoAtoms(name string, args []Value) ([]byte, []byte, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("clvm: %s expects 2 arguments", name)
	}
	a, aok := args[0].(*Atom)
	b, bok := args[1].(*Atom)
	if !aok || !bok {
		return nil, nil, fmt.Errorf("clvm: %s expects atoms", name)
	}
	return a.Bytes, b.Bytes, nil
}

func atomInt(v Value) *big.Int {
	if atom, ok := v.(*Atom); ok {
		return DecodeInt(atom.Bytes)
	}
	return big.NewInt(0)
}

func boolAtom(b bool) *Atom {
	if b {
		return &Atom{Bytes: []byte{1}}
	}
	return NilVal()
}

// floorDivmod implements CLVM division, which rounds toward negative
// infinity.
func floorDivmod(a, b *big.Int) (*big.Int, *big.Int, error) {
	if b.Sign() == 0 {
		return nil, nil, fmt.Errorf("clvm: division by zero")
	}
	q := new(big.Int)
	r := new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() != 0 && (r.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
		r.Add(r, b)
	}
	return q, r, nil
}

// TreeHash computes the sha256 tree hash of a value: leaves prefixed
// with 0x01, pairs with 0x02.
func TreeHash(v Value) []byte {
	switch t := v.(type) {
	case *Atom:
		h := sha256.Sum256(append([]byte{1}, t.Bytes...))
		return h[:]
	case *Pair:
		data := append([]byte{2}, TreeHash(t.First)...)
		data = append(data, TreeHash(t.Rest)...)
		h := sha256.Sum256(data)
		return h[:]
	}
	panic("clvm: unknown value kind")
}
