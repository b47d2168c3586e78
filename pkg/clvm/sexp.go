// Package clvm - CLVM s-expression values, byte format, and a reference
// evaluator
// Design: Values are immutable atom/pair trees. The evaluator exists for
// tests and `rue run`; it favors clarity over cost accounting.
package clvm

import (
	"math/big"
)

// Value is a CLVM s-expression: an atom or a pair.
type Value interface {
	clvmValue()
}

// Atom is a byte string. The empty atom doubles as nil, zero, and false.
type Atom struct {
	Bytes []byte
}

// Pair is a cons cell.
type Pair struct {
	First Value
	Rest  Value
}

func (*Atom) clvmValue() {}
func (*Pair) clvmValue() {}

// NilVal returns the empty atom.
func NilVal() *Atom {
	return &Atom{}
}

// IsNil reports whether the value is the empty atom.
func IsNil(v Value) bool {
	a, ok := v.(*Atom)
	return ok && len(a.Bytes) == 0
}

// Truthy implements CLVM truthiness: everything but the empty atom.
func Truthy(v Value) bool {
	return !IsNil(v)
}

// FromList builds a nil-terminated cons list.
func FromList(items []Value) Value {
	var out Value = NilVal()
	for i := len(items) - 1; i >= 0; i-- {
		out = &Pair{First: items[i], Rest: out}
	}
	return out
}

// ToList flattens a nil-terminated cons list; ok is false if the
// terminator is not nil.
func ToList(v Value) (items []Value, ok bool) {
	for {
		switch t := v.(type) {
		case *Atom:
			return items, len(t.Bytes) == 0
		case *Pair:
			items = append(items, t.First)
			v = t.Rest
		}
	}
}

// EncodeInt converts an integer to its minimal two's-complement
// big-endian atom encoding. Zero encodes as the empty atom.
func EncodeInt(n *big.Int) []byte {
	if n.Sign() == 0 {
		return nil
	}
	if n.Sign() > 0 {
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			return append([]byte{0}, b...)
		}
		return b
	}

	// Two's complement of the absolute value, minimal width.
	abs := new(big.Int).Neg(n)
	bits := abs.BitLen()
	width := (bits + 8) / 8 * 8
	if width == 0 {
		width = 8
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	twos := new(big.Int).Sub(mod, abs)
	b := twos.Bytes()
	for len(b) < width/8 {
		b = append([]byte{0}, b...)
	}
	// Strip redundant leading 0xff as long as the sign bit stays set.
	for len(b) > 1 && b[0] == 0xff && b[1]&0x80 != 0 {
		b = b[1:]
	}
	return b
}

// DecodeInt interprets an atom as a signed two's-complement big-endian
// integer.
func DecodeInt(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, mod)
	}
	return n
}

// EncodeInt64 is EncodeInt for machine integers.
func EncodeInt64(n int64) []byte {
	return EncodeInt(big.NewInt(n))
}
