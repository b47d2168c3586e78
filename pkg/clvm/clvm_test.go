package clvm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"testing"
)

func TestEncodeInt(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want []byte
	}{
		{name: "zero", n: 0, want: nil},
		{name: "one", n: 1, want: []byte{0x01}},
		{name: "small", n: 120, want: []byte{0x78}},
		{name: "max positive byte", n: 127, want: []byte{0x7f}},
		{name: "needs sign padding", n: 128, want: []byte{0x00, 0x80}},
		{name: "two fifty five", n: 255, want: []byte{0x00, 0xff}},
		{name: "two bytes", n: 256, want: []byte{0x01, 0x00}},
		{name: "minus one", n: -1, want: []byte{0xff}},
		{name: "minus two", n: -2, want: []byte{0xfe}},
		{name: "minus one twenty eight", n: -128, want: []byte{0x80}},
		{name: "minus one twenty nine", n: -129, want: []byte{0xff, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeInt64(tt.n)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeInt64(%d) = %x, want %x", tt.n, got, tt.want)
			}
			back := DecodeInt(got)
			if back.Int64() != tt.n {
				t.Errorf("DecodeInt(%x) = %v, want %d", got, back, tt.n)
			}
		})
	}
}

func TestSerializeAtoms(t *testing.T) {
	tests := []struct {
		name string
		atom []byte
		want string
	}{
		{name: "nil", atom: nil, want: "80"},
		{name: "single small byte", atom: []byte{0x01}, want: "01"},
		{name: "single 7f", atom: []byte{0x7f}, want: "7f"},
		{name: "single high byte", atom: []byte{0x80}, want: "8180"},
		{name: "hello world", atom: []byte("Hello, world!"), want: "8d48656c6c6f2c20776f726c6421"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hex.EncodeToString(Serialize(&Atom{Bytes: tt.atom}))
			if got != tt.want {
				t.Errorf("Serialize = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = byte(i)
	}
	veryLong := make([]byte, 0x2000)

	values := []Value{
		NilVal(),
		&Atom{Bytes: []byte{0x42}},
		&Atom{Bytes: long},
		&Atom{Bytes: veryLong},
		&Pair{First: &Atom{Bytes: []byte{1}}, Rest: &Atom{Bytes: []byte("Hello")}},
		FromList([]Value{
			&Atom{Bytes: []byte{50}},
			&Atom{Bytes: []byte{0xaa}},
			FromList([]Value{&Atom{Bytes: []byte{51}}}),
		}),
	}

	for _, v := range values {
		data := Serialize(v)
		back, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize(%x): %v", data, err)
		}
		if !bytes.Equal(Serialize(back), data) {
			t.Errorf("round trip changed %x into %x", data, Serialize(back))
		}
	}
}

func TestDeserializeErrors(t *testing.T) {
	bad := [][]byte{
		{},             // empty
		{0xff, 0x01},   // pair missing rest
		{0x8d, 0x41},   // atom shorter than its size
		{0x01, 0x01},   // trailing bytes
	}
	for _, data := range bad {
		if _, err := Deserialize(data); err == nil {
			t.Errorf("Deserialize(%x) succeeded, want error", data)
		}
	}
}

func quoted(v Value) Value {
	return &Pair{First: &Atom{Bytes: []byte{1}}, Rest: v}
}

func opList(op int, args ...Value) Value {
	items := append([]Value{&Atom{Bytes: []byte{byte(op)}}}, args...)
	return FromList(items)
}

func TestRun(t *testing.T) {
	num := func(n int64) Value { return &Atom{Bytes: EncodeInt64(n)} }

	tests := []struct {
		name    string
		program Value
		env     Value
		want    Value
	}{
		{
			name:    "quote returns its operand",
			program: quoted(&Atom{Bytes: []byte("hi")}),
			env:     NilVal(),
			want:    &Atom{Bytes: []byte("hi")},
		},
		{
			name:    "path two is first of env",
			program: &Atom{Bytes: []byte{2}},
			env:     &Pair{First: num(7), Rest: num(9)},
			want:    num(7),
		},
		{
			name:    "path three is rest of env",
			program: &Atom{Bytes: []byte{3}},
			env:     &Pair{First: num(7), Rest: num(9)},
			want:    num(9),
		},
		{
			name:    "path five is first of rest",
			program: &Atom{Bytes: []byte{5}},
			env:     FromList([]Value{num(1), num(2), num(3)}),
			want:    num(2),
		},
		{
			name:    "addition",
			program: opList(OpAdd, quoted(num(3)), quoted(num(4))),
			env:     NilVal(),
			want:    num(7),
		},
		{
			name:    "subtraction below zero",
			program: opList(OpSub, quoted(num(3)), quoted(num(5))),
			env:     NilVal(),
			want:    num(-2),
		},
		{
			name:    "floored division",
			program: opList(OpDiv, quoted(num(-7)), quoted(num(2))),
			env:     NilVal(),
			want:    num(-4),
		},
		{
			name:    "cons",
			program: opList(OpCons, quoted(num(1)), quoted(num(2))),
			env:     NilVal(),
			want:    &Pair{First: num(1), Rest: num(2)},
		},
		{
			name:    "listp on a pair",
			program: opList(OpListp, quoted(&Pair{First: num(1), Rest: NilVal()})),
			env:     NilVal(),
			want:    &Atom{Bytes: []byte{1}},
		},
		{
			name:    "concat",
			program: opList(OpConcat, quoted(&Atom{Bytes: []byte("ab")}), quoted(&Atom{Bytes: []byte("cd")})),
			env:     NilVal(),
			want:    &Atom{Bytes: []byte("abcd")},
		},
		{
			name:    "strlen",
			program: opList(OpStrlen, quoted(&Atom{Bytes: []byte("abcd")})),
			env:     NilVal(),
			want:    num(4),
		},
		{
			name:    "if picks then branch",
			program: opList(OpIf, quoted(num(1)), quoted(num(10)), quoted(num(20))),
			env:     NilVal(),
			want:    num(10),
		},
		{
			name:    "if picks else branch on nil",
			program: opList(OpIf, quoted(NilVal()), quoted(num(10)), quoted(num(20))),
			env:     NilVal(),
			want:    num(20),
		},
		{
			name: "apply runs code against a new env",
			program: opList(OpApply,
				quoted(&Atom{Bytes: []byte{2}}),
				opList(OpCons, quoted(num(42)), quoted(NilVal()))),
			env:  NilVal(),
			want: num(42),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(tt.program, tt.env)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !bytes.Equal(Serialize(got), Serialize(tt.want)) {
				t.Errorf("Run = %x, want %x", Serialize(got), Serialize(tt.want))
			}
		})
	}
}

func TestRunSha256(t *testing.T) {
	program := opList(OpSha256,
		quoted(&Atom{Bytes: []byte("foo")}),
		quoted(&Atom{Bytes: []byte("bar")}))
	got, err := Run(program, NilVal())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := sha256.Sum256([]byte("foobar"))
	atom, ok := got.(*Atom)
	if !ok || !bytes.Equal(atom.Bytes, want[:]) {
		t.Errorf("sha256 opcode concatenates its arguments: got %x, want %x", atom.Bytes, want)
	}
}

func TestRunErrors(t *testing.T) {
	programs := []Value{
		opList(OpFirst, quoted(&Atom{Bytes: []byte{1}})), // first of atom
		opList(OpDiv, quoted(&Atom{Bytes: []byte{1}}), quoted(NilVal())), // division by zero
		opList(OpRaise),
	}
	for _, program := range programs {
		if _, err := Run(program, NilVal()); err == nil {
			t.Errorf("Run(%x) succeeded, want error", Serialize(program))
		}
	}
}

func TestTreeHash(t *testing.T) {
	leaf := &Atom{Bytes: []byte{0x42}}
	wantLeaf := sha256.Sum256([]byte{1, 0x42})
	if !bytes.Equal(TreeHash(leaf), wantLeaf[:]) {
		t.Errorf("leaf hash = %x, want %x", TreeHash(leaf), wantLeaf)
	}

	pair := &Pair{First: leaf, Rest: NilVal()}
	wantNil := sha256.Sum256([]byte{1})
	pairInput := append([]byte{2}, wantLeaf[:]...)
	pairInput = append(pairInput, wantNil[:]...)
	wantPair := sha256.Sum256(pairInput)
	if !bytes.Equal(TreeHash(pair), wantPair[:]) {
		t.Errorf("pair hash = %x, want %x", TreeHash(pair), wantPair)
	}
}

func TestDecodeIntBig(t *testing.T) {
	n := new(big.Int)
	n.SetString("123456789012345678901234567890", 10)
	if DecodeInt(EncodeInt(n)).Cmp(n) != 0 {
		t.Errorf("big integer did not round trip")
	}
	neg := new(big.Int).Neg(n)
	if DecodeInt(EncodeInt(neg)).Cmp(neg) != 0 {
		t.Errorf("negative big integer did not round trip")
	}
}
