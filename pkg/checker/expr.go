package checker

import (
	"math/big"
	"strings"

	"github.com/rue-lang/rue-compiler/pkg/ast"
	"github.com/rue-lang/rue-compiler/pkg/clvm"
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/hir"
	"github.com/rue-lang/rue-compiler/pkg/lexer"
	"github.com/rue-lang/rue-compiler/pkg/types"
)

func (c *Checker) checkLiteral(e ast.LiteralExpr) hir.Expr {
	tok, ok := e.Value()
	if !ok {
		return c.poison()
	}

	switch tok.Kind {
	case lexer.INT:
		n := new(big.Int)
		n.SetString(tok.Text, 10)
		return &hir.Atom{Value: clvm.EncodeInt(n), Ty: types.Int{}}

	case lexer.HEX:
		b := parseHexLiteral(tok.Text)
		return &hir.Atom{Value: b, Ty: bytesTypeFor(b)}

	case lexer.STRING:
		b := parseStringLiteral(tok.Text)
		return &hir.Atom{Value: b, Ty: bytesTypeFor(b)}

	case lexer.TRUE:
		return &hir.Atom{Value: []byte{1}, Ty: types.Bool{}}

	case lexer.FALSE:
		return &hir.Atom{Ty: types.Bool{}}

	case lexer.NIL:
		return &hir.Atom{Ty: types.Nil{}}
	}
	return c.poison()
}

// bytesTypeFor refines byte literals of exactly 32 bytes to Bytes32.
func bytesTypeFor(b []byte) types.Type {
	if len(b) == 32 {
		return types.Bytes32{}
	}
	return types.Bytes{}
}

func parseHexLiteral(text string) []byte {
	digits := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if len(digits)%2 != 0 {
		digits = "0" + digits
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		out = append(out, hexNibble(digits[i])<<4|hexNibble(digits[i+1]))
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

func parseStringLiteral(text string) []byte {
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)

	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '\\' || i+1 >= len(text) {
			out = append(out, text[i])
			continue
		}
		i++
		switch text[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		default:
			out = append(out, text[i])
		}
	}
	return out
}

// checkList types a list literal. All elements must share a common
// supertype; a spread splices a list and is only meaningful in the
// final position.
func (c *Checker) checkList(e ast.ListExpr) hir.Expr {
	items := e.Items()
	if len(items) == 0 {
		return &hir.Atom{Ty: types.Nil{}}
	}

	var out []hir.ListItem
	var element types.Type

	for i, item := range items {
		value, ok := item.Value()
		if !ok {
			continue
		}
		checked := c.checkExpr(value, false)

		if item.Spread() {
			if i != len(items)-1 {
				c.bag.Error(diagnostics.KindType, item.Span(),
					"spread is only allowed as the last list element")
			}
			elem := types.Type(types.Any{})
			switch spread := checked.Type().(type) {
			case *types.List:
				elem = spread.Element
			case types.Nil, types.Any:
			default:
				c.bag.Error(diagnostics.KindType, value.Span(),
					"cannot spread %s, expected a list", checked.Type())
			}
			element = mergeElement(element, elem)
			out = append(out, hir.ListItem{Spread: true, Value: checked})
			continue
		}

		element = mergeElement(element, checked.Type())
		out = append(out, hir.ListItem{Value: checked})
	}

	if element == nil {
		element = types.Any{}
	}
	return &hir.List{Items: out, Ty: &types.List{Element: element}}
}

func mergeElement(current, next types.Type) types.Type {
	if current == nil {
		return next
	}
	if next == nil {
		return current
	}
	return types.Lub(current, next)
}

func (c *Checker) checkPrefix(e ast.PrefixExpr) hir.Expr {
	opTok, ok := e.Op()
	if !ok {
		return c.poison()
	}
	operandAst, ok := e.Operand()
	if !ok {
		return c.poison()
	}
	operand := c.checkExpr(operandAst, false)

	switch opTok.Kind {
	case lexer.BANG:
		c.require(operand.Type(), types.Bool{}, operandAst.Span())
		return &hir.Unary{Op: hir.OpNot, Operand: operand, Ty: types.Bool{}}
	case lexer.MINUS:
		c.require(operand.Type(), types.Int{}, operandAst.Span())
		return &hir.Unary{Op: hir.OpNeg, Operand: operand, Ty: types.Int{}}
	}
	return c.poison()
}

// require reports a type error unless `got` is assignable to `want`.
// Any is accepted everywhere: it is both the top type and the poison
// type, and poisoned nodes must not cascade.
func (c *Checker) require(got, want types.Type, span diagnostics.Span) {
	if _, ok := got.(types.Any); ok {
		return
	}
	if !types.Assignable(got, want) {
		c.bag.Error(diagnostics.KindType, span, "expected %s, found %s", want, got)
	}
}

var binaryOps = map[lexer.TokenKind]hir.BinaryOp{
	lexer.PLUS:    hir.OpAdd,
	lexer.MINUS:   hir.OpSub,
	lexer.STAR:    hir.OpMul,
	lexer.SLASH:   hir.OpDiv,
	lexer.PERCENT: hir.OpRem,
	lexer.CONCAT:  hir.OpConcat,
	lexer.EQ:      hir.OpEq,
	lexer.NE:      hir.OpNe,
	lexer.LT:      hir.OpLt,
	lexer.GT:      hir.OpGt,
	lexer.LE:      hir.OpLe,
	lexer.GE:      hir.OpGe,
	lexer.ANDAND:  hir.OpAnd,
	lexer.OROR:    hir.OpOr,
}

func (c *Checker) checkBinary(e ast.BinaryExpr) hir.Expr {
	opTok, ok := e.Op()
	if !ok {
		return c.poison()
	}
	op, ok := binaryOps[opTok.Kind]
	if !ok {
		return c.poison()
	}

	lhs := c.poison()
	rhs := c.poison()
	lhsSpan := e.Span()
	rhsSpan := e.Span()
	if l, ok := e.Lhs(); ok {
		lhs = c.checkExpr(l, false)
		lhsSpan = l.Span()
	}
	if r, ok := e.Rhs(); ok {
		rhs = c.checkExpr(r, false)
		rhsSpan = r.Span()
	}

	switch op {
	case hir.OpAdd, hir.OpSub, hir.OpMul, hir.OpDiv, hir.OpRem:
		c.require(lhs.Type(), types.Int{}, lhsSpan)
		c.require(rhs.Type(), types.Int{}, rhsSpan)
		return &hir.Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: types.Int{}}

	case hir.OpConcat:
		c.requireAtom(lhs.Type(), lhsSpan)
		c.requireAtom(rhs.Type(), rhsSpan)
		return &hir.Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: types.Bytes{}}

	case hir.OpLt, hir.OpGt, hir.OpLe, hir.OpGe:
		c.require(lhs.Type(), types.Int{}, lhsSpan)
		c.require(rhs.Type(), types.Int{}, rhsSpan)
		return &hir.Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: types.Bool{}}

	case hir.OpEq, hir.OpNe:
		c.requireAtom(lhs.Type(), lhsSpan)
		c.requireAtom(rhs.Type(), rhsSpan)
		if !types.Overlap(lhs.Type(), rhs.Type()) {
			c.bag.Error(diagnostics.KindType, rhsSpan,
				"cannot compare %s with %s", lhs.Type(), rhs.Type())
		}
		return &hir.Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: types.Bool{}}

	case hir.OpAnd, hir.OpOr:
		c.require(lhs.Type(), types.Bool{}, lhsSpan)
		c.require(rhs.Type(), types.Bool{}, rhsSpan)
		return &hir.Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: types.Bool{}}
	}
	return c.poison()
}

// requireAtom demands a type whose runtime values are atoms, which the
// CLVM comparison and byte operators need.
func (c *Checker) requireAtom(t types.Type, span diagnostics.Span) {
	if _, any := t.(types.Any); any {
		return
	}
	if !types.IsAtom(t) {
		c.bag.Error(diagnostics.KindType, span, "expected an atom type, found %s", t)
	}
}

func (c *Checker) checkIs(e ast.IsExpr) hir.Expr {
	operandAst, ok := e.Operand()
	if !ok {
		return c.poison()
	}
	targetAst, ok := e.Type()
	if !ok {
		return c.poison()
	}
	operand := c.checkExpr(operandAst, false)
	target := c.resolveType(targetAst)

	if !types.Overlap(operand.Type(), target) {
		c.bag.Warning(diagnostics.KindType, e.Span(),
			"'%s is %s' is always false", operand.Type(), target)
	}
	return &hir.IsTest{Operand: operand, Target: target, Ty: types.Bool{}}
}

// legalCast enumerates the layout-compatible coercions. Atoms convert
// among themselves; Any converts to and from everything (downcasts are
// unchecked).
func legalCast(from, to types.Type) bool {
	if types.Equal(from, to) {
		return true
	}
	if _, ok := from.(types.Any); ok {
		return true
	}
	if _, ok := to.(types.Any); ok {
		return true
	}
	return types.IsAtom(from) && types.IsAtom(to)
}

func (c *Checker) checkCast(e ast.CastExpr) hir.Expr {
	operandAst, ok := e.Operand()
	if !ok {
		return c.poison()
	}
	targetAst, ok := e.Type()
	if !ok {
		return c.poison()
	}
	operand := c.checkExpr(operandAst, false)
	target := c.resolveType(targetAst)

	if !legalCast(operand.Type(), target) {
		c.bag.Error(diagnostics.KindCoercion, e.Span(),
			"cannot cast %s to %s", operand.Type(), target)
		return c.poison()
	}
	return &hir.Cast{Operand: operand, Ty: target}
}

func (c *Checker) checkIf(e ast.IfExpr, tail bool) hir.Expr {
	cond := c.poison()
	var thenNarrow, elseNarrow narrowing

	if condAst, ok := e.Condition(); ok {
		cond = c.checkExpr(condAst, false)
		c.require(cond.Type(), types.Bool{}, condAst.Span())
		thenNarrow, elseNarrow = c.narrowFromCond(condAst, cond)
	}

	var thenExpr hir.Expr = c.poison()
	var thenTy types.Type = types.Any{}
	thenReturns := false
	if block, ok := e.Then(); ok {
		c.pushNarrowing(thenNarrow)
		thenExpr, thenTy, thenReturns = c.checkBlock(block, c.currentRet, tail)
		c.popNarrowing()
	}

	var elseExpr hir.Expr = c.poison()
	var elseTy types.Type = types.Any{}
	elseReturns := false
	if branch, ok := e.Else(); ok {
		c.pushNarrowing(elseNarrow)
		switch b := branch.(type) {
		case ast.Block:
			elseExpr, elseTy, elseReturns = c.checkBlock(b, c.currentRet, tail)
		case ast.IfExpr:
			elseExpr = c.checkIf(b, tail)
			elseTy = elseExpr.Type()
		}
		c.popNarrowing()
	} else {
		c.bag.Error(diagnostics.KindExhaustiveness, e.Span(),
			"if expression is missing its else branch")
	}

	// A branch that returns contributes no type to the expression.
	var ty types.Type
	switch {
	case thenReturns && elseReturns:
		ty = types.Lub(thenTy, elseTy)
	case thenReturns:
		ty = elseTy
	case elseReturns:
		ty = thenTy
	default:
		ty = types.Lub(thenTy, elseTy)
	}

	return &hir.If{Cond: cond, Then: thenExpr, Else: elseExpr, Ty: ty}
}

// narrowFromCond computes the narrowing overlays a condition implies.
// Narrowing is path-sensitive on simple identifier operands of `is`
// tests only; the else branch narrows to the complement when it is
// expressible in the type lattice.
func (c *Checker) narrowFromCond(condAst ast.Expr, cond hir.Expr) (narrowing, narrowing) {
	isTest, ok := cond.(*hir.IsTest)
	if !ok {
		return nil, nil
	}
	isAst, ok := condAst.(ast.IsExpr)
	if !ok {
		return nil, nil
	}
	operandAst, ok := isAst.Operand()
	if !ok {
		return nil, nil
	}
	path, ok := operandAst.(ast.PathExpr)
	if !ok || len(path.Segments()) != 1 {
		return nil, nil
	}
	ref, ok := isTest.Operand.(*hir.Reference)
	if !ok {
		return nil, nil
	}

	current := c.typeOf(ref.Symbol)
	target := isTest.Target

	var thenNarrow, elseNarrow narrowing
	if types.Overlap(current, target) {
		thenNarrow = narrowing{ref.Symbol: target}
	}

	if complement, ok := complementType(current, target); ok {
		elseNarrow = narrowing{ref.Symbol: complement}
	}
	return thenNarrow, elseNarrow
}

// complementType returns what remains of `current` once `target` is
// excluded, when that remainder is a single type.
func complementType(current, target types.Type) (types.Type, bool) {
	if enum, ok := current.(*types.Enum); ok && len(enum.Variants) == 2 {
		if v, ok := target.(*types.Variant); ok && v.Enum == enum {
			if enum.Variants[0] == v {
				return enum.Variants[1], true
			}
			return enum.Variants[0], true
		}
	}
	return nil, false
}

func (c *Checker) checkCall(e ast.FunctionCall) hir.Expr {
	calleeAst, ok := e.Callee()
	if !ok {
		return c.poison()
	}
	path, ok := calleeAst.(ast.PathExpr)
	if !ok || len(path.Segments()) != 1 {
		c.bag.Error(diagnostics.KindType, calleeAst.Span(), "only named functions can be called")
		return c.poison()
	}
	name := path.Segments()[0]

	sym, ok := c.scope.lookup(name.Text)
	if !ok {
		c.bag.Error(diagnostics.KindName, name.Span, "undefined identifier '%s'", name.Text)
		return c.poison()
	}
	if !sym.IsCallable() {
		c.bag.Error(diagnostics.KindName, name.Span, "'%s' is a %s and cannot be called", name.Text, sym.Kind)
		return c.poison()
	}

	if sym.Kind == hir.SymbolBuiltin {
		return c.checkBuiltinCall(sym, e)
	}

	fnType := sym.Ty.(*types.Function)
	argsAst := e.Args()
	if len(argsAst) != len(fnType.Params) {
		c.bag.Error(diagnostics.KindType, e.Span(),
			"'%s' takes %d arguments, found %d", name.Text, len(fnType.Params), len(argsAst))
	}

	args := make([]hir.Expr, 0, len(argsAst))
	for i, argAst := range argsAst {
		arg := c.checkExpr(argAst, false)
		if i < len(fnType.Params) {
			c.require(arg.Type(), fnType.Params[i], argAst.Span())
		}
		args = append(args, arg)
	}
	return &hir.Call{Callee: sym, Args: args, Ty: fnType.Ret}
}

// checkBuiltinCall types the builtins: sha256 concatenates any number
// of atom arguments; sha256_tree hashes the structure of exactly one
// argument of any type.
func (c *Checker) checkBuiltinCall(sym *hir.Symbol, e ast.FunctionCall) hir.Expr {
	argsAst := e.Args()
	args := make([]hir.Expr, 0, len(argsAst))

	switch sym.Builtin {
	case hir.BuiltinSha256:
		for _, argAst := range argsAst {
			arg := c.checkExpr(argAst, false)
			c.requireAtom(arg.Type(), argAst.Span())
			args = append(args, arg)
		}

	case hir.BuiltinSha256Tree:
		if len(argsAst) != 1 {
			c.bag.Error(diagnostics.KindType, e.Span(),
				"'sha256_tree' takes 1 argument, found %d", len(argsAst))
		}
		for _, argAst := range argsAst {
			args = append(args, c.checkExpr(argAst, false))
		}
	}

	return &hir.BuiltinCall{Builtin: sym.Builtin, Args: args, Ty: types.Bytes32{}}
}

func (c *Checker) checkFieldAccess(e ast.FieldAccess) hir.Expr {
	operandAst, ok := e.Operand()
	if !ok {
		return c.poison()
	}
	field, ok := e.Field()
	if !ok {
		return c.poison()
	}
	operand := c.checkExpr(operandAst, false)

	switch t := operand.Type().(type) {
	case *types.Struct:
		f, index, ok := t.Field(field.Text)
		if !ok {
			c.bag.Error(diagnostics.KindType, field.Span,
				"struct '%s' has no field '%s'", t.Name, field.Text)
			return c.poison()
		}
		return &hir.Access{Operand: operand, RestDepth: index, TakeFirst: true, Ty: f.Type}

	case *types.Variant:
		f, index, ok := t.Field(field.Text)
		if !ok {
			c.bag.Error(diagnostics.KindType, field.Span,
				"variant '%s' has no field '%s'", t, field.Text)
			return c.poison()
		}
		// Skip the discriminant in front of the fields.
		return &hir.Access{Operand: operand, RestDepth: index + 1, TakeFirst: true, Ty: f.Type}

	case *types.List:
		switch field.Text {
		case "first":
			return &hir.Access{Operand: operand, TakeFirst: true, Ty: t.Element}
		case "rest":
			return &hir.Access{Operand: operand, RestDepth: 1, Ty: t}
		}
		c.bag.Error(diagnostics.KindType, field.Span,
			"lists only have 'first' and 'rest', not '%s'", field.Text)
		return c.poison()

	case types.Any:
		switch field.Text {
		case "first":
			return &hir.Access{Operand: operand, TakeFirst: true, Ty: types.Any{}}
		case "rest":
			return &hir.Access{Operand: operand, RestDepth: 1, Ty: types.Any{}}
		}
		c.bag.Error(diagnostics.KindType, field.Span,
			"'%s' is not accessible on Any; only 'first' and 'rest' are", field.Text)
		return c.poison()
	}

	c.bag.Error(diagnostics.KindType, field.Span,
		"%s has no fields", operand.Type())
	return c.poison()
}

// checkInitializer types struct and enum construction. Fields may be
// written in any order but every declared field must appear exactly
// once; values are stored in declaration order.
func (c *Checker) checkInitializer(e ast.InitializerExpr) hir.Expr {
	path, ok := e.Path()
	if !ok {
		return c.poison()
	}
	segments := path.Segments()

	var fields []types.Field
	var disc *big.Int
	var resultTy types.Type

	switch len(segments) {
	case 1:
		sym, ok := c.scope.lookup(segments[0].Text)
		if !ok {
			c.bag.Error(diagnostics.KindName, segments[0].Span,
				"undefined identifier '%s'", segments[0].Text)
			return c.poison()
		}
		st, isStruct := sym.Ty.(*types.Struct)
		if sym.Kind != hir.SymbolStruct || !isStruct {
			c.bag.Error(diagnostics.KindName, segments[0].Span,
				"'%s' is a %s and cannot be constructed", segments[0].Text, sym.Kind)
			return c.poison()
		}
		fields = st.Fields
		resultTy = st

	case 2:
		variant, ok := c.resolveVariant(segments[0], segments[1])
		if !ok {
			return c.poison()
		}
		fields = variant.Fields
		disc = variant.Discriminant
		resultTy = variant

	default:
		return c.poison()
	}

	values := make([]hir.Expr, len(fields))
	seen := make(map[string]bool)

	for _, init := range e.Fields() {
		name, ok := init.Name()
		if !ok {
			continue
		}
		if seen[name.Text] {
			c.bag.Error(diagnostics.KindType, name.Span, "field '%s' given twice", name.Text)
			continue
		}
		seen[name.Text] = true

		index := -1
		for i, f := range fields {
			if f.Name == name.Text {
				index = i
				break
			}
		}
		if index < 0 {
			c.bag.Error(diagnostics.KindType, name.Span,
				"%s has no field '%s'", resultTy, name.Text)
			continue
		}

		value := c.poison()
		if v, ok := init.Value(); ok {
			value = c.checkExpr(v, false)
			c.require(value.Type(), fields[index].Type, v.Span())
		}
		values[index] = value
	}

	for i, f := range fields {
		if values[i] == nil {
			c.bag.Error(diagnostics.KindType, e.Span(), "missing field '%s'", f.Name)
			values[i] = c.poison()
		}
	}

	return &hir.Construct{Discriminant: disc, Fields: values, Ty: resultTy}
}

// resolveType maps type syntax to a type. Unknown names poison to Any.
func (c *Checker) resolveType(t ast.Type) types.Type {
	switch ty := t.(type) {
	case ast.PathType:
		segments := ty.Segments()
		if len(segments) == 0 {
			return types.Any{}
		}
		if len(segments) == 2 {
			variant, ok := c.resolveVariant(segments[0], segments[1])
			if !ok {
				return types.Any{}
			}
			return variant
		}

		name := segments[0]
		switch name.Text {
		case "Nil":
			return types.Nil{}
		case "Bytes":
			return types.Bytes{}
		case "Bytes32":
			return types.Bytes32{}
		case "Int":
			return types.Int{}
		case "Bool":
			return types.Bool{}
		case "Any":
			return types.Any{}
		}

		sym, ok := c.scope.lookup(name.Text)
		if !ok {
			c.bag.Error(diagnostics.KindName, name.Span, "undefined type '%s'", name.Text)
			return types.Any{}
		}
		switch sym.Kind {
		case hir.SymbolStruct, hir.SymbolEnum:
			return sym.Ty
		}
		c.bag.Error(diagnostics.KindName, name.Span, "'%s' is a %s, not a type", name.Text, sym.Kind)
		return types.Any{}

	case ast.ListType:
		element := types.Type(types.Any{})
		if elem, ok := ty.Element(); ok {
			element = c.resolveType(elem)
		}
		return &types.List{Element: element}
	}
	return types.Any{}
}
