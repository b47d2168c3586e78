package checker

import (
	"math/big"

	"github.com/rue-lang/rue-compiler/pkg/ast"
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/hir"
	"github.com/rue-lang/rue-compiler/pkg/lexer"
	"github.com/rue-lang/rue-compiler/pkg/logger"
	"github.com/rue-lang/rue-compiler/pkg/types"
)

// Checker builds typed HIR from the AST.
type Checker struct {
	bag         *diagnostics.Bag
	scope       *Scope
	nextScopeID int
	narrowings  []narrowing
	pending     []*pendingFn
	currentRet  types.Type // return type of the function being checked
}

type pendingFn struct {
	sym    *hir.Symbol
	item   ast.FunctionItem
	params []*hir.Symbol
	ret    types.Type
}

// Check resolves names and types for the whole program. Every error is
// reported into the bag; the returned program is complete enough for
// lowering whenever the bag holds no errors.
func Check(root ast.Root, bag *diagnostics.Bag) *hir.Program {
	logger.LogPhase("check")

	c := &Checker{bag: bag}
	c.pushScope()
	c.declareBuiltins()
	c.pushScope()

	c.declareItems(root)
	c.resolveSignatures(root)

	prog := &hir.Program{}
	for _, fn := range c.pending {
		prog.Functions = append(prog.Functions, c.checkFunction(fn))
		if fn.sym.Name == "main" {
			prog.Main = prog.Functions[len(prog.Functions)-1]
		}
	}

	if prog.Main == nil {
		bag.Error(diagnostics.KindName, diagnostics.Span{}, "missing entry point: no function named 'main'")
	}

	logger.LogCheck(len(prog.Functions), bag.Len())
	return prog
}

func (c *Checker) declareBuiltins() {
	for name, builtin := range map[string]hir.Builtin{
		"sha256":      hir.BuiltinSha256,
		"sha256_tree": hir.BuiltinSha256Tree,
	} {
		c.scope.declare(&hir.Symbol{
			Kind:    hir.SymbolBuiltin,
			Name:    name,
			Builtin: builtin,
			Ty: &types.Function{
				Params: []types.Type{types.Any{}},
				Ret:    types.Bytes32{},
			},
			ScopeID: c.scope.id,
		})
	}
}

// declareItems is the declaration pre-pass: every top-level name gets a
// symbol before any body is looked at, so forward references resolve.
func (c *Checker) declareItems(root ast.Root) {
	for _, item := range root.Items() {
		switch it := item.(type) {
		case ast.FunctionItem:
			name, ok := it.Name()
			if !ok {
				continue
			}
			sym := &hir.Symbol{
				Kind:    hir.SymbolFunction,
				Name:    name.Text,
				Ty:      &types.Function{},
				Decl:    name.Span,
				ScopeID: c.scope.id,
			}
			if !c.scope.declare(sym) {
				c.bag.Error(diagnostics.KindName, name.Span, "duplicate definition of '%s'", name.Text)
				continue
			}
			c.pending = append(c.pending, &pendingFn{sym: sym, item: it})

		case ast.StructItem:
			name, ok := it.Name()
			if !ok {
				continue
			}
			sym := &hir.Symbol{
				Kind:    hir.SymbolStruct,
				Name:    name.Text,
				Ty:      &types.Struct{Name: name.Text},
				Decl:    name.Span,
				ScopeID: c.scope.id,
			}
			if !c.scope.declare(sym) {
				c.bag.Error(diagnostics.KindName, name.Span, "duplicate definition of '%s'", name.Text)
			}

		case ast.EnumItem:
			name, ok := it.Name()
			if !ok {
				continue
			}
			enum := &types.Enum{Name: name.Text}
			sym := &hir.Symbol{
				Kind:    hir.SymbolEnum,
				Name:    name.Text,
				Ty:      enum,
				Decl:    name.Span,
				ScopeID: c.scope.id,
			}
			if !c.scope.declare(sym) {
				c.bag.Error(diagnostics.KindName, name.Span, "duplicate definition of '%s'", name.Text)
				continue
			}
			c.declareVariants(enum, it)
		}
	}
}

// declareVariants registers variant names and discriminants. An
// explicit `= n` sets the discriminant; otherwise it is the previous
// discriminant plus one, starting at zero.
func (c *Checker) declareVariants(enum *types.Enum, it ast.EnumItem) {
	next := big.NewInt(0)
	seen := make(map[string]bool)

	for _, v := range it.Variants() {
		name, ok := v.Name()
		if !ok {
			continue
		}
		if seen[name.Text] {
			c.bag.Error(diagnostics.KindName, name.Span, "duplicate variant '%s'", name.Text)
			continue
		}
		seen[name.Text] = true

		disc := new(big.Int).Set(next)
		if tok, negative, ok := v.Discriminant(); ok {
			disc.SetString(tok.Text, 10)
			if negative {
				disc.Neg(disc)
			}
		}
		next.Add(disc, big.NewInt(1))

		for _, existing := range enum.Variants {
			if existing.Discriminant.Cmp(disc) == 0 {
				c.bag.Error(diagnostics.KindName, name.Span,
					"variant '%s' reuses discriminant %s", name.Text, disc)
			}
		}

		enum.Variants = append(enum.Variants, &types.Variant{
			Name:         name.Text,
			Enum:         enum,
			Discriminant: disc,
		})
	}
}

// resolveSignatures fills in field and parameter types now that every
// type name is known.
func (c *Checker) resolveSignatures(root ast.Root) {
	pendingIdx := 0

	for _, item := range root.Items() {
		switch it := item.(type) {
		case ast.FunctionItem:
			if pendingIdx >= len(c.pending) || c.pending[pendingIdx].item.Syntax() != it.Syntax() {
				continue // duplicate dropped in the pre-pass
			}
			fn := c.pending[pendingIdx]
			pendingIdx++
			c.resolveFunctionSignature(fn)

		case ast.StructItem:
			name, ok := it.Name()
			if !ok {
				continue
			}
			sym, ok := c.scope.lookup(name.Text)
			if !ok || sym.Kind != hir.SymbolStruct {
				continue
			}
			st := sym.Ty.(*types.Struct)
			if st.Fields == nil {
				st.Fields = c.resolveFields(it.Fields())
			}

		case ast.EnumItem:
			name, ok := it.Name()
			if !ok {
				continue
			}
			sym, ok := c.scope.lookup(name.Text)
			if !ok || sym.Kind != hir.SymbolEnum {
				continue
			}
			enum := sym.Ty.(*types.Enum)
			variants := it.Variants()
			vi := 0
			for _, v := range variants {
				vname, ok := v.Name()
				if !ok {
					continue
				}
				if vi < len(enum.Variants) && enum.Variants[vi].Name == vname.Text {
					enum.Variants[vi].Fields = c.resolveFields(v.Fields())
					vi++
				}
			}
		}
	}
}

func (c *Checker) resolveFields(fields []ast.StructField) []types.Field {
	out := make([]types.Field, 0, len(fields))
	seen := make(map[string]bool)
	for _, f := range fields {
		name, ok := f.Name()
		if !ok {
			continue
		}
		if seen[name.Text] {
			c.bag.Error(diagnostics.KindName, name.Span, "duplicate field '%s'", name.Text)
			continue
		}
		seen[name.Text] = true

		ty := types.Type(types.Any{})
		if t, ok := f.Type(); ok {
			ty = c.resolveType(t)
		}
		out = append(out, types.Field{Name: name.Text, Type: ty})
	}
	return out
}

func (c *Checker) resolveFunctionSignature(fn *pendingFn) {
	fnType := fn.sym.Ty.(*types.Function)
	seen := make(map[string]bool)

	for _, param := range fn.item.Params() {
		name, ok := param.Name()
		if !ok {
			continue
		}
		if seen[name.Text] {
			c.bag.Error(diagnostics.KindName, name.Span, "duplicate parameter '%s'", name.Text)
		}
		seen[name.Text] = true

		ty := types.Type(types.Any{})
		if t, ok := param.Type(); ok {
			ty = c.resolveType(t)
		}
		fnType.Params = append(fnType.Params, ty)
		fn.params = append(fn.params, &hir.Symbol{
			Kind: hir.SymbolParameter,
			Name: name.Text,
			Ty:   ty,
			Decl: name.Span,
		})
	}

	fn.ret = types.Type(types.Any{})
	if t, ok := fn.item.ReturnType(); ok {
		fn.ret = c.resolveType(t)
	}
	fnType.Ret = fn.ret
}

func (c *Checker) checkFunction(fn *pendingFn) *hir.Function {
	c.pushScope()
	for _, param := range fn.params {
		param.ScopeID = c.scope.id
		if !c.scope.declare(param) {
			// Duplicate already reported during signature resolution.
			continue
		}
	}

	c.currentRet = fn.ret

	var body hir.Expr = c.poison()
	if block, ok := fn.item.Body(); ok {
		var ty types.Type
		var returns bool
		body, ty, returns = c.checkBlock(block, fn.ret, true)
		if !returns {
			c.require(ty, fn.ret, block.Span())
		}
	}

	c.popScope()
	return &hir.Function{Symbol: fn.sym, Params: fn.params, Body: body}
}

// poison produces the node used in place of anything that failed to
// check. Its type Any keeps sibling checking alive.
func (c *Checker) poison() hir.Expr {
	return &hir.Atom{Ty: types.Any{}}
}

// checkBlock checks statements and the trailing expression, folding let
// bindings into nested HIR lets. tail reports whether the block's
// value is the function's result, which is where `return` is allowed.
func (c *Checker) checkBlock(block ast.Block, retTy types.Type, tail bool) (hir.Expr, types.Type, bool) {
	c.pushScope()
	defer c.popScope()

	type frame struct {
		sym   *hir.Symbol
		value hir.Expr
	}
	var frames []frame

	var result hir.Expr
	var resultTy types.Type
	returns := false

	stmts := block.Statements()
	for i, stmt := range stmts {
		switch s := stmt.(type) {
		case ast.LetStmt:
			value := c.poison()
			if v, ok := s.Value(); ok {
				value = c.checkExpr(v, false)
			}
			ty := value.Type()
			if annotation, ok := s.Type(); ok {
				declared := c.resolveType(annotation)
				if v, ok := s.Value(); ok {
					c.require(ty, declared, v.Span())
				}
				ty = declared
			}

			name, ok := s.Name()
			if !ok {
				continue
			}
			sym := &hir.Symbol{
				Kind:    hir.SymbolLet,
				Name:    name.Text,
				Ty:      ty,
				Decl:    name.Span,
				ScopeID: c.scope.id,
			}
			if !c.scope.declare(sym) {
				c.bag.Error(diagnostics.KindName, name.Span, "duplicate binding '%s'", name.Text)
			}
			frames = append(frames, frame{sym: sym, value: value})

		case ast.ExprStmt:
			if e, ok := s.Expr(); ok {
				value := c.checkExpr(e, false)
				discard := &hir.Symbol{Kind: hir.SymbolLet, Name: "_", Ty: value.Type(), ScopeID: c.scope.id}
				frames = append(frames, frame{sym: discard, value: value})
			}

		case ast.ReturnStmt:
			if i != len(stmts)-1 {
				c.bag.Error(diagnostics.KindType, s.Span(), "return must be the last statement in a block")
			}
			if !tail {
				c.bag.Error(diagnostics.KindType, s.Span(), "return is only allowed in tail position")
			}
			value := hir.Expr(&hir.Atom{Ty: types.Nil{}})
			if v, ok := s.Value(); ok {
				value = c.checkExpr(v, false)
			}
			span := s.Span()
			if v, ok := s.Value(); ok {
				span = v.Span()
			}
			c.require(value.Type(), retTy, span)
			result = value
			resultTy = value.Type()
			returns = true
		}
	}

	if e, ok := block.TailExpr(); ok {
		result = c.checkExpr(e, tail)
		resultTy = result.Type()
	}

	if result == nil {
		result = &hir.Atom{Ty: types.Nil{}}
		resultTy = types.Nil{}
	}

	for i := len(frames) - 1; i >= 0; i-- {
		result = &hir.Let{
			Symbol: frames[i].sym,
			Value:  frames[i].value,
			Body:   result,
			Ty:     resultTy,
		}
	}
	return result, resultTy, returns
}

func (c *Checker) checkExpr(e ast.Expr, tail bool) hir.Expr {
	switch t := e.(type) {
	case ast.LiteralExpr:
		return c.checkLiteral(t)
	case ast.PathExpr:
		return c.checkPath(t)
	case ast.ListExpr:
		return c.checkList(t)
	case ast.PrefixExpr:
		return c.checkPrefix(t)
	case ast.BinaryExpr:
		return c.checkBinary(t)
	case ast.IsExpr:
		return c.checkIs(t)
	case ast.CastExpr:
		return c.checkCast(t)
	case ast.IfExpr:
		return c.checkIf(t, tail)
	case ast.FunctionCall:
		return c.checkCall(t)
	case ast.FieldAccess:
		return c.checkFieldAccess(t)
	case ast.InitializerExpr:
		return c.checkInitializer(t)
	}
	return c.poison()
}

func (c *Checker) checkPath(e ast.PathExpr) hir.Expr {
	segments := e.Segments()
	if len(segments) == 0 {
		return c.poison()
	}

	if len(segments) == 2 {
		variant, ok := c.resolveVariant(segments[0], segments[1])
		if !ok {
			return c.poison()
		}
		if len(variant.Fields) > 0 {
			c.bag.Error(diagnostics.KindType, e.Span(),
				"variant '%s' has fields and needs an initializer", variant)
			return c.poison()
		}
		return &hir.Construct{Discriminant: variant.Discriminant, Ty: variant}
	}

	name := segments[0]
	sym, ok := c.scope.lookup(name.Text)
	if !ok {
		c.bag.Error(diagnostics.KindName, name.Span, "undefined identifier '%s'", name.Text)
		return c.poison()
	}

	switch sym.Kind {
	case hir.SymbolParameter, hir.SymbolLet:
		return &hir.Reference{Symbol: sym, Ty: c.typeOf(sym)}
	case hir.SymbolFunction, hir.SymbolBuiltin:
		c.bag.Error(diagnostics.KindName, name.Span,
			"'%s' is a function and cannot be used as a value", name.Text)
	default:
		c.bag.Error(diagnostics.KindName, name.Span,
			"'%s' is a %s, not a value", name.Text, sym.Kind)
	}
	return c.poison()
}

func (c *Checker) resolveVariant(enumTok, variantTok lexer.Token) (*types.Variant, bool) {
	sym, ok := c.scope.lookup(enumTok.Text)
	if !ok {
		c.bag.Error(diagnostics.KindName, enumTok.Span, "undefined identifier '%s'", enumTok.Text)
		return nil, false
	}
	if sym.Kind != hir.SymbolEnum {
		c.bag.Error(diagnostics.KindName, enumTok.Span, "'%s' is a %s, not an enum", enumTok.Text, sym.Kind)
		return nil, false
	}
	enum := sym.Ty.(*types.Enum)
	variant, ok := enum.Variant(variantTok.Text)
	if !ok {
		c.bag.Error(diagnostics.KindName, variantTok.Span,
			"enum '%s' has no variant '%s'", enum.Name, variantTok.Text)
		return nil, false
	}
	return variant, true
}
