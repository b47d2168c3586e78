// Package ast - Typed facade over the concrete syntax tree
// Design: AST values are thin wrappers around green nodes; they copy
// nothing and are constructed lazily during traversal. Accessors return
// ok=false wherever a child is missing because of a parse error, so
// downstream stages never panic on broken input.
package ast

import (
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/lexer"
	"github.com/rue-lang/rue-compiler/pkg/syntax"
)

// Node is implemented by every AST wrapper.
type Node interface {
	Syntax() *syntax.GreenNode
	Span() diagnostics.Span
}

type base struct {
	node *syntax.GreenNode
}

func (b base) Syntax() *syntax.GreenNode { return b.node }
func (b base) Span() diagnostics.Span    { return b.node.Span() }

// Root is the whole program.
type Root struct{ base }

func NewRoot(node *syntax.GreenNode) Root {
	return Root{base{node}}
}

// Item is a top-level declaration.
type Item interface {
	Node
	item()
}

type FunctionItem struct{ base }
type StructItem struct{ base }
type EnumItem struct{ base }

func (FunctionItem) item() {}
func (StructItem) item()   {}
func (EnumItem) item()     {}

func (r Root) Items() []Item {
	var items []Item
	for _, node := range r.node.Nodes() {
		switch node.Kind {
		case syntax.KindFunctionItem:
			items = append(items, FunctionItem{base{node}})
		case syntax.KindStructItem:
			items = append(items, StructItem{base{node}})
		case syntax.KindEnumItem:
			items = append(items, EnumItem{base{node}})
		}
	}
	return items
}

func (f FunctionItem) Name() (lexer.Token, bool) {
	return f.node.FindToken(lexer.IDENT)
}

func (f FunctionItem) Params() []FunctionParam {
	list, ok := f.node.FindNode(syntax.KindFunctionParamList)
	if !ok {
		return nil
	}
	var params []FunctionParam
	for _, node := range list.FindNodes(syntax.KindFunctionParam) {
		params = append(params, FunctionParam{base{node}})
	}
	return params
}

func (f FunctionItem) ReturnType() (Type, bool) {
	return findType(f.node)
}

func (f FunctionItem) Body() (Block, bool) {
	node, ok := f.node.FindNode(syntax.KindBlock)
	if !ok {
		return Block{}, false
	}
	return Block{base{node}}, true
}

type FunctionParam struct{ base }

func (p FunctionParam) Name() (lexer.Token, bool) {
	return p.node.FindToken(lexer.IDENT)
}

func (p FunctionParam) Type() (Type, bool) {
	return findType(p.node)
}

func (s StructItem) Name() (lexer.Token, bool) {
	return s.node.FindToken(lexer.IDENT)
}

func (s StructItem) Fields() []StructField {
	var fields []StructField
	for _, node := range s.node.FindNodes(syntax.KindStructField) {
		fields = append(fields, StructField{base{node}})
	}
	return fields
}

type StructField struct{ base }

func (f StructField) Name() (lexer.Token, bool) {
	return f.node.FindToken(lexer.IDENT)
}

func (f StructField) Type() (Type, bool) {
	return findType(f.node)
}

func (e EnumItem) Name() (lexer.Token, bool) {
	return e.node.FindToken(lexer.IDENT)
}

func (e EnumItem) Variants() []EnumVariant {
	var variants []EnumVariant
	for _, node := range e.node.FindNodes(syntax.KindEnumVariant) {
		variants = append(variants, EnumVariant{base{node}})
	}
	return variants
}

type EnumVariant struct{ base }

func (v EnumVariant) Name() (lexer.Token, bool) {
	return v.node.FindToken(lexer.IDENT)
}

// Discriminant returns the explicit integer discriminant token, if any,
// and whether it is negated.
func (v EnumVariant) Discriminant() (tok lexer.Token, negative, ok bool) {
	tok, ok = v.node.FindToken(lexer.INT)
	if !ok {
		return lexer.Token{}, false, false
	}
	_, negative = v.node.FindToken(lexer.MINUS)
	return tok, negative, true
}

func (v EnumVariant) Fields() []StructField {
	var fields []StructField
	for _, node := range v.node.FindNodes(syntax.KindStructField) {
		fields = append(fields, StructField{base{node}})
	}
	return fields
}

// Type syntax

type Type interface {
	Node
	typeNode()
}

type PathType struct{ base }
type ListType struct{ base }

func (PathType) typeNode() {}
func (ListType) typeNode() {}

func (t PathType) Name() (lexer.Token, bool) {
	return t.node.FindToken(lexer.IDENT)
}

// Segments returns the identifier segments, e.g. [E, V] for `E::V`.
func (t PathType) Segments() []lexer.Token {
	var segments []lexer.Token
	for _, tok := range t.node.Tokens() {
		if tok.Kind == lexer.IDENT {
			segments = append(segments, tok)
		}
	}
	return segments
}

func (t ListType) Element() (Type, bool) {
	return findType(t.node)
}

func castType(node *syntax.GreenNode) (Type, bool) {
	switch node.Kind {
	case syntax.KindPathType:
		return PathType{base{node}}, true
	case syntax.KindListType:
		return ListType{base{node}}, true
	}
	return nil, false
}

func findType(parent *syntax.GreenNode) (Type, bool) {
	for _, node := range parent.Nodes() {
		if t, ok := castType(node); ok {
			return t, true
		}
	}
	return nil, false
}

// Statements

type Stmt interface {
	Node
	stmt()
}

type LetStmt struct{ base }
type ReturnStmt struct{ base }
type ExprStmt struct{ base }

func (LetStmt) stmt()    {}
func (ReturnStmt) stmt() {}
func (ExprStmt) stmt()   {}

type Block struct{ base }

func (b Block) Statements() []Stmt {
	var stmts []Stmt
	for _, node := range b.node.Nodes() {
		switch node.Kind {
		case syntax.KindLetStmt:
			stmts = append(stmts, LetStmt{base{node}})
		case syntax.KindReturnStmt:
			stmts = append(stmts, ReturnStmt{base{node}})
		case syntax.KindExprStmt:
			stmts = append(stmts, ExprStmt{base{node}})
		}
	}
	return stmts
}

// TailExpr returns the block's trailing value expression, if present.
func (b Block) TailExpr() (Expr, bool) {
	for _, node := range b.node.Nodes() {
		if e, ok := castExpr(node); ok {
			return e, true
		}
	}
	return nil, false
}

func (s LetStmt) Name() (lexer.Token, bool) {
	return s.node.FindToken(lexer.IDENT)
}

func (s LetStmt) Type() (Type, bool) {
	return findType(s.node)
}

func (s LetStmt) Value() (Expr, bool) {
	return findExpr(s.node)
}

func (s ReturnStmt) Value() (Expr, bool) {
	return findExpr(s.node)
}

func (s ExprStmt) Expr() (Expr, bool) {
	return findExpr(s.node)
}

// Expressions

type Expr interface {
	Node
	expr()
}

type LiteralExpr struct{ base }
type PathExpr struct{ base }
type ListExpr struct{ base }
type PrefixExpr struct{ base }
type BinaryExpr struct{ base }
type IsExpr struct{ base }
type CastExpr struct{ base }
type IfExpr struct{ base }
type FunctionCall struct{ base }
type FieldAccess struct{ base }
type InitializerExpr struct{ base }

func (LiteralExpr) expr()     {}
func (PathExpr) expr()        {}
func (ListExpr) expr()        {}
func (PrefixExpr) expr()      {}
func (BinaryExpr) expr()      {}
func (IsExpr) expr()          {}
func (CastExpr) expr()        {}
func (IfExpr) expr()          {}
func (FunctionCall) expr()    {}
func (FieldAccess) expr()     {}
func (InitializerExpr) expr() {}

func castExpr(node *syntax.GreenNode) (Expr, bool) {
	switch node.Kind {
	case syntax.KindLiteralExpr:
		return LiteralExpr{base{node}}, true
	case syntax.KindPathExpr:
		return PathExpr{base{node}}, true
	case syntax.KindListExpr:
		return ListExpr{base{node}}, true
	case syntax.KindPrefixExpr:
		return PrefixExpr{base{node}}, true
	case syntax.KindBinaryExpr:
		return BinaryExpr{base{node}}, true
	case syntax.KindIsExpr:
		return IsExpr{base{node}}, true
	case syntax.KindCastExpr:
		return CastExpr{base{node}}, true
	case syntax.KindIfExpr:
		return IfExpr{base{node}}, true
	case syntax.KindFunctionCall:
		return FunctionCall{base{node}}, true
	case syntax.KindFieldAccess:
		return FieldAccess{base{node}}, true
	case syntax.KindInitializerExpr:
		return InitializerExpr{base{node}}, true
	}
	return nil, false
}

func findExpr(parent *syntax.GreenNode) (Expr, bool) {
	for _, node := range parent.Nodes() {
		if e, ok := castExpr(node); ok {
			return e, true
		}
	}
	return nil, false
}

func findExprs(parent *syntax.GreenNode) []Expr {
	var exprs []Expr
	for _, node := range parent.Nodes() {
		if e, ok := castExpr(node); ok {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

// Value returns the literal's token.
func (e LiteralExpr) Value() (lexer.Token, bool) {
	tokens := e.node.Tokens()
	if len(tokens) == 0 {
		return lexer.Token{}, false
	}
	return tokens[0], true
}

// Segments returns the identifier segments of a path, e.g. [E, V] for
// `E::V` and [x] for a plain reference.
func (e PathExpr) Segments() []lexer.Token {
	var segments []lexer.Token
	for _, tok := range e.node.Tokens() {
		if tok.Kind == lexer.IDENT {
			segments = append(segments, tok)
		}
	}
	return segments
}

type ListItem struct{ base }

func (e ListExpr) Items() []ListItem {
	var items []ListItem
	for _, node := range e.node.FindNodes(syntax.KindListItem) {
		items = append(items, ListItem{base{node}})
	}
	return items
}

// Spread reports whether the item is a `...expr` element.
func (i ListItem) Spread() bool {
	_, ok := i.node.FindToken(lexer.SPREAD)
	return ok
}

func (i ListItem) Value() (Expr, bool) {
	return findExpr(i.node)
}

func (e PrefixExpr) Op() (lexer.Token, bool) {
	tokens := e.node.Tokens()
	if len(tokens) == 0 {
		return lexer.Token{}, false
	}
	return tokens[0], true
}

func (e PrefixExpr) Operand() (Expr, bool) {
	return findExpr(e.node)
}

func (e BinaryExpr) Op() (lexer.Token, bool) {
	for _, tok := range e.node.Tokens() {
		if isBinaryOp(tok.Kind) {
			return tok, true
		}
	}
	return lexer.Token{}, false
}

func isBinaryOp(kind lexer.TokenKind) bool {
	switch kind {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.CONCAT, lexer.EQ, lexer.NE, lexer.LT, lexer.GT, lexer.LE,
		lexer.GE, lexer.ANDAND, lexer.OROR:
		return true
	}
	return false
}

func (e BinaryExpr) Lhs() (Expr, bool) {
	exprs := findExprs(e.node)
	if len(exprs) < 1 {
		return nil, false
	}
	return exprs[0], true
}

func (e BinaryExpr) Rhs() (Expr, bool) {
	exprs := findExprs(e.node)
	if len(exprs) < 2 {
		return nil, false
	}
	return exprs[1], true
}

func (e IsExpr) Operand() (Expr, bool) {
	return findExpr(e.node)
}

func (e IsExpr) Type() (Type, bool) {
	return findType(e.node)
}

func (e CastExpr) Operand() (Expr, bool) {
	return findExpr(e.node)
}

func (e CastExpr) Type() (Type, bool) {
	return findType(e.node)
}

func (e IfExpr) Condition() (Expr, bool) {
	return findExpr(e.node)
}

func (e IfExpr) Then() (Block, bool) {
	blocks := e.node.FindNodes(syntax.KindBlock)
	if len(blocks) < 1 {
		return Block{}, false
	}
	return Block{base{blocks[0]}}, true
}

// Else returns the else branch: either a Block or a chained IfExpr.
func (e IfExpr) Else() (Node, bool) {
	blocks := e.node.FindNodes(syntax.KindBlock)
	if len(blocks) >= 2 {
		return Block{base{blocks[1]}}, true
	}
	if nested, ok := e.node.FindNode(syntax.KindIfExpr); ok {
		return IfExpr{base{nested}}, true
	}
	return nil, false
}

func (e FunctionCall) Callee() (Expr, bool) {
	return findExpr(e.node)
}

func (e FunctionCall) Args() []Expr {
	args, ok := e.node.FindNode(syntax.KindFunctionCallArgs)
	if !ok {
		return nil
	}
	return findExprs(args)
}

func (e FieldAccess) Operand() (Expr, bool) {
	return findExpr(e.node)
}

// Field returns the accessed field name, the token after the dot.
func (e FieldAccess) Field() (lexer.Token, bool) {
	tokens := e.node.Tokens()
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Kind == lexer.IDENT {
			return tokens[i], true
		}
	}
	return lexer.Token{}, false
}

func (e InitializerExpr) Path() (PathExpr, bool) {
	node, ok := e.node.FindNode(syntax.KindPathExpr)
	if !ok {
		return PathExpr{}, false
	}
	return PathExpr{base{node}}, true
}

func (e InitializerExpr) Fields() []InitializerField {
	var fields []InitializerField
	for _, node := range e.node.FindNodes(syntax.KindInitializerField) {
		fields = append(fields, InitializerField{base{node}})
	}
	return fields
}

type InitializerField struct{ base }

func (f InitializerField) Name() (lexer.Token, bool) {
	return f.node.FindToken(lexer.IDENT)
}

func (f InitializerField) Value() (Expr, bool) {
	return findExpr(f.node)
}
