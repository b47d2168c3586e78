// Package syntax - Lossless concrete syntax tree for Rue
// Design: Immutable green tree whose leaves are the original tokens,
// trivia included. Every byte of the source appears exactly once in the
// tree, so the parse is fully reversible even across parse errors.
package syntax

type Kind int

const (
	KindError Kind = iota

	KindRoot
	KindFunctionItem
	KindFunctionParamList
	KindFunctionParam
	KindStructItem
	KindStructField
	KindEnumItem
	KindEnumVariant

	KindBlock
	KindLetStmt
	KindReturnStmt
	KindExprStmt

	KindLiteralExpr
	KindPathExpr
	KindListExpr
	KindListItem
	KindPrefixExpr
	KindBinaryExpr
	KindIsExpr
	KindCastExpr
	KindIfExpr
	KindFunctionCall
	KindFunctionCallArgs
	KindFieldAccess
	KindInitializerExpr
	KindInitializerField

	KindPathType
	KindListType
)

var kindNames = map[Kind]string{
	KindError:             "error",
	KindRoot:              "root",
	KindFunctionItem:      "function item",
	KindFunctionParamList: "function parameter list",
	KindFunctionParam:     "function parameter",
	KindStructItem:        "struct item",
	KindStructField:       "struct field",
	KindEnumItem:          "enum item",
	KindEnumVariant:       "enum variant",
	KindBlock:             "block",
	KindLetStmt:           "let statement",
	KindReturnStmt:        "return statement",
	KindExprStmt:          "expression statement",
	KindLiteralExpr:       "literal expression",
	KindPathExpr:          "path expression",
	KindListExpr:          "list expression",
	KindListItem:          "list item",
	KindPrefixExpr:        "prefix expression",
	KindBinaryExpr:        "binary expression",
	KindIsExpr:            "is expression",
	KindCastExpr:          "cast expression",
	KindIfExpr:            "if expression",
	KindFunctionCall:      "function call",
	KindFunctionCallArgs:  "function call arguments",
	KindFieldAccess:       "field access",
	KindInitializerExpr:   "initializer expression",
	KindInitializerField:  "initializer field",
	KindPathType:          "path type",
	KindListType:          "list type",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}
