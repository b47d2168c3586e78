// Package lexer - Scanner for Rue source text
// Design: Hand-written scanner, single pass, never fails; unrecognized
// bytes become UNKNOWN tokens so downstream stages always see a total
// token stream.
package lexer

import "github.com/rue-lang/rue-compiler/pkg/diagnostics"

type TokenKind int

const (
	EOF TokenKind = iota

	// Literals and names
	IDENT
	INT
	HEX
	STRING

	// Keywords
	FUN
	STRUCT
	ENUM
	LET
	IF
	ELSE
	RETURN
	IS
	AS
	NIL
	TRUE
	FALSE

	// Delimiters
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	DOT
	COMMA
	COLON
	COLONCOLON
	SEMICOLON
	ARROW  // ->
	SPREAD // ...

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	BANG
	CONCAT // ++
	LT
	GT
	LE
	GE
	EQ // ==
	NE // !=
	ANDAND
	OROR
	ASSIGN // =

	// Trivia
	WHITESPACE
	COMMENT

	UNKNOWN
)

var kindNames = map[TokenKind]string{
	EOF:        "end of file",
	IDENT:      "identifier",
	INT:        "integer",
	HEX:        "hex literal",
	STRING:     "string",
	FUN:        "'fun'",
	STRUCT:     "'struct'",
	ENUM:       "'enum'",
	LET:        "'let'",
	IF:         "'if'",
	ELSE:       "'else'",
	RETURN:     "'return'",
	IS:         "'is'",
	AS:         "'as'",
	NIL:        "'nil'",
	TRUE:       "'true'",
	FALSE:      "'false'",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'['",
	RBRACKET:   "']'",
	LBRACE:     "'{'",
	RBRACE:     "'}'",
	DOT:        "'.'",
	COMMA:      "','",
	COLON:      "':'",
	COLONCOLON: "'::'",
	SEMICOLON:  "';'",
	ARROW:      "'->'",
	SPREAD:     "'...'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	SLASH:      "'/'",
	PERCENT:    "'%'",
	BANG:       "'!'",
	CONCAT:     "'++'",
	LT:         "'<'",
	GT:         "'>'",
	LE:         "'<='",
	GE:         "'>='",
	EQ:         "'=='",
	NE:         "'!='",
	ANDAND:     "'&&'",
	OROR:       "'||'",
	ASSIGN:     "'='",
	WHITESPACE: "whitespace",
	COMMENT:    "comment",
	UNKNOWN:    "unknown token",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// IsTrivia reports whether the token carries no syntactic meaning.
func (k TokenKind) IsTrivia() bool {
	return k == WHITESPACE || k == COMMENT
}

// IsKeyword reports whether the token is a reserved word.
func (k TokenKind) IsKeyword() bool {
	return k >= FUN && k <= FALSE
}

var keywords = map[string]TokenKind{
	"fun":    FUN,
	"struct": STRUCT,
	"enum":   ENUM,
	"let":    LET,
	"if":     IF,
	"else":   ELSE,
	"return": RETURN,
	"is":     IS,
	"as":     AS,
	"nil":    NIL,
	"true":   TRUE,
	"false":  FALSE,
}

// Token is a lexeme with its source span. Text is a slice of the original
// source, so concatenating the texts of a full scan reproduces the input.
type Token struct {
	Kind TokenKind
	Span diagnostics.Span
	Text string
}
