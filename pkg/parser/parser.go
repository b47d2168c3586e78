// Package parser - Recursive descent CST builder for Rue
// Design: A token cursor feeding green-tree events, modeled after
// binding-power expression parsing. The parser never fails: unexpected
// tokens are wrapped in error nodes and every source byte ends up in
// the tree.
package parser

import (
	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/lexer"
	"github.com/rue-lang/rue-compiler/pkg/logger"
	"github.com/rue-lang/rue-compiler/pkg/syntax"
)

// Parse builds the lossless syntax tree for the source text. Lex and
// parse diagnostics are reported into the bag; the tree is always
// returned, error nodes included.
func Parse(source string, bag *diagnostics.Bag) *syntax.GreenNode {
	tokens := lexer.Scan(source, bag)
	logger.LogLexing(len(tokens))

	p := &parser{tokens: tokens, bag: bag}
	p.builder.Begin(syntax.KindRoot)
	root(p)
	p.flushTrivia()
	tree := p.builder.Finish()
	logger.LogParsing(bag.Len())
	return tree
}

type parser struct {
	tokens  []lexer.Token
	pos     int
	builder syntax.Builder
	bag     *diagnostics.Bag
}

// current returns the next significant token without consuming it.
func (p *parser) current() lexer.Token {
	for i := p.pos; i < len(p.tokens); i++ {
		if !p.tokens[i].Kind.IsTrivia() {
			return p.tokens[i]
		}
	}
	return p.tokens[len(p.tokens)-1] // EOF
}

func (p *parser) at(kind lexer.TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) atAny(kinds ...lexer.TokenKind) bool {
	cur := p.current().Kind
	for _, kind := range kinds {
		if cur == kind {
			return true
		}
	}
	return false
}

func (p *parser) atEnd() bool {
	return p.at(lexer.EOF)
}

// flushTrivia moves pending whitespace and comments into the current node.
func (p *parser) flushTrivia() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].Kind.IsTrivia() {
		p.builder.Token(syntax.Leaf{Token: p.tokens[p.pos]})
		p.pos++
	}
}

// bump consumes the current significant token into the current node,
// preceded by its leading trivia.
func (p *parser) bump() {
	p.flushTrivia()
	if p.pos >= len(p.tokens) || p.tokens[p.pos].Kind == lexer.EOF {
		return
	}
	p.builder.Token(syntax.Leaf{Token: p.tokens[p.pos]})
	p.pos++
}

// tryEat consumes the token if it matches.
func (p *parser) tryEat(kind lexer.TokenKind) bool {
	if p.at(kind) {
		p.bump()
		return true
	}
	return false
}

// expect consumes the token if it matches and reports a parse error
// otherwise, without consuming anything.
func (p *parser) expect(kind lexer.TokenKind) bool {
	if p.tryEat(kind) {
		return true
	}
	cur := p.current()
	p.bag.Error(diagnostics.KindParse, cur.Span, "expected %v, found %v", kind, cur.Kind)
	return false
}

func (p *parser) start(kind syntax.Kind) {
	p.flushTrivia()
	p.builder.StartNode(kind)
}

func (p *parser) startAt(cp syntax.Checkpoint, kind syntax.Kind) {
	p.builder.StartNodeAt(cp, kind)
}

func (p *parser) mark() syntax.Checkpoint {
	p.flushTrivia()
	return p.builder.Mark()
}

func (p *parser) finish() {
	p.builder.FinishNode()
}

// errorRecover reports an unexpected token and skips forward to a
// synchronization point, wrapping everything skipped in an error node.
// Skipping always stops at top-level item keywords and EOF.
func (p *parser) errorRecover(recovery ...lexer.TokenKind) {
	cur := p.current()
	p.bag.Error(diagnostics.KindParse, cur.Span, "unexpected %v", cur.Kind)

	if p.atEnd() || p.atRecovery(recovery) {
		return
	}

	p.start(syntax.KindError)
	for !p.atEnd() && !p.atRecovery(recovery) {
		p.bump()
	}
	p.finish()
}

func (p *parser) atRecovery(recovery []lexer.TokenKind) bool {
	cur := p.current().Kind
	if cur == lexer.FUN || cur == lexer.STRUCT || cur == lexer.ENUM {
		return true
	}
	for _, kind := range recovery {
		if cur == kind {
			return true
		}
	}
	return false
}
