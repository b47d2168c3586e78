package parser

import (
	"github.com/rue-lang/rue-compiler/pkg/lexer"
	"github.com/rue-lang/rue-compiler/pkg/syntax"
)

func root(p *parser) {
	for !p.atEnd() {
		item(p)
	}
}

func item(p *parser) {
	switch {
	case p.at(lexer.FUN):
		functionItem(p)
	case p.at(lexer.STRUCT):
		structItem(p)
	case p.at(lexer.ENUM):
		enumItem(p)
	default:
		p.errorRecover()
		// Recovery stopped at a top-level keyword or EOF. Anything else
		// would loop, so consume one token defensively.
		if !p.atEnd() && !p.atAny(lexer.FUN, lexer.STRUCT, lexer.ENUM) {
			p.start(syntax.KindError)
			p.bump()
			p.finish()
		}
	}
}

func functionItem(p *parser) {
	p.start(syntax.KindFunctionItem)
	p.expect(lexer.FUN)
	p.expect(lexer.IDENT)
	functionParams(p)
	if p.tryEat(lexer.ARROW) {
		typ(p)
	}
	block(p)
	p.finish()
}

func functionParams(p *parser) {
	p.start(syntax.KindFunctionParamList)
	p.expect(lexer.LPAREN)
	for !p.at(lexer.RPAREN) && !p.atEnd() {
		functionParam(p)
		if !p.tryEat(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN)
	p.finish()
}

func functionParam(p *parser) {
	p.start(syntax.KindFunctionParam)
	p.expect(lexer.IDENT)
	p.expect(lexer.COLON)
	typ(p)
	p.finish()
}

func structItem(p *parser) {
	p.start(syntax.KindStructItem)
	p.expect(lexer.STRUCT)
	p.expect(lexer.IDENT)
	p.expect(lexer.LBRACE)
	for !p.at(lexer.RBRACE) && !p.atEnd() {
		structField(p)
		if !p.tryEat(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACE)
	p.finish()
}

func structField(p *parser) {
	p.start(syntax.KindStructField)
	p.expect(lexer.IDENT)
	p.expect(lexer.COLON)
	typ(p)
	p.finish()
}

func enumItem(p *parser) {
	p.start(syntax.KindEnumItem)
	p.expect(lexer.ENUM)
	p.expect(lexer.IDENT)
	p.expect(lexer.LBRACE)
	for !p.at(lexer.RBRACE) && !p.atEnd() {
		enumVariant(p)
		if !p.tryEat(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACE)
	p.finish()
}

// enumVariant parses `Name`, `Name = 51`, and either form followed by a
// braced field list.
func enumVariant(p *parser) {
	p.start(syntax.KindEnumVariant)
	p.expect(lexer.IDENT)
	if p.tryEat(lexer.ASSIGN) {
		p.tryEat(lexer.MINUS)
		p.expect(lexer.INT)
	}
	if p.tryEat(lexer.LBRACE) {
		for !p.at(lexer.RBRACE) && !p.atEnd() {
			structField(p)
			if !p.tryEat(lexer.COMMA) {
				break
			}
		}
		p.expect(lexer.RBRACE)
	}
	p.finish()
}

func block(p *parser) {
	p.start(syntax.KindBlock)
	p.expect(lexer.LBRACE)
	for !p.at(lexer.RBRACE) && !p.atEnd() {
		switch {
		case p.at(lexer.LET):
			letStmt(p)
		case p.at(lexer.RETURN):
			returnStmt(p)
		default:
			cp := p.mark()
			if !expr(p) {
				if !p.tryEat(lexer.SEMICOLON) {
					p.expect(lexer.RBRACE)
					p.finish()
					return
				}
				continue
			}
			if p.at(lexer.SEMICOLON) {
				p.startAt(cp, syntax.KindExprStmt)
				p.bump()
				p.finish()
				continue
			}
			// Trailing expression: the block's value.
			p.expect(lexer.RBRACE)
			p.finish()
			return
		}
	}
	p.expect(lexer.RBRACE)
	p.finish()
}

func letStmt(p *parser) {
	p.start(syntax.KindLetStmt)
	p.expect(lexer.LET)
	p.expect(lexer.IDENT)
	if p.tryEat(lexer.COLON) {
		typ(p)
	}
	p.expect(lexer.ASSIGN)
	expr(p)
	p.expect(lexer.SEMICOLON)
	p.finish()
}

func returnStmt(p *parser) {
	p.start(syntax.KindReturnStmt)
	p.expect(lexer.RETURN)
	if !p.at(lexer.SEMICOLON) && !p.at(lexer.RBRACE) && !p.atEnd() {
		expr(p)
	}
	p.expect(lexer.SEMICOLON)
	p.finish()
}

// Binding powers, loosest to tightest. Postfix call and field access
// bind tighter than any binary operator.
func bindingPower(kind lexer.TokenKind) (left, right uint8) {
	switch kind {
	case lexer.OROR:
		return 1, 2
	case lexer.ANDAND:
		return 3, 4
	case lexer.IS, lexer.AS:
		return 5, 6
	case lexer.EQ, lexer.NE, lexer.LT, lexer.GT, lexer.LE, lexer.GE:
		return 7, 8
	case lexer.PLUS, lexer.MINUS, lexer.CONCAT:
		return 9, 10
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return 11, 12
	}
	return 0, 0
}

const unaryBindingPower = 13

type exprOpts struct {
	// allowInitializer gates `Path { ... }` construction so that the
	// condition of `if cond { ... }` is not swallowed by the block brace.
	allowInitializer bool
}

func expr(p *parser) bool {
	return exprBindingPower(p, 0, exprOpts{allowInitializer: true})
}

var exprRecovery = []lexer.TokenKind{
	lexer.SEMICOLON, lexer.RBRACE, lexer.RPAREN, lexer.RBRACKET, lexer.COMMA,
}

func exprBindingPower(p *parser, minimum uint8, opts exprOpts) bool {
	cp := p.mark()

	if p.atAny(lexer.BANG, lexer.MINUS) {
		p.start(syntax.KindPrefixExpr)
		p.bump()
		exprBindingPower(p, unaryBindingPower, opts)
		p.finish()
	} else if !atom(p, opts) {
		return false
	}

	// Postfix: calls and field access bind tightest.
	for {
		if p.at(lexer.LPAREN) {
			p.startAt(cp, syntax.KindFunctionCall)
			callArgs(p)
			p.finish()
			continue
		}
		if p.at(lexer.DOT) {
			p.startAt(cp, syntax.KindFieldAccess)
			p.bump()
			p.expect(lexer.IDENT)
			p.finish()
			continue
		}
		break
	}

	// Binary operators and type tests via binding-power climbing.
	for {
		op := p.current().Kind
		left, right := bindingPower(op)
		if left == 0 || left < minimum {
			return true
		}

		if op == lexer.IS {
			p.bump()
			p.startAt(cp, syntax.KindIsExpr)
			typ(p)
			p.finish()
			continue
		}
		if op == lexer.AS {
			p.bump()
			p.startAt(cp, syntax.KindCastExpr)
			typ(p)
			p.finish()
			continue
		}

		p.bump()
		p.startAt(cp, syntax.KindBinaryExpr)
		exprBindingPower(p, right, opts)
		p.finish()
	}
}

func atom(p *parser, opts exprOpts) bool {
	switch {
	case p.atAny(lexer.INT, lexer.HEX, lexer.STRING, lexer.TRUE, lexer.FALSE, lexer.NIL):
		p.start(syntax.KindLiteralExpr)
		p.bump()
		p.finish()
		return true

	case p.at(lexer.IDENT):
		cp := p.mark()
		p.start(syntax.KindPathExpr)
		p.bump()
		if p.tryEat(lexer.COLONCOLON) {
			p.expect(lexer.IDENT)
		}
		p.finish()
		if opts.allowInitializer && p.at(lexer.LBRACE) {
			p.startAt(cp, syntax.KindInitializerExpr)
			p.bump()
			for !p.at(lexer.RBRACE) && !p.atEnd() {
				initializerField(p)
				if !p.tryEat(lexer.COMMA) {
					break
				}
			}
			p.expect(lexer.RBRACE)
			p.finish()
		}
		return true

	case p.at(lexer.LBRACKET):
		listExpr(p)
		return true

	case p.at(lexer.IF):
		ifExpr(p)
		return true
	}

	p.errorRecover(exprRecovery...)
	return false
}

func callArgs(p *parser) {
	p.start(syntax.KindFunctionCallArgs)
	p.expect(lexer.LPAREN)
	for !p.at(lexer.RPAREN) && !p.atEnd() {
		if !expr(p) {
			break
		}
		if !p.tryEat(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN)
	p.finish()
}

func initializerField(p *parser) {
	p.start(syntax.KindInitializerField)
	p.expect(lexer.IDENT)
	p.expect(lexer.COLON)
	expr(p)
	p.finish()
}

func listExpr(p *parser) {
	p.start(syntax.KindListExpr)
	p.expect(lexer.LBRACKET)
	for !p.at(lexer.RBRACKET) && !p.atEnd() {
		listItem(p)
		if !p.tryEat(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACKET)
	p.finish()
}

func listItem(p *parser) {
	p.start(syntax.KindListItem)
	p.tryEat(lexer.SPREAD)
	if !expr(p) {
		p.finish()
		return
	}
	p.finish()
}

func ifExpr(p *parser) {
	p.start(syntax.KindIfExpr)
	p.expect(lexer.IF)
	exprBindingPower(p, 0, exprOpts{allowInitializer: false})
	block(p)
	p.expect(lexer.ELSE)
	if p.at(lexer.IF) {
		ifExpr(p)
	} else {
		block(p)
	}
	p.finish()
}

var typeRecovery = []lexer.TokenKind{
	lexer.LBRACE, lexer.RBRACE, lexer.SEMICOLON, lexer.ASSIGN,
	lexer.COMMA, lexer.RPAREN,
}

func typ(p *parser) {
	cp := p.mark()

	if p.at(lexer.IDENT) {
		p.start(syntax.KindPathType)
		p.bump()
		if p.tryEat(lexer.COLONCOLON) {
			p.expect(lexer.IDENT)
		}
		p.finish()
	} else {
		p.errorRecover(typeRecovery...)
		return
	}

	for p.at(lexer.LBRACKET) {
		p.startAt(cp, syntax.KindListType)
		p.bump()
		p.expect(lexer.RBRACKET)
		p.finish()
	}
}
