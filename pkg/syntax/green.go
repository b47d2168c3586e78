package syntax

import (
	"strings"

	"github.com/rue-lang/rue-compiler/pkg/diagnostics"
	"github.com/rue-lang/rue-compiler/pkg/lexer"
)

// Child is an element of a green node: either a nested *GreenNode or a
// Leaf carrying one token.
type Child interface {
	child()
}

// GreenNode is an internal node of the concrete syntax tree. It is
// immutable once built.
type GreenNode struct {
	Kind     Kind
	Children []Child
}

func (*GreenNode) child() {}

// Leaf wraps a single token, trivia included.
type Leaf struct {
	Token lexer.Token
}

func (Leaf) child() {}

// Text reconstructs the exact source text covered by the node.
func (n *GreenNode) Text() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *GreenNode) writeText(sb *strings.Builder) {
	for _, child := range n.Children {
		switch c := child.(type) {
		case *GreenNode:
			c.writeText(sb)
		case Leaf:
			sb.WriteString(c.Token.Text)
		}
	}
}

// Span is the byte range covered by the node, computed from its leaves.
// An empty node reports a zero-length span at offset 0.
func (n *GreenNode) Span() diagnostics.Span {
	first, ok := n.firstToken()
	if !ok {
		return diagnostics.Span{}
	}
	last, _ := n.lastToken()
	return diagnostics.Span{Start: first.Span.Start, End: last.Span.End}
}

func (n *GreenNode) firstToken() (lexer.Token, bool) {
	for _, child := range n.Children {
		switch c := child.(type) {
		case *GreenNode:
			if tok, ok := c.firstToken(); ok {
				return tok, true
			}
		case Leaf:
			return c.Token, true
		}
	}
	return lexer.Token{}, false
}

func (n *GreenNode) lastToken() (lexer.Token, bool) {
	for i := len(n.Children) - 1; i >= 0; i-- {
		switch c := n.Children[i].(type) {
		case *GreenNode:
			if tok, ok := c.lastToken(); ok {
				return tok, true
			}
		case Leaf:
			return c.Token, true
		}
	}
	return lexer.Token{}, false
}

// Nodes returns the direct child nodes, skipping leaves.
func (n *GreenNode) Nodes() []*GreenNode {
	var nodes []*GreenNode
	for _, child := range n.Children {
		if node, ok := child.(*GreenNode); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Tokens returns the direct child tokens, trivia excluded.
func (n *GreenNode) Tokens() []lexer.Token {
	var tokens []lexer.Token
	for _, child := range n.Children {
		if leaf, ok := child.(Leaf); ok && !leaf.Token.Kind.IsTrivia() {
			tokens = append(tokens, leaf.Token)
		}
	}
	return tokens
}

// FindToken returns the first direct child token of the given kind.
func (n *GreenNode) FindToken(kind lexer.TokenKind) (lexer.Token, bool) {
	for _, child := range n.Children {
		if leaf, ok := child.(Leaf); ok && leaf.Token.Kind == kind {
			return leaf.Token, true
		}
	}
	return lexer.Token{}, false
}

// FindNode returns the first direct child node of the given kind.
func (n *GreenNode) FindNode(kind Kind) (*GreenNode, bool) {
	for _, child := range n.Children {
		if node, ok := child.(*GreenNode); ok && node.Kind == kind {
			return node, true
		}
	}
	return nil, false
}

// FindNodes returns all direct child nodes of the given kind.
func (n *GreenNode) FindNodes(kind Kind) []*GreenNode {
	var nodes []*GreenNode
	for _, child := range n.Children {
		if node, ok := child.(*GreenNode); ok && node.Kind == kind {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
