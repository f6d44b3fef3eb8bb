package selector

import (
	"fmt"
	"strings"
)

// Expression is a boolean expression over tag membership, in the grammar
// used by test-runner selection flags:
//
//	expr   := term {"or" term}
//	term   := factor {"and" factor}
//	factor := "not" factor | "(" expr ")" | tag
//
// Tag names are bare identifiers. Keywords are case-insensitive.
type Expression struct {
	source   string
	root     node
	excluded map[string]bool
}

// Parse parses a selection expression. An empty or all-whitespace string
// yields an expression that matches every scenario.
func Parse(source string) (*Expression, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &Expression{source: source}, nil
	}

	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("parsing %q: unexpected %q", source, p.tokens[p.pos])
	}

	expr := &Expression{source: source, root: root, excluded: map[string]bool{}}
	collectExcluded(root, false, expr.excluded)
	return expr, nil
}

// Excluded returns the tags the expression negates. Scenarios carrying any
// of these are skipped unconditionally.
func (e *Expression) Excluded() []string {
	out := make([]string, 0, len(e.excluded))
	for tag := range e.excluded {
		out = append(out, tag)
	}
	return out
}

func (e *Expression) String() string { return e.source }

type node interface {
	eval(tags TagSet) bool
}

type tagNode struct{ tag string }
type notNode struct{ inner node }
type andNode struct{ left, right node }
type orNode struct{ left, right node }

func (n tagNode) eval(tags TagSet) bool { return tags.Has(n.tag) }
func (n notNode) eval(tags TagSet) bool { return !n.inner.eval(tags) }
func (n andNode) eval(tags TagSet) bool { return n.left.eval(tags) && n.right.eval(tags) }
func (n orNode) eval(tags TagSet) bool  { return n.left.eval(tags) || n.right.eval(tags) }

// collectExcluded walks the tree recording tags that appear under an odd
// number of negations.
func collectExcluded(n node, negated bool, out map[string]bool) {
	switch v := n.(type) {
	case tagNode:
		if negated {
			out[v.tag] = true
		}
	case notNode:
		collectExcluded(v.inner, !negated, out)
	case andNode:
		collectExcluded(v.left, negated, out)
		collectExcluded(v.right, negated, out)
	case orNode:
		collectExcluded(v.left, negated, out)
		collectExcluded(v.right, negated, out)
	}
}

func tokenize(source string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '!':
			tokens = append(tokens, "not")
			i++
		case isTagChar(c):
			start := i
			for i < len(source) && isTagChar(source[i]) {
				i++
			}
			tokens = append(tokens, source[start:i])
		default:
			return nil, fmt.Errorf("parsing %q: unexpected character %q", source, c)
		}
	}
	return tokens, nil
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "and") {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseFactor() (node, error) {
	switch tok := p.peek(); {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of expression")
	case strings.EqualFold(tok, "not"):
		p.next()
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	case tok == "(":
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case tok == ")":
		return nil, fmt.Errorf("unexpected %q", tok)
	default:
		p.next()
		return tagNode{tag: strings.ToLower(tok)}, nil
	}
}
