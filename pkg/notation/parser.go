// Package notation reads and writes the compact textual form of a
// dimension, e.g.
//
//	loguniform(lower=1.0, upper=2.0, condition=eq('optimizer', 'adam'))
//
// # Grammar
//
//	call  → IDENT '(' [arg {',' arg}] ')'
//	arg   → [IDENT '='] value
//	value → NUMBER | '-' NUMBER | STRING | true | false | list | call
//	list  → '[' [value {',' value}] ']'
//
// Text is never executed: it is parsed into an AST and the AST is
// evaluated against a fixed Registry of constructors.
package notation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sspace/pkg/token"
)

// Parser is a recursive-descent parser over the Lexer tokens.
type Parser struct {
	lexer *Lexer
	token token.Token // current token
	peek  token.Token // lookahead token
	err   error
}

// NewParser creates a parser for input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses input as a single call.
func Parse(input string) (*Call, error) {
	p := NewParser(input)
	call := p.parseCall()
	if p.err == nil && !p.check(token.EOF) {
		p.unexpected("end of input")
	}
	if p.err != nil {
		return nil, p.err
	}
	return call, nil
}

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.unexpected(t.String())
	return false
}

// unexpected records an error for the current token. Lexer errors win
// over parse errors since they explain the ILLEGAL token.
func (p *Parser) unexpected(expected string) {
	if p.err != nil {
		return
	}
	if p.check(token.ILLEGAL) {
		if err := p.lexer.Err(); err != nil {
			p.err = err
			return
		}
	}
	if p.check(token.OPERATOR) {
		p.err = &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf(errUnexpectedOperator, p.token.Literal)}
		return
	}
	p.err = &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf(errUnexpectedToken, p.token, expected)}
}

// call → IDENT '(' [arg {',' arg}] ')'
func (p *Parser) parseCall() *Call {
	if !p.check(token.IDENT) {
		p.unexpected("constructor name")
		return nil
	}
	call := &Call{Name: p.token.Literal, NamePos: p.token.Pos}
	p.nextToken()

	if !p.expect(token.LPAREN) {
		return nil
	}
	if p.match(token.RPAREN) {
		return call
	}
	for p.err == nil {
		arg := p.parseArg()
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.match(token.COMMA) {
			continue
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		break
	}
	return call
}

// arg → [IDENT '='] value
func (p *Parser) parseArg() *Arg {
	arg := &Arg{At: p.token.Pos}
	if p.check(token.IDENT) && p.peek.Type == token.OPERATOR {
		arg.Name = p.token.Literal
		p.nextToken()
		if p.token.Literal != "=" {
			p.unexpected("'='")
			return nil
		}
		p.nextToken()
	}
	arg.Value = p.parseValue()
	if arg.Value == nil {
		return nil
	}
	return arg
}

// value → NUMBER | '-' NUMBER | STRING | true | false | list | call
func (p *Parser) parseValue() Expr {
	tok := p.token
	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		if n := p.number(tok, false); n != nil {
			return n
		}
		return nil
	case token.MINUS:
		p.nextToken()
		if !p.check(token.NUMBER) {
			p.unexpected("number after '-'")
			return nil
		}
		num := p.token
		p.nextToken()
		n := p.number(num, true)
		if n == nil {
			return nil
		}
		n.NumPos = tok.Pos
		return n
	case token.STRING:
		p.nextToken()
		return &String{Value: tok.Literal, StrPos: tok.Pos}
	case token.TRUE, token.FALSE:
		p.nextToken()
		return &Bool{Value: tok.Type == token.TRUE, BoolPos: tok.Pos}
	case token.LBRACKET:
		return p.parseList()
	case token.IDENT:
		if p.peek.Type == token.LPAREN {
			if c := p.parseCall(); c != nil {
				return c
			}
			return nil
		}
		p.err = &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected identifier %q, strings must be quoted", tok.Literal)}
		return nil
	}
	p.unexpected("value")
	return nil
}

// list → '[' [value {',' value}] ']'
func (p *Parser) parseList() Expr {
	list := &List{Lbrack: p.token.Pos}
	p.nextToken()
	if p.match(token.RBRACKET) {
		return list
	}
	for p.err == nil {
		v := p.parseValue()
		if v == nil {
			return nil
		}
		list.Items = append(list.Items, v)
		if p.match(token.COMMA) {
			continue
		}
		if !p.expect(token.RBRACKET) {
			return nil
		}
		break
	}
	return list
}

func (p *Parser) number(tok token.Token, negative bool) *Number {
	raw := tok.Literal
	if negative {
		raw = "-" + raw
	}
	if !strings.ContainsAny(raw, ".eE") {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &Number{Value: v, Raw: raw, NumPos: tok.Pos}
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = &ParseError{Pos: tok.Pos, Message: fmt.Sprintf(errInvalidNumber, raw)}
		return nil
	}
	return &Number{Value: v, Raw: raw, NumPos: tok.Pos}
}
