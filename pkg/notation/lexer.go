package notation

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sspace/pkg/token"
)

// Lexer tokenizes compact notation text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	err *LexError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error met, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) fail(pos token.Position, format string, args ...any) token.Token {
	if l.err == nil {
		l.err = &LexError{Pos: pos, Message: fmt.Sprintf(format, args...)}
	}
	return token.Token{Type: token.ILLEGAL, Literal: l.input[pos.Offset:l.pos], Pos: pos}
}

// NextToken returns the next token. After a lexical error it returns
// ILLEGAL and Err reports the cause.
func (l *Lexer) NextToken() token.Token {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}

	pos := l.currentPos()
	single := func(t token.TokenType) token.Token {
		tok := token.Token{Type: t, Literal: string(l.ch), Pos: pos}
		l.readChar()
		return tok
	}

	switch {
	case l.ch == 0:
		return token.Token{Type: token.EOF, Pos: pos}
	case l.ch == ',':
		return single(token.COMMA)
	case l.ch == '(':
		return single(token.LPAREN)
	case l.ch == ')':
		return single(token.RPAREN)
	case l.ch == '[':
		return single(token.LBRACKET)
	case l.ch == ']':
		return single(token.RBRACKET)
	case l.ch == '-':
		return single(token.MINUS)
	case token.IsOperatorChar(l.ch):
		start := l.pos
		l.readChar()
		if token.IsOperatorChar(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.OPERATOR, Literal: l.input[start:l.pos], Pos: pos}
	case l.ch == '\'':
		return l.readString(pos)
	case isLetter(l.ch):
		lit := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(lit), Literal: lit, Pos: pos}
	case isDigit(l.ch):
		return l.readNumber(pos)
	}

	l.readChar()
	return l.fail(pos, errUnknownCharacter, string(l.input[pos.Offset]))
}

// readString reads a single-quoted string. A doubled quote is an escaped
// quote: 'it''s' -> it's
func (l *Lexer) readString(pos token.Position) token.Token {
	l.readChar()

	var b strings.Builder
	for {
		switch {
		case l.ch == 0:
			return l.fail(pos, errUnterminatedString)
		case l.ch == '\'' && l.peekChar() == '\'':
			b.WriteByte('\'')
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar()
			return token.Token{Type: token.STRING, Literal: b.String(), Pos: pos}
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer, a decimal or a number with an exponent.
// A second '.', a dot with no digit after it and an exponent with no
// digits are all errors.
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' {
		l.readChar()
		if !isDigit(l.ch) {
			return l.fail(pos, errInvalidNumber, l.input[start:l.pos])
		}
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			l.readChar()
			return l.fail(pos, errInvalidNumber, l.input[start:l.pos])
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.fail(pos, errInvalidNumber, l.input[start:l.pos])
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if isLetter(l.ch) {
		l.readIdentifier()
		return l.fail(pos, errInvalidNumber, l.input[start:l.pos])
	}
	return token.Token{Type: token.NUMBER, Literal: l.input[start:l.pos], Pos: pos}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
