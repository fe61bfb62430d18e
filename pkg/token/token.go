// Package token defines the token types for the compact space notation.
//
// The notation renders one dimension as a call expression such as
//
//	loguniform(lower=1.0, upper=2.0, quantization=0.01)
//
// and the lexer in pkg/notation splits that text into the tokens below.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // token.TokenType reads better than token.Type at call sites
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67, 1e-05
	STRING // 'hello'

	// Operators, at most two characters from ~ = ! > < & |
	OPERATOR

	// Separators
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	MINUS    // -

	// Keywords
	TRUE
	FALSE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	OPERATOR: "OPERATOR",

	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	MINUS:    "-",

	TRUE:  "TRUE",
	FALSE: "FALSE",
}

var keywords = map[string]TokenType{
	"true":  TRUE,
	"false": FALSE,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsOperatorChar reports whether ch belongs to the operator alphabet.
func IsOperatorChar(ch byte) bool {
	switch ch {
	case '~', '=', '!', '>', '<', '&', '|':
		return true
	}
	return false
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// String renders the token for error messages.
func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "EOF"
	case STRING:
		return fmt.Sprintf("'%s'", t.Literal)
	}
	return fmt.Sprintf("%q", t.Literal)
}
