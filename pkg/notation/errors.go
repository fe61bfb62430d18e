package notation

import (
	"fmt"

	"github.com/leapstack-labs/sspace/pkg/token"
)

// LexError is a tokenization failure.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// ParseError is a syntax error.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// UnknownConstructorError is returned when a call names something outside
// the constructor registry.
type UnknownConstructorError struct {
	Name string
	Pos  token.Position
}

func (e *UnknownConstructorError) Error() string {
	return fmt.Sprintf("unknown constructor %q at line %d, column %d", e.Name, e.Pos.Line, e.Pos.Column)
}

// EvalError is a well-formed call with arguments the constructor rejects.
type EvalError struct {
	Pos     token.Position
	Call    string
	Message string
	Err     error
}

func (e *EvalError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if !e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Call, msg)
	}
	return fmt.Sprintf("%s at line %d, column %d: %s", e.Call, e.Pos.Line, e.Pos.Column, msg)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Common error messages
const (
	errUnexpectedToken    = "unexpected token %s, expected %s"
	errUnexpectedOperator = "unexpected operator %q, only '=' is allowed after an argument name"
	errUnterminatedString = "unterminated string literal"
	errInvalidNumber      = "invalid number literal %q"
	errUnknownCharacter   = "unknown character %q"
)
