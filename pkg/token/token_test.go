package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/sspace/pkg/token"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  token.TokenType
	}{
		{"true", token.TRUE},
		{"false", token.FALSE},
		{"True", token.IDENT},
		{"uniform", token.IDENT},
	}
	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, token.LookupIdent(tt.ident))
		})
	}
}

func TestIsOperatorChar(t *testing.T) {
	for _, ch := range []byte("~=!><&|") {
		assert.True(t, token.IsOperatorChar(ch), string(ch))
	}
	for _, ch := range []byte("-+,()[]'a1 ") {
		assert.False(t, token.IsOperatorChar(ch), string(ch))
	}
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "(", token.LPAREN.String())
	assert.Equal(t, "TOKEN(99)", token.TokenType(99).String())

	assert.Equal(t, "EOF", token.Token{Type: token.EOF}.String())
	assert.Equal(t, "'it''s'", token.Token{Type: token.STRING, Literal: "it''s"}.String())
	assert.Equal(t, `"=="`, token.Token{Type: token.OPERATOR, Literal: "=="}.String())

	pos := token.Position{Line: 2, Column: 7, Offset: 12}
	assert.Equal(t, "2:7", pos.String())
	assert.True(t, pos.IsValid())
	assert.False(t, token.Position{}.IsValid())
}
