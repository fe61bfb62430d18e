package notation_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/sspace/pkg/notation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCall(t *testing.T) {
	call, err := notation.Parse("loguniform(lower=1, upper=2.5, condition=or(eq('a', 'x'), in('b', [1, -2])))")
	require.NoError(t, err)

	assert.Equal(t, "loguniform", call.Name)
	require.Len(t, call.Args, 3)
	assert.Equal(t, "lower", call.Args[0].Name)
	assert.Equal(t, int64(1), call.Args[0].Value.(*notation.Number).Value)
	assert.Equal(t, 2.5, call.Args[1].Value.(*notation.Number).Value)

	cond := call.Args[2].Value.(*notation.Call)
	assert.Equal(t, "or", cond.Name)
	require.Len(t, cond.Args, 2)

	in := cond.Args[1].Value.(*notation.Call)
	assert.Equal(t, "in", in.Name)
	list := in.Args[1].Value.(*notation.List)
	require.Len(t, list.Items, 2)
	assert.Equal(t, int64(-2), list.Items[1].(*notation.Number).Value)
}

func TestParseEmptyCalls(t *testing.T) {
	call, err := notation.Parse("var()")
	require.NoError(t, err)
	assert.Equal(t, "var", call.Name)
	assert.Empty(t, call.Args)

	call, err = notation.Parse("ordinal(sequence=[])")
	require.NoError(t, err)
	assert.Empty(t, call.Args[0].Value.(*notation.List).Items)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column int
		msg    string
	}{
		{"comparison operator", "uniform(lower==1)", 14, "unexpected operator \"==\""},
		{"other operator", "uniform(lower~1)", 14, "unexpected operator \"~\""},
		{"bare operator", "uniform(<)", 9, "unexpected operator \"<\""},
		{"missing paren", "uniform(1, 2", 13, "expected )"},
		{"trailing input", "var() var()", 7, "expected end of input"},
		{"bare identifier", "categorical(choices=[a])", 22, "strings must be quoted"},
		{"not a call", "'uniform'", 1, "expected constructor name"},
		{"minus without number", "f(-'a')", 4, "number after '-'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := notation.Parse(tt.input)
			require.Error(t, err)

			var parseErr *notation.ParseError
			require.True(t, errors.As(err, &parseErr), "got %T: %v", err, err)
			assert.Equal(t, tt.column, parseErr.Pos.Column)
			assert.Contains(t, parseErr.Message, tt.msg)
		})
	}
}

func TestParseSurfacesLexErrors(t *testing.T) {
	_, err := notation.Parse("uniform(lower=1.2.3)")
	var lexErr *notation.LexError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 15, lexErr.Pos.Column)
}
