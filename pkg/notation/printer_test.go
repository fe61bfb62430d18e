package notation_test

import (
	"testing"

	"github.com/leapstack-labs/sspace/pkg/notation"
	"github.com/leapstack-labs/sspace/pkg/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	s := space.New()
	opt, err := s.Categorical("optimizer", "sgd", "adam")
	require.NoError(t, err)
	lr, err := s.LogUniform("optimizer.lr", 1, 2, space.Quantization(0.01))
	require.NoError(t, err)
	require.NoError(t, lr.EnableIf(space.Either(opt.Eq("adam"), opt.Eq("sgd"))))
	require.NoError(t, lr.ForbidEqual(1))
	n, err := s.Normal("n", 0, 1e-5, space.Discrete())
	require.NoError(t, err)
	w, err := s.WeightedCategorical("w", space.Choice{Value: "it's", Weight: 0.25}, space.Choice{Value: "b", Weight: 0.75})
	require.NoError(t, err)
	o, err := s.Ordinal("o", 1, 2.0, "x", true)
	require.NoError(t, err)
	v, err := s.Variable("epoch")
	require.NoError(t, err)

	tests := []struct {
		name string
		leaf space.Leaf
		want string
	}{
		{"equal weights omitted", opt, "categorical(choices=['sgd', 'adam'])"},
		{"log variant with constraints", lr, "loguniform(lower=1.0, upper=2.0, quantization=0.01, condition=or(eq('optimizer', 'adam'), eq('optimizer', 'sgd')), forbid=eq('optimizer.lr', 1))"},
		{"normal", n, "normal(loc=0.0, scale=1e-05, discrete=true)"},
		{"weights and quoting", w, "categorical(choices=['it''s', 'b'], weights=[0.25, 0.75])"},
		{"ordinal", o, "ordinal(sequence=[1, 2.0, 'x', true])"},
		{"variable", v, "var()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := notation.Format(tt.leaf)
			assert.Equal(t, tt.want, got)

			// formatting what was decoded gives the same text back
			target := space.New()
			_, err := target.Categorical("optimizer", "sgd", "adam")
			require.NoError(t, err)
			name := "copy"
			if tt.leaf.Condition() != nil || tt.leaf.Forbidden() != nil {
				name = "optimizer.lr"
			}
			require.NoError(t, notation.Decode(target, name, got))
			if tt.leaf.Kind() == space.KindVariable {
				return
			}
			decoded, ok := target.Get(name)
			require.True(t, ok)
			assert.Equal(t, got, notation.Format(decoded.(space.Leaf)))
		})
	}

	assert.Equal(t, "identity(size=16)", notation.FormatIdentity(16))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{1, "1"},
		{int64(-3), "-3"},
		{1.0, "1.0"},
		{-0.5, "-0.5"},
		{1e21, "1e+21"},
		{"a'b", "'a''b'"},
		{false, "false"},
		{[]any{1, "x"}, "[1, 'x']"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, notation.FormatValue(tt.in))
	}
}
