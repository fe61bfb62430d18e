package space_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/sspace/internal/testutil"
	"github.com/leapstack-labs/sspace/pkg/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantCompiler samples every leaf as its dotted path, which is enough
// to exercise the tree side of sampling without a real backend.
type constantCompiler struct{}

func (constantCompiler) Name() string { return "constant" }

func (constantCompiler) Compile(s *space.Space) (space.Sampler, error) {
	var paths []string
	for path := range s.Dimensions() {
		paths = append(paths, path)
	}
	return constantSampler(paths), nil
}

type constantSampler []string

func (c constantSampler) Sample(n int, seed uint64) ([]map[string]any, error) {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{}
		for _, p := range c {
			out[i][p] = p
		}
	}
	return out, nil
}

func init() {
	space.RegisterBackend("constant", func(*slog.Logger) space.Compiler { return constantCompiler{} })
}

func newConstantSpace(t *testing.T) *space.Space {
	t.Helper()
	return space.New(space.WithBackend("constant"), space.WithLogger(testutil.NewTestLogger(t)))
}

func TestEnableIfOnce(t *testing.T) {
	s := space.New()
	a, err := s.Uniform("a", 0, 1)
	require.NoError(t, err)
	b, err := s.Uniform("b", 0, 1)
	require.NoError(t, err)

	require.NoError(t, b.EnableIf(a.Gt(0.5)))
	err = b.EnableIf(a.Lt(0.1))
	require.Error(t, err)
	assert.ErrorIs(t, err, space.ErrDuplicateCondition)
	assert.Contains(t, err.Error(), "Either or Both")

	assert.Equal(t, &space.Comparison{Operator: space.OpGt, Ref: "a", Value: 0.5}, b.Condition())
}

func TestForbidCombinesWithAnd(t *testing.T) {
	s := space.New()
	a, err := s.Ordinal("a", 1, 2, 3)
	require.NoError(t, err)

	require.NoError(t, a.ForbidEqual(1))
	require.NoError(t, a.ForbidIn(2, 3))

	want := space.Both(
		space.Eq(a, int64(1)),
		space.Contains(a, int64(2), int64(3)),
	)
	assert.Equal(t, want, a.Forbidden())
	assert.Equal(t, []string{"a", "a"}, space.References(a.Forbidden()))
}

func TestConditionConstructors(t *testing.T) {
	a := space.Path("sub.a")
	tests := []struct {
		name string
		cond space.Condition
		op   space.Op
		str  string
	}{
		{"eq", space.Eq(a, 1), space.OpEq, "sub.a == 1"},
		{"ne", space.Ne(a, "x"), space.OpNe, "sub.a != x"},
		{"lt", space.Lt(a, 2.5), space.OpLt, "sub.a < 2.5"},
		{"gt", space.Gt(a, 0), space.OpGt, "sub.a > 0"},
		{"in", space.Contains(a, 1, 2), space.OpIn, "sub.a in [1 2]"},
		{"or", space.Either(space.Eq(a, 1), space.Eq(a, 2)), space.OpOr, "(sub.a == 1 | sub.a == 2)"},
		{"and", space.Both(space.Gt(a, 1), space.Lt(a, 2)), space.OpAnd, "(sub.a > 1 & sub.a < 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.op, tt.cond.Op())
			assert.Equal(t, tt.str, tt.cond.String())
		})
	}

	_, err := space.NewComparison(space.OpAnd, "a", 1)
	assert.Error(t, err)
	_, err = space.NewCombinator(space.OpOr, space.Eq(a, 1), nil)
	assert.Error(t, err)
}

func TestConditionsRejectNilValues(t *testing.T) {
	a := space.Path("a")
	tests := []struct {
		name string
		cond space.Condition
	}{
		{"eq nil", space.Eq(a, nil)},
		{"in with nil", space.Contains(a, 1, nil)},
		{"nested in combinator", space.Either(space.Eq(a, 1), space.Ne(a, nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := space.New()
			b, err := s.Uniform("b", 0, 1)
			require.NoError(t, err)

			assert.ErrorIs(t, b.EnableIf(tt.cond), space.ErrInvalidCondition)
			assert.ErrorIs(t, b.Forbid(tt.cond), space.ErrInvalidCondition)
			assert.Nil(t, b.Condition())
			assert.Nil(t, b.Forbidden())
		})
	}

	_, err := space.NewComparison(space.OpEq, "a", nil)
	assert.ErrorIs(t, err, space.ErrInvalidCondition)
	_, err = space.NewComparison(space.OpIn, "a", []any{"x", nil})
	assert.ErrorIs(t, err, space.ErrInvalidCondition)
}

func TestVariableForwardedToRoot(t *testing.T) {
	s := space.New()
	sub, err := s.Subspace("train")
	require.NoError(t, err)

	v, err := sub.Variable("epoch")
	require.NoError(t, err)
	assert.Equal(t, "train.epoch", v.Name())
	assert.Same(t, s, v.Parent())

	_, err = s.Variable("train.epoch")
	assert.ErrorIs(t, err, space.ErrDuplicateName)

	vars := s.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, "train.epoch", vars[0].Name())
	assert.Empty(t, sub.Keys(), "variables are not tree children")
}

func TestSubspaceInheritsBackend(t *testing.T) {
	s := space.New(space.WithBackend("simple"))
	sub, err := s.Subspace("a.b")
	require.NoError(t, err)
	assert.Equal(t, "simple", sub.Backend())
	assert.Equal(t, "a.b", sub.Path())
	assert.Same(t, s, sub.Root())
}

func TestSampleMissingVariables(t *testing.T) {
	s := newConstantSpace(t)
	_, err := s.Uniform("a", 0, 1)
	require.NoError(t, err)
	_, err = s.Variable("epoch")
	require.NoError(t, err)
	sub, err := s.Subspace("sub")
	require.NoError(t, err)
	_, err = sub.Variable("step")
	require.NoError(t, err)

	_, err = s.Sample(1, 0, map[string]any{"unrelated": 1})
	require.Error(t, err)

	var missing *space.MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"epoch", "sub.step"}, missing.Names)
	assert.ErrorIs(t, err, space.ErrMissingVariable)
	assert.Nil(t, s.Handle(), "nothing may be compiled before variables are checked")
}

func TestSampleMergesVariablesAndIdentity(t *testing.T) {
	s := newConstantSpace(t)
	_, err := s.Uniform("a", 0, 1)
	require.NoError(t, err)
	_, err = s.Uniform("sub.b", 0, 1)
	require.NoError(t, err)
	sub, ok := s.Get("sub")
	require.True(t, ok)
	_, err = sub.(*space.Space).Variable("epoch")
	require.NoError(t, err)
	require.NoError(t, s.Identity("uid", 8))

	samples, err := s.Sample(2, 3, map[string]any{"sub.epoch": 7})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	flat := map[string]any{"a": "a", "sub.b": "sub.b", "sub.epoch": int64(7)}
	uid := space.ComputeIdentity(flat, 8)
	assert.Equal(t, map[string]any{
		"a":   "a",
		"sub": map[string]any{"b": "sub.b", "epoch": int64(7)},
		"uid": uid,
	}, samples[0])
	assert.Equal(t, samples[0], samples[1])
}

func TestInstantiateFreezes(t *testing.T) {
	s := newConstantSpace(t)
	a, err := s.Uniform("a", 0, 1)
	require.NoError(t, err)
	sub, err := s.Subspace("sub")
	require.NoError(t, err)

	sampler, err := s.Instantiate("")
	require.NoError(t, err)
	assert.Equal(t, sampler, s.Handle())
	assert.True(t, sub.Frozen())

	_, err = s.Uniform("b", 0, 1)
	assert.ErrorIs(t, err, space.ErrFrozen)
	_, err = sub.Normal("c", 0, 1)
	assert.ErrorIs(t, err, space.ErrFrozen)
	_, err = s.Variable("v")
	assert.ErrorIs(t, err, space.ErrFrozen)
	assert.ErrorIs(t, a.EnableIf(space.Eq(a, 1)), space.ErrFrozen)
	assert.ErrorIs(t, s.Identity("uid", 4), space.ErrFrozen)
}

func TestInstantiateUnknownBackend(t *testing.T) {
	s := space.New(space.WithBackend("nope"))
	_, err := s.Instantiate("")
	require.Error(t, err)

	var unknown *space.UnknownBackendError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Name)
	assert.Contains(t, unknown.Available, "constant")
	assert.False(t, s.Frozen())
}

func TestRegistry(t *testing.T) {
	assert.True(t, space.IsRegistered("constant"))
	assert.False(t, space.IsRegistered("missing"))
	assert.Contains(t, space.ListBackends(), "constant")

	_, err := space.NewCompiler("", nil)
	assert.Error(t, err)
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantLen int
		wantErr error
	}{
		{name: "negative", n: -1, wantErr: space.ErrInvalidCount},
		{name: "very negative", n: -1 << 40, wantErr: space.ErrInvalidCount},
		{name: "zero", n: 0, wantLen: 0},
		{name: "positive", n: 3, wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newConstantSpace(t)
			_, err := s.Uniform("a", 0, 1)
			require.NoError(t, err)

			samples, err := s.Sample(tt.n, 0, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, samples)
				assert.Nil(t, s.Handle(), "a bad count is rejected before compiling")
				return
			}
			require.NoError(t, err)
			assert.Len(t, samples, tt.wantLen)
		})
	}
}
