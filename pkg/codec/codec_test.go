package codec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/sspace/pkg/codec"
	"github.com/leapstack-labs/sspace/pkg/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree declares a tree with a two-level nested subspace, conditions,
// forbidden clauses, a variable and an identity directive.
func buildTree(t *testing.T) *space.Space {
	t.Helper()
	s := space.New()

	opt, err := s.Categorical("optimizer", "sgd", "adam")
	require.NoError(t, err)
	lr, err := s.LogUniform("optimizer.lr", 1, 2, space.Quantization(0.01))
	require.NoError(t, err)
	require.NoError(t, lr.EnableIf(space.Either(opt.Eq("adam"), opt.Eq("sgd"))))
	require.NoError(t, lr.ForbidEqual(1))

	kind, err := s.WeightedCategorical("model.encoder.kind",
		space.Choice{Value: "cnn", Weight: 0.2}, space.Choice{Value: "rnn", Weight: 0.8})
	require.NoError(t, err)
	depth, err := s.Uniform("model.encoder.depth", 1, 8, space.Discrete())
	require.NoError(t, err)
	require.NoError(t, depth.EnableIf(space.Both(kind.Ne("rnn"), space.Contains(kind, "cnn"))))
	require.NoError(t, depth.ForbidIn(3, 5))

	_, err = s.Normal("model.dropout", 0.1, 0.05)
	require.NoError(t, err)
	_, err = s.Ordinal("model.epoch", 1, 2, 3)
	require.NoError(t, err)

	model, ok := s.Get("model")
	require.True(t, ok)
	_, err = model.(*space.Space).Variable("step")
	require.NoError(t, err)
	require.NoError(t, s.Identity("uid", 12))
	return s
}

func TestCanonicalShape(t *testing.T) {
	s := space.New()
	a, err := s.Categorical("a", "x", "y")
	require.NoError(t, err)
	b, err := s.Uniform("sub.b", 0, 1)
	require.NoError(t, err)
	require.NoError(t, b.ForbidEqual(0.5))
	_ = a

	m, err := codec.Serialize(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"categorical": map[string]any{
				"options": map[string]any{"x": 0.5, "y": 0.5},
				"choices": []any{"x", "y"},
				"name":    "a",
			},
		},
		"sub": map[string]any{
			"b": map[string]any{
				"uniform": map[string]any{
					"lower":    0.0,
					"upper":    1.0,
					"discrete": false,
					"log":      false,
					"name":     "b",
					"forbid": map[string]any{
						"eq": map[string]any{"name": "b", "value": 0.5},
					},
				},
			},
		},
	}, m.ToMap())
	assert.Equal(t, []string{"a", "sub"}, m.Keys())
}

func TestCanonicalRoundTrip(t *testing.T) {
	s := buildTree(t)
	first, err := codec.Serialize(s)
	require.NoError(t, err)

	rebuilt, err := codec.Decode(first)
	require.NoError(t, err)
	second, err := codec.Serialize(rebuilt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"optimizer", "optimizer.lr", "model", "model.step", "uid"}, first.Keys())
}

func TestCompactRoundTrip(t *testing.T) {
	s := buildTree(t)
	first, err := codec.Compact(s)
	require.NoError(t, err)

	v, _ := first.Get("optimizer.lr")
	assert.Equal(t, "loguniform(lower=1.0, upper=2.0, quantization=0.01, condition=or(eq('optimizer', 'adam'), eq('optimizer', 'sgd')), forbid=eq('optimizer.lr', 1))", v)

	model, _ := first.Get("model")
	encoder, _ := model.(*codec.Map).Get("encoder")
	depth, _ := encoder.(*codec.Map).Get("depth")
	assert.Equal(t, "uniform(lower=1.0, upper=8.0, discrete=true, condition=and(ne('kind', 'rnn'), in('kind', ['cnn'])), forbid=in('depth', [3, 5]))", depth)

	rebuilt, err := codec.Decode(first)
	require.NoError(t, err)
	second, err := codec.Compact(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// both forms describe the same tree
	canonical, err := codec.Serialize(s)
	require.NoError(t, err)
	fromCompact, err := codec.Serialize(rebuilt)
	require.NoError(t, err)
	assert.Equal(t, canonical, fromCompact)
}

func TestMixedForms(t *testing.T) {
	data, err := codec.Unmarshal([]byte(`
optimizer: "categorical(choices=['sgd', 'adam'])"
optimizer.lr:
  uniform:
    name: optimizer.lr
    lower: 1
    upper: 2
    log: true
    conditionals: "eq('optimizer', 'adam')"
model:
  width: "uniform(lower=8, upper=64, discrete=true)"
  head:
    ordinal:
      name: head
      sequence: [1, 2]
  block:
    uniform:
      size: "normal(loc=0.0, scale=1.0)"
epoch:
  var:
    name: epoch
`))
	require.NoError(t, err)

	s, err := codec.Decode(data)
	require.NoError(t, err)

	lr, ok := s.Get("optimizer.lr")
	require.True(t, ok)
	assert.True(t, lr.(*space.Continuous).Log)
	assert.Equal(t, space.Eq(space.Path("optimizer"), "adam"), lr.(space.Leaf).Condition())

	width, ok := s.Get("model.width")
	require.True(t, ok)
	assert.True(t, width.(*space.Continuous).Discrete)

	_, ok = s.Get("model.head")
	require.True(t, ok)

	// "uniform" without a matching name attribute is a subspace
	size, ok := s.Get("model.block.uniform.size")
	require.True(t, ok)
	assert.Equal(t, space.KindNormal, size.(space.Leaf).Kind())

	require.Len(t, s.Variables(), 1)
}

func TestDeserializeIntoExistingSubspace(t *testing.T) {
	s := space.New()
	sub, err := s.Subspace("model")
	require.NoError(t, err)

	data := codec.FromMap(map[string]any{
		"model": map[string]any{"a": "uniform(0, 1)"},
	})
	require.NoError(t, codec.Deserialize(data, s))

	a, ok := sub.Child("a")
	require.True(t, ok)
	assert.Same(t, sub, a.Parent())
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		msg  string
	}{
		{
			name: "unknown attribute",
			data: map[string]any{"a": map[string]any{"uniform": map[string]any{
				"name": "a", "lower": 0, "upper": 1, "mean": 2,
			}}},
			msg: `a: unexpected attribute "mean"`,
		},
		{
			name: "missing bound",
			data: map[string]any{"a": map[string]any{"normal": map[string]any{"name": "a", "loc": 0}}},
			msg:  `missing attribute "scale"`,
		},
		{
			name: "bad condition",
			data: map[string]any{"a": map[string]any{"ordinal": map[string]any{
				"name": "a", "sequence": []any{1}, "conditionals": map[string]any{"eq": 1, "ne": 2},
			}}},
			msg: "exactly one operator",
		},
		{
			name: "null condition value",
			data: map[string]any{"a": map[string]any{"ordinal": map[string]any{
				"name": "a", "sequence": []any{1}, "forbid": map[string]any{"eq": map[string]any{"name": "a", "value": nil}},
			}}},
			msg: `a: forbid: invalid condition: eq("a") has no value`,
		},
		{
			name: "missing condition value",
			data: map[string]any{"a": map[string]any{"ordinal": map[string]any{
				"name": "a", "sequence": []any{1}, "conditionals": map[string]any{"ne": map[string]any{"name": "a"}},
			}}},
			msg: "invalid condition",
		},
		{
			name: "null in membership list",
			data: map[string]any{"a": map[string]any{"ordinal": map[string]any{
				"name": "a", "sequence": []any{1}, "forbid": map[string]any{"in": map[string]any{"name": "a", "value": []any{1, nil}}},
			}}},
			msg: "lists a nil value",
		},
		{
			name: "not a mapping",
			data: map[string]any{"a": 3},
			msg:  "expected a notation string or a mapping",
		},
		{
			name: "bad notation",
			data: map[string]any{"sub": map[string]any{"a": "uniform(0, 1"}},
			msg:  "sub.a: parse error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(codec.FromMap(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNullConditionValueInYAML(t *testing.T) {
	m, err := codec.Unmarshal([]byte(`
a:
  ordinal:
    name: a
    sequence: [1, 2]
    forbid:
      eq:
        name: a
        value: null
`))
	require.NoError(t, err)

	_, err = codec.Decode(m)
	require.ErrorIs(t, err, space.ErrInvalidCondition)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	s := buildTree(t)
	want, err := codec.Serialize(s)
	require.NoError(t, err)

	for _, name := range []string{"space.json", "space.yaml", "space.yml"} {
		for _, format := range []codec.Format{codec.FormatCanonical, codec.FormatCompact} {
			t.Run(name+"/"+string(format), func(t *testing.T) {
				path := filepath.Join(dir, string(format)+"-"+name)
				require.NoError(t, codec.SaveFile(path, s, format))

				loaded := space.New()
				require.NoError(t, codec.LoadFile(path, loaded))
				got, err := codec.Serialize(loaded)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}

	require.Error(t, codec.SaveFile(filepath.Join(dir, "space.toml"), s, codec.FormatCanonical))
	require.Error(t, codec.LoadFile(filepath.Join(dir, "missing.json"), space.New()))
}

func TestJSONKeepsOrder(t *testing.T) {
	m, err := codec.Unmarshal([]byte(`{"z": 1, "a": {"y": [1.5, "x", true], "b": null}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, m.Keys())

	inner, _ := m.Get("a")
	assert.Equal(t, []string{"y", "b"}, inner.(*codec.Map).Keys())
	y, _ := inner.(*codec.Map).Get("y")
	assert.Equal(t, []any{1.5, "x", true}, y)
	z, _ := m.Get("z")
	assert.Equal(t, int64(1), z)

	out, err := codec.Marshal(m, codec.SyntaxJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z": 1, "a": {"y": [1.5, "x", true], "b": null}}`, string(out))
	assert.Less(t, indexOf(string(out), `"z"`), indexOf(string(out), `"a"`))
}

func indexOf(s, sub string) int {
	for i := range len(s) - len(sub) + 1 {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestParseFormat(t *testing.T) {
	f, err := codec.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, codec.FormatCanonical, f)
	f, err = codec.ParseFormat("compact")
	require.NoError(t, err)
	assert.Equal(t, codec.FormatCompact, f)
	_, err = codec.ParseFormat("xml")
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	s := space.New()
	require.NoError(t, codec.LoadFile(path, s))
	assert.Zero(t, s.Len())
}
