package codec

import (
	"fmt"

	"github.com/leapstack-labs/sspace/pkg/notation"
	"github.com/leapstack-labs/sspace/pkg/space"
)

var leafKinds = map[string]bool{
	string(space.KindUniform):     true,
	string(space.KindNormal):      true,
	string(space.KindCategorical): true,
	string(space.KindOrdinal):     true,
	string(space.KindVariable):    true,
	"identity":                    true,
}

// Deserialize declares the content of data in target. Each entry is one
// of:
//
//   - a string: a leaf in compact notation
//   - a single-key mapping {kind: {..., "name": <entry key>}}: a leaf in
//     canonical form
//   - any other mapping: a subspace, reusing an existing one of that name
//
// Forms can be mixed freely at every level.
func Deserialize(data *Map, target *space.Space) error {
	for key, value := range data.All() {
		if err := decodeEntry(target, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Decode builds a new root space from data.
func Decode(data *Map, opts ...space.Option) (*space.Space, error) {
	s := space.New(opts...)
	if err := Deserialize(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeEntry prefixes errors with the entry's full path. Errors from
// nested subspaces already carry theirs.
func decodeEntry(target *space.Space, key string, value any) error {
	var err error
	switch v := value.(type) {
	case string:
		err = notation.Decode(target, key, v)
	case *Map:
		if kind, attrs, ok := leafEntry(key, v); ok {
			err = decodeLeaf(target, key, kind, attrs)
			break
		}
		var sub *space.Space
		if sub, err = subspace(target, key); err == nil {
			return Deserialize(v, sub)
		}
	default:
		err = fmt.Errorf("expected a notation string or a mapping, got %T", value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", space.JoinPath(target.Path(), key), err)
	}
	return nil
}

// leafEntry applies the leaf detection rule: a single key naming a leaf
// kind whose attributes carry the entry key as "name".
func leafEntry(key string, m *Map) (string, *Map, bool) {
	if m.Len() != 1 {
		return "", nil, false
	}
	kind := m.Keys()[0]
	if !leafKinds[kind] {
		return "", nil, false
	}
	v, _ := m.Get(kind)
	attrs, ok := v.(*Map)
	if !ok {
		return "", nil, false
	}
	if name, _ := attrs.Get(keyName); name != key {
		return "", nil, false
	}
	return kind, attrs, true
}

func subspace(target *space.Space, key string) (*space.Space, error) {
	if existing, ok := target.Get(key); ok {
		if sub, ok := existing.(*space.Space); ok {
			return sub, nil
		}
		return nil, fmt.Errorf("%w: %q is already a leaf", space.ErrDuplicateName, key)
	}
	return target.Subspace(key)
}

type constrainable interface {
	EnableIf(space.Condition) error
	Forbid(space.Condition) error
}

func decodeLeaf(target *space.Space, key, kind string, attrs *Map) error {
	a := &attributes{m: attrs, used: map[string]bool{keyName: true}}

	cond, err := a.condition(keyConditionals)
	if err != nil {
		return err
	}
	forbid, err := a.condition(keyForbid)
	if err != nil {
		return err
	}

	var leaf constrainable
	switch space.Kind(kind) {
	case space.KindUniform, space.KindNormal:
		leaf, err = decodeContinuous(target, key, space.Kind(kind), a)
	case space.KindCategorical:
		leaf, err = decodeCategorical(target, key, a)
	case space.KindOrdinal:
		var seq []any
		if seq, err = a.list("sequence"); err == nil {
			if err = a.done(); err == nil {
				leaf, err = target.Ordinal(key, seq...)
			}
		}
	case space.KindVariable:
		if err = a.done(); err == nil {
			_, err = target.Variable(key)
		}
	default:
		size := int64(space.DefaultIdentitySize)
		if v, ok := a.get("size"); ok {
			n, isInt := v.(int64)
			if !isInt {
				return fmt.Errorf("identity size must be an integer, got %v", v)
			}
			size = n
		}
		if err = a.done(); err == nil {
			err = target.Identity(key, int(size))
		}
	}
	if err != nil {
		return err
	}

	if leaf == nil {
		if cond != nil || forbid != nil {
			return fmt.Errorf("%s entries cannot carry conditions", kind)
		}
		return nil
	}
	if cond != nil {
		if err := leaf.EnableIf(cond); err != nil {
			return err
		}
	}
	if forbid != nil {
		if err := leaf.Forbid(forbid); err != nil {
			return err
		}
	}
	return nil
}

func decodeContinuous(target *space.Space, key string, dist space.Kind, a *attributes) (constrainable, error) {
	lo, hi := "lower", "upper"
	if dist == space.KindNormal {
		lo, hi = "loc", "scale"
	}
	first, err := a.float(lo)
	if err != nil {
		return nil, err
	}
	second, err := a.float(hi)
	if err != nil {
		return nil, err
	}

	var opts []space.ContinuousOption
	if a.flag("discrete") {
		opts = append(opts, space.Discrete())
	}
	if a.flag("log") {
		opts = append(opts, space.Log())
	}
	if _, ok := a.get("quantization"); ok {
		q, err := a.float("quantization")
		if err != nil {
			return nil, err
		}
		opts = append(opts, space.Quantization(q))
	}
	if err := a.done(); err != nil {
		return nil, err
	}

	if dist == space.KindNormal {
		return target.Normal(key, first, second, opts...)
	}
	return target.Uniform(key, first, second, opts...)
}

func decodeCategorical(target *space.Space, key string, a *attributes) (constrainable, error) {
	v, ok := a.get("options")
	if !ok {
		return nil, fmt.Errorf("categorical %q: missing options", key)
	}
	options, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("categorical %q: options must be a mapping of choice to weight", key)
	}

	order := options.Keys()
	if _, ok := a.get("choices"); ok {
		choices, err := a.list("choices")
		if err != nil {
			return nil, err
		}
		order = order[:0]
		for _, c := range choices {
			s, ok := c.(string)
			if !ok {
				return nil, fmt.Errorf("categorical %q: choices must be strings, got %v", key, c)
			}
			order = append(order, s)
		}
	}
	if err := a.done(); err != nil {
		return nil, err
	}

	opts := make([]space.Choice, 0, len(order))
	for _, choice := range order {
		w, ok := options.Get(choice)
		if !ok {
			return nil, fmt.Errorf("categorical %q: no weight for choice %q", key, choice)
		}
		f, ok := toFloat(w)
		if !ok {
			return nil, fmt.Errorf("categorical %q: weight of %q must be a number", key, choice)
		}
		opts = append(opts, space.Choice{Value: choice, Weight: f})
	}
	return target.WeightedCategorical(key, opts...)
}

// DecodeCondition rebuilds a condition from {op: {name, value}},
// {op: [lhs, rhs]} or a notation string.
func DecodeCondition(v any) (space.Condition, error) {
	switch x := v.(type) {
	case string:
		return notation.DefaultRegistry().ParseCondition(x)
	case *Map:
		if x.Len() != 1 {
			return nil, fmt.Errorf("a condition has exactly one operator, got %v", x.Keys())
		}
		op := x.Keys()[0]
		body, _ := x.Get(op)
		switch space.Op(op) {
		case space.OpAnd, space.OpOr:
			operands, ok := body.([]any)
			if !ok || len(operands) != 2 {
				return nil, fmt.Errorf("%s expects two operands", op)
			}
			lhs, err := DecodeCondition(operands[0])
			if err != nil {
				return nil, err
			}
			rhs, err := DecodeCondition(operands[1])
			if err != nil {
				return nil, err
			}
			return space.NewCombinator(space.Op(op), lhs, rhs)
		}
		fields, ok := body.(*Map)
		if !ok {
			return nil, fmt.Errorf("%s expects {name, value}", op)
		}
		ref, _ := fields.Get(keyName)
		name, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("%s: reference name must be a string", op)
		}
		value, _ := fields.Get("value")
		return space.NewComparison(space.Op(op), name, value)
	}
	return nil, fmt.Errorf("unexpected condition %T", v)
}

// attributes reads a canonical attribute mapping and reports keys nobody
// asked for.
type attributes struct {
	m    *Map
	used map[string]bool
}

func (a *attributes) get(key string) (any, bool) {
	a.used[key] = true
	return a.m.Get(key)
}

func (a *attributes) float(key string) (float64, error) {
	v, ok := a.get(key)
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("attribute %q must be a number, got %v", key, v)
	}
	return f, nil
}

func (a *attributes) flag(key string) bool {
	v, _ := a.get(key)
	b, _ := v.(bool)
	return b
}

func (a *attributes) list(key string) ([]any, error) {
	v, ok := a.get(key)
	if !ok {
		return nil, fmt.Errorf("missing attribute %q", key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute %q must be a list", key)
	}
	return items, nil
}

func (a *attributes) condition(key string) (space.Condition, error) {
	v, ok := a.get(key)
	if !ok || v == nil {
		return nil, nil
	}
	c, err := DecodeCondition(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

func (a *attributes) done() error {
	for _, k := range a.m.Keys() {
		if !a.used[k] {
			return fmt.Errorf("unexpected attribute %q", k)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}
