package constrained

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// predicate evaluates a condition against the values drawn so far. A
// comparison against an inactive dimension is false.
type predicate func(cfg map[string]any) bool

// drawFunc produces one value. index and seed locate the sample in the
// requested batch, which is what ordinal sequences walk on.
type drawFunc func(r *rand.Rand, seed uint64, index int) any

type param struct {
	name      string
	draw      drawFunc
	active    predicate
	forbidden predicate
}

func newParam(leaf space.Leaf) (*param, error) {
	p := &param{name: leaf.Name()}

	switch l := leaf.(type) {
	case *space.Continuous:
		p.draw = continuous(l)
	case *space.Categorical:
		p.draw = categorical(l)
	case *space.Ordinal:
		values := l.Values
		p.draw = func(_ *rand.Rand, seed uint64, index int) any {
			return values[(seed+uint64(index))%uint64(len(values))] //nolint:gosec // index is never negative
		}
	case *space.Variable:
		return nil, fmt.Errorf("%s: variables are declared on the root, not in the tree", l.Name())
	default:
		return nil, &space.UnsupportedError{Backend: Name, Feature: string(leaf.Kind())}
	}
	return p, nil
}

func continuous(c *space.Continuous) drawFunc {
	a, b := c.A, c.B
	var raw func(r *rand.Rand) float64

	switch {
	case c.Dist == space.KindUniform && c.Discrete && !c.Log:
		lo, hi := int64(math.Ceil(a)), int64(math.Floor(b))
		raw = func(r *rand.Rand) float64 {
			if hi < lo {
				return float64(lo)
			}
			return float64(lo + r.Int64N(hi-lo+1))
		}
	case c.Dist == space.KindUniform && c.Log:
		la, lb := math.Log(a), math.Log(b)
		raw = func(r *rand.Rand) float64 { return math.Exp(la + r.Float64()*(lb-la)) }
	case c.Dist == space.KindUniform:
		raw = func(r *rand.Rand) float64 { return a + r.Float64()*(b-a) }
	case c.Log:
		raw = func(r *rand.Rand) float64 { return math.Exp(a + b*r.NormFloat64()) }
	default:
		raw = func(r *rand.Rand) float64 { return a + b*r.NormFloat64() }
	}

	q := c.Quantization
	bounded := c.Dist == space.KindUniform
	discrete := c.Discrete

	return func(r *rand.Rand, _ uint64, _ int) any {
		v := raw(r)
		if q != nil {
			v = math.Round(v / *q) * *q
		}
		if bounded {
			v = math.Min(math.Max(v, a), b)
		}
		if discrete {
			return int64(math.Round(v))
		}
		return v
	}
}

func categorical(c *space.Categorical) drawFunc {
	choices := c.Choices()
	weights := c.Weights()

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	return func(r *rand.Rand, _ uint64, _ int) any {
		u := r.Float64() * total
		for i, w := range weights {
			if u < w {
				return choices[i]
			}
			u -= w
		}
		return choices[len(choices)-1]
	}
}

func comparison(op space.Op, ref *param, value any) predicate {
	return func(cfg map[string]any) bool {
		v, ok := cfg[ref.name]
		if !ok {
			return false
		}
		switch op {
		case space.OpEq:
			return space.EqualValues(v, value)
		case space.OpNe:
			return !space.EqualValues(v, value)
		case space.OpLt:
			c, ok := space.CompareValues(v, value)
			return ok && c < 0
		case space.OpGt:
			c, ok := space.CompareValues(v, value)
			return ok && c > 0
		case space.OpIn:
			return space.ContainsValue(value, v)
		}
		return false
	}
}
