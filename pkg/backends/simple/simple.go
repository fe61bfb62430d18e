// Package simple implements the reduced sampling backend. It draws every
// dimension independently and supports only the uniform family (real or
// integer, optionally log scaled), the plain normal and categoricals.
// Everything else is rejected when the space is compiled.
package simple

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/zeebo/xxh3"

	"github.com/leapstack-labs/sspace/pkg/space"
)

// Name is the registry name of this backend.
const Name = "simple"

func init() {
	space.RegisterBackend(Name, func(logger *slog.Logger) space.Compiler {
		return New(logger)
	})
}

// Compiler compiles space trees for the independent sampler.
type Compiler struct {
	logger *slog.Logger
}

// New creates a compiler. A nil logger discards output.
func New(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{logger: logger}
}

func (c *Compiler) Name() string { return Name }

// Compile renders s, failing on the first unsupported feature.
func (c *Compiler) Compile(s *space.Space) (space.Sampler, error) {
	cols, err := space.VisitDimension[[]*column, struct{}](builder{}, s)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("compiled space", "backend", Name, "parameters", len(cols))
	return &Sampler{columns: cols}, nil
}

type column struct {
	name string
	draw func(r *rand.Rand) any
}

type builder struct{}

func unsupported(feature string) error {
	return &space.UnsupportedError{Backend: Name, Feature: feature}
}

func (builder) DimLeaf(leaf space.Leaf) ([]*column, error) {
	col := &column{name: leaf.Name()}

	switch l := leaf.(type) {
	case *space.Continuous:
		if l.Quantization != nil {
			return nil, unsupported("quantization")
		}
		if l.Dist == space.KindNormal && l.Log {
			return nil, unsupported("lognormal")
		}
		col.draw = continuous(l)
	case *space.Categorical:
		choices := l.Choices()
		weights := l.Weights()
		col.draw = func(r *rand.Rand) any { return choices[pick(r, weights)] }
	default:
		return nil, unsupported(string(leaf.Kind()))
	}
	return []*column{col}, nil
}

func (b builder) DimNode(s *space.Space) ([]*column, error) {
	var cols []*column
	for name, child := range s.All() {
		sub, err := space.VisitDimension[[]*column, struct{}](b, child)
		if err != nil {
			return nil, err
		}
		if _, ok := child.(*space.Space); ok {
			for _, c := range sub {
				c.name = name + "." + c.name
			}
		} else {
			leaf := child.(space.Leaf)
			if cond := leaf.Condition(); cond != nil {
				if _, err := space.VisitCondition[[]*column, struct{}](b, space.ModeCondition, cond, sub, nil); err != nil {
					return nil, err
				}
			}
			if forbid := leaf.Forbidden(); forbid != nil {
				if _, err := space.VisitCondition[[]*column, struct{}](b, space.ModeForbid, forbid, sub, nil); err != nil {
					return nil, err
				}
			}
		}
		cols = append(cols, sub...)
	}
	return cols, nil
}

func (builder) CondLeaf(mode space.Mode, c *space.Comparison, _ []*column, _ *space.Scope[[]*column]) (struct{}, error) {
	return struct{}{}, unsupported(string(mode) + " " + string(c.Operator))
}

func (builder) CondNode(mode space.Mode, c *space.Combinator, _ []*column, _ *space.Scope[[]*column]) (struct{}, error) {
	return struct{}{}, unsupported(string(mode) + " " + string(c.Operator))
}

func continuous(c *space.Continuous) func(r *rand.Rand) any {
	a, b := c.A, c.B
	switch {
	case c.Dist == space.KindNormal && c.Discrete:
		return func(r *rand.Rand) any { return int64(math.Round(a + b*r.NormFloat64())) }
	case c.Dist == space.KindNormal:
		return func(r *rand.Rand) any { return a + b*r.NormFloat64() }
	case c.Log && c.Discrete:
		la, lb := math.Log(a), math.Log(b)
		return func(r *rand.Rand) any { return int64(math.Round(math.Exp(la + r.Float64()*(lb-la)))) }
	case c.Log:
		la, lb := math.Log(a), math.Log(b)
		return func(r *rand.Rand) any { return math.Exp(la + r.Float64()*(lb-la)) }
	case c.Discrete:
		lo, hi := int64(math.Ceil(a)), int64(math.Floor(b))
		return func(r *rand.Rand) any {
			if hi < lo {
				return lo
			}
			return lo + r.Int64N(hi-lo+1)
		}
	}
	return func(r *rand.Rand) any { return a + r.Float64()*(b-a) }
}

func pick(r *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return r.IntN(len(weights))
	}
	u := r.Float64() * total
	for i, w := range weights {
		if u < w {
			return i
		}
		u -= w
	}
	return len(weights) - 1
}

// Sampler draws each column from its own stream, seeded with the batch
// seed and a hash of the column's dotted name.
type Sampler struct {
	columns []*column
}

func (s *Sampler) Sample(n int, seed uint64) ([]map[string]any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", space.ErrInvalidCount, n)
	}
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = make(map[string]any, len(s.columns))
	}
	for _, c := range s.columns {
		r := rand.New(rand.NewPCG(seed, xxh3.HashString(c.name))) //nolint:gosec // reproducible sampling, not security
		for i := range out {
			out[i][c.name] = c.draw(r)
		}
	}
	return out, nil
}
